package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeHome(t *testing.T, dir string, err error) {
	t.Helper()
	orig := platformDir.homeDir
	platformDir.homeDir = func() (string, error) { return dir, err }
	t.Cleanup(func() { platformDir.homeDir = orig })
}

func TestLinuxDefaults(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}
	fakeHome(t, "/home/tendero", nil)

	tests := []struct {
		name    string
		env     string
		envVal  string
		resolve func() (string, error)
		want    string
	}{
		{name: "config from XDG", env: "XDG_CONFIG_HOME", envVal: "/xdg/cfg", resolve: DefaultConfigDir, want: "/xdg/cfg/shopkeeper"},
		{name: "config under home", env: "XDG_CONFIG_HOME", resolve: DefaultConfigDir, want: "/home/tendero/.config/shopkeeper"},
		{name: "data from XDG", env: "XDG_DATA_HOME", envVal: "/xdg/data", resolve: DefaultDataDir, want: "/xdg/data/shopkeeper"},
		{name: "data under home", env: "XDG_DATA_HOME", resolve: DefaultDataDir, want: "/home/tendero/.local/share/shopkeeper"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.envVal)
			got, err := tt.resolve()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultConfigDirWithoutHome(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}
	fakeHome(t, "", errors.New("no home"))
	t.Setenv("XDG_CONFIG_HOME", "")

	_, err := DefaultConfigDir()
	assert.Error(t, err)
}

func TestResolveConfigDir(t *testing.T) {
	fakeHome(t, "/home/tendero", nil)

	tests := []struct {
		name   string
		flag   string
		envVal string
		want   string
	}{
		{name: "flag beats env", flag: "/srv/shop", envVal: "/etc/shop", want: "/srv/shop"},
		{name: "env when no flag", envVal: "/etc/shop", want: "/etc/shop"},
		{name: "tilde expanded", flag: "~/shop", want: "/home/tendero/shop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.envVal)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("platform default otherwise", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "")
		got, err := ResolveConfigDir("")
		require.NoError(t, err)
		assert.Equal(t, AppName, filepath.Base(got))
	})
}

func TestResolveDataDir(t *testing.T) {
	fakeHome(t, "/home/tendero", nil)
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name        string
		flag        string
		configValue string
		envVal      string
		want        string
	}{
		{name: "flag beats config and env", flag: "/flag/db", configValue: "/cfg/db", envVal: "/env/db", want: "/flag/db"},
		{name: "config beats env", configValue: "/cfg/db", envVal: "/env/db", want: "/cfg/db"},
		{name: "relative config value follows config dir", configValue: "tienda", want: "/etc/shop/tienda"},
		{name: "tilde in config value", configValue: "~/tienda", want: "/home/tendero/tienda"},
		{name: "env when flag and config empty", envVal: "/env/db", want: "/env/db"},
		{name: "relative flag follows cwd", flag: "db", want: filepath.Join(cwd, "db")},
		{name: "cwd default", want: filepath.Join(cwd, DefaultDataDirName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.envVal)
			got, err := ResolveDataDir(tt.flag, tt.configValue, "/etc/shop")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTildeWithoutHome(t *testing.T) {
	fakeHome(t, "", errors.New("no home"))
	t.Setenv(EnvDataDir, "")

	_, err := ResolveDataDir("~/db", "", "")
	assert.Error(t, err)
}
