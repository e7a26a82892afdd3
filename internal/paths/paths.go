// Package paths resolves configuration and data directory locations.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AppName is the directory name used under platform config and data roots.
const AppName = "shopkeeper"

// DefaultDataDirName is the CWD-relative data directory used when nothing
// else names one.
const DefaultDataDirName = ".shopkeeper-db"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "SHOPKEEPER_CONFIG_DIR"
	EnvDataDir   = "SHOPKEEPER_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/shopkeeper (fallback ~/.config/shopkeeper)
// macOS:   ~/Library/Application Support/shopkeeper
// Windows: %APPDATA%/shopkeeper
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	return userConfigSubdir()
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/shopkeeper (fallback ~/.local/share/shopkeeper)
// macOS and Windows: same as DefaultConfigDir.
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	return userConfigSubdir()
}

func xdgDir(env, homeRel string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, AppName), nil
}

func userConfigSubdir() (string, error) {
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > SHOPKEEPER_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	for _, v := range []string{flag, os.Getenv(EnvConfigDir)} {
		if v != "" {
			return absolute(v, "")
		}
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configValue > SHOPKEEPER_DATA_DIR env > $(CWD)/.shopkeeper-db.
// A relative configValue is resolved against configDir.
func ResolveDataDir(flag, configValue, configDir string) (string, error) {
	switch {
	case flag != "":
		return absolute(flag, "")
	case configValue != "":
		return absolute(configValue, configDir)
	case os.Getenv(EnvDataDir) != "":
		return absolute(os.Getenv(EnvDataDir), "")
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// absolute expands a leading ~ and makes p absolute. Relative paths are
// joined to base when it is set, otherwise to the working directory.
func absolute(p, base string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	if !filepath.IsAbs(p) && base != "" {
		p = filepath.Join(base, p)
	}
	return filepath.Abs(p)
}
