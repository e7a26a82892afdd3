package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/shopkeeper/internal/access"
	"github.com/mesh-intelligence/shopkeeper/internal/paginate"
	"github.com/mesh-intelligence/shopkeeper/internal/session"
	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend     = "backend"
	cfgKeyDataDir     = "data_dir"
	cfgKeyUniqueNames = "unique_names"
	cfgKeyPageSize    = "page_size"
	cfgKeyViewTimeout = "view_timeout"
	cfgKeyFlowTimeout = "flow_timeout"
	cfgKeyLogFormat   = "log_format"
	cfgKeyLogLevel    = "log_level"
	cfgKeyActor       = "actor"
	cfgKeyGrants      = "grants"
	cfgKeyChannels    = "channels"

	defaultBackend   = types.BackendJSONL
	defaultLogFormat = "json"
	defaultLogLevel  = "warn"
	defaultActor     = "console"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# shopkeeper configuration

# Storage medium: jsonl, sqlite or memory
backend: jsonl

# Data directory (optional; overridable by --data-dir)
# data_dir:

# Reject a second NPC or item with a name already in use
unique_names: false

# Browsing
page_size: 5
view_timeout: 180s
flow_timeout: 60s

# Logging to stderr: json or text; debug, info, warn or error
log_format: json
log_level: warn

# Actor used when --actor is not given
actor: console

# Channels offered by the interactive NPC creation flow
channels: []

# Capability grants: capability -> permission patterns (':' separated globs)
grants:
  manage: ["manage", "manage:*", "administrator"]
`

// settings is the effective configuration after defaults and config.yaml.
type settings struct {
	Backend     string
	DataDir     string
	UniqueNames bool
	PageSize    int
	ViewTimeout time.Duration
	FlowTimeout time.Duration
	LogFormat   string
	LogLevel    string
	Actor       string
	Grants      map[string][]string
	Channels    []string
}

func (s settings) storeConfig() types.Config {
	return types.Config{
		Backend:     s.Backend,
		DataDir:     s.DataDir,
		UniqueNames: s.UniqueNames,
	}
}

// loadConfig reads config.yaml from the resolved config directory using Viper.
// It creates the config directory and a default config.yaml on first run.
// A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeyUniqueNames, false)
	v.SetDefault(cfgKeyPageSize, paginate.DefaultPageSize)
	v.SetDefault(cfgKeyViewTimeout, paginate.DefaultTimeout)
	v.SetDefault(cfgKeyFlowTimeout, session.DefaultTimeout)
	v.SetDefault(cfgKeyLogFormat, defaultLogFormat)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyActor, defaultActor)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// readSettings extracts the effective settings from v.
func readSettings(v *viper.Viper) settings {
	s := settings{
		Backend:     v.GetString(cfgKeyBackend),
		DataDir:     v.GetString(cfgKeyDataDir),
		UniqueNames: v.GetBool(cfgKeyUniqueNames),
		PageSize:    v.GetInt(cfgKeyPageSize),
		ViewTimeout: v.GetDuration(cfgKeyViewTimeout),
		FlowTimeout: v.GetDuration(cfgKeyFlowTimeout),
		LogFormat:   v.GetString(cfgKeyLogFormat),
		LogLevel:    v.GetString(cfgKeyLogLevel),
		Actor:       v.GetString(cfgKeyActor),
		Grants:      v.GetStringMapStringSlice(cfgKeyGrants),
		Channels:    v.GetStringSlice(cfgKeyChannels),
	}
	if len(s.Grants) == 0 {
		s.Grants = access.DefaultGrants
	}
	return s
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
