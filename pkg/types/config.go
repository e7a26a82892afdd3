package types

import "errors"

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// UniqueNames rejects a second record with the same name in a table.
	// Off by default: records are addressed by id and names may repeat.
	UniqueNames bool `json:"unique_names" yaml:"unique_names"`
}

// Supported backend names.
const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendJSONL:  true,
	BackendSQLite: true,
	BackendMemory: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return nil
}
