package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

// Snapshot is the whole persisted content of one table: its records in
// insertion order and the highest id the table has ever assigned.
type Snapshot struct {
	Seq     int64
	Records []json.RawMessage
}

// Medium is a keyed table store with whole-table read and write.
// Implementations must make Save atomic: after a failed Save the previous
// snapshot is still what Load returns.
type Medium interface {
	// Load returns the snapshot for table. A table that was never saved
	// loads as an empty snapshot.
	Load(table string) (Snapshot, error)

	// Save replaces the snapshot for table.
	Save(table string, snap Snapshot) error

	// Close releases the medium's resources.
	Close() error
}

// dbFileName is the SQLite database file inside DataDir.
const dbFileName = "shopkeeper.db"

// OpenMedium opens the medium named by config.Backend.
func OpenMedium(config types.Config) (Medium, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}

	switch config.Backend {
	case types.BackendJSONL:
		return openJSONLMedium(dataDir, types.StandardTableNames)
	case types.BackendSQLite:
		return openSQLiteMedium(filepath.Join(dataDir, dbFileName))
	case types.BackendMemory:
		return newMemoryMedium(), nil
	default:
		return nil, fmt.Errorf("open medium %q: %w", config.Backend, types.ErrBackendUnknown)
	}
}
