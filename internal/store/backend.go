// Package store implements the shopkeeper record store: typed tables over a
// pluggable whole-table persistence medium (JSONL files, SQLite, or memory).
package store

import (
	"sync"
	"time"

	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

// Backend implements the Store interface over a Medium.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	medium   Medium
	tables   map[string]*table

	// now is the clock used for CreatedAt and UpdatedAt.
	now func() time.Time
}

var _ types.Store = (*Backend)(nil)

// NewBackend creates a new backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{
		tables: make(map[string]*table),
		now:    time.Now,
	}
}

// GetTable returns a Table interface for the specified table name.
// Returns ErrTableNotFound if the table name is not recognized.
// Returns ErrStoreDetached if the backend is not attached.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	t, ok := b.tables[name]
	if !ok {
		return nil, types.ErrTableNotFound
	}
	return t, nil
}

// Attach opens the medium named by config and creates the table accessors.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	medium, err := OpenMedium(config)
	if err != nil {
		return err
	}
	b.attachLocked(config, medium)
	return nil
}

// AttachMedium attaches the backend to an already opened medium. The backend
// takes ownership and closes it on Detach.
func (b *Backend) AttachMedium(config types.Config, medium Medium) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	b.attachLocked(config, medium)
	return nil
}

func (b *Backend) attachLocked(config types.Config, medium Medium) {
	b.config = config
	b.medium = medium
	b.attached = true

	for _, name := range types.StandardTableNames {
		k, _ := kindFor(name)
		b.tables[name] = newTable(b, name, k)
	}
}

// Detach closes the medium. After Detach, all operations return
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	err := b.medium.Close()
	b.medium = nil
	b.attached = false
	b.tables = make(map[string]*table)
	return err
}

// acquire returns the medium and holds the backend read lock until release
// is called, so Detach cannot close the medium under a running operation.
func (b *Backend) acquire() (Medium, func(), error) {
	b.mu.RLock()
	if !b.attached {
		b.mu.RUnlock()
		return nil, nil, types.ErrStoreDetached
	}
	return b.medium, b.mu.RUnlock, nil
}
