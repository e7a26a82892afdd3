// Package store provides the public API for the shopkeeper record store.
// This package exposes the factory function for creating backends while
// keeping implementation details internal.
package store

import (
	"github.com/mesh-intelligence/shopkeeper/internal/store"
	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

// NewBackend creates a new store backend. The medium (jsonl, sqlite or
// memory) is chosen by the Config passed to Attach.
//
// Example:
//
//	backend := store.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".shopkeeper-db",
//	})
//	defer backend.Detach()
func NewBackend() types.Store {
	return store.NewBackend()
}
