package store

import (
	"encoding/json"
	"sync"
)

// memoryMedium keeps snapshots in process memory. Used by tests and by the
// "memory" backend for throwaway sessions.
type memoryMedium struct {
	mu     sync.Mutex
	tables map[string]Snapshot
}

var _ Medium = (*memoryMedium)(nil)

func newMemoryMedium() *memoryMedium {
	return &memoryMedium{tables: make(map[string]Snapshot)}
}

func (m *memoryMedium) Load(table string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySnapshot(m.tables[table]), nil
}

func (m *memoryMedium) Save(table string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = copySnapshot(snap)
	return nil
}

func (m *memoryMedium) Close() error { return nil }

func copySnapshot(s Snapshot) Snapshot {
	out := Snapshot{Seq: s.Seq}
	if s.Records != nil {
		out.Records = make([]json.RawMessage, len(s.Records))
		for i, r := range s.Records {
			out.Records[i] = append(json.RawMessage(nil), r...)
		}
	}
	return out
}
