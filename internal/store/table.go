package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

// table implements types.Table for one entity kind. Every operation loads
// the whole table from the medium, and every mutation writes it back whole
// before returning. mu is held across the full read-modify-write so at most
// one operation touches the table at a time.
type table struct {
	name    string
	kind    kind
	backend *Backend
	mu      sync.Mutex
}

var _ types.Table = (*table)(nil)

func newTable(b *Backend, name string, k kind) *table {
	return &table{name: name, kind: k, backend: b}
}

// tableState is the decoded content of a table.
type tableState struct {
	seq     int64
	records []types.Record
}

// nextID returns one more than the highest id ever assigned.
func (s *tableState) nextID() int64 {
	hi := s.seq
	for _, r := range s.records {
		if r.RecordID() > hi {
			hi = r.RecordID()
		}
	}
	return hi + 1
}

func (s *tableState) index(id int64) int {
	for i, r := range s.records {
		if r.RecordID() == id {
			return i
		}
	}
	return -1
}

// nameTaken reports whether a record other than exceptID carries name.
func (s *tableState) nameTaken(k kind, name string, exceptID int64) bool {
	for _, r := range s.records {
		if r.RecordID() != exceptID && k.name(r) == name {
			return true
		}
	}
	return false
}

// Create assigns the next id, stamps CreatedAt and persists the record.
func (t *table) Create(data any) (int64, error) {
	rec, err := t.kind.accept(data)
	if err != nil {
		return 0, err
	}

	medium, release, err := t.backend.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := t.load(medium)
	if err != nil {
		return 0, err
	}
	if t.backend.config.UniqueNames && st.nameTaken(t.kind, t.kind.name(rec), 0) {
		return 0, types.ErrDuplicateName
	}

	id := st.nextID()
	t.kind.stamp(rec, id, t.backend.now().UTC())
	st.records = append(st.records, rec)
	st.seq = id

	if err := t.save(medium, st); err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns the record with the given id.
func (t *table) Get(id int64) (any, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}

	medium, release, err := t.backend.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := t.load(medium)
	if err != nil {
		return nil, err
	}
	i := st.index(id)
	if i < 0 {
		return nil, types.ErrNotFound
	}
	return st.records[i], nil
}

// Update merges patch into the record and persists. Nothing is written when
// the merged record fails validation or the name check.
func (t *table) Update(id int64, patch any) (any, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}

	medium, release, err := t.backend.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := t.load(medium)
	if err != nil {
		return nil, err
	}
	i := st.index(id)
	if i < 0 {
		return nil, types.ErrNotFound
	}

	rec := st.records[i]
	before := t.kind.name(rec)
	if err := t.kind.apply(rec, patch, t.backend.now().UTC()); err != nil {
		return nil, err
	}
	if after := t.kind.name(rec); after != before && t.backend.config.UniqueNames &&
		st.nameTaken(t.kind, after, id) {
		return nil, types.ErrDuplicateName
	}

	if err := t.save(medium, st); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the record. The sequence is kept, so the id is never
// assigned again.
func (t *table) Delete(id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}

	medium, release, err := t.backend.acquire()
	if err != nil {
		return err
	}
	defer release()

	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := t.load(medium)
	if err != nil {
		return err
	}
	i := st.index(id)
	if i < 0 {
		return types.ErrNotFound
	}
	if id > st.seq {
		st.seq = id
	}
	st.records = append(st.records[:i:i], st.records[i+1:]...)

	return t.save(medium, st)
}

// Fetch returns the records matching filter in insertion order. The result is
// never nil.
func (t *table) Fetch(filter types.Filter) ([]any, error) {
	medium, release, err := t.backend.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := t.load(medium)
	if err != nil {
		return nil, err
	}

	results := make([]any, 0, len(st.records))
	for _, r := range st.records {
		ok, err := filter.Matches(r)
		if err != nil {
			return nil, err
		}
		if ok {
			results = append(results, r)
		}
	}
	return results, nil
}

// load reads and decodes the table. Undecodable records, records without a
// positive id and repeated ids are skipped.
func (t *table) load(m Medium) (*tableState, error) {
	snap, err := m.Load(t.name)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", t.name, err)
	}

	st := &tableState{seq: snap.Seq, records: make([]types.Record, 0, len(snap.Records))}
	seen := make(map[int64]bool, len(snap.Records))
	for _, raw := range snap.Records {
		rec, err := t.kind.decode(raw)
		if err != nil {
			continue
		}
		id := rec.RecordID()
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		st.records = append(st.records, rec)
	}
	return st, nil
}

// save encodes every record and writes the table whole.
func (t *table) save(m Medium, st *tableState) error {
	snap := Snapshot{Seq: st.seq, Records: make([]json.RawMessage, 0, len(st.records))}
	for _, r := range st.records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshaling %s record %d: %w", t.name, r.RecordID(), err)
		}
		snap.Records = append(snap.Records, data)
	}
	if err := m.Save(t.name, snap); err != nil {
		return fmt.Errorf("persisting %s: %w", t.name, err)
	}
	return nil
}
