// This file provides the JSONL medium: one <table>.jsonl file per table,
// written with the temp-file, fsync, rename pattern.

package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// seqHeader is the first line of every JSONL table file. It carries the id
// high-water mark so deleted ids are never handed out again.
type seqHeader struct {
	Seq *int64 `json:"_seq"`
}

// jsonlMedium stores each table in <dir>/<table>.jsonl.
type jsonlMedium struct {
	dir string
}

var _ Medium = (*jsonlMedium)(nil)

// openJSONLMedium creates dir if needed and an empty file for every table
// that does not have one yet.
func openJSONLMedium(dir string, tables []string) (*jsonlMedium, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	m := &jsonlMedium{dir: dir}
	for _, name := range tables {
		path := m.path(name)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return nil, fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return m, nil
}

func (m *jsonlMedium) path(table string) string {
	return filepath.Join(m.dir, table+".jsonl")
}

// Load reads <table>.jsonl. The _seq header line is consumed; every other
// parseable line is a record.
func (m *jsonlMedium) Load(table string) (Snapshot, error) {
	lines, err := readJSONL(m.path(table))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("reading %s: %w", table, err)
	}

	var snap Snapshot
	for _, line := range lines {
		var h seqHeader
		if err := json.Unmarshal(line, &h); err == nil && h.Seq != nil {
			snap.Seq = *h.Seq
			continue
		}
		snap.Records = append(snap.Records, line)
	}
	return snap, nil
}

// Save rewrites <table>.jsonl atomically with the header and all records.
func (m *jsonlMedium) Save(table string, snap Snapshot) error {
	seq := snap.Seq
	header, err := json.Marshal(seqHeader{Seq: &seq})
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}
	lines := make([]json.RawMessage, 0, len(snap.Records)+1)
	lines = append(lines, header)
	lines = append(lines, snap.Records...)
	return writeJSONL(m.path(table), lines)
}

// Close is a no-op; files are closed after every operation.
func (m *jsonlMedium) Close() error { return nil }

// readJSONL returns the valid JSON lines of path. Blank and corrupt lines
// are dropped.
func readJSONL(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []json.RawMessage
	for line := range bytes.Lines(data) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 && json.Valid(line) {
			out = append(out, json.RawMessage(line))
		}
	}
	return out, nil
}

// writeJSONL replaces path with lines, one per line. The content goes to a
// temp file in the same directory, which is synced and renamed over path.
// On failure path is left untouched.
func writeJSONL(path string, lines []json.RawMessage) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		w.Write(line)
		w.WriteByte('\n')
	}
	// bufio.Writer keeps the first write error and reports it here.
	if err = w.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("setting mode of %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
