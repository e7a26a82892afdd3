// This file provides the SQLite medium, backed by modernc.org/sqlite.

package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// sqliteMedium keeps every table in one database. Save replaces a table's
// rows and sequence inside a single transaction.
type sqliteMedium struct {
	db *sql.DB
}

var _ Medium = (*sqliteMedium)(nil)

func openSQLiteMedium(path string) (*sqliteMedium, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// A single connection serializes writers; SQLite would otherwise
	// report SQLITE_BUSY on concurrent transactions.
	db.SetMaxOpenConns(1)

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &sqliteMedium{db: db}, nil
}

// Load returns the rows of table ordered by position.
func (m *sqliteMedium) Load(table string) (Snapshot, error) {
	var snap Snapshot
	err := m.db.QueryRow("SELECT seq FROM sequences WHERE table_name = ?", table).Scan(&snap.Seq)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("reading sequence for %s: %w", table, err)
	}

	rows, err := m.db.Query("SELECT body FROM records WHERE table_name = ? ORDER BY position ASC", table)
	if err != nil {
		return Snapshot{}, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return Snapshot{}, fmt.Errorf("scanning %s row: %w", table, err)
		}
		if !json.Valid([]byte(body)) {
			continue
		}
		snap.Records = append(snap.Records, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterating %s: %w", table, err)
	}
	return snap, nil
}

// Save replaces every row of table in one transaction.
func (m *sqliteMedium) Save(table string, snap Snapshot) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM records WHERE table_name = ?", table); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}

	stmt, err := tx.Prepare("INSERT INTO records (table_name, position, body) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for i, rec := range snap.Records {
		if _, err := stmt.Exec(table, i, string(rec)); err != nil {
			return fmt.Errorf("inserting %s row %d: %w", table, i, err)
		}
	}

	_, err = tx.Exec(
		`INSERT INTO sequences (table_name, seq) VALUES (?, ?)
		 ON CONFLICT(table_name) DO UPDATE SET seq = excluded.seq`,
		table, snap.Seq,
	)
	if err != nil {
		return fmt.Errorf("writing sequence for %s: %w", table, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", table, err)
	}
	return nil
}

// Close closes the database.
func (m *sqliteMedium) Close() error {
	return m.db.Close()
}
