package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteSlot stores the slot in a local SQLite file.
type SQLiteSlot struct {
	db   *sql.DB
	name string
}

// OpenSQLite opens (or creates) the SQLite database at path, applies
// migrations and returns the slot called name.
func OpenSQLite(path, name string) (*SQLiteSlot, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
		}
	}

	if err := RunMigrations("sqlite", path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// a single writer keeps SQLite from returning SQLITE_BUSY on concurrent saves
	db.SetMaxOpenConns(1)

	return &SQLiteSlot{db: db, name: name}, nil
}

// Load returns the stored blob, or ErrSlotEmpty.
func (s *SQLiteSlot) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM slots WHERE name = ?`, s.name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("loading slot %s: %w", s.name, err)
	}
	return data, nil
}

// Save overwrites the slot with data.
func (s *SQLiteSlot) Save(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO slots (name, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		s.name, data,
	)
	if err != nil {
		return fmt.Errorf("saving slot %s: %w", s.name, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteSlot) Close() error {
	return s.db.Close()
}
