package upload

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// StateDB remembers which exports have already been sent so re-running
// the import over the same file does nothing.
type StateDB struct {
	db *sql.DB
}

// OpenStateDB opens (or creates) the SQLite state database at dir/upload-state.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "upload-state.db"))
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS uploaded_exports (
		hash        TEXT PRIMARY KEY,
		path        TEXT NOT NULL,
		size        INTEGER NOT NULL,
		imported    INTEGER NOT NULL,
		uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &StateDB{db: db}, nil
}

// IsUploaded reports whether an export with this content hash was sent before.
func (s *StateDB) IsUploaded(hash string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM uploaded_exports WHERE hash = ?`, hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("querying upload state: %w", err)
	}
	return count > 0, nil
}

// MarkUploaded records a successful upload.
func (s *StateDB) MarkUploaded(path string, size int64, hash string, imported int) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO uploaded_exports (hash, path, size, imported) VALUES (?, ?, ?, ?)`,
		hash, path, size, imported,
	)
	if err != nil {
		return fmt.Errorf("recording upload: %w", err)
	}
	return nil
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
