// Package store provides a SQLite-backed index of analyzed declarations.
// The index lives in .apishape/index.db by default and records, per source
// file, the merged classes and functions plus a flat member table for
// lookups by name.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store manages the declaration index database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the index database at path. The parent directory
// is created if needed and the schema is initialized for a new database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db, dbPath: path}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Clear removes all indexed data.
func (s *Store) Clear() error {
	_, err := s.db.Exec("DELETE FROM members; DELETE FROM declarations; DELETE FROM file_index;")
	if err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// DB returns the underlying database connection for advanced operations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// GetStats returns statistics about the index contents.
func (s *Store) GetStats() (*Stats, error) {
	var stats Stats

	if err := s.db.QueryRow("SELECT COUNT(*) FROM file_index").Scan(&stats.Files); err != nil {
		return nil, fmt.Errorf("count files: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM declarations WHERE entity_type = 'class'").Scan(&stats.Classes); err != nil {
		return nil, fmt.Errorf("count classes: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM declarations WHERE entity_type = 'function'").Scan(&stats.Functions); err != nil {
		return nil, fmt.Errorf("count functions: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM members").Scan(&stats.Members); err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}

	return &stats, nil
}
