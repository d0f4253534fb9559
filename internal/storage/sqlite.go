package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  phone_number TEXT NOT NULL UNIQUE,
  name         TEXT,
  updated_at   TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS communications (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  contact_id INTEGER NOT NULL REFERENCES contacts(id),
  type       TEXT NOT NULL,
  text       TEXT,
  duration   INTEGER,
  timestamp  TEXT NOT NULL,
  created_at TEXT NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS communications_contact_id_idx ON communications(contact_id);`,
	`CREATE INDEX IF NOT EXISTS communications_created_at_idx ON communications(created_at);`,
}

// OpenSQLite opens (and creates if needed) the SQLite store at path and
// ensures required tables exist.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if path != ":memory:" {
		if err := ValidateSQLiteFilesystem(path); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Basic health check + apply a few safe pragmas.
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if err := bootstrap(ctx, db, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, dialect: dialectSQLite}, nil
}
