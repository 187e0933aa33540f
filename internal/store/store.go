// Package store is the persistent tier (C3): one SQLite table per
// upstream form plus sync_history and sync_progress (C12), all behind a
// single database/sql handle with WAL enabled. The handle is capped at one
// open connection, so queries run one at a time and a read waits while a
// write transaction holds that connection. Grounded on the teacher's internal/db package shape:
// a thin Queries-style struct wrapping *sql.DB, one receiver method per
// operation, ON CONFLICT ... DO UPDATE SET upserts inside a transaction
// per upstream chunk.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the persistent tier's single SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite file at path with WAL
// enabled, and returns a Store ready for Migrate.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: one connection, so reads and writes run one at a time
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping store at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for go-sqlmock-based unit tests and for
// callers that need a transaction spanning multiple Store methods.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate applies every pending embedded migration with goose, replacing
// the teacher's hand-rolled .up.sql file-scanning runner.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func nowUTC() time.Time { return time.Now().UTC() }
