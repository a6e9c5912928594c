/*
Package sqlite provides a SQLite-backed leave.BlobStore.

PURPOSE:
  Persists the planner snapshot as a single row keyed by the snapshot key.
  The same table can hold any number of keys (one per planner).

KEY TABLES:
  blobs: key TEXT PRIMARY KEY, value BLOB, updated_at TEXT

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/planner.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  err = plannerStore.Load(ctx, store, leave.DefaultSnapshotKey)

SEE ALSO:
  - leave/store.go: BlobStore interface
  - leave/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/leave-planner/leave"
)

// Store implements leave.BlobStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each :memory: connection is a separate database
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM blobs WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return value, nil
}

// Put creates or replaces the value stored under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO blobs (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}
	return nil
}

// UpdatedAt returns when key was last written.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT updated_at FROM blobs WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, leave.ErrBlobNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read blob: %w", err)
	}
	return time.Parse(time.RFC3339, raw)
}

var _ leave.BlobStore = (*Store)(nil)
