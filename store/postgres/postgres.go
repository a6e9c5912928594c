// Package postgres provides a Postgres-backed leave.BlobStore.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warp/leave-planner/leave"
)

// Store persists blobs in a single table.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn and creates the table when missing.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: connect: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS blobs (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("store/postgres: migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, "SELECT value FROM blobs WHERE key = $1", key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, leave.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store/postgres: get: %w", err)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	const query = `
		INSERT INTO blobs (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("store/postgres: put: %w", err)
	}
	return nil
}

var _ leave.BlobStore = (*Store)(nil)
