// Package redis provides a Redis-backed leave.BlobStore.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/warp/leave-planner/leave"
)

// Store keeps each blob as a plain string value.
type Store struct {
	client *goredis.Client
	prefix string
}

// New wraps an existing client. prefix is prepended to every key.
func New(client *goredis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store/redis: ping: %w", err)
	}
	return client, nil
}

func (s *Store) key(k string) string { return s.prefix + k }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, leave.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store/redis: get: %w", err)
	}
	return v, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("store/redis: set: %w", err)
	}
	return nil
}

var _ leave.BlobStore = (*Store)(nil)
