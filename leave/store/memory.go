// Package store provides BlobStore implementations that need no external service.
package store

import (
	"context"
	"sync"

	"github.com/warp/leave-planner/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	puts  int
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.blobs[key]
	if !ok {
		return nil, leave.ErrBlobNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.blobs[key] = v
	m.puts++
	return nil
}

// Puts returns how many writes the store has accepted.
func (m *Memory) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

var _ leave.BlobStore = (*Memory)(nil)
