package storage

import (
	"context"
	"sync"
)

// MemoryStorage implements in-memory token storage.
// This storage is ephemeral and tokens are lost when the process exits.
type MemoryStorage struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStorage creates a new in-memory storage holding token, which may
// be empty.
func NewMemoryStorage(token string) *MemoryStorage {
	return &MemoryStorage{token: token}
}

// Save saves a token to memory.
func (m *MemoryStorage) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Load loads a token from memory.
func (m *MemoryStorage) Load(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return "", ErrNotFound
	}
	return m.token, nil
}

// Delete deletes the token from memory.
func (m *MemoryStorage) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
