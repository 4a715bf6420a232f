// Package storage provides the durable key-value backends that hold session
// tokens and the selected branch between runs.
package storage

import (
	"context"
	"errors"
	"sync"
)

// Well-known keys.
const (
	KeyAccessToken        = "access_token"
	KeyRefreshToken       = "refresh_token"
	KeySelectedBranchID   = "selected_branch_id"
	KeySelectedBranchName = "selected_branch_name"
)

var (
	ErrCorrupt  = errors.New("storage: corrupt data")
	ErrBadKey   = errors.New("storage: encryption key must be 32 bytes")
	ErrEmptyKey = errors.New("storage: key is required")
)

// KV is a string key-value store. Get reports whether the key exists.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Memory is an in-process KV, used by tests and as the non-durable backend.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
