// Package tokens keeps the access/refresh token pair in memory and mirrors it
// to a durable storage.KV.
package tokens

import (
	"context"
	"sync"

	"timepay.uz/crm/internal/storage"
)

type slot struct {
	value  string
	loaded bool
}

// Store is safe for concurrent use. Values are read from the KV lazily, once.
type Store struct {
	kv storage.KV

	mu      sync.Mutex
	access  slot
	refresh slot
}

func New(kv storage.KV) *Store {
	if kv == nil {
		kv = storage.NewMemory()
	}
	return &Store{kv: kv}
}

// SetTokens stores both tokens. An empty refresh keeps the previously stored
// refresh token rather than clearing it.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(ctx, storage.KeyAccessToken, access); err != nil {
		return err
	}
	s.access = slot{value: access, loaded: true}
	if refresh == "" {
		return nil
	}
	if err := s.kv.Set(ctx, storage.KeyRefreshToken, refresh); err != nil {
		return err
	}
	s.refresh = slot{value: refresh, loaded: true}
	return nil
}

// AccessToken returns "" when no token is stored.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx, &s.access, storage.KeyAccessToken)
}

// RefreshToken returns "" when no token is stored.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx, &s.refresh, storage.KeyRefreshToken)
}

// Clear wipes both tokens from memory and from the KV.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = slot{loaded: true}
	s.refresh = slot{loaded: true}
	return s.kv.Delete(ctx, storage.KeyAccessToken, storage.KeyRefreshToken)
}

func (s *Store) read(ctx context.Context, sl *slot, key string) (string, error) {
	if sl.loaded {
		return sl.value, nil
	}
	v, _, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", err
	}
	*sl = slot{value: v, loaded: true}
	return v, nil
}
