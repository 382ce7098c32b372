// Package memory keeps conversation records in process memory.
package memory

import (
	"context"

	"kentj-backend/internal/store"

	"github.com/patrickmn/go-cache"
)

var _ store.KVStore = (*Store)(nil)

// Store is a KVStore backed by go-cache. Entries never expire.
type Store struct {
	cache *cache.Cache
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{cache: cache.New(cache.NoExpiration, 0)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	v, found := s.cache.Get(key)
	if !found {
		return nil, store.ErrNotFound
	}
	raw := v.([]byte)
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	s.cache.Set(key, stored, cache.NoExpiration)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *Store) Close() error {
	s.cache.Flush()
	return nil
}
