package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
)

// Store implements ports.StateStore in memory.
// Safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	data       map[string]map[string]domain.Value
	maxEntries int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithMaxEntries limits the number of keys per script. Zero means unlimited.
func WithMaxEntries(n int) StoreOption {
	return func(s *Store) {
		s.maxEntries = n
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		data: make(map[string]map[string]domain.Value),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves a value.
func (s *Store) Get(ctx context.Context, scriptID, key string) (domain.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[scriptID][key]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	return v, nil
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, scriptID, key string, value domain.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(scriptID, key, value)
}

// GetOrCreate returns the existing value or stores create().
// create runs under the store lock, so it must not call back into the store.
func (s *Store) GetOrCreate(ctx context.Context, scriptID, key string, create func() domain.Value) (domain.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.data[scriptID][key]; ok {
		return v, nil
	}
	v := create()
	if err := s.put(scriptID, key, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Update replaces the value with fn(current) under the store lock.
func (s *Store) Update(ctx context.Context, scriptID, key string, fn func(domain.Value) (domain.Value, error)) (domain.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.data[scriptID][key])
	if err != nil {
		return nil, err
	}
	if err := s.put(scriptID, key, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, scriptID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[scriptID], key)
	return nil
}

// Keys returns the keys of a script, sorted.
func (s *Store) Keys(ctx context.Context, scriptID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.data[scriptID]))
	for k := range s.data[scriptID] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear drops all state of a script.
func (s *Store) Clear(ctx context.Context, scriptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, scriptID)
	return nil
}

func (s *Store) put(scriptID, key string, value domain.Value) error {
	entries, ok := s.data[scriptID]
	if !ok {
		entries = make(map[string]domain.Value)
		s.data[scriptID] = entries
	}
	if _, exists := entries[key]; !exists && s.maxEntries > 0 && len(entries) >= s.maxEntries {
		return domain.ErrStateQuotaExceeded
	}
	entries[key] = value
	return nil
}
