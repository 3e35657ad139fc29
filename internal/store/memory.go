package store

import (
	"context"
	"sync"
)

// MemoryStore keeps artifacts in memory and counts calls. It is used by tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]byte

	ExistsCalls int
	LoadCalls   int
	SaveCalls   int

	// SaveErr, when set, is returned by every Save
	SaveErr error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Exists checks whether key is present
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ExistsCalls++
	_, ok := s.entries[key]
	return ok, nil
}

// Load returns a copy of the stored bytes
func (s *MemoryStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LoadCalls++
	data, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Save stores a copy of data under key
func (s *MemoryStore) Save(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveCalls++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.entries[key] = append([]byte(nil), data...)
	return nil
}

// Keys returns the number of stored entries
func (s *MemoryStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
