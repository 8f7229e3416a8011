// SPDX-License-Identifier: MIT

// Package position persists per-movie playback state on the device: the
// last-known playback offset and per-track subtitle offsets. Later saves
// overwrite earlier ones; entries are never explicitly deleted.
package position

import (
	"context"
	"sync"
)

// Store is the durable key-value contract the session controller depends on.
// Load returns 0 (and no error) for movies that were never saved.
type Store interface {
	Save(ctx context.Context, movieID string, seconds float64) error
	Load(ctx context.Context, movieID string) (float64, error)

	SaveSubtitleOffset(ctx context.Context, movieID, language string, seconds float64) error
	LoadSubtitleOffset(ctx context.Context, movieID, language string) (float64, error)

	Close() error
}

func positionKey(movieID string) string {
	return "pos:" + movieID
}

func subtitleKey(movieID, language string) string {
	return "suboff:" + movieID + ":" + language
}

// MemoryStore is an in-process Store for tests and dry runs.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]float64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]float64)}
}

func (s *MemoryStore) Save(ctx context.Context, movieID string, seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[positionKey(movieID)] = seconds
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, movieID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[positionKey(movieID)], nil
}

func (s *MemoryStore) SaveSubtitleOffset(ctx context.Context, movieID, language string, seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[subtitleKey(movieID, language)] = seconds
	return nil
}

func (s *MemoryStore) LoadSubtitleOffset(ctx context.Context, movieID, language string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[subtitleKey(movieID, language)], nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
