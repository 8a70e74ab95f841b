package store

import (
	"sync"

	"github.com/polarsource/polar-sub007/internal/checkout/domain"
)

// Store owns the current checkout snapshot. It is the only shared mutable
// state in the engine; every channel (initial load, push, poll) mutates it
// through Replace and nothing patches individual fields in place.
type Store struct {
	mu       sync.RWMutex
	snapshot domain.Snapshot
}

// New seeds the store with the snapshot the session was constructed with.
func New(initial domain.Snapshot) *Store {
	return &Store{snapshot: initial}
}

// Replace swaps the stored snapshot wholesale and returns the previous one.
// Last caller wins; stale overwrites are an accepted bounded risk corrected
// by the next tick or event.
func (s *Store) Replace(next domain.Snapshot) domain.Snapshot {
	s.mu.Lock()
	prev := s.snapshot
	s.snapshot = next
	s.mu.Unlock()
	return prev
}

// Current returns the latest snapshot.
func (s *Store) Current() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}
