package gamiclient

import (
	"sync"
)

// ProgressStore holds the single server-synced progress snapshot for the
// active session. Writes replace the snapshot wholesale; there are no partial
// merges. The session epoch guards against late responses: a refresh started
// before a logout (or session switch) carries the old epoch and is dropped
// instead of resurrecting stale state.
type ProgressStore struct {
	mu       sync.Mutex
	snapshot *Progress
	epoch    uint64
}

// NewProgressStore creates an empty progress store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{}
}

// Epoch returns the current session epoch. Callers capture it before starting
// an async refresh and pass it back to Set.
func (s *ProgressStore) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Get returns the last known snapshot, or nil before the first sync. The
// returned value is a copy; mutating it does not affect the store.
func (s *ProgressStore) Get() *Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return nil
	}
	snapshot := *s.snapshot
	return &snapshot
}

// Set replaces the snapshot if the epoch still matches the current session.
// Returns false when the write was dropped as stale.
func (s *ProgressStore) Set(epoch uint64, progress *Progress) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	if progress == nil {
		s.snapshot = nil
		return true
	}
	snapshot := *progress
	s.snapshot = &snapshot
	return true
}

// Clear wipes the snapshot and advances the epoch, invalidating every
// in-flight refresh. Called on logout.
func (s *ProgressStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	s.epoch++
}
