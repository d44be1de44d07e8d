package memory

import (
	"sync"

	"kwikly/internal/app"
)

// AttemptStore is an in-memory implementation of app.AttemptRegistry.
type AttemptStore struct {
	mu       sync.Mutex
	attempts map[app.SnapshotKey]*app.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[app.SnapshotKey]*app.Attempt),
	}
}

func (s *AttemptStore) Add(key app.SnapshotKey, attempt *app.Attempt) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[key]; ok {
		return false
	}
	s.attempts[key] = attempt
	return true
}

// Remove only drops the entry if it still points at attempt, so a late
// teardown cannot evict a newer attempt for the same key.
func (s *AttemptStore) Remove(key app.SnapshotKey, attempt *app.Attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.attempts[key]; ok && current == attempt {
		delete(s.attempts, key)
	}
}
