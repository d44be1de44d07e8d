package memory

import (
	"context"
	"sync"

	"kwikly/internal/app"
	"kwikly/internal/domain"
)

// SnapshotStore is the process-local attempt snapshot sink.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[app.SnapshotKey]domain.Snapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[app.SnapshotKey]domain.Snapshot)}
}

func (s *SnapshotStore) PutSnapshot(_ context.Context, snap domain.Snapshot) error {
	snap.SelectedAnswers = copyAnswers(snap.SelectedAnswers)
	s.mu.Lock()
	s.snapshots[app.SnapshotKey{UserID: snap.UserID, QuizID: snap.QuizID}] = snap
	s.mu.Unlock()
	return nil
}

func (s *SnapshotStore) GetSnapshot(_ context.Context, key app.SnapshotKey) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[key]
	if !ok {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	snap.SelectedAnswers = copyAnswers(snap.SelectedAnswers)
	return snap, nil
}

func (s *SnapshotStore) DeleteSnapshot(_ context.Context, key app.SnapshotKey) error {
	s.mu.Lock()
	delete(s.snapshots, key)
	s.mu.Unlock()
	return nil
}

func copyAnswers(in map[int]string) map[int]string {
	out := make(map[int]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
