package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kwikly/internal/app"
	"kwikly/internal/domain"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore is the remote attempt snapshot sink. Snapshots survive process
// restarts and are shared across instances; each write refreshes the TTL so
// forgotten attempts eventually disappear.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) PutSnapshot(ctx context.Context, snap domain.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := app.SnapshotKey{UserID: snap.UserID, QuizID: snap.QuizID}
	return s.client.Set(ctx, s.key(key), raw, s.ttl).Err()
}

func (s *SnapshotStore) GetSnapshot(ctx context.Context, key app.SnapshotKey) (domain.Snapshot, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.Snapshot{}, err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func (s *SnapshotStore) DeleteSnapshot(ctx context.Context, key app.SnapshotKey) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *SnapshotStore) key(key app.SnapshotKey) string {
	return "attempt:snapshot:" + key.UserID + ":" + key.QuizID
}
