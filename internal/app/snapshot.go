package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kwikly/internal/domain"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SnapshotKey addresses one user's attempt at one quiz.
type SnapshotKey struct {
	UserID string
	QuizID string
}

func (k SnapshotKey) String() string {
	return k.UserID + ":" + k.QuizID
}

// SnapshotSink is one place an attempt snapshot can live.
type SnapshotSink interface {
	PutSnapshot(ctx context.Context, snap domain.Snapshot) error
	// GetSnapshot returns domain.ErrSnapshotNotFound when nothing is stored.
	GetSnapshot(ctx context.Context, key SnapshotKey) (domain.Snapshot, error)
	DeleteSnapshot(ctx context.Context, key SnapshotKey) error
}

// RestorePolicy picks between the local and remote snapshot when both exist.
type RestorePolicy string

const (
	PreferRemote RestorePolicy = "prefer_remote"
	PreferLocal  RestorePolicy = "prefer_local"
	// MostComplete keeps the snapshot with more answers, then less time left,
	// then the newer save; remaining ties go to remote.
	MostComplete RestorePolicy = "most_complete"
)

// ParseRestorePolicy maps a config value to a policy; empty means MostComplete.
func ParseRestorePolicy(raw string) (RestorePolicy, error) {
	switch RestorePolicy(raw) {
	case "":
		return MostComplete, nil
	case PreferRemote, PreferLocal, MostComplete:
		return RestorePolicy(raw), nil
	}
	return "", fmt.Errorf("%w: unknown restore policy %q", domain.ErrValidation, raw)
}

type namedSink struct {
	name string
	sink SnapshotSink
}

// SnapshotPersister writes attempt snapshots to a local and a remote sink.
// The two writes are independent and unordered: either may fail without
// affecting the other, and nothing is retried.
type SnapshotPersister struct {
	local  SnapshotSink
	remote SnapshotSink
	policy RestorePolicy
	now    func() time.Time
}

// NewSnapshotPersister accepts a nil sink for deployments with only one store.
func NewSnapshotPersister(local, remote SnapshotSink, policy RestorePolicy) *SnapshotPersister {
	if policy == "" {
		policy = MostComplete
	}
	return &SnapshotPersister{local: local, remote: remote, policy: policy, now: time.Now}
}

func (p *SnapshotPersister) Policy() RestorePolicy {
	return p.policy
}

func (p *SnapshotPersister) sinks() []namedSink {
	out := make([]namedSink, 0, 2)
	if p.local != nil {
		out = append(out, namedSink{name: "local", sink: p.local})
	}
	if p.remote != nil {
		out = append(out, namedSink{name: "remote", sink: p.remote})
	}
	return out
}

// Save stamps and writes the snapshot to every sink.
func (p *SnapshotPersister) Save(ctx context.Context, snap domain.Snapshot) error {
	snap.SavedAt = p.now()
	sinks := p.sinks()
	errs := make([]error, len(sinks))

	var g errgroup.Group
	for i, s := range sinks {
		g.Go(func() error {
			if err := s.sink.PutSnapshot(ctx, snap); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"sink": s.name, "user": snap.UserID, "quiz": snap.QuizID,
				}).Warn("snapshot write failed")
				errs[i] = fmt.Errorf("%s snapshot: %w", s.name, err)
				return errs[i]
			}
			return nil
		})
	}
	// every sink is written even if another fails; report all failures
	if err := g.Wait(); err != nil {
		return errors.Join(errs...)
	}
	return nil
}

// Restore reads both sinks and applies the restore policy.
func (p *SnapshotPersister) Restore(ctx context.Context, key SnapshotKey) (domain.Snapshot, error) {
	var (
		local, remote *domain.Snapshot
		failures      []error
	)
	for _, s := range p.sinks() {
		snap, err := s.sink.GetSnapshot(ctx, key)
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			continue
		}
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"sink": s.name, "key": key.String()}).Warn("snapshot read failed")
			failures = append(failures, fmt.Errorf("%s snapshot: %w", s.name, err))
			continue
		}
		if s.name == "local" {
			local = &snap
		} else {
			remote = &snap
		}
	}

	chosen := p.choose(local, remote)
	if chosen == nil {
		if len(failures) > 0 {
			return domain.Snapshot{}, errors.Join(failures...)
		}
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	return *chosen, nil
}

func (p *SnapshotPersister) choose(local, remote *domain.Snapshot) *domain.Snapshot {
	if local == nil {
		return remote
	}
	if remote == nil {
		return local
	}
	switch p.policy {
	case PreferLocal:
		return local
	case PreferRemote:
		return remote
	}
	if len(local.SelectedAnswers) != len(remote.SelectedAnswers) {
		if len(local.SelectedAnswers) > len(remote.SelectedAnswers) {
			return local
		}
		return remote
	}
	if local.TimeLeft != remote.TimeLeft {
		if local.TimeLeft < remote.TimeLeft {
			return local
		}
		return remote
	}
	if local.SavedAt.After(remote.SavedAt) {
		return local
	}
	return remote
}

// Clear deletes the snapshot from every sink.
func (p *SnapshotPersister) Clear(ctx context.Context, key SnapshotKey) error {
	var errs []error
	for _, s := range p.sinks() {
		if err := s.sink.DeleteSnapshot(ctx, key); err != nil {
			log.WithError(err).WithFields(log.Fields{"sink": s.name, "key": key.String()}).Warn("snapshot delete failed")
			errs = append(errs, fmt.Errorf("%s snapshot: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
