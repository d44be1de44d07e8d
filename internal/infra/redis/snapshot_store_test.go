package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"kwikly/internal/app"
	"kwikly/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSnapshotStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSnapshotStore(newClient(mr), time.Hour)
	key := app.SnapshotKey{UserID: "u1", QuizID: "quiz-1"}

	if _, err := store.GetSnapshot(context.Background(), key); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	snap := domain.Snapshot{
		UserID:               "u1",
		QuizID:               "quiz-1",
		CurrentQuestionIndex: 2,
		SelectedAnswers:      map[int]string{1: "4", 3: "Paris"},
		TimeLeft:             42,
	}
	if err := store.PutSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("attempt:snapshot:u1:quiz-1") {
		t.Fatalf("expected snapshot key to be set")
	}
	if ttl := mr.TTL("attempt:snapshot:u1:quiz-1"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}

	got, err := store.GetSnapshot(context.Background(), key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CurrentQuestionIndex != 2 || got.TimeLeft != 42 || got.SelectedAnswers[3] != "Paris" {
		t.Fatalf("unexpected snapshot %+v", got)
	}

	if err := store.DeleteSnapshot(context.Background(), key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("attempt:snapshot:u1:quiz-1") {
		t.Fatalf("expected snapshot key to be removed")
	}
}

func TestSnapshotStoreExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSnapshotStore(newClient(mr), time.Minute)
	_ = store.PutSnapshot(context.Background(), domain.Snapshot{UserID: "u1", QuizID: "quiz-1", TimeLeft: 10})
	mr.FastForward(2 * time.Minute)

	_, err = store.GetSnapshot(context.Background(), app.SnapshotKey{UserID: "u1", QuizID: "quiz-1"})
	if !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected expired snapshot, got %v", err)
	}
}
