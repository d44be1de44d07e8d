package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"kwikly/internal/domain"
)

func TestUserStoreXPAndLeaderboard(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()
	for _, u := range []domain.User{
		{ID: "u1", Username: "alice", Email: "a@example.com"},
		{ID: "u2", Username: "bob", Email: "b@example.com"},
		{ID: "u3", Username: "carol", Email: "c@example.com"},
	} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("create %s: %v", u.ID, err)
		}
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u4", Username: "alice", Email: "x@example.com"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected username conflict, got %v", err)
	}

	if xp, err := store.AddXP(ctx, "u2", 50); err != nil || xp != 50 {
		t.Fatalf("add xp: %d %v", xp, err)
	}
	if xp, _ := store.AddXP(ctx, "u2", 15); xp != 65 {
		t.Fatalf("expected 65, got %d", xp)
	}
	_ = store.SetXP(ctx, "u3", 65)

	top, _ := store.TopByXP(ctx, 2)
	if len(top) != 2 || top[0].ID != "u2" || top[1].ID != "u3" {
		t.Fatalf("unexpected order %+v", top)
	}
}

func TestUserStoreResultsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_ = store.AppendResult(ctx, domain.QuizResult{ID: "r1", UserID: "u1", CompletedAt: base})
	_ = store.AppendResult(ctx, domain.QuizResult{ID: "r2", UserID: "u1", CompletedAt: base.Add(time.Hour)})
	_ = store.AppendResult(ctx, domain.QuizResult{ID: "r3", UserID: "u2", CompletedAt: base})

	history, _ := store.ListResults(ctx, "u1")
	if len(history) != 2 || history[0].ID != "r2" {
		t.Fatalf("unexpected history %+v", history)
	}
}
