package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"kwikly/internal/app"
	"kwikly/internal/domain"
	"kwikly/internal/infra/memory"
	"kwikly/internal/security"
)

func TestSignupAndLogin(t *testing.T) {
	users := memory.NewUserStore()
	auth := app.NewAuthService(users, security.NewTokenIssuer([]byte("secret"), time.Hour))
	ctx := context.Background()

	resp, err := auth.Signup(ctx, app.SignupRequest{Username: " alice ", Email: "Alice@Example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if resp.Token == "" || resp.User.Username != "alice" || resp.User.Email != "alice@example.com" {
		t.Fatalf("unexpected signup response %+v", resp)
	}
	if resp.User.HashedPassword != "" || resp.Progress.Rank != "🥚 Egghead" {
		t.Fatalf("response must hide the hash and start at the first rank: %+v", resp)
	}

	if _, err := auth.Signup(ctx, app.SignupRequest{Username: "alice", Email: "other@example.com", Password: "correct-horse"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for taken username, got %v", err)
	}
	if _, err := auth.Signup(ctx, app.SignupRequest{Username: "bob", Email: "bob@example.com", Password: "short"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for short password, got %v", err)
	}

	for _, login := range []string{"alice", "ALICE@example.com"} {
		if _, err := auth.Login(ctx, app.LoginRequest{Login: login, Password: "correct-horse"}); err != nil {
			t.Fatalf("login as %q: %v", login, err)
		}
	}
	if _, err := auth.Login(ctx, app.LoginRequest{Login: "alice", Password: "wrong-horse"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for bad password, got %v", err)
	}
	if _, err := auth.Login(ctx, app.LoginRequest{Login: "nobody", Password: "correct-horse"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
}
