package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: "9000"
redis:
  addr: "file-redis:6379"
auth:
  jwt_secret: "from-file"
attempt:
  autosave_interval: "15s"
  restore_policy: "prefer_remote"
leaderboard:
  size: 25
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Fatalf("expected port from file, got %q", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Fatalf("expected env secret to win, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Redis.Addr != "file-redis:6379" {
		t.Fatalf("empty env var must not clear file value, got %q", cfg.Redis.Addr)
	}
	if cfg.Attempt.RestorePolicy != "prefer_remote" || cfg.Leaderboard.Size != 25 {
		t.Fatalf("unexpected attempt/leaderboard config %+v", cfg)
	}
	if got := TTLDuration(cfg.Attempt.AutosaveInterval, time.Minute); got != 15*time.Second {
		t.Fatalf("expected 15s autosave, got %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("PORT", "7070")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("expected env port, got %q", cfg.Server.Port)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty, got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %v", got)
	}
}
