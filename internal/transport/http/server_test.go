package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kwikly/internal/app"
	"kwikly/internal/infra/memory"
	"kwikly/internal/security"
)

type testEnv struct {
	server    *httptest.Server
	services  Services
	snapshots *memory.SnapshotStore
	ticks     chan time.Time
}

// newTestEnv wires the full router over in-memory stores. The countdown
// ticker is driven by env.ticks; autosave never fires.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, RouterConfig{})
}

func newTestEnvWith(t *testing.T, cfg RouterConfig) *testEnv {
	t.Helper()

	env := &testEnv{snapshots: memory.NewSnapshotStore(), ticks: make(chan time.Time)}
	quizStore := memory.NewQuizStore()
	quizRepo := memory.NewQuizRepository(quizStore, time.Minute)
	users := memory.NewUserStore()
	tokens := security.NewTokenIssuer([]byte("test-secret"), time.Hour)
	board := app.NewLeaderboardHub(users, 10)
	persister := app.NewSnapshotPersister(env.snapshots, nil, app.MostComplete)
	quizzes := app.NewQuizService(quizStore, quizRepo, users, users, persister, board)
	attempts := app.NewAttemptService(quizRepo, quizzes, persister, memory.NewAttemptStore(), app.AttemptConfig{
		AutosaveInterval: time.Hour,
		NewTicker: func(d time.Duration) (<-chan time.Time, func()) {
			if d == time.Second {
				return env.ticks, func() {}
			}
			return make(chan time.Time), func() {}
		},
	})

	env.services = Services{
		Auth:        app.NewAuthService(users, tokens),
		Profiles:    app.NewProfileService(users, users, board),
		Quizzes:     quizzes,
		Attempts:    attempts,
		Leaderboard: board,
		Tokens:      tokens,
	}
	env.server = httptest.NewServer(NewRouter(env.services, cfg))
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) signup(t *testing.T, username string) app.AuthResponse {
	t.Helper()
	var resp app.AuthResponse
	code := e.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct-horse",
	}, &resp)
	if code != http.StatusCreated {
		t.Fatalf("signup %s: status %d", username, code)
	}
	return resp
}

// quizDraft has three one-point questions, 70% to pass, 60 XP.
func quizDraft() map[string]interface{} {
	return map[string]interface{}{
		"title":        "Capitals of Europe",
		"subject":      "Geography",
		"topic":        "Capitals",
		"duration":     1,
		"passingScore": 70,
		"xpReward":     60,
		"questions": []map[string]interface{}{
			{"id": 1, "question": "Capital of France?", "options": []string{"Paris", "Lyon"}, "correctAnswer": "Paris", "points": 1},
			{"id": 2, "question": "Capital of Italy?", "options": []string{"Rome", "Milan"}, "correctAnswer": "Rome", "points": 1},
			{"id": 3, "question": "Capital of Spain?", "options": []string{"Madrid", "Seville"}, "correctAnswer": "Madrid", "points": 1},
		},
	}
}
