package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"kwikly/internal/app"
	"kwikly/internal/domain"
	"kwikly/internal/infra/memory"
)

type fixture struct {
	users     *memory.UserStore
	quizStore *memory.QuizStore
	quizRepo  *memory.QuizRepository
	local     *memory.SnapshotStore
	remote    *memory.SnapshotStore
	persister *app.SnapshotPersister
	board     *app.LeaderboardHub
	quizzes   *app.QuizService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:     memory.NewUserStore(),
		quizStore: memory.NewQuizStore(),
		local:     memory.NewSnapshotStore(),
		remote:    memory.NewSnapshotStore(),
	}
	f.quizRepo = memory.NewQuizRepository(f.quizStore, time.Minute)
	f.persister = app.NewSnapshotPersister(f.local, f.remote, app.MostComplete)
	f.board = app.NewLeaderboardHub(f.users, 10)
	f.quizzes = app.NewQuizService(f.quizStore, f.quizRepo, f.users, f.users, f.persister, f.board)
	return f
}

func (f *fixture) addUser(t *testing.T, id, username string, xp int) {
	t.Helper()
	err := f.users.CreateUser(context.Background(), domain.User{
		ID: id, Username: username, Email: username + "@example.com", Role: domain.RoleUser, XP: xp,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
}

func (f *fixture) createQuiz(t *testing.T, authorID string) domain.Quiz {
	t.Helper()
	quiz, err := f.quizzes.Create(context.Background(), authorID, draftQuiz())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz
}

// draftQuiz has three one-point questions, a 70% pass mark, and 60 XP.
func draftQuiz() domain.Quiz {
	return domain.Quiz{
		Title:           "Capitals of Europe",
		Subject:         "Geography",
		Topic:           "Capitals",
		DurationMinutes: 1,
		PassingScore:    70,
		XPReward:        60,
		Questions: []domain.Question{
			{ID: 1, Prompt: "Capital of France?", Options: []string{"Paris", "Lyon"}, CorrectAnswer: "Paris", Points: 1},
			{ID: 2, Prompt: "Capital of Italy?", Options: []string{"Rome", "Milan"}, CorrectAnswer: "Rome", Points: 1},
			{ID: 3, Prompt: "Capital of Spain?", Options: []string{"Madrid", "Seville"}, CorrectAnswer: "Madrid", Points: 1},
		},
	}
}

// failingSink is a snapshot sink whose network is always down.
type failingSink struct{}

var errSinkDown = errors.New("sink down")

func (failingSink) PutSnapshot(context.Context, domain.Snapshot) error { return errSinkDown }

func (failingSink) GetSnapshot(context.Context, app.SnapshotKey) (domain.Snapshot, error) {
	return domain.Snapshot{}, errSinkDown
}

func (failingSink) DeleteSnapshot(context.Context, app.SnapshotKey) error { return errSinkDown }

// manualTicker hands out test-controlled channels keyed by interval.
type manualTicker struct {
	countdown chan time.Time
	autosave  chan time.Time
}

func newManualTicker() *manualTicker {
	return &manualTicker{countdown: make(chan time.Time), autosave: make(chan time.Time)}
}

func (m *manualTicker) ticker(d time.Duration) (<-chan time.Time, func()) {
	if d == time.Second {
		return m.countdown, func() {}
	}
	return m.autosave, func() {}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}
