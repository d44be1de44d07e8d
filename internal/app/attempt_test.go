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

func newAttemptService(f *fixture, ticker *manualTicker, abandon app.AbandonPolicy) (*app.AttemptService, *memory.AttemptStore) {
	registry := memory.NewAttemptStore()
	svc := app.NewAttemptService(f.quizRepo, f.quizzes, f.persister, registry, app.AttemptConfig{
		AutosaveInterval: time.Minute,
		Abandon:          abandon,
		NewTicker:        ticker.ticker,
	})
	return svc, registry
}

func TestAttemptSubmit(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "alice", 0)
	quiz := f.createQuiz(t, "author")
	svc, registry := newAttemptService(f, newManualTicker(), app.KeepOnAbandon)
	ctx := context.Background()

	attempt, err := svc.Open(ctx, "u1", quiz.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	state := attempt.State()
	if state.TimeLeft != 60 || state.Resumed || state.Quiz.Questions[0].CorrectAnswer != "" {
		t.Fatalf("unexpected initial state %+v", state)
	}

	if err := attempt.Select(1, "Paris"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := attempt.Select(2, "Paris"); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected option error, got %v", err)
	}
	if err := attempt.Select(7, "Paris"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question error, got %v", err)
	}
	if err := attempt.Goto(5); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected range error, got %v", err)
	}
	_ = attempt.Select(2, "Rome")
	_ = attempt.Select(3, "Madrid")

	res, err := attempt.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Outcome.XPAwarded != 60 || res.Result.TimeLeft != 60 {
		t.Fatalf("unexpected result %+v", res)
	}

	outcome := <-attempt.Done()
	if outcome.Forced || outcome.Err != nil {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if !registry.Add(app.SnapshotKey{UserID: "u1", QuizID: quiz.ID}, &app.Attempt{}) {
		t.Fatalf("attempt should be unregistered after submit")
	}
	if _, err := attempt.Submit(ctx); !errors.Is(err, domain.ErrAttemptClosed) {
		t.Fatalf("second submit must fail, got %v", err)
	}
	if err := attempt.Select(1, "Lyon"); !errors.Is(err, domain.ErrAttemptClosed) {
		t.Fatalf("select after submit must fail, got %v", err)
	}
}

func TestAttemptForcedSubmitOnExpiry(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "alice", 0)
	quiz := f.createQuiz(t, "author")
	ticker := newManualTicker()
	svc, _ := newAttemptService(f, ticker, app.KeepOnAbandon)
	ctx := context.Background()

	_ = f.remote.PutSnapshot(ctx, domain.Snapshot{
		UserID: "u1", QuizID: quiz.ID, CurrentQuestionIndex: 2,
		SelectedAnswers: map[int]string{1: "Paris", 2: "Rome", 9: "ghost"}, TimeLeft: 2,
	})

	attempt, err := svc.Open(ctx, "u1", quiz.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	state := attempt.State()
	if !state.Resumed || state.TimeLeft != 2 || state.CurrentQuestionIndex != 2 || len(state.SelectedAnswers) != 2 {
		t.Fatalf("unexpected resumed state %+v", state)
	}

	ticker.countdown <- time.Now()
	if left := <-attempt.Ticks(); left != 1 {
		t.Fatalf("expected 1s left, got %d", left)
	}
	ticker.countdown <- time.Now()

	select {
	case outcome := <-attempt.Done():
		if !outcome.Forced || outcome.Err != nil {
			t.Fatalf("unexpected outcome %+v", outcome)
		}
		// 2 of 3 is 67%: partial band
		if outcome.Result.Outcome.XPAwarded != 15 || outcome.Result.Result.TimeLeft != 0 {
			t.Fatalf("unexpected forced result %+v", outcome.Result)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("attempt was not force-submitted")
	}

	if _, err := f.persister.Restore(ctx, app.SnapshotKey{UserID: "u1", QuizID: quiz.ID}); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("snapshots should be cleared after forced submit, got %v", err)
	}
}

func TestAttemptAutosave(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "alice", 0)
	quiz := f.createQuiz(t, "author")
	ticker := newManualTicker()
	svc, _ := newAttemptService(f, ticker, app.DiscardOnAbandon)
	ctx := context.Background()
	key := app.SnapshotKey{UserID: "u1", QuizID: quiz.ID}

	attempt, err := svc.Open(ctx, "u1", quiz.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = attempt.Select(1, "Paris")
	_ = attempt.Goto(1)
	ticker.autosave <- time.Now()

	eventually(t, func() bool {
		snap, err := f.remote.GetSnapshot(ctx, key)
		return err == nil && snap.CurrentQuestionIndex == 1 && snap.SelectedAnswers[1] == "Paris"
	}, "autosave to remote sink")
	if _, err := f.local.GetSnapshot(ctx, key); err != nil {
		t.Fatalf("autosave should write the local sink too: %v", err)
	}

	if err := attempt.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := f.persister.Restore(ctx, key); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("discard policy should drop snapshots, got %v", err)
	}
}

func TestAttemptAbandonKeepsSnapshotForResume(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "alice", 0)
	quiz := f.createQuiz(t, "author")
	ticker := newManualTicker()
	svc, _ := newAttemptService(f, ticker, app.KeepOnAbandon)
	ctx := context.Background()

	attempt, err := svc.Open(ctx, "u1", quiz.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.Open(ctx, "u1", quiz.ID); !errors.Is(err, domain.ErrAttemptActive) {
		t.Fatalf("expected second open to conflict, got %v", err)
	}

	_ = attempt.Select(3, "Madrid")
	ticker.countdown <- time.Now()
	<-attempt.Ticks()
	if err := attempt.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := attempt.Close(ctx); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	resumed, err := svc.Open(ctx, "u1", quiz.ID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer resumed.Close(ctx)
	state := resumed.State()
	if !state.Resumed || state.TimeLeft != 59 || state.SelectedAnswers[3] != "Madrid" {
		t.Fatalf("unexpected resumed state %+v", state)
	}
}

func TestAttemptFailedSubmissionKeepsWork(t *testing.T) {
	f := newFixture(t)
	quiz := f.createQuiz(t, "author")
	svc, _ := newAttemptService(f, newManualTicker(), app.KeepOnAbandon)
	ctx := context.Background()

	// no account for u1, so scoring succeeds but the award lookup fails
	attempt, err := svc.Open(ctx, "u1", quiz.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = attempt.Select(1, "Paris")

	if _, err := attempt.Submit(ctx); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
	if outcome := <-attempt.Done(); outcome.Err == nil {
		t.Fatalf("outcome should carry the error")
	}
	snap, err := f.persister.Restore(ctx, app.SnapshotKey{UserID: "u1", QuizID: quiz.ID})
	if err != nil || snap.SelectedAnswers[1] != "Paris" {
		t.Fatalf("work should be saved for a retry, got %+v %v", snap, err)
	}
}

func TestSubmitWhileAttemptOpen(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "alice", 0)
	quiz := f.createQuiz(t, "author")
	svc, _ := newAttemptService(f, newManualTicker(), app.KeepOnAbandon)
	ctx := context.Background()
	key := app.SnapshotKey{UserID: "u1", QuizID: quiz.ID}
	correct := map[int]string{1: "Paris", 2: "Rome", 3: "Madrid"}

	attempt, err := svc.Open(ctx, "u1", quiz.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for id, answer := range correct {
		_ = attempt.Select(id, answer)
	}

	if _, err := f.quizzes.Submit(ctx, "u1", quiz.ID, app.Submission{SelectedAnswers: correct, TimeLeft: 30}); !errors.Is(err, domain.ErrAttemptActive) {
		t.Fatalf("expected direct submit to conflict with the open attempt, got %v", err)
	}
	if _, err := attempt.Submit(ctx); err != nil {
		t.Fatalf("attempt submit: %v", err)
	}
	<-attempt.Done()

	user, err := f.users.FindUserByID(ctx, "u1")
	if err != nil || user.XP != 60 {
		t.Fatalf("xp must be awarded once, got %d %v", user.XP, err)
	}
	results, _ := f.users.ListResults(ctx, "u1")
	if len(results) != 1 {
		t.Fatalf("expected one recorded result, got %d", len(results))
	}

	// a second attempt closed after a direct submit must not bring the snapshot back
	second, err := svc.Open(ctx, "u1", quiz.ID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := second.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := f.quizzes.Submit(ctx, "u1", quiz.ID, app.Submission{SelectedAnswers: correct}); err != nil {
		t.Fatalf("submit after close: %v", err)
	}
	if _, err := f.local.GetSnapshot(ctx, key); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("local snapshot should stay cleared, got %v", err)
	}
	if _, err := f.remote.GetSnapshot(ctx, key); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("remote snapshot should stay cleared, got %v", err)
	}
	third, err := svc.Open(ctx, "u1", quiz.ID)
	if err != nil {
		t.Fatalf("key should be free after the direct submit: %v", err)
	}
	_ = third.Close(ctx)
}
