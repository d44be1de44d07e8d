package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"kwikly/internal/domain"

	log "github.com/sirupsen/logrus"
)

// AbandonPolicy decides what happens to the snapshot when an attempt is closed
// without submitting.
type AbandonPolicy string

const (
	// KeepOnAbandon saves a final snapshot so the attempt can be resumed later.
	KeepOnAbandon AbandonPolicy = "keep"
	// DiscardOnAbandon deletes both snapshots on exit.
	DiscardOnAbandon AbandonPolicy = "discard"
)

// ParseAbandonPolicy maps a config value to a policy; empty means KeepOnAbandon.
func ParseAbandonPolicy(raw string) (AbandonPolicy, error) {
	switch AbandonPolicy(raw) {
	case "":
		return KeepOnAbandon, nil
	case KeepOnAbandon, DiscardOnAbandon:
		return AbandonPolicy(raw), nil
	}
	return "", fmt.Errorf("%w: unknown abandon policy %q", domain.ErrValidation, raw)
}

// AttemptRegistry tracks attempts that are currently open (in-memory, etc).
// A REST submission also holds the key while it runs.
type AttemptRegistry interface {
	// Add registers the attempt and reports false if the key is already taken.
	Add(key SnapshotKey, attempt *Attempt) bool
	Remove(key SnapshotKey, attempt *Attempt)
}

// AttemptState is the client-visible view of an open attempt.
type AttemptState struct {
	Quiz                 domain.Quiz    `json:"quiz"`
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	SelectedAnswers      map[int]string `json:"selectedAnswers"`
	TimeLeft             int            `json:"timeLeft"`
	Resumed              bool           `json:"resumed"`
}

// AttemptOutcome is delivered on Done once the attempt ends by submission.
type AttemptOutcome struct {
	Result SubmitResult
	Forced bool
	Err    error
}

type AttemptConfig struct {
	AutosaveInterval time.Duration
	Abandon          AbandonPolicy
	NewTicker        TickerFunc
}

// AttemptService opens server-driven quiz attempts: it owns the countdown,
// autosaves snapshots, and forces submission when time runs out.
type AttemptService struct {
	quizzes   QuizRepository
	submitter *QuizService
	snapshots *SnapshotPersister
	registry  AttemptRegistry
	cfg       AttemptConfig
}

func NewAttemptService(quizzes QuizRepository, submitter *QuizService, snapshots *SnapshotPersister, registry AttemptRegistry, cfg AttemptConfig) *AttemptService {
	if cfg.AutosaveInterval <= 0 {
		cfg.AutosaveInterval = 30 * time.Second
	}
	if cfg.Abandon == "" {
		cfg.Abandon = KeepOnAbandon
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = RealTicker
	}
	submitter.attempts = registry
	return &AttemptService{
		quizzes:   quizzes,
		submitter: submitter,
		snapshots: snapshots,
		registry:  registry,
		cfg:       cfg,
	}
}

// Open starts (or resumes) userID's attempt at quizID. The attempt lives until
// it is submitted, forced by the countdown, or closed.
func (s *AttemptService) Open(ctx context.Context, userID, quizID string) (*Attempt, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	key := SnapshotKey{UserID: userID, QuizID: quizID}
	a := &Attempt{
		key:      key,
		quiz:     quiz,
		svc:      s,
		selected: make(map[int]string),
		ticks:    make(chan int, 1),
		done:     make(chan AttemptOutcome, 1),
		saved:    make(chan struct{}),
	}
	timeLeft := quiz.TimeLimit()

	snap, err := s.snapshots.Restore(ctx, key)
	switch {
	case err == nil:
		a.resumed = true
		timeLeft = a.applySnapshot(snap)
	case !errors.Is(err, domain.ErrSnapshotNotFound):
		log.WithError(err).WithField("key", key.String()).Warn("starting attempt without snapshot")
	}

	if !s.registry.Add(key, a) {
		return nil, domain.ErrAttemptActive
	}

	a.ctx, a.cancel = context.WithCancel(context.WithoutCancel(ctx))
	a.countdown = NewCountdown(timeLeft, a.publishTick, a.expire)
	countdownTicks, stopCountdown := s.cfg.NewTicker(time.Second)
	autosaveTicks, stopAutosave := s.cfg.NewTicker(s.cfg.AutosaveInterval)
	a.stopTickers = func() {
		stopCountdown()
		stopAutosave()
	}
	a.countdown.Start(a.ctx, countdownTicks)
	go a.autosave(autosaveTicks)

	log.WithFields(log.Fields{"user": userID, "quiz": quizID, "resumed": a.resumed, "timeLeft": timeLeft}).Info("attempt opened")
	return a, nil
}

// Attempt is one open quiz-taking session.
type Attempt struct {
	key     SnapshotKey
	quiz    domain.Quiz
	svc     *AttemptService
	resumed bool

	ctx         context.Context
	cancel      context.CancelFunc
	countdown   *Countdown
	stopTickers func()
	ticks       chan int
	done        chan AttemptOutcome
	saved       chan struct{} // closed when the autosave loop exits

	mu       sync.Mutex
	index    int
	selected map[int]string
	closed   bool
}

func (a *Attempt) Key() SnapshotKey {
	return a.key
}

// Ticks delivers the remaining seconds after each countdown tick. Only the
// latest value is kept for slow readers.
func (a *Attempt) Ticks() <-chan int {
	return a.ticks
}

// Done receives exactly one outcome when the attempt is submitted.
func (a *Attempt) Done() <-chan AttemptOutcome {
	return a.done
}

// State returns a copy of the current attempt state with answers redacted.
func (a *Attempt) State() AttemptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AttemptState{
		Quiz:                 a.quiz.Redacted(),
		CurrentQuestionIndex: a.index,
		SelectedAnswers:      copyAnswers(a.selected),
		TimeLeft:             a.countdown.Remaining(),
		Resumed:              a.resumed,
	}
}

// Select records the chosen option for a question.
func (a *Attempt) Select(questionID int, option string) error {
	question, ok := findQuestion(a.quiz, questionID)
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if !slices.Contains(question.Options, option) {
		return domain.ErrOptionNotFound
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return domain.ErrAttemptClosed
	}
	a.selected[questionID] = option
	return nil
}

// Goto moves the cursor to a question index.
func (a *Attempt) Goto(index int) error {
	if index < 0 || index >= len(a.quiz.Questions) {
		return fmt.Errorf("%w: question index %d out of range", domain.ErrValidation, index)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return domain.ErrAttemptClosed
	}
	a.index = index
	return nil
}

// Submit scores the attempt now.
func (a *Attempt) Submit(ctx context.Context) (SubmitResult, error) {
	return a.finish(ctx, false)
}

// Close abandons the attempt. Depending on the abandon policy the snapshot is
// either saved for a later resume or deleted. Closing a finished attempt is a no-op.
func (a *Attempt) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	snap := a.snapshotLocked()
	a.mu.Unlock()

	a.stopLoops()

	var err error
	if a.svc.cfg.Abandon == DiscardOnAbandon {
		err = a.svc.snapshots.Clear(ctx, a.key)
	} else {
		err = a.svc.snapshots.Save(ctx, snap)
	}
	a.svc.registry.Remove(a.key, a)
	log.WithFields(log.Fields{"key": a.key.String(), "policy": a.svc.cfg.Abandon}).Info("attempt abandoned")
	return err
}

func (a *Attempt) finish(ctx context.Context, forced bool) (SubmitResult, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return SubmitResult{}, domain.ErrAttemptClosed
	}
	a.closed = true
	snap := a.snapshotLocked()
	a.mu.Unlock()

	a.stopLoops()

	// the registry entry is held until the snapshots are settled so a REST
	// submit or a new attempt cannot interleave with this one
	result, err := a.svc.submitter.submit(ctx, a.key.UserID, a.key.QuizID, Submission{
		SelectedAnswers: snap.SelectedAnswers,
		TimeLeft:        snap.TimeLeft,
	})
	if err != nil {
		// keep the work so the user can reopen and resubmit by hand
		log.WithError(err).WithField("key", a.key.String()).Error("attempt submission failed")
		_ = a.svc.snapshots.Save(ctx, snap)
	}
	a.svc.registry.Remove(a.key, a)
	a.done <- AttemptOutcome{Result: result, Forced: forced, Err: err}
	return result, err
}

// stopLoops halts the countdown and autosave and waits for a pending autosave
// to finish.
func (a *Attempt) stopLoops() {
	a.countdown.Cancel()
	a.stopTickers()
	a.cancel()
	<-a.saved
}

func (a *Attempt) expire() {
	// stopLoops cancels a.ctx, so the forced submission runs detached from it
	if _, err := a.finish(context.WithoutCancel(a.ctx), true); err != nil && !errors.Is(err, domain.ErrAttemptClosed) {
		log.WithError(err).WithField("key", a.key.String()).Warn("forced submission failed")
	}
}

func (a *Attempt) publishTick(left int) {
	select {
	case a.ticks <- left:
	default:
		select {
		case <-a.ticks:
		default:
		}
		select {
		case a.ticks <- left:
		default:
		}
	}
}

func (a *Attempt) autosave(ticks <-chan time.Time) {
	defer close(a.saved)
	for {
		select {
		case <-a.ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			a.mu.Lock()
			if a.closed {
				a.mu.Unlock()
				return
			}
			snap := a.snapshotLocked()
			a.mu.Unlock()
			_ = a.svc.snapshots.Save(a.ctx, snap)
		}
	}
}

func (a *Attempt) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		UserID:               a.key.UserID,
		QuizID:               a.key.QuizID,
		CurrentQuestionIndex: a.index,
		SelectedAnswers:      copyAnswers(a.selected),
		TimeLeft:             a.countdown.Remaining(),
	}
}

// applySnapshot restores cursor and answers, dropping anything that no longer
// matches the quiz, and returns the time left to resume with.
func (a *Attempt) applySnapshot(snap domain.Snapshot) int {
	if snap.CurrentQuestionIndex >= 0 && snap.CurrentQuestionIndex < len(a.quiz.Questions) {
		a.index = snap.CurrentQuestionIndex
	}
	for id, answer := range snap.SelectedAnswers {
		if q, ok := findQuestion(a.quiz, id); ok && slices.Contains(q.Options, answer) {
			a.selected[id] = answer
		}
	}
	timeLeft := snap.TimeLeft
	if timeLeft > a.quiz.TimeLimit() {
		timeLeft = a.quiz.TimeLimit()
	}
	if timeLeft < 0 {
		timeLeft = 0
	}
	return timeLeft
}
