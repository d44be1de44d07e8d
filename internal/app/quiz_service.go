package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"kwikly/internal/domain"
	"kwikly/internal/progression"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
)

var validate = validator.New()

// codeAttempts bounds share-code regeneration on collisions.
const codeAttempts = 5

// Submission is what a finished attempt hands in.
type Submission struct {
	SelectedAnswers map[int]string `json:"selectedAnswers"`
	TimeLeft        int            `json:"timeLeft" validate:"min=0"`
}

// SubmitResult is returned to the taker after scoring.
type SubmitResult struct {
	Outcome     progression.Outcome      `json:"outcome"`
	Result      domain.QuizResult        `json:"result"`
	Progress    progression.UserProgress `json:"progress"`
	RankChanged bool                     `json:"rankChanged"`
}

// QuizService contains quiz authoring and submission use cases.
type QuizService struct {
	store     QuizStore
	quizzes   QuizRepository
	users     UserStore
	results   ResultStore
	snapshots *SnapshotPersister
	board     *LeaderboardHub
	attempts  AttemptRegistry // set by NewAttemptService
	now       func() time.Time
}

func NewQuizService(store QuizStore, quizzes QuizRepository, users UserStore, results ResultStore, snapshots *SnapshotPersister, board *LeaderboardHub) *QuizService {
	return &QuizService{
		store:     store,
		quizzes:   quizzes,
		users:     users,
		results:   results,
		snapshots: snapshots,
		board:     board,
		now:       time.Now,
	}
}

// Create validates and stores a new quiz authored by authorID.
func (s *QuizService) Create(ctx context.Context, authorID string, draft domain.Quiz) (domain.Quiz, error) {
	if err := validateQuiz(draft); err != nil {
		return domain.Quiz{}, err
	}

	now := s.now()
	quiz := draft
	quiz.ID = uuid.NewString()
	quiz.AuthorID = authorID
	quiz.MaxScore = maxScore(quiz.Questions)
	quiz.CreatedAt = now
	quiz.UpdatedAt = now

	var err error
	for i := 0; i < codeAttempts; i++ {
		quiz.Code = shareCode(quiz.Title)
		err = s.store.CreateQuiz(ctx, quiz)
		if !errors.Is(err, domain.ErrConflict) {
			break
		}
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}

	log.WithFields(log.Fields{"quiz": quiz.ID, "code": quiz.Code, "author": authorID}).Info("quiz created")
	return quiz, nil
}

// Update replaces the quiz content. Only the author may edit; ID, code, and
// authorship are preserved.
func (s *QuizService) Update(ctx context.Context, actorID, quizID string, draft domain.Quiz) (domain.Quiz, error) {
	current, err := s.store.LoadQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if current.AuthorID != actorID {
		return domain.Quiz{}, domain.ErrForbidden
	}
	if err := validateQuiz(draft); err != nil {
		return domain.Quiz{}, err
	}

	quiz := draft
	quiz.ID = current.ID
	quiz.Code = current.Code
	quiz.AuthorID = current.AuthorID
	quiz.CreatedAt = current.CreatedAt
	quiz.UpdatedAt = s.now()
	quiz.MaxScore = maxScore(quiz.Questions)

	if err := s.store.UpdateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	s.quizzes.Invalidate(ctx, quizID)
	return quiz, nil
}

// Delete removes a quiz. Results already recorded against it are kept.
func (s *QuizService) Delete(ctx context.Context, actorID, quizID string) error {
	current, err := s.store.LoadQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if current.AuthorID != actorID {
		return domain.ErrForbidden
	}
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.quizzes.Invalidate(ctx, quizID)
	return nil
}

// Get returns a quiz; correct answers are stripped unless viewerID is the author.
func (s *QuizService) Get(ctx context.Context, viewerID, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	return viewFor(viewerID, quiz), nil
}

// GetByCode resolves a share code.
func (s *QuizService) GetByCode(ctx context.Context, viewerID, code string) (domain.Quiz, error) {
	quiz, err := s.store.FindQuizByCode(ctx, strings.ToLower(strings.TrimSpace(code)))
	if err != nil {
		return domain.Quiz{}, err
	}
	return viewFor(viewerID, quiz), nil
}

// ListMine returns the quizzes authored by authorID.
func (s *QuizService) ListMine(ctx context.Context, authorID string) ([]domain.Quiz, error) {
	return s.store.ListQuizzesByAuthor(ctx, authorID)
}

// Submit scores an attempt, appends the result, awards XP, and clears the
// attempt snapshots. A scoring failure awards nothing. While an attempt for the
// same user and quiz is open it must be submitted through that attempt.
func (s *QuizService) Submit(ctx context.Context, userID, quizID string, sub Submission) (SubmitResult, error) {
	if s.attempts != nil {
		// hold the key so no attempt can open while this submission runs
		key := SnapshotKey{UserID: userID, QuizID: quizID}
		hold := &Attempt{key: key}
		if !s.attempts.Add(key, hold) {
			return SubmitResult{}, domain.ErrAttemptActive
		}
		defer s.attempts.Remove(key, hold)
	}
	return s.submit(ctx, userID, quizID, sub)
}

// submit is Submit without the attempt check; open attempts call it while
// they still hold their registry entry.
func (s *QuizService) submit(ctx context.Context, userID, quizID string, sub Submission) (SubmitResult, error) {
	if err := validate.Struct(sub); err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return SubmitResult{}, err
	}
	if err := checkAnswers(quiz, sub.SelectedAnswers); err != nil {
		return SubmitResult{}, err
	}

	outcome, err := progression.Score(progression.SheetFor(quiz, sub.SelectedAnswers))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("score quiz %s: %w", quizID, err)
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return SubmitResult{}, err
	}
	before := progression.NewUserProgress(user.XP)

	result := domain.QuizResult{
		ID:              uuid.NewString(),
		UserID:          userID,
		QuizID:          quiz.ID,
		Title:           quiz.Title,
		Subject:         quiz.Subject,
		Topic:           quiz.Topic,
		Score:           outcome.EarnedPoints,
		MaxScore:        outcome.MaxPoints,
		Percentage:      outcome.Percentage,
		PassingScore:    quiz.PassingScore,
		Passed:          outcome.Passed,
		XPAwarded:       outcome.XPAwarded,
		DurationMinutes: quiz.DurationMinutes,
		SelectedAnswers: copyAnswers(sub.SelectedAnswers),
		TimeLeft:        sub.TimeLeft,
		CompletedAt:     s.now(),
	}
	if err := s.results.AppendResult(ctx, result); err != nil {
		return SubmitResult{}, fmt.Errorf("append result: %w", err)
	}

	after := before
	if outcome.XPAwarded > 0 {
		xp, err := s.users.AddXP(ctx, userID, outcome.XPAwarded)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"user": userID, "quiz": quizID, "xp": outcome.XPAwarded}).
				Error("xp award failed after result was recorded")
			return SubmitResult{}, fmt.Errorf("award xp: %w", err)
		}
		after = progression.NewUserProgress(xp)
	}

	if s.snapshots != nil {
		_ = s.snapshots.Clear(ctx, SnapshotKey{UserID: userID, QuizID: quizID})
	}
	if s.board != nil && outcome.XPAwarded > 0 {
		s.board.Publish(ctx)
	}

	log.WithFields(log.Fields{
		"user": userID, "quiz": quizID, "percentage": outcome.Percentage,
		"band": outcome.Band, "xp": outcome.XPAwarded,
	}).Info("quiz submitted")

	return SubmitResult{
		Outcome:     outcome,
		Result:      result,
		Progress:    after,
		RankChanged: after.Rank != before.Rank,
	}, nil
}

func validateQuiz(q domain.Quiz) error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	for _, question := range q.Questions {
		if strings.TrimSpace(question.Prompt) == "" {
			return fmt.Errorf("%w: question %d has no prompt", domain.ErrValidation, question.ID)
		}
		if !slices.Contains(question.Options, question.CorrectAnswer) {
			return fmt.Errorf("%w: question %d: correct answer is not one of its options", domain.ErrValidation, question.ID)
		}
	}
	return nil
}

// checkAnswers rejects selections for unknown questions or options.
func checkAnswers(quiz domain.Quiz, selected map[int]string) error {
	for id, answer := range selected {
		question, ok := findQuestion(quiz, id)
		if !ok {
			return fmt.Errorf("%w: %w: %d", domain.ErrValidation, domain.ErrQuestionNotFound, id)
		}
		if !slices.Contains(question.Options, answer) {
			return fmt.Errorf("%w: %w: question %d", domain.ErrValidation, domain.ErrOptionNotFound, id)
		}
	}
	return nil
}

func findQuestion(quiz domain.Quiz, id int) (domain.Question, bool) {
	for _, q := range quiz.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Question{}, false
}

func maxScore(questions []domain.Question) int {
	total := 0
	for _, q := range questions {
		total += q.Points
	}
	return total
}

func shareCode(title string) string {
	base := slug.Make(title)
	if base == "" {
		base = "quiz"
	}
	if len(base) > 40 {
		base = strings.Trim(base[:40], "-")
	}
	return base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

func viewFor(viewerID string, quiz domain.Quiz) domain.Quiz {
	if viewerID == quiz.AuthorID {
		return quiz
	}
	return quiz.Redacted()
}

func copyAnswers(in map[int]string) map[int]string {
	out := make(map[int]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// SaveSnapshot stores client-side attempt progress. Answers must belong to the
// quiz; timeLeft is clamped to the quiz time limit.
func (s *QuizService) SaveSnapshot(ctx context.Context, userID, quizID string, snap domain.Snapshot) (domain.Snapshot, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := checkAnswers(quiz, snap.SelectedAnswers); err != nil {
		return domain.Snapshot{}, err
	}
	if snap.CurrentQuestionIndex < 0 || snap.CurrentQuestionIndex >= len(quiz.Questions) {
		return domain.Snapshot{}, fmt.Errorf("%w: question index %d out of range", domain.ErrValidation, snap.CurrentQuestionIndex)
	}
	snap.UserID, snap.QuizID = userID, quizID
	snap.SelectedAnswers = copyAnswers(snap.SelectedAnswers)
	snap.TimeLeft = min(max(snap.TimeLeft, 0), quiz.TimeLimit())

	if err := s.snapshots.Save(ctx, snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	return snap, nil
}

// RestoreSnapshot returns the stored progress for the caller's attempt.
func (s *QuizService) RestoreSnapshot(ctx context.Context, userID, quizID string) (domain.Snapshot, error) {
	snap, err := s.snapshots.Restore(ctx, SnapshotKey{UserID: userID, QuizID: quizID})
	if err != nil && !errors.Is(err, domain.ErrSnapshotNotFound) {
		return domain.Snapshot{}, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	return snap, err
}

// ClearSnapshot drops stored progress, e.g. when the user leaves without submitting.
func (s *QuizService) ClearSnapshot(ctx context.Context, userID, quizID string) error {
	if err := s.snapshots.Clear(ctx, SnapshotKey{UserID: userID, QuizID: quizID}); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	return nil
}
