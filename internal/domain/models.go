package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account. XP is the single source of truth for progression; rank is derived.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	Role           string    `json:"role"`
	XP             int       `json:"xp"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Question models a multiple-choice item. CorrectAnswer holds the option text.
type Question struct {
	ID            int      `json:"id"`
	Prompt        string   `json:"question"`
	Options       []string `json:"options" validate:"min=1"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Points        int      `json:"points" validate:"min=1"`
}

// Quiz is a collection of questions plus the pass/XP rules applied on submission.
type Quiz struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	AuthorID        string     `json:"authorId"`
	Title           string     `json:"title" validate:"required,max=200"`
	Subject         string     `json:"subject" validate:"max=100"`
	Topic           string     `json:"topic" validate:"max=100"`
	DurationMinutes int        `json:"duration" validate:"min=1,max=600"`
	PassingScore    int        `json:"passingScore" validate:"min=0,max=100"`
	MaxScore        int        `json:"maxScore"`
	XPReward        int        `json:"xpReward" validate:"min=0"`
	Questions       []Question `json:"questions" validate:"min=1,unique=ID,dive"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TimeLimit is the full countdown for a fresh attempt.
func (q Quiz) TimeLimit() int {
	return q.DurationMinutes * 60
}

// Redacted returns a copy safe to hand to quiz takers.
func (q Quiz) Redacted() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.CorrectAnswer = ""
		question.Options = append([]string(nil), question.Options...)
		out.Questions[i] = question
	}
	return out
}

// QuizResult is the append-only record written once an attempt is scored.
type QuizResult struct {
	ID              string         `json:"id"`
	UserID          string         `json:"userId"`
	QuizID          string         `json:"quizId"`
	Title           string         `json:"title"`
	Subject         string         `json:"subject"`
	Topic           string         `json:"topic"`
	Score           int            `json:"score"`
	MaxScore        int            `json:"maxScore"`
	Percentage      int            `json:"percentage"`
	PassingScore    int            `json:"passingScore"`
	Passed          bool           `json:"passed"`
	XPAwarded       int            `json:"xpAwarded"`
	DurationMinutes int            `json:"duration"`
	SelectedAnswers map[int]string `json:"selectedAnswers"`
	TimeLeft        int            `json:"timeLeft"`
	CompletedAt     time.Time      `json:"completedAt"`
}

// Snapshot is the resumable state of an in-progress attempt.
type Snapshot struct {
	UserID               string         `json:"userId"`
	QuizID               string         `json:"quizId"`
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	SelectedAnswers      map[int]string `json:"selectedAnswers"`
	TimeLeft             int            `json:"timeLeft"`
	SavedAt              time.Time      `json:"savedAt"`
}

// LeaderboardEntry is one row of the XP leaderboard.
type LeaderboardEntry struct {
	Position int    `json:"position"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	XP       int    `json:"xp"`
	Rank     string `json:"rank"`
}

// Leaderboard captures the ordered XP standings.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
