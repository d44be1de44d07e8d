package app

import (
	"context"

	"kwikly/internal/domain"
)

// QuizRepository serves quiz definitions on the hot path (take/submit), usually
// through a cache in front of a QuizStore.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID string)
}

// QuizStore is the system of record for authored quizzes.
type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	FindQuizByCode(ctx context.Context, code string) (domain.Quiz, error)
	ListQuizzesByAuthor(ctx context.Context, authorID string) ([]domain.Quiz, error)
}

// UserStore persists accounts and their raw XP.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	FindUserByID(ctx context.Context, id string) (domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (domain.User, error)
	UpdateUserProfile(ctx context.Context, id, username, email string) (domain.User, error)
	// AddXP increments XP atomically and returns the new total.
	AddXP(ctx context.Context, id string, delta int) (int, error)
	SetXP(ctx context.Context, id string, xp int) error
	TopByXP(ctx context.Context, limit int) ([]domain.User, error)
}

// ResultStore is the append-only quiz history.
type ResultStore interface {
	AppendResult(ctx context.Context, result domain.QuizResult) error
	ListResults(ctx context.Context, userID string) ([]domain.QuizResult, error)
}
