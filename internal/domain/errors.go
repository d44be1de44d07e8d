package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound is returned when no account matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrSnapshotNotFound is returned when neither sink holds a snapshot for the attempt.
	ErrSnapshotNotFound = errors.New("attempt snapshot not found")
	// ErrValidation marks malformed input rejected before any state changes.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a unique field (username, email, code) is taken.
	ErrConflict = errors.New("resource conflict")
	// ErrUnauthorized covers missing or bad credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller is authenticated but may not act.
	ErrForbidden = errors.New("forbidden")
	// ErrAttemptActive is returned when the user already has this quiz open.
	ErrAttemptActive = errors.New("attempt already in progress")
	// ErrAttemptClosed is returned for actions on a submitted or abandoned attempt.
	ErrAttemptClosed = errors.New("attempt closed")
	// ErrQuestionNotFound indicates a selected question ID is not part of the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a selected answer is not one of the question's options.
	ErrOptionNotFound = errors.New("option not found")
	// ErrUnavailable wraps failures of a backing store the caller may retry later.
	ErrUnavailable = errors.New("service unavailable")
)
