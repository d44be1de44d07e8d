package app

import (
	"context"
	"fmt"
	"strings"

	"kwikly/internal/domain"
	"kwikly/internal/progression"

	log "github.com/sirupsen/logrus"
)

type Profile struct {
	User     domain.User              `json:"user"`
	Progress progression.UserProgress `json:"progress"`
}

type UpdateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=32,alphanum"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

type SetXPRequest struct {
	XP int `json:"xp" validate:"min=0"`
}

// ProfileService exposes a user's account, derived progress, and history.
type ProfileService struct {
	users   UserStore
	results ResultStore
	board   *LeaderboardHub
}

func NewProfileService(users UserStore, results ResultStore, board *LeaderboardHub) *ProfileService {
	return &ProfileService{users: users, results: results, board: board}
}

func (s *ProfileService) Profile(ctx context.Context, userID string) (Profile, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	user.HashedPassword = ""
	return Profile{User: user, Progress: progression.NewUserProgress(user.XP)}, nil
}

// Update changes username and/or email; absent fields keep their value.
func (s *ProfileService) Update(ctx context.Context, userID string, req UpdateProfileRequest) (Profile, error) {
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		req.Username = &trimmed
	}
	if req.Email != nil {
		lowered := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &lowered
	}
	if err := validate.Struct(req); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	current, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	username, email := current.Username, current.Email
	if req.Username != nil {
		username = *req.Username
	}
	if req.Email != nil {
		email = *req.Email
	}

	user, err := s.users.UpdateUserProfile(ctx, userID, username, email)
	if err != nil {
		return Profile{}, fmt.Errorf("update profile: %w", err)
	}
	user.HashedPassword = ""
	return Profile{User: user, Progress: progression.NewUserProgress(user.XP)}, nil
}

// Results lists the user's quiz history, newest first.
func (s *ProfileService) Results(ctx context.Context, userID string) ([]domain.QuizResult, error) {
	return s.results.ListResults(ctx, userID)
}

// SetXP overwrites a user's XP. This is the only path that may lower XP.
func (s *ProfileService) SetXP(ctx context.Context, actorRole, userID string, req SetXPRequest) (Profile, error) {
	if actorRole != domain.RoleAdmin {
		return Profile{}, domain.ErrForbidden
	}
	if err := validate.Struct(req); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.users.SetXP(ctx, userID, req.XP); err != nil {
		return Profile{}, err
	}
	log.WithFields(log.Fields{"user": userID, "xp": req.XP}).Warn("xp overwritten by admin")
	if s.board != nil {
		s.board.Publish(ctx)
	}
	return s.Profile(ctx, userID)
}
