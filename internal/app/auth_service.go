package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kwikly/internal/domain"
	"kwikly/internal/progression"
	"kwikly/internal/security"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	// Login is either the username or the email.
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User     domain.User              `json:"user"`
	Progress progression.UserProgress `json:"progress"`
	Token    string                   `json:"token"`
}

type AuthService struct {
	users  UserStore
	tokens *security.TokenIssuer
	now    func() time.Time
}

func NewAuthService(users UserStore, tokens *security.TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens, now: time.Now}
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return AuthResponse{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	hashed, err := security.HashPassword(req.Password)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashed,
		Role:           domain.RoleUser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return AuthResponse{}, fmt.Errorf("create user: %w", err)
	}

	log.WithFields(log.Fields{"user": user.ID, "username": user.Username}).Info("user signed up")
	return s.respond(user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	if err := validate.Struct(req); err != nil {
		return AuthResponse{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	login := strings.TrimSpace(req.Login)

	user, err := s.users.FindUserByEmail(ctx, strings.ToLower(login))
	if errors.Is(err, domain.ErrUserNotFound) {
		user, err = s.users.FindUserByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return AuthResponse{}, domain.ErrUnauthorized
		}
		return AuthResponse{}, fmt.Errorf("find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return AuthResponse{}, domain.ErrUnauthorized
	}
	return s.respond(user)
}

func (s *AuthService) respond(user domain.User) (AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("issue token: %w", err)
	}
	user.HashedPassword = ""
	return AuthResponse{User: user, Progress: progression.NewUserProgress(user.XP), Token: token}, nil
}
