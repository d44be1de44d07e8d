package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"kwikly/internal/domain"
)

// UserStore keeps accounts and quiz history in memory. It implements both
// app.UserStore and app.ResultStore.
type UserStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	results map[string][]domain.QuizResult
	now     func() time.Time
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[string]domain.User),
		results: make(map[string][]domain.QuizResult),
		now:     time.Now,
	}
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == user.ID || u.Username == user.Username || u.Email == user.Email {
			return domain.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *UserStore) FindUserByID(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *UserStore) FindUserByEmail(_ context.Context, email string) (domain.User, error) {
	return s.find(func(u domain.User) bool { return u.Email == email })
}

func (s *UserStore) FindUserByUsername(_ context.Context, username string) (domain.User, error) {
	return s.find(func(u domain.User) bool { return u.Username == username })
}

func (s *UserStore) find(match func(domain.User) bool) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *UserStore) UpdateUserProfile(_ context.Context, id, username, email string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	for otherID, u := range s.users {
		if otherID != id && (u.Username == username || u.Email == email) {
			return domain.User{}, domain.ErrConflict
		}
	}
	user.Username = username
	user.Email = email
	user.UpdatedAt = s.now()
	s.users[id] = user
	return user, nil
}

func (s *UserStore) AddXP(_ context.Context, id string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	user.XP += delta
	user.UpdatedAt = s.now()
	s.users[id] = user
	return user.XP, nil
}

func (s *UserStore) SetXP(_ context.Context, id string, xp int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.XP = xp
	user.UpdatedAt = s.now()
	s.users[id] = user
	return nil
}

func (s *UserStore) TopByXP(_ context.Context, limit int) ([]domain.User, error) {
	s.mu.RLock()
	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].XP != users[j].XP {
			return users[i].XP > users[j].XP
		}
		return users[i].Username < users[j].Username
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (s *UserStore) AppendResult(_ context.Context, result domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.UserID] = append(s.results[result.UserID], result)
	return nil
}

func (s *UserStore) ListResults(_ context.Context, userID string) ([]domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.results[userID]
	out := make([]domain.QuizResult, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		out = append(out, history[i])
	}
	return out, nil
}
