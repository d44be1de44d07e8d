package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"kwikly/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const userColumns = `id, username, email, hashed_password, role, xp, created_at, updated_at`

// UserStore persists accounts and quiz history. It implements both
// app.UserStore and app.ResultStore.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) CreateUser(ctx context.Context, user domain.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Username, user.Email, user.HashedPassword, user.Role, user.XP, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user with given username or email already exists: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *UserStore) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *UserStore) FindUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (s *UserStore) UpdateUserProfile(ctx context.Context, id, username, email string) (domain.User, error) {
	user, err := s.findOne(ctx,
		`UPDATE users SET username = $2, email = $3, updated_at = now()
		 WHERE id = $1 RETURNING `+userColumns, id, username, email)
	if isUniqueViolation(err) {
		return domain.User{}, fmt.Errorf("username or email already taken: %w", domain.ErrConflict)
	}
	return user, err
}

func (s *UserStore) AddXP(ctx context.Context, id string, delta int) (int, error) {
	var xp int
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET xp = xp + $2, updated_at = now() WHERE id = $1 RETURNING xp`, id, delta).Scan(&xp)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("add xp: %w", err)
	}
	return xp, nil
}

func (s *UserStore) SetXP(ctx context.Context, id string, xp int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET xp = $2, updated_at = now() WHERE id = $1`, id, xp)
	if err != nil {
		return fmt.Errorf("set xp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) TopByXP(ctx context.Context, limit int) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY xp DESC, username ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// AppendResult stores an immutable result row; the full record is kept as JSONB.
func (s *UserStore) AppendResult(ctx context.Context, result domain.QuizResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_results (id, user_id, quiz_id, data, completed_at) VALUES ($1, $2, $3, $4, $5)`,
		result.ID, result.UserID, result.QuizID, raw, result.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *UserStore) ListResults(ctx context.Context, userID string) ([]domain.QuizResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM quiz_results WHERE user_id = $1 ORDER BY completed_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	results := make([]domain.QuizResult, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var result domain.QuizResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (s *UserStore) findOne(ctx context.Context, query string, args ...interface{}) (domain.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, err
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.Role, &u.XP, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
