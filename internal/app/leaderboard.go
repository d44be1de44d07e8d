package app

import (
	"context"
	"sync"
	"time"

	"kwikly/internal/domain"
	"kwikly/internal/progression"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultLeaderboardSize = 10
	MaxLeaderboardSize     = 100
)

// LeaderboardHub builds the XP leaderboard and fans updates out to subscribers.
type LeaderboardHub struct {
	users UserStore
	size  int
	now   func() time.Time

	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardHub(users UserStore, size int) *LeaderboardHub {
	if size <= 0 {
		size = DefaultLeaderboardSize
	}
	return &LeaderboardHub{
		users:       users,
		size:        size,
		now:         time.Now,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Top returns the current standings, clamping limit to [1, MaxLeaderboardSize].
func (h *LeaderboardHub) Top(ctx context.Context, limit int) (domain.Leaderboard, error) {
	if limit <= 0 {
		limit = h.size
	}
	if limit > MaxLeaderboardSize {
		limit = MaxLeaderboardSize
	}
	users, err := h.users.TopByXP(ctx, limit)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	entries := make([]domain.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, domain.LeaderboardEntry{
			Position: i + 1,
			UserID:   u.ID,
			Username: u.Username,
			XP:       u.XP,
			Rank:     progression.RankFor(u.XP),
		})
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: h.now()}, nil
}

// Subscribe returns a channel primed with the current board. The caller must
// invoke cancel to release it.
func (h *LeaderboardHub) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	initial, err := h.Top(ctx, h.size)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.Leaderboard, 8)
	ch <- initial

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel, nil
}

// Publish recomputes the board and pushes it to every subscriber.
func (h *LeaderboardHub) Publish(ctx context.Context) {
	h.mu.Lock()
	empty := len(h.subscribers) == 0
	h.mu.Unlock()
	if empty {
		return
	}

	lb, err := h.Top(ctx, h.size)
	if err != nil {
		log.WithError(err).Warn("leaderboard refresh failed")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- lb:
		default:
			// slow subscriber: drop its oldest board so the newest always lands
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
