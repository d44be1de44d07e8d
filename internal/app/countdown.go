package app

import (
	"context"
	"sync"
	"time"
)

// TickerFunc yields a tick channel and its stop function. Tests swap in a
// manual channel to drive timers without wall-clock delays.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// RealTicker is the production TickerFunc.
func RealTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Countdown decrements once per tick and fires onExpire exactly once when it
// reaches zero. Cancel stops it without firing.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	stopped   bool
	expired   bool
	onTick    func(left int)
	onExpire  func()
	done      chan struct{}
	closeOnce sync.Once
}

func NewCountdown(seconds int, onTick func(left int), onExpire func()) *Countdown {
	if seconds < 0 {
		seconds = 0
	}
	return &Countdown{
		remaining: seconds,
		onTick:    onTick,
		onExpire:  onExpire,
		done:      make(chan struct{}),
	}
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Expired reports whether the countdown ran out (as opposed to being cancelled).
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// Tick advances the countdown by one second and reports whether it just expired.
// Callbacks run outside the lock.
func (c *Countdown) Tick() bool {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	left := c.remaining
	if left == 0 {
		c.stopped = true
		c.expired = true
	}
	c.mu.Unlock()

	if c.onTick != nil {
		c.onTick(left)
	}
	if left == 0 {
		c.stop()
		if c.onExpire != nil {
			c.onExpire()
		}
		return true
	}
	return false
}

// Start consumes ticks in a goroutine until expiry, Cancel, ctx cancellation,
// or the tick channel closing.
func (c *Countdown) Start(ctx context.Context, ticks <-chan time.Time) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case _, ok := <-ticks:
				if !ok {
					return
				}
				if c.Tick() {
					return
				}
			}
		}
	}()
}

// Cancel stops the countdown. Safe to call more than once.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.stop()
}

func (c *Countdown) stop() {
	c.closeOnce.Do(func() { close(c.done) })
}
