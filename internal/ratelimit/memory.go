package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type windowCounter struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a process-local fixed-window limiter: a mutex-guarded
// counter map with lazy expiry on access. State lives in process memory, so
// a multi-instance deployment gets independent limits per instance; that is
// an accepted limitation of this backend, not a bug. A restart clears all
// counters.
type MemoryLimiter struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
	max      int
	window   time.Duration
	now      func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter(max int, window time.Duration) (*MemoryLimiter, error) {
	if max <= 0 {
		return nil, fmt.Errorf("rate limit max must be > 0")
	}
	if window <= 0 {
		return nil, fmt.Errorf("rate limit window must be > 0")
	}

	return &MemoryLimiter{
		counters: make(map[string]*windowCounter),
		max:      max,
		window:   window,
		now:      time.Now,
	}, nil
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	c, ok := l.counters[key]
	if !ok || !now.Before(c.resetAt) {
		// First request in a window replaces any expired counter.
		l.counters[key] = &windowCounter{count: 1, resetAt: now.Add(l.window)}
		return Decision{Allowed: true, Remaining: l.max - 1}, nil
	}

	c.count++
	if c.count > l.max {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: c.resetAt.Sub(now),
		}, nil
	}

	return Decision{Allowed: true, Remaining: l.max - c.count}, nil
}
