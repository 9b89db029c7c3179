// Package ratelimit guards sensitive endpoints with a fixed-window counter
// per (client ip, path) key.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one rate-limit check. RetryAfter is only
// meaningful when Allowed is false and holds the remaining time until the
// window resets.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides allow/deny for one request key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Key builds the canonical limiter key for a client ip and request path.
func Key(clientIP, path string) string {
	return clientIP + ":" + path
}
