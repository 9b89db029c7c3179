package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lamisoft/wadispatch/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

// allowScript increments the fixed-window counter and reports
// {allowed, remaining, pttl} atomically. ARGV[1] is the max per window,
// ARGV[2] the window in milliseconds.
var allowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
local ttl = redis.call("PTTL", KEYS[1])
if current > tonumber(ARGV[1]) then
  return {0, 0, ttl}
end
return {1, tonumber(ARGV[1]) - current, ttl}
`)

var _ ratelimit.Limiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter is the opt-in distributed fixed-window backend for
// deployments running more than one instance, where the in-memory limiter's
// per-instance counters are not enough.
type RedisRateLimiter struct {
	client *goredis.Client
	max    int64
	window time.Duration
	script *goredis.Script
}

func NewRedisRateLimiter(client *goredis.Client, max int, window time.Duration) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if max <= 0 {
		return nil, fmt.Errorf("rate limit max must be > 0")
	}
	if window <= 0 {
		return nil, fmt.Errorf("rate limit window must be > 0")
	}

	return &RedisRateLimiter{
		client: client,
		max:    int64(max),
		window: window,
		script: allowScript,
	}, nil
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	if r == nil || r.client == nil || r.script == nil {
		return ratelimit.Decision{}, fmt.Errorf("rate limiter is not initialized")
	}

	normalizedKey := strings.TrimSpace(key)
	if normalizedKey == "" {
		return ratelimit.Decision{}, fmt.Errorf("key is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	redisKey := "ratelimit:" + normalizedKey
	result, err := r.script.Run(ctx, r.client, []string{redisKey}, r.max, r.window.Milliseconds()).Int64Slice()
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}
	if len(result) != 3 {
		return ratelimit.Decision{}, fmt.Errorf("unexpected rate limit script result: %v", result)
	}

	decision := ratelimit.Decision{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
	}
	if !decision.Allowed && result[2] > 0 {
		decision.RetryAfter = time.Duration(result[2]) * time.Millisecond
	}

	return decision, nil
}
