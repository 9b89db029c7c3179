package transport

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lamisoft/wadispatch/internal/observability"
	"github.com/lamisoft/wadispatch/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimitConfig wires the fixed-window limiter in front of the expensive
// send endpoints. Paths not in ProtectedPaths pass through untouched.
type RateLimitConfig struct {
	Limiter        ratelimit.Limiter
	ProtectedPaths []string
	Disabled       bool
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// RateLimitMiddleware guards the protected paths. Every guarded response,
// allowed or denied, carries no-cache headers so intermediaries never replay
// a batch result. A limiter backend failure fails open: dropping legitimate
// sends is worse than briefly losing the limit.
func RateLimitMiddleware(cfg RateLimitConfig) fiber.Handler {
	protected := make(map[string]struct{}, len(cfg.ProtectedPaths))
	for _, path := range cfg.ProtectedPaths {
		protected[path] = struct{}{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		path := c.Path()
		if _, ok := protected[path]; !ok {
			return c.Next()
		}

		setNoCacheHeaders(c)

		if cfg.Disabled || cfg.Limiter == nil {
			return c.Next()
		}

		key := ratelimit.Key(c.IP(), path)
		decision, err := cfg.Limiter.Allow(c.Context(), key)
		if err != nil {
			logger.Warn("rate limiter unavailable, failing open",
				zap.String("path", path),
				zap.Error(err),
			)
			return c.Next()
		}

		if decision.Allowed {
			return c.Next()
		}

		if cfg.Metrics != nil {
			cfg.Metrics.IncRateLimited(path)
		}

		c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(retryAfterSeconds(decision.RetryAfter), 10))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success": false,
			"error":   "too many requests",
		})
	}
}

func setNoCacheHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")
}

// retryAfterSeconds rounds up to whole seconds; a sub-second remainder must
// not tell the client to retry immediately.
func retryAfterSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	return int64((d + time.Second - 1) / time.Second)
}
