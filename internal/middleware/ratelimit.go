package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"microblog/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// CodeRateLimited is the error code returned with 429 responses.
const CodeRateLimited = "RATE_LIMITED"

var ErrNoRedis = errors.New("rate limit store not configured")

// Quota is a fixed-window request budget for one named action.
type Quota struct {
	Name   string
	Limit  int
	Window time.Duration
	// FailClosed answers 503 when Redis is unreachable instead of letting
	// the request through.
	FailClosed bool
}

func (q Quota) key(caller string) string {
	return "rl:" + q.Name + ":" + caller
}

// QuotasEnforced reports whether env runs with per-action quotas. Local,
// test and stress environments run without them.
func QuotasEnforced(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "test", "development", "stress":
		return false
	}
	return true
}

// Allow counts one request by caller against q and reports whether it fits.
func (q Quota) Allow(ctx context.Context, rdb *redis.Client, caller string) (bool, error) {
	if rdb == nil {
		return false, ErrNoRedis
	}

	key := q.key(caller)
	n, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		observability.RedisErrorRate.WithLabelValues("ratelimit_incr").Inc()
		return false, err
	}
	// The first hit opens the window.
	if n == 1 {
		if err := rdb.Expire(ctx, key, q.Window).Err(); err != nil {
			observability.RedisErrorRate.WithLabelValues("ratelimit_expire").Inc()
			return false, err
		}
	}
	return n <= int64(q.Limit), nil
}

// callerKey identifies the authenticated user, or the client IP before login.
func callerKey(c *fiber.Ctx) string {
	if uid, ok := CurrentUserID(c); ok {
		return "user:" + strconv.FormatUint(uint64(uid), 10)
	}
	return "ip:" + c.IP()
}

// RateLimit enforces q per caller when env enforces quotas. Mount it after
// RequireAuth on authenticated routes so quotas follow the user rather than
// the IP.
func RateLimit(rdb *redis.Client, q Quota, env string) fiber.Handler {
	if !QuotasEnforced(env) {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	retryAfter := strconv.Itoa(int(q.Window.Seconds()))

	return func(c *fiber.Ctx) error {
		allowed, err := q.Allow(c.UserContext(), rdb, callerKey(c))
		switch {
		case err != nil && q.FailClosed:
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable, refusing request",
				slog.String("quota", q.Name),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "rate limit unavailable"})
		case err != nil:
			return c.Next()
		case !allowed:
			c.Set(fiber.HeaderRetryAfter, retryAfter)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
				"code":  CodeRateLimited,
			})
		}
		return c.Next()
	}
}
