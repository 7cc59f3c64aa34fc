package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"folio/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoRedis = errors.New("redis client is nil")

// CheckRateLimit counts one hit against resource for id and reports whether
// the caller is still under limit for the current window. Limits are skipped
// in development and test environments.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return true, nil
	}

	if rdb == nil {
		return false, errNoRedis
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		rdb.Expire(ctx, key, window)
	}
	return cnt <= int64(limit), nil
}

// RateLimit enforces limit requests per window, keyed by the authenticated
// user when present and by IP otherwise.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
			id = fmt.Sprintf("user:%d", uid)
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, resource, id, limit, window)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable",
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
				return c.Status(fiber.StatusServiceUnavailable).JSON(models.Response{
					Success: false,
					Message: "rate limit unavailable",
					Error:   &models.ErrorBody{Code: "SERVICE_UNAVAILABLE", Message: "rate limit unavailable"},
				})
			}
			return c.Next()
		}

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.Response{
				Success: false,
				Message: "rate limit exceeded",
				Error:   &models.ErrorBody{Code: "RATE_LIMITED", Message: "rate limit exceeded"},
			})
		}
		return c.Next()
	}
}
