package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"time"

	"folio/internal/middleware"
	"folio/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Invalidator drops cached responses after a write.
type Invalidator interface {
	InvalidateResponses(ctx context.Context) error
}

// NopInvalidator is used when Redis is unavailable.
type NopInvalidator struct{}

func (NopInvalidator) InvalidateResponses(context.Context) error { return nil }

// RedisInvalidator removes every key under ResponseKeyPrefix.
type RedisInvalidator struct {
	rdb *redis.Client
}

// NewInvalidator returns a Redis-backed invalidator, or a no-op one when rdb
// is nil.
func NewInvalidator(rdb *redis.Client) Invalidator {
	if rdb == nil {
		return NopInvalidator{}
	}
	return &RedisInvalidator{rdb: rdb}
}

func (i *RedisInvalidator) InvalidateResponses(ctx context.Context) error {
	iter := i.rdb.Scan(ctx, 0, ResponseKeyPattern, 200).Iterator()
	batch := make([]string, 0, 200)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := i.rdb.Unlink(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return i.rdb.Unlink(ctx, batch...).Err()
	}
	return nil
}

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// ResponseKey derives the cache key for a GET request as seen by userID.
func ResponseKey(method, path, query string, userID uint) string {
	sum := sha256.Sum256([]byte(method + " " + path + "?" + query + "#" + strconv.FormatUint(uint64(userID), 10)))
	return ResponseKeyPrefix + hex.EncodeToString(sum[:16])
}

// ResponseCache caches successful GET responses for ttl. The key includes
// the caller so personalised fields never leak between users. It must run
// after identity resolution.
func ResponseCache(rdb *redis.Client, ttl time.Duration) fiber.Handler {
	if ttl <= 0 {
		ttl = ResponseTTLFallback
	}
	return func(c *fiber.Ctx) error {
		if rdb == nil || c.Method() != fiber.MethodGet {
			return c.Next()
		}
		if c.Get(fiber.HeaderCacheControl) == "no-cache" {
			observability.ResponseCacheRequests.WithLabelValues("bypass").Inc()
			return c.Next()
		}

		uid, _ := c.Locals("userID").(uint)
		key := ResponseKey(c.Method(), c.Path(), string(c.Request().URI().QueryString()), uid)
		ctx := c.UserContext()

		var hit cachedResponse
		if found, err := GetJSON(ctx, rdb, key, &hit); err == nil && found {
			observability.ResponseCacheRequests.WithLabelValues("hit").Inc()
			c.Set("X-Cache", "HIT")
			c.Set(fiber.HeaderContentType, hit.ContentType)
			return c.Status(hit.Status).Send(hit.Body)
		}

		observability.ResponseCacheRequests.WithLabelValues("miss").Inc()
		c.Set("X-Cache", "MISS")
		if err := c.Next(); err != nil {
			return err
		}

		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}
		entry := cachedResponse{
			Status:      fiber.StatusOK,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		if err := SetJSON(ctx, rdb, key, entry, ttl); err != nil {
			middleware.Logger.WarnContext(ctx, "response cache store failed", slog.String("error", err.Error()))
		}
		return nil
	}
}
