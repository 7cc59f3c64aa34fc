// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"folio/internal/middleware"
	"folio/internal/observability"

	"github.com/redis/go-redis/v9"
)

type metricsHook struct{}

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// NewClient builds a client for addr, which may be host:port or a redis://
// URL, with error metrics attached.
func NewClient(addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})
	return client, nil
}

// InitRedis connects to addr and returns nil when Redis is unreachable, in
// which case the application runs without caching, rate limiting or pub/sub.
func InitRedis(addr string) *redis.Client {
	client, err := NewClient(addr)
	if err != nil {
		middleware.Logger.Warn("invalid REDIS_URL, continuing without cache",
			slog.String("addr", addr), slog.String("error", err.Error()))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis unavailable, continuing without cache", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	middleware.Logger.Info("Redis connected successfully")
	return client
}
