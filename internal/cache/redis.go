// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"microblog/internal/middleware"
	"microblog/internal/observability"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		// A watched key changing under a transaction is an outcome, not a fault.
		if err != nil && !errors.Is(err, redis.Nil) && !errors.Is(err, redis.TxFailedErr) {
			observability.RedisErrorRate.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Options parses addr, which is either host:port or a redis:// URL.
func Options(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// InitRedis initializes the Redis client with the given address. Redis is
// optional: on any failure the client stays nil and callers run uncached.
func InitRedis(addr string) {
	opts, err := Options(addr)
	if err != nil {
		middleware.Logger.Warn("Invalid REDIS_URL, continuing without cache",
			slog.String("addr", addr),
			slog.String("error", err.Error()),
		)
		client = nil
		return
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis unavailable, continuing without cache", slog.String("error", err.Error()))
		_ = rdb.Close()
		client = nil
		return
	}

	SetClient(rdb)
	middleware.Logger.Info("Redis connected successfully")
}

// SetClient installs rdb as the shared client. Tests use it with miniredis.
func SetClient(rdb *redis.Client) {
	if rdb != nil {
		rdb.AddHook(metricsHook{})
	}
	client = rdb
}

// GetClient returns the current Redis client instance, or nil.
func GetClient() *redis.Client {
	return client
}

// Close shuts the shared client down.
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

// Aside implements cache-aside: dest is filled from key when present,
// otherwise fn loads it and the JSON result is stored for ttl. Without Redis
// it simply calls fn. Cache failures never fail the read.
func Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() error) error {
	rdb := client
	if rdb == nil {
		return fn()
	}

	ctx, span := observability.StartRedisSpan(ctx, "cache_aside")
	defer span.End()

	raw, err := rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			return nil
		}
		// Undecodable entries are dropped and reloaded.
		rdb.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	if err := fn(); err != nil {
		return err
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil
	}
	if err := storeUnlessBuried(ctx, rdb, key, payload, ttl); err != nil && !errors.Is(err, redis.TxFailedErr) {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// storeUnlessBuried writes payload unless key has been buried. The tombstone
// is watched, so a Bury landing between the check and the write aborts it.
func storeUnlessBuried(ctx context.Context, rdb *redis.Client, key string, payload []byte, ttl time.Duration) error {
	tomb := tombstoneKey(key)
	return rdb.Watch(ctx, func(tx *redis.Tx) error {
		buried, err := tx.Exists(ctx, tomb).Result()
		if err != nil || buried > 0 {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		return err
	}, tomb)
}
