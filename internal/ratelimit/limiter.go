// Package ratelimit implements a Redis-backed fixed-window limiter.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// Decision is the outcome of consuming one unit from a subject's window.
type Decision struct {
	Allowed    bool
	Count      int
	RetryAfter time.Duration
}

// Limiter consumes one unit for subject within scope.
type Limiter interface {
	Allow(ctx context.Context, scope, subject string) (Decision, error)
}

// Disabled allows everything.
type Disabled struct{}

func (Disabled) Allow(context.Context, string, string) (Decision, error) {
	return Decision{Allowed: true}, nil
}

// RedisLimiter allows up to limit calls per subject per window.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = "cashjet:rate_limit"
	}
	return &RedisLimiter{client: client, prefix: trimmed, limit: limit, window: window}
}

// Open returns a RedisLimiter for redisURL, or Disabled when the URL is empty
// or the server cannot be reached. The returned close func is never nil.
func Open(ctx context.Context, redisURL, prefix string, perMinute int) (Limiter, func()) {
	if strings.TrimSpace(redisURL) == "" {
		zap.L().Info("REDIS_URL not set; request rate limiting disabled")
		return Disabled{}, func() {}
	}
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		zap.L().Warn("invalid REDIS_URL; request rate limiting disabled", zap.Error(err))
		return Disabled{}, func() {}
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		zap.L().Warn("redis unavailable; request rate limiting disabled", zap.Error(err))
		_ = client.Close()
		return Disabled{}, func() {}
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			zap.L().Warn("failed to close redis client", zap.Error(err))
		}
	}
	return NewRedisLimiter(client, prefix, perMinute, time.Minute), closeFn
}

func (r *RedisLimiter) Allow(ctx context.Context, scope, subject string) (Decision, error) {
	scope = strings.TrimSpace(scope)
	subject = strings.ToLower(strings.TrimSpace(subject))
	if r.client == nil || r.limit <= 0 || r.window <= 0 || scope == "" || subject == "" {
		return Decision{Allowed: true}, nil
	}

	windowMs := r.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s:%s", r.prefix, scope, subject)
	raw, err := fixedWindowScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("run rate limit script: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return Decision{}, fmt.Errorf("unexpected redis limiter response shape: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return Decision{}, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok || ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := time.Duration(math.Ceil(float64(ttlMs)/1000.0)) * time.Second
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return Decision{
		Allowed:    count <= int64(r.limit),
		Count:      int(count),
		RetryAfter: retryAfter,
	}, nil
}
