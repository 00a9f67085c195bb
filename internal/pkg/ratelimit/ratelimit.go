// Package ratelimit implements a fixed-window request limiter on Redis.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
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

// Result describes one consumed slot
type Result struct {
	Count             int
	Allowed           bool
	RetryAfterSeconds int
}

// Limiter consumes slots in a named window
type Limiter interface {
	Consume(ctx context.Context, scope, subject string, limit int, window time.Duration) (Result, error)
}

// RedisLimiter is a distributed fixed-window limiter
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLimiter creates a limiter. A nil client disables limiting.
func NewRedisLimiter(client redis.UniversalClient, prefix string) *RedisLimiter {
	trimmedPrefix := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmedPrefix == "" {
		trimmedPrefix = "uniadmit:rate_limit"
	}
	return &RedisLimiter{client: client, prefix: trimmedPrefix}
}

// Consume increments the window counter for scope/subject
func (r *RedisLimiter) Consume(ctx context.Context, scope, subject string, limit int, window time.Duration) (Result, error) {
	if r == nil || r.client == nil || limit <= 0 || window <= 0 {
		return Result{Allowed: true}, nil
	}

	normalizedScope := strings.TrimSpace(scope)
	normalizedSubject := strings.TrimSpace(subject)
	if normalizedScope == "" || normalizedSubject == "" {
		return Result{Allowed: true}, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s:%s", r.prefix, normalizedScope, normalizedSubject)
	rawResult, err := fixedWindowScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return Result{}, err
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 {
		return Result{}, fmt.Errorf("unexpected redis limiter response shape: %T", rawResult)
	}
	currentCount, ok := values[0].(int64)
	if !ok {
		return Result{}, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return Result{}, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}

	return Result{
		Count:             int(currentCount),
		Allowed:           int(currentCount) <= limit,
		RetryAfterSeconds: retryAfter,
	}, nil
}

// Noop never limits
type Noop struct{}

// Consume implements Limiter
func (Noop) Consume(context.Context, string, string, int, time.Duration) (Result, error) {
	return Result{Allowed: true}, nil
}
