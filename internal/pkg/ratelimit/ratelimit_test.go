package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLimiter(client, "test:"), mr
}

func TestConsumeWithinAndOverLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := limiter.Consume(ctx, "login", "10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "attempt %d", i)
		assert.Equal(t, i, res.Count)
	}

	res, err := limiter.Consume(ctx, "login", "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 60, res.RetryAfterSeconds)

	other, err := limiter.Consume(ctx, "login", "10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestWindowExpires(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	ctx := context.Background()

	_, err := limiter.Consume(ctx, "register", "ip", 1, 10*time.Second)
	require.NoError(t, err)
	res, err := limiter.Consume(ctx, "register", "ip", 1, 10*time.Second)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	mr.FastForward(11 * time.Second)

	res, err = limiter.Consume(ctx, "register", "ip", 1, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Count)
}

func TestNilClientDisablesLimiting(t *testing.T) {
	res, err := NewRedisLimiter(nil, "").Consume(context.Background(), "login", "ip", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
