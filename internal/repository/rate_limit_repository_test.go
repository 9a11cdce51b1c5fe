package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiter(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewMemoryRateLimiter()
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "submit:a", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = limiter.Allow(ctx, "submit:a", time.Second)
	assert.False(t, ok)

	ok, _ = limiter.Allow(ctx, "submit:b", time.Second)
	assert.True(t, ok)

	now = now.Add(time.Second)
	ok, _ = limiter.Allow(ctx, "submit:a", time.Second)
	assert.True(t, ok)
}

func TestMemoryRateLimiterRelease(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	ctx := context.Background()

	ok, _ := limiter.Allow(ctx, "submit:a", time.Minute)
	require.True(t, ok)
	require.NoError(t, limiter.Release(ctx, "submit:a"))

	ok, _ = limiter.Allow(ctx, "submit:a", time.Minute)
	assert.True(t, ok)
	require.NoError(t, limiter.Release(ctx, "missing"))
}

func TestRedisRateLimiterWrapsErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	ok, err := NewRedisRateLimiter(client).Allow(context.Background(), "submit:a", time.Second)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "redis rate limit submit:a")

	err = NewRedisRateLimiter(client).Release(context.Background(), "submit:a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis rate limit release submit:a")
}
