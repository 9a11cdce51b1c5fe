package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/teacher-portal-api/pkg/cache"
)

// RedisRateLimiter allows one action per key and interval using SET NX PX.
type RedisRateLimiter struct {
	client *redis.Client
}

// NewRedisRateLimiter creates the limiter.
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

// Allow reports whether key may act now and starts a new interval when it may.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, interval time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, cache.Key("ratelimit", key), 1, interval).Result()
	if err != nil {
		return false, fmt.Errorf("redis rate limit %s: %w", key, err)
	}
	return ok, nil
}

// Release clears the interval for key so the next Allow succeeds.
func (l *RedisRateLimiter) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, cache.Key("ratelimit", key)).Err(); err != nil {
		return fmt.Errorf("redis rate limit release %s: %w", key, err)
	}
	return nil
}

// MemoryRateLimiter is the single process fallback of RedisRateLimiter.
type MemoryRateLimiter struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// NewMemoryRateLimiter creates the limiter.
func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{last: make(map[string]time.Time), now: time.Now}
}

// Allow reports whether key may act now and starts a new interval when it may.
func (l *MemoryRateLimiter) Allow(ctx context.Context, key string, interval time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if last, ok := l.last[key]; ok && now.Sub(last) < interval {
		return false, nil
	}
	l.last[key] = now
	for k, at := range l.last {
		if now.Sub(at) >= interval && k != key {
			delete(l.last, k)
		}
	}
	return true, nil
}

// Release clears the interval for key so the next Allow succeeds.
func (l *MemoryRateLimiter) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.last, key)
	return nil
}
