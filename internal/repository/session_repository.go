package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/teacher-portal-api/internal/models"
	"github.com/noah-isme/teacher-portal-api/pkg/cache"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
)

// RedisSessionRepository stores sessions in Redis with a TTL.
type RedisSessionRepository struct {
	client *redis.Client
}

// NewRedisSessionRepository creates the repository.
func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

// Save stores the session for ttl.
func (r *RedisSessionRepository) Save(ctx context.Context, session models.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Find loads a session together with its suspicious counter; missing sessions yield ErrNotFound.
func (r *RedisSessionRepository) Find(ctx context.Context, id string) (*models.Session, error) {
	pipe := r.client.Pipeline()
	payload := pipe.Get(ctx, sessionKey(id))
	counter := pipe.Get(ctx, suspiciousKey(id))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	raw, err := payload.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if count, err := counter.Int(); err == nil {
		session.SuspiciousCount = count
	}
	return &session, nil
}

// RecordSuspicious increments the session's suspicious counter with INCR and
// returns the new value. The counter expires with the session.
func (r *RedisSessionRepository) RecordSuspicious(ctx context.Context, id string) (int, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, suspiciousKey(id))
	ttl := pipe.PTTL(ctx, sessionKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis record suspicious: %w", err)
	}
	remaining := ttl.Val()
	if remaining <= 0 {
		if err := r.client.Del(ctx, suspiciousKey(id)).Err(); err != nil {
			return 0, fmt.Errorf("redis record suspicious: %w", err)
		}
		return 0, appErrors.ErrNotFound
	}
	if err := r.client.PExpire(ctx, suspiciousKey(id), remaining).Err(); err != nil {
		return 0, fmt.Errorf("redis expire suspicious: %w", err)
	}
	return int(incr.Val()), nil
}

// Delete removes a session.
func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id), suspiciousKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func sessionKey(id string) string {
	return cache.Key("session", id)
}

func suspiciousKey(id string) string {
	return cache.Key("session", id, "suspicious")
}

type memorySession struct {
	session   models.Session
	expiresAt time.Time
}

// MemorySessionRepository keeps sessions in process memory.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
	now      func() time.Time
}

// NewMemorySessionRepository creates an empty in-memory store.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]memorySession), now: time.Now}
}

// Save stores the session for ttl and prunes lapsed entries.
func (r *MemorySessionRepository) Save(ctx context.Context, session models.Session, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, entry := range r.sessions {
		if !now.Before(entry.expiresAt) {
			delete(r.sessions, id)
		}
	}
	r.sessions[session.ID] = memorySession{session: session, expiresAt: now.Add(ttl)}
	return nil
}

// Find loads a session; missing or lapsed entries yield ErrNotFound.
func (r *MemorySessionRepository) Find(ctx context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	entry, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	if !r.now().Before(entry.expiresAt) {
		r.mu.Lock()
		delete(r.sessions, id)
		r.mu.Unlock()
		return nil, appErrors.ErrNotFound
	}
	session := entry.session
	return &session, nil
}

// Delete removes a session.
func (r *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// RecordSuspicious increments the session's suspicious counter and returns the new value.
func (r *MemorySessionRepository) RecordSuspicious(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[id]
	if !ok || !r.now().Before(entry.expiresAt) {
		delete(r.sessions, id)
		return 0, appErrors.ErrNotFound
	}
	entry.session.SuspiciousCount++
	r.sessions[id] = entry
	return entry.session.SuspiciousCount, nil
}
