package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper stores used form tokens in Redis so a resubmitted form is
// recognised by every instance.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(sessionID, token string) string {
	return fmt.Sprintf("form:%s:%s", sessionID, token)
}

// Add records the token if it does not already exist. It returns true when the
// token was newly added.
func (r *RedisDeduper) Add(ctx context.Context, sessionID, token string) (bool, error) {
	return r.client.SetNX(ctx, r.key(sessionID, token), 1, r.ttl).Result()
}

// MemoryDeduper is the in-process Deduper used without Redis.
type MemoryDeduper struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

func (m *MemoryDeduper) Add(_ context.Context, sessionID, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, exp := range m.seen {
		if !now.Before(exp) {
			delete(m.seen, k)
		}
	}
	k := sessionID + ":" + token
	if _, ok := m.seen[k]; ok {
		return false, nil
	}
	m.seen[k] = now.Add(m.ttl)
	return true, nil
}
