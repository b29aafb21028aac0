package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"founder-dashboard/domain"
)

// DefaultSessionTTL bounds how long an untouched session is kept.
const DefaultSessionTTL = 24 * time.Hour

// ErrSessionNotFound is returned when no state exists for a session id.
var ErrSessionNotFound = errors.New("session not found")

// RedisSessions keeps session state in Redis so any instance can serve a
// session. The TTL slides forward on every save.
type RedisSessions struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisSessions creates a session store using the provided Redis client and TTL.
func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	if client == nil {
		panic("storage.NewRedisSessions: redis client is nil")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessions{redis: client, ttl: ttl}
}

func (r *RedisSessions) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	data, err := r.redis.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess domain.Session
	if err := sonic.Unmarshal(data, &sess); err != nil {
		_ = r.redis.Del(ctx, sessionKey(id)).Err()
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

func (r *RedisSessions) SaveSession(ctx context.Context, sess *domain.Session) error {
	data, err := sonic.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.redis.Set(ctx, sessionKey(sess.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisSessions) DeleteSession(ctx context.Context, id string) error {
	return r.redis.Del(ctx, sessionKey(id)).Err()
}

func sessionKey(id string) string {
	return "session:" + id
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemorySessions is the single-process fallback used when Redis is not
// configured. Sessions are stored encoded so callers never share pointers.
type MemorySessions struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]memoryEntry
}

func NewMemorySessions(ttl time.Duration) *MemorySessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessions{ttl: ttl, now: time.Now, sessions: make(map[string]memoryEntry)}
}

func (m *MemorySessions) LoadSession(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	if ok && !m.now().Before(entry.expiresAt) {
		delete(m.sessions, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	var sess domain.Session
	if err := sonic.Unmarshal(entry.data, &sess); err != nil {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

func (m *MemorySessions) SaveSession(_ context.Context, sess *domain.Session) error {
	data, err := sonic.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, e := range m.sessions {
		if !now.Before(e.expiresAt) {
			delete(m.sessions, id)
		}
	}
	m.sessions[sess.ID] = memoryEntry{data: data, expiresAt: now.Add(m.ttl)}
	return nil
}

func (m *MemorySessions) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}
