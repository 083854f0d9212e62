package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when no live session exists for an id.
var ErrSessionNotFound = errors.New("intake session not found")

// SessionStore keeps conversations between messages.
type SessionStore interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// MemoryStore holds sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore expires sessions ttl after their last save. A zero ttl
// keeps them until deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	out := entry.session
	return &out, nil
}

func (m *MemoryStore) Save(_ context.Context, session *Session) error {
	if session == nil {
		return errors.New("session required")
	}
	entry := memoryEntry{session: *session}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = entry
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// KV is the redis surface the RedisStore uses.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IntakeSessionKey(sessionID string) string
}

// RedisStore keeps sessions as JSON values with a sliding TTL.
type RedisStore struct {
	kv  KV
	ttl time.Duration
}

func NewRedisStore(kv KV, ttl time.Duration) (*RedisStore, error) {
	if kv == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisStore{kv: kv, ttl: ttl}, nil
}

func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := r.kv.Get(ctx, r.kv.IntakeSessionKey(id))
	if errors.Is(err, goredis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load intake session: %w", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode intake session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, session *Session) error {
	if session == nil {
		return errors.New("session required")
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode intake session: %w", err)
	}
	if err := r.kv.Set(ctx, r.kv.IntakeSessionKey(session.ID), string(raw), r.ttl); err != nil {
		return fmt.Errorf("save intake session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.kv.Del(ctx, r.kv.IntakeSessionKey(id))
}
