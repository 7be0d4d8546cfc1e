package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"decepticon/internal/cache"
)

const sessionKeyPrefix = "session:"

// Store persists session values with a per-session expiry.
// Get returns nil values with no error when the session is unknown or expired.
type Store interface {
	Get(ctx context.Context, id string) (*Values, error)
	Set(ctx context.Context, id string, v Values, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps sessions as JSON documents in Redis.
type RedisStore struct {
	cache *cache.Client
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(cache *cache.Client) *RedisStore {
	return &RedisStore{cache: cache}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Values, error) {
	data, err := s.cache.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	var v Values
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &v, nil
}

func (s *RedisStore) Set(ctx context.Context, id string, v Values, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.cache.Set(ctx, sessionKeyPrefix+id, payload, ttl); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, sessionKeyPrefix+id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

type memoryEntry struct {
	values    Values
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Expired entries are
// dropped when read.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, id)
		return nil, nil
	}
	v := e.values
	return &v, nil
}

func (s *MemoryStore) Set(_ context.Context, id string, v Values, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[id] = memoryEntry{values: v, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

// Len returns the number of entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
