package voices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nadzzz/echoline/internal/config"
)

// Store caches label maps under a key until they expire.
type Store interface {
	// Get returns the entry for key and whether it was present and fresh.
	Get(ctx context.Context, key string) (map[string]string, bool, error)

	// Set stores labels under key for ttl.
	Set(ctx context.Context, key string, labels map[string]string, ttl time.Duration) error
}

type memoryEntry struct {
	labels  map[string]string
	expires time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store. A nil clock uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: make(map[string]memoryEntry), now: now}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (map[string]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return maps.Clone(e.labels), true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, labels map[string]string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{labels: maps.Clone(labels), expires: s.now().Add(ttl)}
	return nil
}

const redisKeyPrefix = "echoline:"

// RedisStore shares the catalog between daemon instances. Entries are JSON
// objects written with SET ... EX so Redis handles expiry.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (map[string]string, bool, error) {
	raw, err := s.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var labels map[string]string
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, false, fmt.Errorf("decoding cached voices: %w", err)
	}
	return labels, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, labels map[string]string, ttl time.Duration) error {
	raw, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("encoding voices: %w", err)
	}
	if err := s.rdb.Set(ctx, redisKeyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
