package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

// SnapshotStore persists the last complete market snapshot so a restarted
// process can serve it, marked stale, before its first cycle finishes.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot *models.MarketSnapshot) error
	Load(ctx context.Context) (*models.MarketSnapshot, error)
}

// SnapshotCacheStats tracks cache performance metrics
type SnapshotCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// RedisSnapshotStore stores the snapshot as one JSON value.
type RedisSnapshotStore struct {
	redis  redis.Cmdable
	key    string
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// NewRedisSnapshotStore creates a Redis-backed snapshot store. A zero ttl
// keeps the value until overwritten.
func NewRedisSnapshotStore(client redis.Cmdable, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{redis: client, key: "arbitrage:last_good_snapshot", ttl: ttl}
}

// Save replaces the stored snapshot.
func (s *RedisSnapshotStore) Save(ctx context.Context, snapshot *models.MarketSnapshot) error {
	if snapshot == nil {
		return nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.redis.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	s.sets.Add(1)
	return nil
}

// Load returns the stored snapshot, or nil when there is none.
func (s *RedisSnapshotStore) Load(ctx context.Context) (*models.MarketSnapshot, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		s.misses.Add(1)
		return nil, nil
	}
	if err != nil {
		s.misses.Add(1)
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snapshot models.MarketSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.misses.Add(1)
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	s.hits.Add(1)
	return &snapshot, nil
}

// GetStats returns the current statistics
func (s *RedisSnapshotStore) GetStats() SnapshotCacheStats {
	return SnapshotCacheStats{Hits: s.hits.Load(), Misses: s.misses.Load(), Sets: s.sets.Load()}
}

// InMemorySnapshotStore holds the snapshot in process memory.
type InMemorySnapshotStore struct {
	mu       sync.RWMutex
	snapshot *models.MarketSnapshot
}

// NewInMemorySnapshotStore creates an in-memory snapshot store.
func NewInMemorySnapshotStore() *InMemorySnapshotStore {
	return &InMemorySnapshotStore{}
}

// Save replaces the stored snapshot.
func (s *InMemorySnapshotStore) Save(ctx context.Context, snapshot *models.MarketSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	return nil
}

// Load returns the stored snapshot, or nil.
func (s *InMemorySnapshotStore) Load(ctx context.Context) (*models.MarketSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, nil
}
