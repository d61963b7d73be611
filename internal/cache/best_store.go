package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

// BestEntry is an opportunity observed at a point in time.
type BestEntry struct {
	Opportunity models.ArbitrageOpportunity `json:"opportunity"`
	ObservedAt  time.Time                   `json:"observed_at"`
}

// BestStore keeps recent best opportunities and answers which one had the
// highest net profit within the retention window.
type BestStore interface {
	Record(ctx context.Context, opp models.ArbitrageOpportunity, observedAt time.Time) error
	Best(ctx context.Context) (*BestEntry, error)
}

// RedisBestStore keeps recent entries in a sorted set scored by
// observation time in milliseconds.
type RedisBestStore struct {
	redis  redis.Cmdable
	key    string
	window time.Duration
	now    func() time.Time
}

// NewRedisBestStore creates a Redis-backed best-in-window store.
func NewRedisBestStore(client redis.Cmdable, window time.Duration) *RedisBestStore {
	return &RedisBestStore{
		redis:  client,
		key:    "arbitrage:best_window",
		window: window,
		now:    time.Now,
	}
}

// Record adds an observation and drops entries older than the window.
func (s *RedisBestStore) Record(ctx context.Context, opp models.ArbitrageOpportunity, observedAt time.Time) error {
	data, err := json.Marshal(BestEntry{Opportunity: opp, ObservedAt: observedAt})
	if err != nil {
		return fmt.Errorf("failed to marshal best entry: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.ZAdd(ctx, s.key, redis.Z{Score: float64(observedAt.UnixMilli()), Member: string(data)})
	pipe.ZRemRangeByScore(ctx, s.key, "-inf", "("+s.cutoff())
	pipe.Expire(ctx, s.key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record best entry: %w", err)
	}
	return nil
}

// Best returns the highest net profit entry inside the window, or nil.
func (s *RedisBestStore) Best(ctx context.Context) (*BestEntry, error) {
	members, err := s.redis.ZRangeByScore(ctx, s.key, &redis.ZRangeBy{Min: s.cutoff(), Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read best entries: %w", err)
	}

	entries := make([]BestEntry, 0, len(members))
	for _, member := range members {
		var entry BestEntry
		if err := json.Unmarshal([]byte(member), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return pickBest(entries), nil
}

func (s *RedisBestStore) cutoff() string {
	return strconv.FormatInt(s.now().Add(-s.window).UnixMilli(), 10)
}

// InMemoryBestStore is the process-local BestStore used when Redis is off.
type InMemoryBestStore struct {
	mu      sync.Mutex
	entries []BestEntry
	window  time.Duration
	now     func() time.Time
}

// NewInMemoryBestStore creates an in-memory best-in-window store.
func NewInMemoryBestStore(window time.Duration) *InMemoryBestStore {
	return &InMemoryBestStore{window: window, now: time.Now}
}

// Record adds an observation.
func (s *InMemoryBestStore) Record(ctx context.Context, opp models.ArbitrageOpportunity, observedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, BestEntry{Opportunity: opp, ObservedAt: observedAt})
	s.prune()
	return nil
}

// Best returns the highest net profit entry inside the window, or nil.
func (s *InMemoryBestStore) Best(ctx context.Context) (*BestEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	return pickBest(s.entries), nil
}

func (s *InMemoryBestStore) prune() {
	cutoff := s.now().Add(-s.window)
	kept := s.entries[:0]
	for _, e := range s.entries {
		if !e.ObservedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

// pickBest returns the max net profit entry; the earliest wins ties.
func pickBest(entries []BestEntry) *BestEntry {
	var best *BestEntry
	for i := range entries {
		e := entries[i]
		if best == nil ||
			e.Opportunity.NetProfit.GreaterThan(best.Opportunity.NetProfit) ||
			(e.Opportunity.NetProfit.Equal(best.Opportunity.NetProfit) && e.ObservedAt.Before(best.ObservedAt)) {
			best = &e
		}
	}
	return best
}
