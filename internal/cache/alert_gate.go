package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlertGate lets an alert for a key through at most once per window.
type AlertGate interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
	// Release gives up a claim so the next Allow for key succeeds.
	Release(ctx context.Context, key string) error
}

// RedisAlertGate claims a key with SET NX EX so several processes share
// one gate.
type RedisAlertGate struct {
	redis  redis.Cmdable
	prefix string
}

// NewRedisAlertGate creates a Redis-backed alert gate.
func NewRedisAlertGate(client redis.Cmdable) *RedisAlertGate {
	return &RedisAlertGate{redis: client, prefix: "arbitrage:alert:"}
}

// Allow reports whether the caller won the key for this window.
func (g *RedisAlertGate) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := g.redis.SetNX(ctx, g.prefix+key, time.Now().Unix(), window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim alert key %s: %w", key, err)
	}
	return ok, nil
}

// Release deletes the claim for key.
func (g *RedisAlertGate) Release(ctx context.Context, key string) error {
	if err := g.redis.Del(ctx, g.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release alert key %s: %w", key, err)
	}
	return nil
}

// InMemoryAlertGate is the process-local AlertGate.
type InMemoryAlertGate struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewInMemoryAlertGate creates an in-memory alert gate.
func NewInMemoryAlertGate() *InMemoryAlertGate {
	return &InMemoryAlertGate{expires: make(map[string]time.Time), now: time.Now}
}

// Allow reports whether key is free and claims it for window.
func (g *InMemoryAlertGate) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, exp := range g.expires {
		if !now.Before(exp) {
			delete(g.expires, k)
		}
	}
	if _, claimed := g.expires[key]; claimed {
		return false, nil
	}
	g.expires[key] = now.Add(window)
	return true, nil
}

// Release drops the claim for key.
func (g *InMemoryAlertGate) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.expires, key)
	return nil
}
