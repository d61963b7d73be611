package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestBreaker(clock *time.Time) *CircuitBreaker {
	breaker := NewCircuitBreaker("nobitex", CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		MaxRequests:      1,
		ResetTimeout:     time.Hour,
	}, quietLogger())
	breaker.now = func() time.Time { return *clock }
	return breaker
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	breaker := NewCircuitBreaker("wallex", CircuitBreakerConfig{}, nil)

	assert.Equal(t, "wallex", breaker.name)
	assert.Equal(t, 5, breaker.config.FailureThreshold)
	assert.Equal(t, 60*time.Second, breaker.config.Timeout)
	assert.NotNil(t, breaker.logger)
	assert.Equal(t, Closed, breaker.GetState())
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clock := time.Now()
	breaker := newTestBreaker(&clock)
	boom := errors.New("upstream 502")

	for i := 0; i < 2; i++ {
		err := breaker.Execute(context.Background(), func(ctx context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	}
	assert.True(t, breaker.IsOpen())

	called := false
	err := breaker.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	stats := breaker.GetStats()
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(2), stats.FailedRequests)
	assert.Equal(t, int64(1), stats.RejectedRequests)
	assert.Equal(t, "open", stats.State)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	clock := time.Now()
	breaker := newTestBreaker(&clock)
	boom := errors.New("timeout")

	for i := 0; i < 2; i++ {
		_ = breaker.Execute(context.Background(), func(ctx context.Context) error { return boom })
	}
	require.True(t, breaker.IsOpen())

	clock = clock.Add(2 * time.Minute)
	err := breaker.Execute(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, Closed, breaker.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := time.Now()
	breaker := newTestBreaker(&clock)
	boom := errors.New("timeout")

	for i := 0; i < 2; i++ {
		_ = breaker.Execute(context.Background(), func(ctx context.Context) error { return boom })
	}
	clock = clock.Add(2 * time.Minute)

	err := breaker.Execute(context.Background(), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, breaker.IsOpen())
}

func TestCircuitBreaker_CanceledContextIsNotAFailure(t *testing.T) {
	clock := time.Now()
	breaker := newTestBreaker(&clock)

	for i := 0; i < 3; i++ {
		_ = breaker.Execute(context.Background(), func(ctx context.Context) error { return context.Canceled })
	}
	assert.Equal(t, Closed, breaker.GetState())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	clock := time.Now()
	breaker := newTestBreaker(&clock)
	for i := 0; i < 2; i++ {
		_ = breaker.Execute(context.Background(), func(ctx context.Context) error { return errors.New("x") })
	}
	require.True(t, breaker.IsOpen())

	breaker.Reset()
	assert.Equal(t, Closed, breaker.GetState())
	assert.NoError(t, breaker.Execute(context.Background(), func(ctx context.Context) error { return nil }))
}

func TestCircuitBreaker_ConcurrentExecute(t *testing.T) {
	breaker := NewCircuitBreaker("concurrent", CircuitBreakerConfig{FailureThreshold: 100}, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = breaker.Execute(context.Background(), func(ctx context.Context) error { return nil })
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(20), breaker.GetStats().SuccessfulRequests)
}

func TestCircuitBreakerManager(t *testing.T) {
	manager := NewCircuitBreakerManager(CircuitBreakerConfig{FailureThreshold: 1}, quietLogger())

	a := manager.GetOrCreate("nobitex")
	b := manager.GetOrCreate("nobitex")
	assert.Same(t, a, b)

	_ = a.Execute(context.Background(), func(ctx context.Context) error { return errors.New("down") })
	assert.True(t, a.IsOpen())

	stats := manager.GetAllStats()
	require.Contains(t, stats, "nobitex")
	assert.Equal(t, "open", stats["nobitex"].State)

	manager.ResetAll()
	assert.False(t, a.IsOpen())
}
