package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/rial-arbitrage-go/internal/cache"
	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

type failingGate struct{}

func (failingGate) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	return false, errors.New("redis unavailable")
}

func (failingGate) Release(ctx context.Context, key string) error {
	return errors.New("redis unavailable")
}

func alertConfig() NotificationConfig {
	return NotificationConfig{
		MinDifference: dec("15000"),
		MinNetProfit:  dec("0"),
		Window:        time.Minute,
	}
}

func alertOpp(leg models.ArbitrageLeg, spread, net string) models.ArbitrageOpportunity {
	return models.ArbitrageOpportunity{
		Pair:        pair("btc-rls"),
		Leg:         leg,
		BuyVenue:    models.VenueNobitex,
		SellVenue:   models.VenueWallex,
		BuyPrice:    dec("5000000000"),
		SellPrice:   dec("5000000000").Add(dec(spread)),
		GrossSpread: dec(spread),
		NetProfit:   dec(net),
	}
}

func TestNotificationService_Thresholds(t *testing.T) {
	tests := []struct {
		name   string
		spread string
		net    string
		sent   bool
	}{
		{"clears both", "20000", "100", true},
		{"difference at threshold", "15000", "100", false},
		{"difference below threshold", "800", "693940", false},
		{"net profit at threshold", "20000", "0", true},
		{"negative net profit", "20000", "-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			ns := NewNotificationService(sender, cache.NewInMemoryAlertGate(), alertConfig(), quietLogger())

			sent, err := ns.Consider(t.Context(), alertOpp(models.LegAtoB, tt.spread, tt.net))
			require.NoError(t, err)
			assert.Equal(t, tt.sent, sent)
			if tt.sent {
				assert.Equal(t, 1, sender.count())
			} else {
				assert.Equal(t, 0, sender.count())
			}
		})
	}
}

func TestNotificationService_OncePerWindow(t *testing.T) {
	sender := &recordingSender{}
	ns := NewNotificationService(sender, cache.NewInMemoryAlertGate(), alertConfig(), quietLogger())
	ctx := t.Context()

	sent, err := ns.Consider(ctx, alertOpp(models.LegAtoB, "20000", "100"))
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = ns.Consider(ctx, alertOpp(models.LegAtoB, "25000", "200"))
	require.NoError(t, err)
	assert.False(t, sent, "same pair and leg is gated")

	sent, err = ns.Consider(ctx, alertOpp(models.LegBtoA, "20000", "100"))
	require.NoError(t, err)
	assert.True(t, sent, "the other direction has its own key")

	assert.Equal(t, 2, sender.count())
}

func TestNotificationService_Disabled(t *testing.T) {
	ns := NewNotificationService(nil, nil, alertConfig(), quietLogger())
	assert.False(t, ns.Enabled())

	sent, err := ns.Consider(t.Context(), alertOpp(models.LegAtoB, "20000", "100"))
	assert.NoError(t, err)
	assert.False(t, sent)
}

func TestNotificationService_Failures(t *testing.T) {
	t.Run("gate error", func(t *testing.T) {
		sender := &recordingSender{}
		ns := NewNotificationService(sender, failingGate{}, alertConfig(), quietLogger())

		sent, err := ns.Consider(t.Context(), alertOpp(models.LegAtoB, "20000", "100"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "alert gate")
		assert.False(t, sent)
		assert.Equal(t, 0, sender.count())
	})

	t.Run("sender error", func(t *testing.T) {
		sender := &recordingSender{err: errors.New("telegram 502")}
		ns := NewNotificationService(sender, cache.NewInMemoryAlertGate(), alertConfig(), quietLogger())

		sent, err := ns.Consider(t.Context(), alertOpp(models.LegAtoB, "20000", "100"))
		require.Error(t, err)
		assert.False(t, sent)
	})

	t.Run("failed delivery is retried in the same window", func(t *testing.T) {
		sender := &recordingSender{err: errors.New("telegram 502")}
		ns := NewNotificationService(sender, cache.NewInMemoryAlertGate(), alertConfig(), quietLogger())
		opp := alertOpp(models.LegAtoB, "20000", "100")

		sent, err := ns.Consider(t.Context(), opp)
		require.Error(t, err)
		assert.False(t, sent)

		sender.mu.Lock()
		sender.err = nil
		sender.mu.Unlock()

		sent, err = ns.Consider(t.Context(), opp)
		require.NoError(t, err)
		assert.True(t, sent)
		assert.Equal(t, 1, sender.count())

		sent, err = ns.Consider(t.Context(), opp)
		require.NoError(t, err)
		assert.False(t, sent, "delivered alert holds the window")
	})
}

func TestNotificationService_FormatAlert(t *testing.T) {
	ns := NewNotificationService(&recordingSender{}, nil, alertConfig(), quietLogger())
	observed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	text := ns.FormatAlert(models.AlertPayload{
		Pair:       pair("btc-rls"),
		Leg:        models.LegAtoB,
		BuyVenue:   models.VenueNobitex,
		SellVenue:  models.VenueWallex,
		BuyPrice:   dec("50000"),
		SellPrice:  dec("50800"),
		Difference: dec("800"),
		NetProfit:  dec("693940.1496"),
		Network:    "BTC",
		ObservedAt: observed,
	})

	assert.True(t, strings.HasPrefix(text, "🚀 *Arbitrage Opportunity*"))
	assert.Contains(t, text, "*BTC-RLS*")
	assert.Contains(t, text, "Buy on Nobitex: 50,000")
	assert.Contains(t, text, "Sell on Wallex: 50,800")
	assert.Contains(t, text, "Difference: 800")
	assert.Contains(t, text, "Net profit: 693,940")
	assert.Contains(t, text, "Network: BTC")
	assert.Contains(t, text, "2026-03-04T05:06:07Z")

	noNetwork := ns.FormatAlert(models.AlertPayload{Pair: pair("eth-rls"), ObservedAt: observed})
	assert.NotContains(t, noNetwork, "Network:")
}

func TestTelegramSender_Send(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/sendMessage"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	}))
	defer server.Close()

	sender, err := NewTelegramSender("123:test-token", 42, bot.WithServerURL(server.URL), bot.WithSkipGetMe())
	require.NoError(t, err)

	require.NoError(t, sender.Send(t.Context(), "hello"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestNewTelegramSender_EmptyToken(t *testing.T) {
	_, err := NewTelegramSender("", 42)
	assert.Error(t, err)
}
