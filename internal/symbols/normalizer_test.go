package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

func TestToVenueBSymbol(t *testing.T) {
	tests := []struct {
		pair models.CanonicalPair
		want string
		ok   bool
	}{
		{models.NewCanonicalPair("btc", "rls"), "BTCTMN", true},
		{models.NewCanonicalPair("eth", "usdt"), "ETHUSDT", true},
		{models.NewCanonicalPair("usdt", "rls"), "USDTTMN", true},
		{models.NewCanonicalPair("btc", "eur"), "", false},
		{models.NewCanonicalPair("", "rls"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.pair.String(), func(t *testing.T) {
			got, ok := ToVenueBSymbol(tt.pair)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToCanonical_VenueA(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
		ok     bool
	}{
		{"btc-rls", "btc-rls", true},
		{"BTC-USDT", "btc-usdt", true},
		{"shib-rls", "shib-rls", true},
		{"btc-eur", "", false},
		{"btcrls", "", false},
		{"-rls", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, ok := ToCanonical(tt.symbol, models.VenueNobitex)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.String())
			} else {
				assert.True(t, got.IsZero())
			}
		})
	}
}

func TestToCanonical_VenueB(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
		ok     bool
	}{
		{"BTCTMN", "btc-rls", true},
		{"ETHUSDT", "eth-usdt", true},
		{"USDTTMN", "usdt-rls", true},
		{"btctmn", "btc-rls", true},
		{"BTCEUR", "", false},
		{"TMN", "", false},
		{"USDT", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, ok := ToCanonical(tt.symbol, models.VenueWallex)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestToCanonical_UnknownVenue(t *testing.T) {
	_, ok := ToCanonical("BTCTMN", models.VenueID("binance"))
	assert.False(t, ok)
}

func TestRoundTrip(t *testing.T) {
	for _, token := range []string{"btc-rls", "eth-usdt", "usdt-rls", "doge-rls"} {
		pair, ok := models.ParseCanonicalPair(token)
		assert.True(t, ok)

		symbol, ok := ToVenueBSymbol(pair)
		assert.True(t, ok)
		back, ok := ToCanonical(symbol, models.VenueWallex)
		assert.True(t, ok)
		assert.Equal(t, pair, back)

		symbol, ok = ToVenueASymbol(pair)
		assert.True(t, ok)
		back, ok = ToCanonical(symbol, models.VenueNobitex)
		assert.True(t, ok)
		assert.Equal(t, pair, back)
	}
}
