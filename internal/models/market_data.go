package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VenueQuote is the normalized best bid/ask snapshot of one pair on one venue.
// Prices are expressed in the canonical settlement unit (rial or USDT) per
// single unit of the base asset. Values are produced per fetch and never
// mutated afterwards.
type VenueQuote struct {
	Pair        CanonicalPair   `json:"pair"`
	Venue       VenueID         `json:"venue"`
	BestBid     decimal.Decimal `json:"best_bid"`
	BestAsk     decimal.Decimal `json:"best_ask"`
	LastPrice   decimal.Decimal `json:"last_price"`
	BaseVolume  decimal.Decimal `json:"base_volume"`
	QuoteVolume decimal.Decimal `json:"quote_volume"`
	IsTradable  bool            `json:"is_tradable"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

// QuoteMap indexes one venue's quotes by canonical pair.
type QuoteMap map[CanonicalPair]VenueQuote

// Crossed reports whether the quote has a bid above its ask.
func (q VenueQuote) Crossed() bool {
	return q.BestBid.GreaterThan(q.BestAsk) && q.BestAsk.IsPositive()
}
