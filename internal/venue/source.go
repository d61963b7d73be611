// Package venue adapts the venues' public market endpoints into normalized
// quotes keyed by canonical pair.
package venue

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

// Operation names attached to SourceUnavailable errors and spans.
const (
	OpFetchCatalog = "fetch_catalog"
	OpFetchQuotes  = "fetch_quotes"
)

// QuoteSource is implemented by every venue adapter. Each call issues one
// full-market request and indexes the result locally.
type QuoteSource interface {
	Venue() models.VenueID
	FetchCatalog(ctx context.Context) (models.PairSet, error)
	FetchQuotes(ctx context.Context, pairs models.PairSet) (models.QuoteMap, error)
}

// Breaker guards outgoing calls. services.CircuitBreaker satisfies it.
type Breaker interface {
	Execute(ctx context.Context, fn func(context.Context) error) error
}

// Scaling converts a venue's native units to the canonical settlement unit.
//
// Factors is keyed by canonical quote asset and multiplies prices and quote
// volume (venue B lists rial pairs in toman, so rls maps to 10). Divisors is
// keyed by base asset for venues that quote an asset per bundle of units
// (e.g. 1000 shib); prices are divided by it and base volume multiplied.
type Scaling struct {
	Factors  map[string]decimal.Decimal
	Divisors map[string]decimal.Decimal
}

// NewScaling builds a Scaling from float tables as read from configuration.
// Non-positive entries are ignored.
func NewScaling(factors, divisors map[string]float64) Scaling {
	s := Scaling{
		Factors:  make(map[string]decimal.Decimal, len(factors)),
		Divisors: make(map[string]decimal.Decimal, len(divisors)),
	}
	for k, v := range factors {
		if v > 0 {
			s.Factors[strings.ToLower(k)] = decimal.NewFromFloat(v)
		}
	}
	for k, v := range divisors {
		if v > 0 {
			s.Divisors[strings.ToLower(k)] = decimal.NewFromFloat(v)
		}
	}
	return s
}

func (s Scaling) factor(quote string) decimal.Decimal {
	if f, ok := s.Factors[quote]; ok && f.IsPositive() {
		return f
	}
	return decimal.NewFromInt(1)
}

func (s Scaling) divisor(base string) decimal.Decimal {
	if d, ok := s.Divisors[base]; ok && d.IsPositive() {
		return d
	}
	return decimal.NewFromInt(1)
}

// rawQuote is a quote in venue-native units.
type rawQuote struct {
	bid         decimal.Decimal
	ask         decimal.Decimal
	last        decimal.Decimal
	baseVolume  decimal.Decimal
	quoteVolume decimal.Decimal
}

// apply converts a raw quote for pair into canonical units.
func (s Scaling) apply(pair models.CanonicalPair, raw rawQuote) rawQuote {
	f := s.factor(pair.Quote)
	d := s.divisor(pair.Base)
	price := func(v decimal.Decimal) decimal.Decimal {
		return v.Mul(f).Div(d)
	}
	return rawQuote{
		bid:         price(raw.bid),
		ask:         price(raw.ask),
		last:        price(raw.last),
		baseVolume:  raw.baseVolume.Mul(d),
		quoteVolume: raw.quoteVolume.Mul(f),
	}
}
