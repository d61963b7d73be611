// Package symbols maps venue-native market symbols to canonical pairs and back.
package symbols

import (
	"strings"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

// Venue B quote suffixes. TMN is the toman market and maps to the rial quote.
const (
	suffixToman = "TMN"
	suffixUSDT  = "USDT"
)

// venueBSuffixes is checked in order; TMN must come first so that
// "USDTTMN" resolves to usdt-rls rather than an empty-base usdt pair.
var venueBSuffixes = []struct {
	suffix string
	quote  string
}{
	{suffixToman, models.QuoteRial},
	{suffixUSDT, models.QuoteUSDT},
}

// ToVenueBSymbol renders a canonical pair the way venue B lists it.
// Only rial and USDT quoted pairs have a mapping.
func ToVenueBSymbol(pair models.CanonicalPair) (string, bool) {
	if pair.Base == "" {
		return "", false
	}
	base := strings.ToUpper(pair.Base)
	switch pair.Quote {
	case models.QuoteRial:
		return base + suffixToman, true
	case models.QuoteUSDT:
		return base + suffixUSDT, true
	default:
		return "", false
	}
}

// ToVenueASymbol renders a canonical pair the way venue A lists it.
func ToVenueASymbol(pair models.CanonicalPair) (string, bool) {
	if pair.Base == "" || !isSettlement(pair.Quote) {
		return "", false
	}
	return pair.String(), true
}

// ToCanonical maps a venue-native symbol to its canonical pair. A false
// result means the symbol has no mapping and should be dropped.
func ToCanonical(symbol string, venue models.VenueID) (models.CanonicalPair, bool) {
	switch venue {
	case models.VenueNobitex:
		return fromVenueA(symbol)
	case models.VenueWallex:
		return fromVenueB(symbol)
	default:
		return models.CanonicalPair{}, false
	}
}

func fromVenueA(symbol string) (models.CanonicalPair, bool) {
	pair, ok := models.ParseCanonicalPair(symbol)
	if !ok || !isSettlement(pair.Quote) {
		return models.CanonicalPair{}, false
	}
	return pair, true
}

func fromVenueB(symbol string) (models.CanonicalPair, bool) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, candidate := range venueBSuffixes {
		base, found := strings.CutSuffix(s, candidate.suffix)
		if !found {
			continue
		}
		if base == "" {
			return models.CanonicalPair{}, false
		}
		return models.NewCanonicalPair(base, candidate.quote), true
	}
	return models.CanonicalPair{}, false
}

func isSettlement(quote string) bool {
	return quote == models.QuoteRial || quote == models.QuoteUSDT
}
