package models

import (
	"fmt"
	"sort"
	"strings"
)

// Settlement currencies a pair must be quoted in to be comparable across venues.
const (
	QuoteRial = "rls"
	QuoteUSDT = "usdt"
)

// CanonicalPair is the venue-independent identifier used to join quotes
// from both venues. It is a comparable value type and safe as a map key.
type CanonicalPair struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// NewCanonicalPair lower-cases and trims both assets.
func NewCanonicalPair(base, quote string) CanonicalPair {
	return CanonicalPair{
		Base:  strings.ToLower(strings.TrimSpace(base)),
		Quote: strings.ToLower(strings.TrimSpace(quote)),
	}
}

// ParseCanonicalPair parses a "base-quote" token.
func ParseCanonicalPair(token string) (CanonicalPair, bool) {
	base, quote, ok := strings.Cut(strings.TrimSpace(token), "-")
	if !ok || base == "" || quote == "" || strings.Contains(quote, "-") {
		return CanonicalPair{}, false
	}
	return NewCanonicalPair(base, quote), true
}

// String renders the pair as a lowercase "base-quote" token.
func (p CanonicalPair) String() string {
	return p.Base + "-" + p.Quote
}

// MarshalText renders the pair as its token, so pairs serialize as strings
// and can key JSON objects.
func (p CanonicalPair) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a "base-quote" token.
func (p *CanonicalPair) UnmarshalText(text []byte) error {
	pair, ok := ParseCanonicalPair(string(text))
	if !ok {
		return fmt.Errorf("invalid pair %q", string(text))
	}
	*p = pair
	return nil
}

// IsZero reports whether the pair is the zero value.
func (p CanonicalPair) IsZero() bool {
	return p.Base == "" && p.Quote == ""
}

// PairSet is a set of canonical pairs.
type PairSet map[CanonicalPair]struct{}

// NewPairSet builds a set from the given pairs.
func NewPairSet(pairs ...CanonicalPair) PairSet {
	set := make(PairSet, len(pairs))
	for _, p := range pairs {
		set[p] = struct{}{}
	}
	return set
}

// Add inserts a pair.
func (s PairSet) Add(p CanonicalPair) {
	s[p] = struct{}{}
}

// Contains reports whether the pair is in the set.
func (s PairSet) Contains(p CanonicalPair) bool {
	_, ok := s[p]
	return ok
}

// Intersect returns the pairs present in both sets.
func (s PairSet) Intersect(other PairSet) PairSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(PairSet, len(small))
	for p := range small {
		if large.Contains(p) {
			out[p] = struct{}{}
		}
	}
	return out
}

// Sorted returns the pairs ordered by their string form.
func (s PairSet) Sorted() []CanonicalPair {
	out := make([]CanonicalPair, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	SortPairs(out)
	return out
}

// SortPairs orders pairs by their canonical string.
func SortPairs(pairs []CanonicalPair) {
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].String() < pairs[j].String()
	})
}
