package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotStatus tells a caller whether an empty result means "no overlap"
// or "a source failed".
type SnapshotStatus string

const (
	// SnapshotComplete means both venues answered; the pair set may still be empty.
	SnapshotComplete SnapshotStatus = "complete"
	// SnapshotSourceUnavailable means at least one venue failed and the pair set is empty.
	SnapshotSourceUnavailable SnapshotStatus = "source_unavailable"
	// SnapshotPending means no cycle has completed yet.
	SnapshotPending SnapshotStatus = "pending"
)

// MarketSnapshot is the fetched input of one refresh cycle.
type MarketSnapshot struct {
	ID           string               `json:"id"`
	FetchedAt    time.Time            `json:"fetched_at"`
	Duration     time.Duration        `json:"duration"`
	Status       SnapshotStatus       `json:"status"`
	Pairs        []CanonicalPair      `json:"pairs"`
	Quotes       map[VenueID]QuoteMap `json:"quotes"`
	CatalogSizes map[VenueID]int      `json:"catalog_sizes"`
	FailedVenues []VenueID            `json:"failed_venues,omitempty"`
	Errors       []string             `json:"errors,omitempty"`
}

// IsComplete reports whether both venues contributed to the snapshot.
func (s *MarketSnapshot) IsComplete() bool {
	return s != nil && s.Status == SnapshotComplete
}

// CycleResult is a snapshot evaluated with one set of caller parameters.
type CycleResult struct {
	SnapshotID    string                 `json:"snapshot_id"`
	FetchedAt     time.Time              `json:"fetched_at"`
	Status        SnapshotStatus         `json:"status"`
	FailedVenues  []VenueID              `json:"failed_venues,omitempty"`
	Investment    decimal.Decimal        `json:"investment"`
	PairCount     int                    `json:"pair_count"`
	Opportunities []ArbitrageOpportunity `json:"opportunities"`
}

// Best returns the opportunity with the highest net profit.
func (r *CycleResult) Best() (ArbitrageOpportunity, bool) {
	if r == nil || len(r.Opportunities) == 0 {
		return ArbitrageOpportunity{}, false
	}
	best := r.Opportunities[0]
	for _, opp := range r.Opportunities[1:] {
		if opp.NetProfit.GreaterThan(best.NetProfit) {
			best = opp
		}
	}
	return best, true
}
