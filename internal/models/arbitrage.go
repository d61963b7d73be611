package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArbitrageLeg is one trade direction for a pair.
type ArbitrageLeg string

const (
	// LegAtoB buys at venue A's ask and sells at venue B's bid.
	LegAtoB ArbitrageLeg = "a_to_b"
	// LegBtoA buys at venue B's ask and sells at venue A's bid.
	LegBtoA ArbitrageLeg = "b_to_a"
)

// Legs lists both directions in evaluation order.
var Legs = []ArbitrageLeg{LegAtoB, LegBtoA}

// ArbitrageOpportunity is one evaluated direction for a pair. It is derived
// every cycle and never persisted as engine state.
type ArbitrageOpportunity struct {
	Pair                CanonicalPair   `json:"pair"`
	Leg                 ArbitrageLeg    `json:"leg"`
	BuyVenue            VenueID         `json:"buy_venue"`
	SellVenue           VenueID         `json:"sell_venue"`
	BuyPrice            decimal.Decimal `json:"buy_price"`
	SellPrice           decimal.Decimal `json:"sell_price"`
	GrossSpread         decimal.Decimal `json:"gross_spread"`
	GrossPercent        decimal.Decimal `json:"gross_percent"`
	InvestedAmount      decimal.Decimal `json:"invested_amount"`
	AcquiredAssetAmount decimal.Decimal `json:"acquired_asset_amount"`
	GrossProfit         decimal.Decimal `json:"gross_profit"`
	TradingFeesCost     decimal.Decimal `json:"trading_fees_cost"`
	WithdrawalFeeCost   decimal.Decimal `json:"withdrawal_fee_cost"`
	NetProfit           decimal.Decimal `json:"net_profit"`
	Network             string          `json:"network"`
	NetworkResolved     bool            `json:"network_resolved"`
	TotalVolume         decimal.Decimal `json:"total_volume"`
}

// AlertPayload is the data value handed to an external alert collaborator.
type AlertPayload struct {
	Pair       CanonicalPair   `json:"pair"`
	Leg        ArbitrageLeg    `json:"leg"`
	BuyVenue   VenueID         `json:"buy_venue"`
	SellVenue  VenueID         `json:"sell_venue"`
	BuyPrice   decimal.Decimal `json:"buy_price"`
	SellPrice  decimal.Decimal `json:"sell_price"`
	Difference decimal.Decimal `json:"difference"`
	NetProfit  decimal.Decimal `json:"net_profit"`
	Network    string          `json:"network"`
	ObservedAt time.Time       `json:"observed_at"`
}

// NewAlertPayload projects an opportunity into the alert contract.
func NewAlertPayload(opp ArbitrageOpportunity, observedAt time.Time) AlertPayload {
	return AlertPayload{
		Pair:       opp.Pair,
		Leg:        opp.Leg,
		BuyVenue:   opp.BuyVenue,
		SellVenue:  opp.SellVenue,
		BuyPrice:   opp.BuyPrice,
		SellPrice:  opp.SellPrice,
		Difference: opp.GrossSpread,
		NetProfit:  opp.NetProfit,
		Network:    opp.Network,
		ObservedAt: observedAt,
	}
}
