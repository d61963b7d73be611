package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// VenueID identifies a trading venue.
type VenueID string

const (
	// VenueNobitex is venue A; it quotes rial pairs as "btc-rls".
	VenueNobitex VenueID = "nobitex"
	// VenueWallex is venue B; it quotes rial pairs in toman as "BTCTMN".
	VenueWallex VenueID = "wallex"
)

// String returns the venue id.
func (v VenueID) String() string {
	return string(v)
}

// ParseVenueID maps a name to a known venue.
func ParseVenueID(name string) (VenueID, bool) {
	switch VenueID(strings.ToLower(strings.TrimSpace(name))) {
	case VenueNobitex:
		return VenueNobitex, true
	case VenueWallex:
		return VenueWallex, true
	default:
		return "", false
	}
}

// FeeRole selects which side of the book a fill is charged as.
type FeeRole string

const (
	RoleMaker FeeRole = "maker"
	RoleTaker FeeRole = "taker"
)

// FeeSchedule holds a venue's fractional trading fees (0.0025 = 0.25%).
type FeeSchedule struct {
	TakerFee decimal.Decimal `json:"taker_fee" yaml:"taker_fee"`
	MakerFee decimal.Decimal `json:"maker_fee" yaml:"maker_fee"`
}

// Fee returns the fee for the given role.
func (s FeeSchedule) Fee(role FeeRole) decimal.Decimal {
	if role == RoleMaker {
		return s.MakerFee
	}
	return s.TakerFee
}

// WithdrawalFeeEntry is one row of the static withdrawal fee table. Fee is
// expressed in units of the withdrawn asset.
type WithdrawalFeeEntry struct {
	Currency string          `json:"currency" yaml:"currency"`
	Network  string          `json:"network" yaml:"network"`
	Fee      decimal.Decimal `json:"fee" yaml:"fee"`
}

// NetworkFee is a withdrawal network offered for a currency.
type NetworkFee struct {
	Network    string          `json:"network"`
	Fee        decimal.Decimal `json:"fee"`
	FeeDisplay string          `json:"fee_display"`
}
