// Package fees holds the trading fee schedules and the withdrawal fee table.
package fees

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

type withdrawalKey struct {
	currency string
	network  string
}

// Model answers fee lookups. It is built once at startup and read-only
// afterwards, so it is safe for concurrent use.
type Model struct {
	schedules   map[models.VenueID]models.FeeSchedule
	withdrawals map[withdrawalKey]decimal.Decimal
	networks    map[string][]models.NetworkFee
}

// DefaultSchedules returns the trading fees the venues publish for regular
// accounts.
func DefaultSchedules() map[models.VenueID]models.FeeSchedule {
	return map[models.VenueID]models.FeeSchedule{
		models.VenueNobitex: {
			TakerFee: decimal.RequireFromString("0.0025"),
			MakerFee: decimal.RequireFromString("0.0015"),
		},
		models.VenueWallex: {
			TakerFee: decimal.RequireFromString("0.0025"),
			MakerFee: decimal.RequireFromString("0.0020"),
		},
	}
}

// NewModel validates the schedules and indexes the withdrawal table.
// Duplicate (currency, network) rows keep the first occurrence.
func NewModel(schedules map[models.VenueID]models.FeeSchedule, entries []models.WithdrawalFeeEntry) (*Model, error) {
	m := &Model{
		schedules:   make(map[models.VenueID]models.FeeSchedule, len(schedules)),
		withdrawals: make(map[withdrawalKey]decimal.Decimal, len(entries)),
		networks:    make(map[string][]models.NetworkFee),
	}

	for venue, s := range schedules {
		if s.TakerFee.IsNegative() || s.MakerFee.IsNegative() {
			return nil, fmt.Errorf("negative trading fee for venue %s", venue)
		}
		m.schedules[venue] = s
	}

	for i, e := range entries {
		currency := normalize(e.Currency)
		network := normalize(e.Network)
		if currency == "" || network == "" {
			return nil, fmt.Errorf("withdrawal fee row %d: currency and network are required", i)
		}
		if e.Fee.IsNegative() {
			return nil, fmt.Errorf("withdrawal fee row %d (%s/%s): negative fee %s", i, e.Currency, e.Network, e.Fee)
		}
		key := withdrawalKey{currency: currency, network: network}
		if _, exists := m.withdrawals[key]; exists {
			continue
		}
		m.withdrawals[key] = e.Fee
		m.networks[currency] = append(m.networks[currency], models.NetworkFee{
			Network:    strings.TrimSpace(e.Network),
			Fee:        e.Fee,
			FeeDisplay: FormatFee(e.Fee, e.Currency),
		})
	}

	return m, nil
}

// TradingFee returns the fractional fee a venue charges for the role.
// Unknown venues are charged nothing.
func (m *Model) TradingFee(venue models.VenueID, role models.FeeRole) decimal.Decimal {
	s, ok := m.schedules[venue]
	if !ok {
		return decimal.Zero
	}
	return s.Fee(role)
}

// Schedule returns a venue's fee schedule.
func (m *Model) Schedule(venue models.VenueID) (models.FeeSchedule, bool) {
	s, ok := m.schedules[venue]
	return s, ok
}

// WithdrawalFee returns the fee, in units of currency, for withdrawing over
// network. The boolean is false when the table has no matching row; the fee
// is then zero.
func (m *Model) WithdrawalFee(currency, network string) (decimal.Decimal, bool) {
	fee, ok := m.withdrawals[withdrawalKey{currency: normalize(currency), network: normalize(network)}]
	if !ok {
		return decimal.Zero, false
	}
	return fee, true
}

// ListNetworks returns every network listed for currency in table order.
func (m *Model) ListNetworks(currency string) []models.NetworkFee {
	list := m.networks[normalize(currency)]
	out := make([]models.NetworkFee, len(list))
	copy(out, list)
	return out
}

// DefaultNetwork returns the first listed network for currency.
func (m *Model) DefaultNetwork(currency string) (string, bool) {
	list := m.networks[normalize(currency)]
	if len(list) == 0 {
		return "", false
	}
	return list[0].Network, true
}

// HasNetwork reports whether network is listed for currency.
func (m *Model) HasNetwork(currency, network string) bool {
	_, ok := m.withdrawals[withdrawalKey{currency: normalize(currency), network: normalize(network)}]
	return ok
}

// FormatFee renders a fee the way it is shown next to a network choice.
func FormatFee(fee decimal.Decimal, currency string) string {
	return fee.String() + " " + strings.ToUpper(strings.TrimSpace(currency))
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
