package services

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
	"github.com/irfndi/rial-arbitrage-go/internal/utils"
)

// SortField names an opportunity column.
type SortField string

const (
	SortPair         SortField = "pair"
	SortBuyPrice     SortField = "buy_price"
	SortSellPrice    SortField = "sell_price"
	SortGrossSpread  SortField = "gross_spread"
	SortGrossPercent SortField = "gross_percent"
	SortGrossProfit  SortField = "gross_profit"
	SortNetProfit    SortField = "net_profit"
	SortVolume       SortField = "volume"
)

// SortOrder is asc or desc.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// SortSpec selects how opportunities are ordered.
type SortSpec struct {
	Field SortField `json:"field"`
	Order SortOrder `json:"order"`
}

// DefaultSortSpec orders by gross percent, largest first.
func DefaultSortSpec() SortSpec {
	return SortSpec{Field: SortGrossPercent, Order: OrderDesc}
}

var decimalFields = map[SortField]func(models.ArbitrageOpportunity) decimal.Decimal{
	SortBuyPrice:     func(o models.ArbitrageOpportunity) decimal.Decimal { return o.BuyPrice },
	SortSellPrice:    func(o models.ArbitrageOpportunity) decimal.Decimal { return o.SellPrice },
	SortGrossSpread:  func(o models.ArbitrageOpportunity) decimal.Decimal { return o.GrossSpread },
	SortGrossPercent: func(o models.ArbitrageOpportunity) decimal.Decimal { return o.GrossPercent },
	SortGrossProfit:  func(o models.ArbitrageOpportunity) decimal.Decimal { return o.GrossProfit },
	SortNetProfit:    func(o models.ArbitrageOpportunity) decimal.Decimal { return o.NetProfit },
	SortVolume:       func(o models.ArbitrageOpportunity) decimal.Decimal { return o.TotalVolume },
}

// ParseSortSpec validates caller supplied sort parameters. Empty values
// fall back to the defaults.
func ParseSortSpec(field, order string) (SortSpec, error) {
	spec := DefaultSortSpec()
	if f := SortField(strings.ToLower(strings.TrimSpace(field))); f != "" {
		if _, ok := decimalFields[f]; !ok && f != SortPair {
			return SortSpec{}, utils.NewValidationErrorf("unknown sort field %q", field)
		}
		spec.Field = f
		if f == SortPair {
			spec.Order = OrderAsc
		}
	}
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(order))); o {
	case "":
	case OrderAsc, OrderDesc:
		spec.Order = o
	default:
		return SortSpec{}, utils.NewValidationErrorf("unknown sort order %q", order)
	}
	return spec, nil
}

// Ranker orders opportunities for presentation. It never refetches.
type Ranker struct{}

// NewRanker creates a Ranker.
func NewRanker() *Ranker {
	return &Ranker{}
}

// Rank returns a sorted copy of opps. Ties on gross percent are broken by
// total volume, larger first; other ties keep input order.
func (r *Ranker) Rank(opps []models.ArbitrageOpportunity, spec SortSpec) []models.ArbitrageOpportunity {
	out := make([]models.ArbitrageOpportunity, len(opps))
	copy(out, opps)
	if spec.Field == "" {
		spec = DefaultSortSpec()
	}
	desc := spec.Order != OrderAsc

	var cmp func(a, b models.ArbitrageOpportunity) int
	if spec.Field == SortPair {
		cmp = func(a, b models.ArbitrageOpportunity) int {
			return strings.Compare(a.Pair.String(), b.Pair.String())
		}
	} else {
		value, ok := decimalFields[spec.Field]
		if !ok {
			value = decimalFields[SortGrossPercent]
		}
		cmp = func(a, b models.ArbitrageOpportunity) int {
			return value(a).Cmp(value(b))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if c == 0 && spec.Field == SortGrossPercent {
			// Higher volume first regardless of direction.
			return out[i].TotalVolume.GreaterThan(out[j].TotalVolume)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// BestPerPair keeps each pair's leg with the highest gross percent, in
// order of first appearance.
func (r *Ranker) BestPerPair(opps []models.ArbitrageOpportunity) []models.ArbitrageOpportunity {
	index := make(map[models.CanonicalPair]int, len(opps))
	out := make([]models.ArbitrageOpportunity, 0, len(opps))
	for _, opp := range opps {
		i, seen := index[opp.Pair]
		if !seen {
			index[opp.Pair] = len(out)
			out = append(out, opp)
			continue
		}
		if opp.GrossPercent.GreaterThan(out[i].GrossPercent) {
			out[i] = opp
		}
	}
	return out
}
