package services

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
	"github.com/irfndi/rial-arbitrage-go/internal/utils"
)

var hundred = decimal.NewFromInt(100)

// FeeProvider is the fee lookup the calculator needs. fees.Model satisfies it.
type FeeProvider interface {
	TradingFee(venue models.VenueID, role models.FeeRole) decimal.Decimal
	WithdrawalFee(currency, network string) (decimal.Decimal, bool)
	DefaultNetwork(currency string) (string, bool)
}

// CalculationInput is everything one computation reads. Nothing in it is
// modified.
type CalculationInput struct {
	Pairs      []models.CanonicalPair
	VenueA     models.VenueID
	VenueB     models.VenueID
	QuotesA    models.QuoteMap
	QuotesB    models.QuoteMap
	Investment decimal.Decimal
	Networks   map[models.CanonicalPair]string
}

// ArbitrageCalculator derives both trade directions for every shared pair.
type ArbitrageCalculator struct {
	fees   FeeProvider
	logger *logrus.Logger
}

// NewArbitrageCalculator creates a calculator over fees.
func NewArbitrageCalculator(fees FeeProvider, logger *logrus.Logger) *ArbitrageCalculator {
	if logger == nil {
		logger = logrus.New()
	}
	return &ArbitrageCalculator{fees: fees, logger: logger}
}

// Compute returns up to two opportunities per pair, ordered by pair then
// leg. A leg is skipped when its buy or sell price is missing; a pair
// absent from either quote map yields nothing.
func (c *ArbitrageCalculator) Compute(in CalculationInput) []models.ArbitrageOpportunity {
	pairs := make([]models.CanonicalPair, len(in.Pairs))
	copy(pairs, in.Pairs)
	models.SortPairs(pairs)

	invest := in.Investment
	if !invest.IsPositive() {
		c.logger.WithError(utils.ErrInvalidInvestment).
			WithField("investment", invest.String()).
			Debug("Computing zero-value amounts")
	}

	opportunities := make([]models.ArbitrageOpportunity, 0, len(pairs)*2)
	for _, pair := range pairs {
		quoteA, okA := in.QuotesA[pair]
		quoteB, okB := in.QuotesB[pair]
		if !okA || !okB {
			continue
		}

		network, resolved := c.resolveNetwork(pair, in.Networks)
		for _, leg := range models.Legs {
			buy, sell := quoteA, quoteB
			buyVenue, sellVenue := in.VenueA, in.VenueB
			if leg == models.LegBtoA {
				buy, sell = quoteB, quoteA
				buyVenue, sellVenue = in.VenueB, in.VenueA
			}
			opp, ok := c.computeLeg(pair, leg, buyVenue, sellVenue, buy, sell, invest, network, resolved)
			if ok {
				opportunities = append(opportunities, opp)
			}
		}
	}
	return opportunities
}

func (c *ArbitrageCalculator) computeLeg(
	pair models.CanonicalPair,
	leg models.ArbitrageLeg,
	buyVenue, sellVenue models.VenueID,
	buyQuote, sellQuote models.VenueQuote,
	investment decimal.Decimal,
	network string,
	networkResolved bool,
) (models.ArbitrageOpportunity, bool) {
	buyPrice := buyQuote.BestAsk
	sellPrice := sellQuote.BestBid
	if !buyPrice.IsPositive() || !sellPrice.IsPositive() {
		return models.ArbitrageOpportunity{}, false
	}

	spread := sellPrice.Sub(buyPrice)
	opp := models.ArbitrageOpportunity{
		Pair:                pair,
		Leg:                 leg,
		BuyVenue:            buyVenue,
		SellVenue:           sellVenue,
		BuyPrice:            buyPrice,
		SellPrice:           sellPrice,
		GrossSpread:         spread,
		GrossPercent:        spread.Div(buyPrice).Mul(hundred),
		InvestedAmount:      investment,
		AcquiredAssetAmount: decimal.Zero,
		GrossProfit:         decimal.Zero,
		TradingFeesCost:     decimal.Zero,
		WithdrawalFeeCost:   decimal.Zero,
		NetProfit:           decimal.Zero,
		Network:             network,
		NetworkResolved:     networkResolved,
		TotalVolume:         buyQuote.QuoteVolume.Add(sellQuote.QuoteVolume),
	}
	if !investment.IsPositive() {
		return opp, true
	}

	one := decimal.NewFromInt(1)
	taker := c.fees.TradingFee(buyVenue, models.RoleTaker)
	maker := c.fees.TradingFee(sellVenue, models.RoleMaker)

	acquired := investment.Div(buyPrice.Mul(one.Add(taker)))
	grossProfit := acquired.Mul(sellPrice).Mul(one.Sub(maker)).Sub(investment)
	tradingFees := investment.Mul(taker.Add(maker))

	withdrawalCost := decimal.Zero
	if networkResolved {
		fee, _ := c.fees.WithdrawalFee(pair.Base, network)
		withdrawalCost = fee.Mul(buyPrice)
	}

	opp.AcquiredAssetAmount = acquired
	opp.GrossProfit = grossProfit
	opp.TradingFeesCost = tradingFees
	opp.WithdrawalFeeCost = withdrawalCost
	opp.NetProfit = grossProfit.Sub(tradingFees).Sub(withdrawalCost)
	return opp, true
}

// resolveNetwork returns the selected network for the pair, falling back to
// the first listed network of the base asset. The boolean is false when no
// fee entry backs the choice.
func (c *ArbitrageCalculator) resolveNetwork(pair models.CanonicalPair, selections map[models.CanonicalPair]string) (string, bool) {
	if network, ok := selections[pair]; ok && network != "" {
		if _, found := c.fees.WithdrawalFee(pair.Base, network); found {
			return network, true
		}
		c.logger.WithError(utils.ErrMissingFeeData).WithFields(logrus.Fields{
			"pair":    pair.String(),
			"network": network,
		}).Debug("Selected network has no fee entry, assuming zero")
		return network, false
	}

	network, ok := c.fees.DefaultNetwork(pair.Base)
	if !ok {
		return "", false
	}
	return network, true
}
