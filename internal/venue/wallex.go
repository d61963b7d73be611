package venue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
	"github.com/irfndi/rial-arbitrage-go/internal/symbols"
	"github.com/irfndi/rial-arbitrage-go/internal/utils"
)

// WallexBaseURL is the public API root of venue B.
const WallexBaseURL = "https://api.wallex.ir"

const wallexMarketsPath = "/v1/markets"

// WallexAdapter reads venue B's market listing.
type WallexAdapter struct {
	client  *Client
	scaling Scaling
	logger  *logrus.Logger
	now     func() time.Time
}

// NewWallexAdapter creates the venue B adapter. Rial pairs are listed in
// toman, so scaling should carry a factor of 10 for rls.
func NewWallexAdapter(client *Client, scaling Scaling, logger *logrus.Logger) *WallexAdapter {
	if logger == nil {
		logger = logrus.New()
	}
	return &WallexAdapter{client: client, scaling: scaling, logger: logger, now: time.Now}
}

// Venue implements QuoteSource.
func (a *WallexAdapter) Venue() models.VenueID {
	return models.VenueWallex
}

// FetchCatalog returns every tradable TMN or USDT market.
func (a *WallexAdapter) FetchCatalog(ctx context.Context) (models.PairSet, error) {
	markets, err := a.fetchMarkets(ctx, OpFetchCatalog)
	if err != nil {
		return nil, err
	}

	catalog := make(models.PairSet, len(markets))
	skipped := 0
	for symbol, market := range markets {
		pair, ok := symbols.ToCanonical(symbol, models.VenueWallex)
		if !ok {
			skipped++
			a.logger.WithError(utils.ErrNoMapping).WithFields(logrus.Fields{
				"venue":  models.VenueWallex,
				"symbol": symbol,
			}).Debug("Skipping unmapped symbol")
			continue
		}
		if !market.tradable() {
			continue
		}
		catalog.Add(pair)
	}

	a.logger.WithFields(logrus.Fields{
		"venue":    models.VenueWallex,
		"pairs":    len(catalog),
		"unmapped": skipped,
	}).Debug("Fetched catalog")
	return catalog, nil
}

// FetchQuotes returns normalized quotes for the requested pairs.
func (a *WallexAdapter) FetchQuotes(ctx context.Context, pairs models.PairSet) (models.QuoteMap, error) {
	markets, err := a.fetchMarkets(ctx, OpFetchQuotes)
	if err != nil {
		return nil, err
	}

	fetchedAt := a.now()
	quotes := make(models.QuoteMap, len(pairs))
	for pair := range pairs {
		symbol, ok := symbols.ToVenueBSymbol(pair)
		if !ok {
			continue
		}
		market, ok := markets[symbol]
		if !ok {
			continue
		}
		q := a.scaling.apply(pair, rawQuote{
			bid:         market.Stats.BidPrice.Decimal(),
			ask:         market.Stats.AskPrice.Decimal(),
			last:        market.Stats.LastPrice.Decimal(),
			baseVolume:  market.Stats.Volume24h.Decimal(),
			quoteVolume: market.Stats.QuoteVolume24h.Decimal(),
		})
		quotes[pair] = models.VenueQuote{
			Pair:        pair,
			Venue:       models.VenueWallex,
			BestBid:     q.bid,
			BestAsk:     q.ask,
			LastPrice:   q.last,
			BaseVolume:  q.baseVolume,
			QuoteVolume: q.quoteVolume,
			IsTradable:  market.tradable(),
			FetchedAt:   fetchedAt,
		}
	}
	return quotes, nil
}

func (a *WallexAdapter) fetchMarkets(ctx context.Context, op string) (map[string]WallexMarket, error) {
	var resp WallexMarketsResponse
	if err := a.client.get(ctx, op, wallexMarketsPath, &resp); err != nil {
		return nil, utils.NewSourceUnavailableError(models.VenueWallex.String(), op, err)
	}
	if !resp.Success {
		return nil, utils.NewSourceUnavailableError(models.VenueWallex.String(), op,
			fmt.Errorf("venue reported failure: %s", resp.Message))
	}
	if resp.Result.Symbols == nil {
		return nil, utils.NewSourceUnavailableError(models.VenueWallex.String(), op,
			errors.New("response has no symbols"))
	}

	markets := make(map[string]WallexMarket, len(resp.Result.Symbols))
	for symbol, market := range resp.Result.Symbols {
		markets[strings.ToUpper(symbol)] = market
	}
	return markets, nil
}
