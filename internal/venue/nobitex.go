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

// NobitexBaseURL is the public API root of venue A.
const NobitexBaseURL = "https://api.nobitex.ir"

const nobitexStatsPath = "/market/stats"

// NobitexAdapter reads venue A's market stats snapshot.
type NobitexAdapter struct {
	client  *Client
	scaling Scaling
	logger  *logrus.Logger
	now     func() time.Time
}

// NewNobitexAdapter creates the venue A adapter.
func NewNobitexAdapter(client *Client, scaling Scaling, logger *logrus.Logger) *NobitexAdapter {
	if logger == nil {
		logger = logrus.New()
	}
	return &NobitexAdapter{client: client, scaling: scaling, logger: logger, now: time.Now}
}

// Venue implements QuoteSource.
func (a *NobitexAdapter) Venue() models.VenueID {
	return models.VenueNobitex
}

// FetchCatalog returns every open rial or USDT market.
func (a *NobitexAdapter) FetchCatalog(ctx context.Context) (models.PairSet, error) {
	stats, err := a.fetchStats(ctx, OpFetchCatalog)
	if err != nil {
		return nil, err
	}

	catalog := make(models.PairSet, len(stats))
	skipped := 0
	for symbol, stat := range stats {
		pair, ok := symbols.ToCanonical(symbol, models.VenueNobitex)
		if !ok {
			skipped++
			a.logger.WithError(utils.ErrNoMapping).WithFields(logrus.Fields{
				"venue":  models.VenueNobitex,
				"symbol": symbol,
			}).Debug("Skipping unmapped symbol")
			continue
		}
		if stat.IsClosed {
			continue
		}
		catalog.Add(pair)
	}

	a.logger.WithFields(logrus.Fields{
		"venue":    models.VenueNobitex,
		"pairs":    len(catalog),
		"unmapped": skipped,
	}).Debug("Fetched catalog")
	return catalog, nil
}

// FetchQuotes returns normalized quotes for the requested pairs. Pairs the
// snapshot does not contain are absent from the result.
func (a *NobitexAdapter) FetchQuotes(ctx context.Context, pairs models.PairSet) (models.QuoteMap, error) {
	stats, err := a.fetchStats(ctx, OpFetchQuotes)
	if err != nil {
		return nil, err
	}

	fetchedAt := a.now()
	quotes := make(models.QuoteMap, len(pairs))
	for pair := range pairs {
		symbol, ok := symbols.ToVenueASymbol(pair)
		if !ok {
			continue
		}
		stat, ok := stats[symbol]
		if !ok {
			continue
		}
		q := a.scaling.apply(pair, rawQuote{
			bid:         stat.BestBuy.Decimal(),
			ask:         stat.BestSell.Decimal(),
			last:        stat.Latest.Decimal(),
			baseVolume:  stat.VolumeSrc.Decimal(),
			quoteVolume: stat.VolumeDst.Decimal(),
		})
		quotes[pair] = models.VenueQuote{
			Pair:        pair,
			Venue:       models.VenueNobitex,
			BestBid:     q.bid,
			BestAsk:     q.ask,
			LastPrice:   q.last,
			BaseVolume:  q.baseVolume,
			QuoteVolume: q.quoteVolume,
			IsTradable:  !stat.IsClosed,
			FetchedAt:   fetchedAt,
		}
	}
	return quotes, nil
}

func (a *NobitexAdapter) fetchStats(ctx context.Context, op string) (map[string]NobitexMarketStat, error) {
	var resp NobitexStatsResponse
	if err := a.client.get(ctx, op, nobitexStatsPath, &resp); err != nil {
		return nil, utils.NewSourceUnavailableError(models.VenueNobitex.String(), op, err)
	}
	if !strings.EqualFold(resp.Status, "ok") {
		return nil, utils.NewSourceUnavailableError(models.VenueNobitex.String(), op,
			fmt.Errorf("venue status %q", resp.Status))
	}
	if resp.Stats == nil {
		return nil, utils.NewSourceUnavailableError(models.VenueNobitex.String(), op,
			errors.New("response has no stats"))
	}

	// Keys arrive lower case, but index case-insensitively anyway.
	stats := make(map[string]NobitexMarketStat, len(resp.Stats))
	for symbol, stat := range resp.Stats {
		stats[strings.ToLower(symbol)] = stat
	}
	return stats, nil
}
