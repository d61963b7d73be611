package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
	"github.com/irfndi/rial-arbitrage-go/internal/venue"
)

// CatalogResolution is the outcome of one catalog reconciliation.
type CatalogResolution struct {
	Pairs        models.PairSet
	CatalogSizes map[models.VenueID]int
	FailedVenues []models.VenueID
	Failures     []error
}

// Degraded reports whether a venue failed; Pairs is then empty.
func (r CatalogResolution) Degraded() bool {
	return len(r.Failures) > 0
}

// CatalogResolver computes the pairs listed on both venues.
type CatalogResolver struct {
	venueA venue.QuoteSource
	venueB venue.QuoteSource
	logger *logrus.Logger
}

// NewCatalogResolver creates a resolver over two venues.
func NewCatalogResolver(a, b venue.QuoteSource, logger *logrus.Logger) *CatalogResolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &CatalogResolver{venueA: a, venueB: b, logger: logger}
}

// Resolve fetches both catalogs concurrently and waits for both. If either
// fails the pair set is empty and the failure is reported, never returned.
func (r *CatalogResolver) Resolve(ctx context.Context) CatalogResolution {
	var (
		catalogA, catalogB models.PairSet
		errA, errB         error
		g                  errgroup.Group
	)
	g.Go(func() error {
		catalogA, errA = r.venueA.FetchCatalog(ctx)
		return nil
	})
	g.Go(func() error {
		catalogB, errB = r.venueB.FetchCatalog(ctx)
		return nil
	})
	_ = g.Wait()

	res := CatalogResolution{
		Pairs: models.PairSet{},
		CatalogSizes: map[models.VenueID]int{
			r.venueA.Venue(): len(catalogA),
			r.venueB.Venue(): len(catalogB),
		},
	}
	if errA != nil {
		res.FailedVenues = append(res.FailedVenues, r.venueA.Venue())
		res.Failures = append(res.Failures, errA)
	}
	if errB != nil {
		res.FailedVenues = append(res.FailedVenues, r.venueB.Venue())
		res.Failures = append(res.Failures, errB)
	}

	if res.Degraded() {
		for _, err := range res.Failures {
			r.logger.WithError(err).Warn("Catalog unavailable, resolving to an empty pair set")
		}
		return res
	}

	res.Pairs = catalogA.Intersect(catalogB)
	r.logger.WithFields(logrus.Fields{
		"component": "catalog_resolver",
		"venue_a":   len(catalogA),
		"venue_b":   len(catalogB),
		"shared":    len(res.Pairs),
	}).Debug("Resolved catalog")
	return res
}
