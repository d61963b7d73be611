package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
	"github.com/irfndi/rial-arbitrage-go/internal/venue"
)

// EvaluationParams are the caller-controlled inputs of one evaluation.
type EvaluationParams struct {
	Investment decimal.Decimal
	Networks   map[models.CanonicalPair]string
	Sort       SortSpec
}

// Engine runs the fetch and evaluation halves of a cycle. Fetch does I/O;
// Evaluate is a pure function of the snapshot and the params.
type Engine struct {
	venueA     venue.QuoteSource
	venueB     venue.QuoteSource
	resolver   *CatalogResolver
	calculator *ArbitrageCalculator
	ranker     *Ranker
	logger     *logrus.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewEngine wires an engine over venue A, venue B and the fee model.
func NewEngine(a, b venue.QuoteSource, fees FeeProvider, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		venueA:     a,
		venueB:     b,
		resolver:   NewCatalogResolver(a, b, logger),
		calculator: NewArbitrageCalculator(fees, logger),
		ranker:     NewRanker(),
		logger:     logger,
		tracer:     otel.Tracer("github.com/irfndi/rial-arbitrage-go/internal/services"),
		now:        time.Now,
	}
}

// Ranker returns the engine's ranker.
func (e *Engine) Ranker() *Ranker {
	return e.ranker
}

// Fetch resolves the shared catalog and fetches both venues' quotes. It
// never fails: a venue error yields a source_unavailable snapshot with an
// empty pair set.
func (e *Engine) Fetch(ctx context.Context) *models.MarketSnapshot {
	ctx, span := e.tracer.Start(ctx, "engine.fetch")
	defer span.End()

	start := e.now()
	snapshot := &models.MarketSnapshot{
		ID:        uuid.NewString(),
		FetchedAt: start,
		Status:    models.SnapshotComplete,
		Pairs:     []models.CanonicalPair{},
		Quotes: map[models.VenueID]models.QuoteMap{
			e.venueA.Venue(): {},
			e.venueB.Venue(): {},
		},
	}

	resolution := e.resolver.Resolve(ctx)
	snapshot.CatalogSizes = resolution.CatalogSizes
	if resolution.Degraded() {
		e.degrade(span, snapshot, resolution.FailedVenues, resolution.Failures)
		snapshot.Duration = e.now().Sub(start)
		return snapshot
	}

	var (
		quotesA, quotesB models.QuoteMap
		errA, errB       error
		g                errgroup.Group
	)
	g.Go(func() error {
		quotesA, errA = e.venueA.FetchQuotes(ctx, resolution.Pairs)
		return nil
	})
	g.Go(func() error {
		quotesB, errB = e.venueB.FetchQuotes(ctx, resolution.Pairs)
		return nil
	})
	_ = g.Wait()

	var failed []models.VenueID
	var failures []error
	if errA != nil {
		failed = append(failed, e.venueA.Venue())
		failures = append(failures, errA)
	}
	if errB != nil {
		failed = append(failed, e.venueB.Venue())
		failures = append(failures, errB)
	}
	if len(failures) > 0 {
		e.degrade(span, snapshot, failed, failures)
		snapshot.Duration = e.now().Sub(start)
		return snapshot
	}

	snapshot.Pairs = resolution.Pairs.Sorted()
	snapshot.Quotes[e.venueA.Venue()] = quotesA
	snapshot.Quotes[e.venueB.Venue()] = quotesB
	snapshot.Duration = e.now().Sub(start)

	span.SetAttributes(
		attribute.String("cycle.id", snapshot.ID),
		attribute.Int("cycle.pairs", len(snapshot.Pairs)),
	)
	e.logger.WithFields(logrus.Fields{
		"component":   "engine",
		"cycle_id":    snapshot.ID,
		"pairs":       len(snapshot.Pairs),
		"duration_ms": snapshot.Duration.Milliseconds(),
	}).Info("Fetched market snapshot")
	return snapshot
}

func (e *Engine) degrade(span trace.Span, snapshot *models.MarketSnapshot, failed []models.VenueID, failures []error) {
	snapshot.Status = models.SnapshotSourceUnavailable
	snapshot.Pairs = []models.CanonicalPair{}
	snapshot.FailedVenues = failed
	for _, err := range failures {
		snapshot.Errors = append(snapshot.Errors, err.Error())
		span.RecordError(err)
	}
	span.SetStatus(codes.Error, "source unavailable")
	span.SetAttributes(attribute.String("cycle.id", snapshot.ID))

	e.logger.WithFields(logrus.Fields{
		"component":     "engine",
		"cycle_id":      snapshot.ID,
		"failed_venues": failed,
	}).Warn("Market snapshot degraded, a venue is unavailable")
}

// Evaluate computes and ranks opportunities for snapshot. A nil or
// degraded snapshot yields an empty list carrying its status.
func (e *Engine) Evaluate(snapshot *models.MarketSnapshot, params EvaluationParams) *models.CycleResult {
	result := &models.CycleResult{
		Status:        models.SnapshotPending,
		Investment:    params.Investment,
		Opportunities: []models.ArbitrageOpportunity{},
	}
	if snapshot == nil {
		return result
	}

	result.SnapshotID = snapshot.ID
	result.FetchedAt = snapshot.FetchedAt
	result.Status = snapshot.Status
	result.FailedVenues = snapshot.FailedVenues
	if !snapshot.IsComplete() {
		return result
	}

	opps := e.calculator.Compute(CalculationInput{
		Pairs:      snapshot.Pairs,
		VenueA:     e.venueA.Venue(),
		VenueB:     e.venueB.Venue(),
		QuotesA:    snapshot.Quotes[e.venueA.Venue()],
		QuotesB:    snapshot.Quotes[e.venueB.Venue()],
		Investment: params.Investment,
		Networks:   params.Networks,
	})
	result.PairCount = len(snapshot.Pairs)
	result.Opportunities = e.ranker.Rank(opps, params.Sort)
	return result
}
