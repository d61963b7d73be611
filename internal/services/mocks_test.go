package services

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/irfndi/rial-arbitrage-go/internal/fees"
	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

// MockQuoteSource implements venue.QuoteSource for testing within the services package
type MockQuoteSource struct {
	mock.Mock
	venue models.VenueID
}

func newMockSource(v models.VenueID) *MockQuoteSource {
	return &MockQuoteSource{venue: v}
}

func (m *MockQuoteSource) Venue() models.VenueID {
	return m.venue
}

func (m *MockQuoteSource) FetchCatalog(ctx context.Context) (models.PairSet, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.PairSet), args.Error(1)
}

func (m *MockQuoteSource) FetchQuotes(ctx context.Context, pairs models.PairSet) (models.QuoteMap, error) {
	args := m.Called(ctx, pairs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.QuoteMap), args.Error(1)
}

// MockCycleRecorder implements CycleRecorder for testing
type MockCycleRecorder struct {
	mock.Mock
}

func (m *MockCycleRecorder) SaveCycle(ctx context.Context, snapshot *models.MarketSnapshot, result *models.CycleResult) error {
	args := m.Called(ctx, snapshot, result)
	return args.Error(0)
}

// MockOpportunityAlerter implements OpportunityAlerter for testing
type MockOpportunityAlerter struct {
	mock.Mock
}

func (m *MockOpportunityAlerter) Consider(ctx context.Context, opp models.ArbitrageOpportunity) (bool, error) {
	args := m.Called(ctx, opp)
	return args.Bool(0), args.Error(1)
}

// recordingSender is an AlertSender that keeps every message.
type recordingSender struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (s *recordingSender) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, text)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pair(token string) models.CanonicalPair {
	p, ok := models.ParseCanonicalPair(token)
	if !ok {
		panic("bad pair " + token)
	}
	return p
}

func quote(p models.CanonicalPair, v models.VenueID, bid, ask, volume string) models.VenueQuote {
	return models.VenueQuote{
		Pair:        p,
		Venue:       v,
		BestBid:     dec(bid),
		BestAsk:     dec(ask),
		QuoteVolume: dec(volume),
		IsTradable:  true,
	}
}

func testFeeModel(entries ...models.WithdrawalFeeEntry) *fees.Model {
	m, err := fees.NewModel(fees.DefaultSchedules(), entries)
	if err != nil {
		panic(err)
	}
	return m
}
