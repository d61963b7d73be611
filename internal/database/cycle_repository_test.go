package database

import (
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

func testSnapshot() *models.MarketSnapshot {
	return &models.MarketSnapshot{
		ID:        "6f1c2a9e-0000-4000-8000-000000000001",
		FetchedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Status:    models.SnapshotComplete,
		Pairs:     []models.CanonicalPair{models.NewCanonicalPair("btc", "rls")},
	}
}

func testResult() *models.CycleResult {
	btc := models.NewCanonicalPair("btc", "rls")
	return &models.CycleResult{
		Status:     models.SnapshotComplete,
		Investment: decimal.NewFromInt(100000000),
		Opportunities: []models.ArbitrageOpportunity{
			{Pair: btc, Leg: models.LegAtoB, BuyVenue: models.VenueNobitex, SellVenue: models.VenueWallex,
				NetProfit: decimal.NewFromInt(693940), Network: "BTC", NetworkResolved: true},
			{Pair: btc, Leg: models.LegBtoA, BuyVenue: models.VenueWallex, SellVenue: models.VenueNobitex,
				NetProfit: decimal.NewFromInt(-2947259)},
		},
	}
}

// anyArgs matches n arguments of any value.
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestCycleRepository_SaveCycle(t *testing.T) {
	mock := newMockPool(t)
	repo := NewCycleRepository(mock, quietLogger())
	snapshot := testSnapshot()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO arbitrage_cycles").
		WithArgs(snapshot.ID, snapshot.FetchedAt, int64(1500), "complete", 1, pgxmock.AnyArg(), []string{}, []string{}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO arbitrage_cycle_opportunities").
		WithArgs(snapshot.ID, "btc-rls", "a_to_b", "nobitex", "wallex",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "BTC", true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO arbitrage_cycle_opportunities").
		WithArgs(snapshot.ID, "btc-rls", "b_to_a", "wallex", "nobitex",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "", false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveCycle(t.Context(), snapshot, testResult()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCycleRepository_SaveDegradedCycle(t *testing.T) {
	mock := newMockPool(t)
	repo := NewCycleRepository(mock, quietLogger())
	snapshot := testSnapshot()
	snapshot.Status = models.SnapshotSourceUnavailable
	snapshot.Pairs = []models.CanonicalPair{}
	snapshot.FailedVenues = []models.VenueID{models.VenueNobitex}
	snapshot.Errors = []string{"nobitex fetch_catalog: source unavailable"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO arbitrage_cycles").
		WithArgs(snapshot.ID, snapshot.FetchedAt, int64(1500), "source_unavailable", 0, pgxmock.AnyArg(),
			[]string{"nobitex"}, []string{"nobitex fetch_catalog: source unavailable"}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	result := &models.CycleResult{Status: models.SnapshotSourceUnavailable, Opportunities: []models.ArbitrageOpportunity{}}
	require.NoError(t, repo.SaveCycle(t.Context(), snapshot, result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCycleRepository_SaveCycleRollsBack(t *testing.T) {
	mock := newMockPool(t)
	repo := NewCycleRepository(mock, quietLogger())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO arbitrage_cycles").WithArgs(anyArgs(8)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO arbitrage_cycle_opportunities").WithArgs(anyArgs(15)...).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.SaveCycle(t.Context(), testSnapshot(), testResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert opportunity btc-rls")
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCycleRepository_SaveCycleBeginError(t *testing.T) {
	mock := newMockPool(t)
	repo := NewCycleRepository(mock, quietLogger())

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := repo.SaveCycle(t.Context(), testSnapshot(), testResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCycleRepository_SaveCycleNilSnapshot(t *testing.T) {
	repo := NewCycleRepository(newMockPool(t), quietLogger())
	assert.Error(t, repo.SaveCycle(t.Context(), nil, nil))
}

func TestCycleRepository_RecentCycles(t *testing.T) {
	mock := newMockPool(t)
	repo := NewCycleRepository(mock, quietLogger())
	fetched := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	columns := []string{"id", "fetched_at", "duration_ms", "status", "pair_count", "investment", "failed_venues", "pair", "net_profit"}
	mock.ExpectQuery("SELECT c.id").
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("c2", fetched, int64(1200), "complete", 12, "100000000", []string{}, "btc-rls", "693940.1496").
			AddRow("c1", fetched.Add(-time.Minute), int64(900), "source_unavailable", 0, "100000000", []string{"wallex"}, "", ""))

	cycles, err := repo.RecentCycles(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, cycles, 2)

	assert.Equal(t, "c2", cycles[0].ID)
	assert.Equal(t, models.SnapshotComplete, cycles[0].Status)
	assert.Equal(t, 12, cycles[0].PairCount)
	assert.True(t, cycles[0].Investment.Equal(decimal.NewFromInt(100000000)))
	require.NotNil(t, cycles[0].BestNet)
	assert.Equal(t, "693940.1496", cycles[0].BestNet.String())

	assert.Equal(t, models.SnapshotSourceUnavailable, cycles[1].Status)
	assert.Equal(t, []string{"wallex"}, cycles[1].FailedVenues)
	assert.Nil(t, cycles[1].BestNet)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCycleRepository_RecentCyclesError(t *testing.T) {
	mock := newMockPool(t)
	repo := NewCycleRepository(mock, quietLogger())

	mock.ExpectQuery("SELECT c.id").WithArgs(10).WillReturnError(errors.New("timeout"))

	_, err := repo.RecentCycles(t.Context(), 10)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
