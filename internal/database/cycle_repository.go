package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

// DatabasePool defines the interface for database pool operations.
// *pgxpool.Pool, TracedPool and pgxmock pools all satisfy it.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CycleSummary is one row of arbitrage_cycles.
type CycleSummary struct {
	ID           string                `json:"id" db:"id"`
	FetchedAt    time.Time             `json:"fetched_at" db:"fetched_at"`
	DurationMS   int64                 `json:"duration_ms" db:"duration_ms"`
	Status       models.SnapshotStatus `json:"status" db:"status"`
	PairCount    int                   `json:"pair_count" db:"pair_count"`
	Investment   decimal.Decimal       `json:"investment" db:"investment"`
	FailedVenues []string              `json:"failed_venues" db:"failed_venues"`
	BestPair     string                `json:"best_pair,omitempty"`
	BestNet      *decimal.Decimal      `json:"best_net_profit,omitempty"`
}

// CycleRepository stores one row per refresh cycle plus its evaluated
// opportunities.
type CycleRepository struct {
	pool   DatabasePool
	logger *logrus.Logger
}

// NewCycleRepository creates a new cycle repository.
func NewCycleRepository(pool DatabasePool, logger *logrus.Logger) *CycleRepository {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CycleRepository{pool: pool, logger: logger}
}

const insertCycleQuery = `
	INSERT INTO arbitrage_cycles (id, fetched_at, duration_ms, status, pair_count, investment, failed_venues, errors)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING
`

const insertOpportunityQuery = `
	INSERT INTO arbitrage_cycle_opportunities (
		cycle_id, pair, leg, buy_venue, sell_venue, buy_price, sell_price,
		gross_spread, gross_percent, gross_profit, trading_fees_cost,
		withdrawal_fee_cost, net_profit, network, network_resolved
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (cycle_id, pair, leg) DO NOTHING
`

// SaveCycle writes the cycle row and its opportunities in one transaction.
// Degraded cycles are stored with no opportunities.
func (r *CycleRepository) SaveCycle(ctx context.Context, snapshot *models.MarketSnapshot, result *models.CycleResult) error {
	if snapshot == nil {
		return fmt.Errorf("cannot save cycle without a snapshot")
	}

	investment := decimal.Zero
	var opportunities []models.ArbitrageOpportunity
	if result != nil {
		investment = result.Investment
		opportunities = result.Opportunities
	}

	failed := make([]string, 0, len(snapshot.FailedVenues))
	for _, v := range snapshot.FailedVenues {
		failed = append(failed, v.String())
	}
	errs := snapshot.Errors
	if errs == nil {
		errs = []string{}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	_, err = tx.Exec(ctx, insertCycleQuery,
		snapshot.ID,
		snapshot.FetchedAt,
		snapshot.Duration.Milliseconds(),
		string(snapshot.Status),
		len(snapshot.Pairs),
		investment,
		failed,
		errs,
	)
	if err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("failed to insert cycle %s: %w", snapshot.ID, err)
	}

	for _, opp := range opportunities {
		_, err = tx.Exec(ctx, insertOpportunityQuery,
			snapshot.ID,
			opp.Pair.String(),
			string(opp.Leg),
			opp.BuyVenue.String(),
			opp.SellVenue.String(),
			opp.BuyPrice,
			opp.SellPrice,
			opp.GrossSpread,
			opp.GrossPercent,
			opp.GrossProfit,
			opp.TradingFeesCost,
			opp.WithdrawalFeeCost,
			opp.NetProfit,
			opp.Network,
			opp.NetworkResolved,
		)
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("failed to insert opportunity %s %s: %w", opp.Pair, opp.Leg, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit cycle %s: %w", snapshot.ID, err)
	}

	r.logger.WithFields(logrus.Fields{
		"component":     "cycle_repository",
		"cycle_id":      snapshot.ID,
		"status":        snapshot.Status,
		"opportunities": len(opportunities),
	}).Debug("Saved arbitrage cycle")
	return nil
}

// RecentCycles returns the newest cycles with each cycle's best net profit.
func (r *CycleRepository) RecentCycles(ctx context.Context, limit int) ([]CycleSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT c.id::text, c.fetched_at, c.duration_ms, c.status, c.pair_count,
		       c.investment::text, c.failed_venues,
		       COALESCE(b.pair, ''), COALESCE(b.net_profit::text, '')
		FROM arbitrage_cycles c
		LEFT JOIN LATERAL (
			SELECT pair, net_profit
			FROM arbitrage_cycle_opportunities o
			WHERE o.cycle_id = c.id
			ORDER BY o.net_profit DESC
			LIMIT 1
		) b ON TRUE
		ORDER BY c.fetched_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	cycles := []CycleSummary{}
	for rows.Next() {
		var (
			c                   CycleSummary
			status              string
			investment, bestNet string
		)
		if err := rows.Scan(&c.ID, &c.FetchedAt, &c.DurationMS, &status, &c.PairCount,
			&investment, &c.FailedVenues, &c.BestPair, &bestNet); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		c.Status = models.SnapshotStatus(status)
		if c.Investment, err = decimal.NewFromString(investment); err != nil {
			return nil, fmt.Errorf("invalid investment for cycle %s: %w", c.ID, err)
		}
		if bestNet != "" {
			net, err := decimal.NewFromString(bestNet)
			if err != nil {
				return nil, fmt.Errorf("invalid net profit for cycle %s: %w", c.ID, err)
			}
			c.BestNet = &net
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cycles: %w", err)
	}
	return cycles, nil
}
