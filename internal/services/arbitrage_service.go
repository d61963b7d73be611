package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/rial-arbitrage-go/internal/cache"
	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

// CycleRecorder persists evaluated cycles.
type CycleRecorder interface {
	SaveCycle(ctx context.Context, snapshot *models.MarketSnapshot, result *models.CycleResult) error
}

// OpportunityAlerter is handed each cycle's best opportunity.
type OpportunityAlerter interface {
	Consider(ctx context.Context, opp models.ArbitrageOpportunity) (bool, error)
}

// ArbitrageServiceConfig holds configuration for the arbitrage service
type ArbitrageServiceConfig struct {
	RefreshInterval   time.Duration
	CycleTimeout      time.Duration
	DefaultInvestment decimal.Decimal
	DefaultSort       SortSpec
}

// ArbitrageServiceDeps are the optional collaborators of the service. Nil
// stores fall back to in-memory implementations.
type ArbitrageServiceDeps struct {
	Networks  *NetworkSelections
	BestStore cache.BestStore
	Snapshots cache.SnapshotStore
	Recorder  CycleRecorder
	Alerter   OpportunityAlerter
	Logger    *logrus.Logger
}

// ServiceStatus summarizes the scheduler for health output.
type ServiceStatus struct {
	Running       bool                  `json:"running"`
	Busy          bool                  `json:"busy"`
	Cycles        int64                 `json:"cycles"`
	SkippedTicks  int64                 `json:"skipped_ticks"`
	LastCycleID   string                `json:"last_cycle_id,omitempty"`
	LastCycleAt   *time.Time            `json:"last_cycle_at,omitempty"`
	LastStatus    models.SnapshotStatus `json:"last_status"`
	LastGoodCycle string                `json:"last_good_cycle,omitempty"`
}

// ArbitrageService refreshes market snapshots on a timer and keeps the most
// recent and the most recent complete one. Cycles never overlap; a tick
// that arrives while a cycle is in flight is dropped.
type ArbitrageService struct {
	engine    *Engine
	config    ArbitrageServiceConfig
	networks  *NetworkSelections
	best      cache.BestStore
	snapshots cache.SnapshotStore
	recorder  CycleRecorder
	alerter   OpportunityAlerter
	logger    *logrus.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	busy      atomic.Bool
	cycles    atomic.Int64
	skipped   atomic.Int64

	latest   *models.MarketSnapshot
	lastGood *models.MarketSnapshot
}

// NewArbitrageService creates a new arbitrage service instance
func NewArbitrageService(engine *Engine, cfg ArbitrageServiceConfig, deps ArbitrageServiceDeps) *ArbitrageService {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	if cfg.CycleTimeout <= 0 || cfg.CycleTimeout > cfg.RefreshInterval*4 {
		cfg.CycleTimeout = cfg.RefreshInterval * 2
	}
	if cfg.DefaultSort.Field == "" {
		cfg.DefaultSort = DefaultSortSpec()
	}

	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	networks := deps.Networks
	if networks == nil {
		networks = NewNetworkSelections()
	}
	best := deps.BestStore
	if best == nil {
		best = cache.NewInMemoryBestStore(time.Hour)
	}
	snapshots := deps.Snapshots
	if snapshots == nil {
		snapshots = cache.NewInMemorySnapshotStore()
	}

	return &ArbitrageService{
		engine:    engine,
		config:    cfg,
		networks:  networks,
		best:      best,
		snapshots: snapshots,
		recorder:  deps.Recorder,
		alerter:   deps.Alerter,
		logger:    logger,
	}
}

// Start restores the last good snapshot, runs a cycle immediately and then
// one per refresh interval.
func (s *ArbitrageService) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("arbitrage service is already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.isRunning = true
	s.cancel = cancel
	s.mu.Unlock()

	s.restore(ctx)

	s.logger.WithFields(logrus.Fields{
		"refresh_interval": s.config.RefreshInterval.String(),
		"cycle_timeout":    s.config.CycleTimeout.String(),
		"investment":       s.config.DefaultInvestment.String(),
	}).Info("Starting arbitrage service")

	s.wg.Add(1)
	go s.refreshLoop(ctx)
	return nil
}

// Stop cancels the loop and waits for an in-flight cycle to finish.
func (s *ArbitrageService) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info("Stopping arbitrage service")
	cancel()
	s.wg.Wait()
	s.logger.Info("Arbitrage service stopped")
}

// IsRunning returns true if the service is currently running
func (s *ArbitrageService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *ArbitrageService) refreshLoop(ctx context.Context) {
	defer s.wg.Done()

	s.dispatch(ctx)

	ticker := time.NewTicker(s.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(ctx)
		}
	}
}

// dispatch starts a cycle in the background unless one is running.
func (s *ArbitrageService) dispatch(ctx context.Context) bool {
	if !s.busy.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Warn("Previous cycle still in flight, skipping tick")
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		s.runCycle(ctx)
	}()
	return true
}

// RunCycle runs one cycle synchronously. The boolean is false, and the
// snapshot nil, when another cycle was already in flight.
func (s *ArbitrageService) RunCycle(ctx context.Context) (*models.MarketSnapshot, bool) {
	if !s.busy.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		return nil, false
	}
	defer s.busy.Store(false)
	return s.runCycle(ctx), true
}

func (s *ArbitrageService) runCycle(ctx context.Context) *models.MarketSnapshot {
	cycleCtx, cancel := context.WithTimeout(ctx, s.config.CycleTimeout)
	defer cancel()

	snapshot := s.engine.Fetch(cycleCtx)
	s.cycles.Add(1)

	s.mu.Lock()
	s.latest = snapshot
	if snapshot.IsComplete() {
		s.lastGood = snapshot
	}
	s.mu.Unlock()

	var result *models.CycleResult
	if snapshot.IsComplete() {
		if err := s.snapshots.Save(ctx, snapshot); err != nil {
			s.logger.WithError(err).Warn("Failed to store last good snapshot")
		}
		result = s.engine.Evaluate(snapshot, s.DefaultParams())
		s.handleBest(ctx, result)
	} else {
		result = s.engine.Evaluate(snapshot, EvaluationParams{Investment: s.config.DefaultInvestment})
		s.logger.WithFields(logrus.Fields{
			"cycle_id":      snapshot.ID,
			"failed_venues": snapshot.FailedVenues,
		}).Warn("Cycle degraded, keeping previous results")
	}

	if s.recorder != nil {
		if err := s.recorder.SaveCycle(ctx, snapshot, result); err != nil {
			s.logger.WithError(err).Warn("Failed to record cycle")
		}
	}
	return snapshot
}

func (s *ArbitrageService) handleBest(ctx context.Context, result *models.CycleResult) {
	best, ok := result.Best()
	if !ok {
		return
	}
	if err := s.best.Record(ctx, best, result.FetchedAt); err != nil {
		s.logger.WithError(err).Warn("Failed to record best opportunity")
	}
	if s.alerter == nil {
		return
	}
	if _, err := s.alerter.Consider(ctx, best); err != nil {
		s.logger.WithError(err).Warn("Failed to deliver alert")
	}
}

// restore seeds LastGood from the snapshot store so the first requests after
// a restart are answered, flagged stale.
func (s *ArbitrageService) restore(ctx context.Context) {
	snapshot, err := s.snapshots.Load(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to restore last good snapshot")
		return
	}
	if !snapshot.IsComplete() {
		return
	}
	s.mu.Lock()
	if s.lastGood == nil {
		s.lastGood = snapshot
	}
	s.mu.Unlock()
	s.logger.WithField("cycle_id", snapshot.ID).Info("Restored last good snapshot")
}

// Latest returns the most recent snapshot whatever its status.
func (s *ArbitrageService) Latest() *models.MarketSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// LastGood returns the most recent complete snapshot.
func (s *ArbitrageService) LastGood() *models.MarketSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastGood
}

// Networks returns the network selection store.
func (s *ArbitrageService) Networks() *NetworkSelections {
	return s.networks
}

// Ranker returns the ranker used for evaluation.
func (s *ArbitrageService) Ranker() *Ranker {
	return s.engine.Ranker()
}

// DefaultParams returns the configured investment and sort with the current
// network selections.
func (s *ArbitrageService) DefaultParams() EvaluationParams {
	return EvaluationParams{
		Investment: s.config.DefaultInvestment,
		Networks:   s.networks.Snapshot(),
		Sort:       s.config.DefaultSort,
	}
}

// Evaluate evaluates params against the last good snapshot. stale is true
// when that snapshot is not the latest one, i.e. the latest cycle failed.
func (s *ArbitrageService) Evaluate(params EvaluationParams) (*models.CycleResult, bool) {
	s.mu.RLock()
	latest, good := s.latest, s.lastGood
	s.mu.RUnlock()

	if good == nil {
		return s.engine.Evaluate(latest, params), false
	}
	stale := latest == nil || latest.ID != good.ID
	return s.engine.Evaluate(good, params), stale
}

// BestInWindow returns the best opportunity seen in the retention window.
func (s *ArbitrageService) BestInWindow(ctx context.Context) (*cache.BestEntry, error) {
	return s.best.Best(ctx)
}

// GetStatus returns the current status of the arbitrage service
func (s *ArbitrageService) GetStatus() ServiceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := ServiceStatus{
		Running:      s.isRunning,
		Busy:         s.busy.Load(),
		Cycles:       s.cycles.Load(),
		SkippedTicks: s.skipped.Load(),
		LastStatus:   models.SnapshotPending,
	}
	if s.latest != nil {
		at := s.latest.FetchedAt
		status.LastCycleID = s.latest.ID
		status.LastCycleAt = &at
		status.LastStatus = s.latest.Status
	}
	if s.lastGood != nil {
		status.LastGoodCycle = s.lastGood.ID
	}
	return status
}
