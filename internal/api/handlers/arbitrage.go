package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/rial-arbitrage-go/internal/cache"
	"github.com/irfndi/rial-arbitrage-go/internal/models"
	"github.com/irfndi/rial-arbitrage-go/internal/services"
	"github.com/irfndi/rial-arbitrage-go/internal/utils"
)

const (
	viewLegs  = "legs"
	viewPairs = "pairs"
)

// ArbitrageEvaluator evaluates caller parameters against the scheduler's
// last good snapshot.
type ArbitrageEvaluator interface {
	DefaultParams() services.EvaluationParams
	Evaluate(params services.EvaluationParams) (*models.CycleResult, bool)
	BestInWindow(ctx context.Context) (*cache.BestEntry, error)
}

// ArbitrageHandler serves computed opportunities.
type ArbitrageHandler struct {
	evaluator ArbitrageEvaluator
	ranker    *services.Ranker
	logger    *logrus.Logger
}

// ArbitrageResponse is the body of GET /api/v1/arbitrage.
type ArbitrageResponse struct {
	Success       bool                          `json:"success"`
	Status        models.SnapshotStatus         `json:"status"`
	Stale         bool                          `json:"stale"`
	CycleID       string                        `json:"cycle_id,omitempty"`
	FetchedAt     *time.Time                    `json:"fetched_at,omitempty"`
	FailedVenues  []models.VenueID              `json:"failed_venues,omitempty"`
	Investment    decimal.Decimal               `json:"investment"`
	Sort          services.SortSpec             `json:"sort"`
	View          string                        `json:"view"`
	PairCount     int                           `json:"pair_count"`
	Count         int                           `json:"count"`
	Opportunities []models.ArbitrageOpportunity `json:"opportunities"`
}

// BestResponse is the body of GET /api/v1/arbitrage/best.
type BestResponse struct {
	Success     bool                        `json:"success"`
	Opportunity models.ArbitrageOpportunity `json:"opportunity"`
	ObservedAt  time.Time                   `json:"observed_at"`
}

// NewArbitrageHandler creates a handler over evaluator.
func NewArbitrageHandler(evaluator ArbitrageEvaluator, logger *logrus.Logger) *ArbitrageHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &ArbitrageHandler{
		evaluator: evaluator,
		ranker:    services.NewRanker(),
		logger:    logger,
	}
}

// GetArbitrageOpportunities evaluates the last good snapshot with the query's
// investment, network selections and sort. Nothing is refetched.
func (h *ArbitrageHandler) GetArbitrageOpportunities(c *gin.Context) {
	params, err := h.parseParams(c)
	if err != nil {
		respondErr(c, err, "Failed to parse parameters")
		return
	}

	view := strings.ToLower(c.DefaultQuery("view", viewLegs))
	if view != viewLegs && view != viewPairs {
		respondError(c, http.StatusBadRequest, "Invalid view parameter (legs or pairs)")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		respondError(c, http.StatusBadRequest, "Invalid limit parameter")
		return
	}

	result, stale := h.evaluator.Evaluate(params)
	opps := result.Opportunities
	if view == viewPairs {
		opps = h.ranker.Rank(h.ranker.BestPerPair(opps), params.Sort)
	}
	if limit > 0 && len(opps) > limit {
		opps = opps[:limit]
	}
	if opps == nil {
		opps = []models.ArbitrageOpportunity{}
	}

	response := ArbitrageResponse{
		Success:       true,
		Status:        result.Status,
		Stale:         stale,
		CycleID:       result.SnapshotID,
		FailedVenues:  result.FailedVenues,
		Investment:    params.Investment,
		Sort:          params.Sort,
		View:          view,
		PairCount:     result.PairCount,
		Count:         len(opps),
		Opportunities: opps,
	}
	if !result.FetchedAt.IsZero() {
		at := result.FetchedAt
		response.FetchedAt = &at
	}

	c.JSON(http.StatusOK, response)
}

// GetBestOpportunity returns the best opportunity of the retention window.
func (h *ArbitrageHandler) GetBestOpportunity(c *gin.Context) {
	entry, err := h.evaluator.BestInWindow(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to read best opportunity")
		respondError(c, http.StatusInternalServerError, "Failed to read best opportunity")
		return
	}
	if entry == nil {
		respondError(c, http.StatusNotFound, "No opportunity recorded in the current window")
		return
	}

	c.JSON(http.StatusOK, BestResponse{
		Success:     true,
		Opportunity: entry.Opportunity,
		ObservedAt:  entry.ObservedAt,
	})
}

// parseParams starts from the scheduler defaults and overlays the query.
// A non-positive investment is accepted; the calculator zeroes amounts.
func (h *ArbitrageHandler) parseParams(c *gin.Context) (services.EvaluationParams, error) {
	params := h.evaluator.DefaultParams()

	if raw := strings.TrimSpace(c.Query("investment")); raw != "" {
		investment, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
		if err != nil {
			return params, utils.NewValidationErrorf("Invalid investment parameter %q", raw)
		}
		params.Investment = investment
	}

	networks := make(map[models.CanonicalPair]string, len(params.Networks))
	for pair, network := range params.Networks {
		networks[pair] = network
	}
	for key, network := range c.QueryMap("network") {
		pair, ok := models.ParseCanonicalPair(key)
		if !ok {
			return params, utils.NewValidationErrorf("Invalid pair %q in network parameter", key)
		}
		if network = strings.TrimSpace(network); network != "" {
			networks[pair] = strings.ToUpper(network)
		}
	}
	params.Networks = networks

	if c.Query("sort") != "" || c.Query("order") != "" {
		spec, err := services.ParseSortSpec(c.Query("sort"), c.Query("order"))
		if err != nil {
			return params, err
		}
		params.Sort = spec
	}

	return params, nil
}
