package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/rial-arbitrage-go/internal/api/handlers"
	"github.com/irfndi/rial-arbitrage-go/internal/fees"
	"github.com/irfndi/rial-arbitrage-go/internal/models"
	"github.com/irfndi/rial-arbitrage-go/internal/services"
)

type staticSource struct {
	venue  models.VenueID
	quotes models.QuoteMap
}

func (s *staticSource) Venue() models.VenueID { return s.venue }

func (s *staticSource) FetchCatalog(ctx context.Context) (models.PairSet, error) {
	set := models.PairSet{}
	for pair := range s.quotes {
		set[pair] = struct{}{}
	}
	return set, nil
}

func (s *staticSource) FetchQuotes(ctx context.Context, pairs models.PairSet) (models.QuoteMap, error) {
	out := models.QuoteMap{}
	for pair := range pairs {
		if q, ok := s.quotes[pair]; ok {
			out[pair] = q
		}
	}
	return out, nil
}

func quote(pair models.CanonicalPair, venue models.VenueID, bid, ask int64) models.VenueQuote {
	return models.VenueQuote{
		Pair:        pair,
		Venue:       venue,
		BestBid:     decimal.NewFromInt(bid),
		BestAsk:     decimal.NewFromInt(ask),
		QuoteVolume: decimal.NewFromInt(1000),
		IsTradable:  true,
	}
}

func setupRouter(t *testing.T) (*gin.Engine, *services.ArbitrageService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	btc := models.NewCanonicalPair("btc", "rls")
	venueA := &staticSource{venue: models.VenueNobitex, quotes: models.QuoteMap{btc: quote(btc, models.VenueNobitex, 49900, 50000)}}
	venueB := &staticSource{venue: models.VenueWallex, quotes: models.QuoteMap{btc: quote(btc, models.VenueWallex, 50800, 51000)}}

	feeModel, err := fees.NewModel(fees.DefaultSchedules(), []models.WithdrawalFeeEntry{
		{Currency: "btc", Network: "BTC", Fee: decimal.RequireFromString("0.0005")},
		{Currency: "btc", Network: "BSC", Fee: decimal.RequireFromString("0.00001")},
	})
	require.NoError(t, err)

	engine := services.NewEngine(venueA, venueB, feeModel, logger)
	service := services.NewArbitrageService(engine, services.ArbitrageServiceConfig{
		RefreshInterval:   time.Hour,
		DefaultInvestment: decimal.NewFromInt(100000000),
	}, services.ArbitrageServiceDeps{Logger: logger})

	router := gin.New()
	SetupRoutes(router, RouteDeps{
		Arbitrage:      service,
		Networks:       feeModel,
		AllowedOrigins: []string{"http://localhost:3000"},
		Logger:         logger,
	})
	return router, service
}

func serve(router *gin.Engine, method, url, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSetupRoutes_ArbitrageFlow(t *testing.T) {
	router, service := setupRouter(t)

	w := serve(router, http.MethodGet, "/api/v1/arbitrage", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending handlers.ArbitrageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	assert.Equal(t, models.SnapshotPending, pending.Status)
	assert.Equal(t, 0, pending.Count)

	w = serve(router, http.MethodGet, "/api/v1/arbitrage/best", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	snapshot, ran := service.RunCycle(context.Background())
	require.True(t, ran)
	require.True(t, snapshot.IsComplete())

	w = serve(router, http.MethodGet, "/api/v1/arbitrage", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var response handlers.ArbitrageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, models.SnapshotComplete, response.Status)
	assert.Equal(t, snapshot.ID, response.CycleID)
	assert.False(t, response.Stale)
	require.Equal(t, 2, response.Count)
	assert.Equal(t, models.LegAtoB, response.Opportunities[0].Leg)
	assert.Equal(t, "BTC", response.Opportunities[0].Network)

	w = serve(router, http.MethodPut, "/api/v1/networks/selection", `{"pair":"btc-rls","network":"BSC"}`,
		map[string]string{"Content-Type": "application/json"})
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodGet, "/api/v1/arbitrage?view=pairs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, 1, response.Count)
	assert.Equal(t, "BSC", response.Opportunities[0].Network)

	w = serve(router, http.MethodGet, "/api/v1/arbitrage/best", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRoutes_Networks(t *testing.T) {
	router, _ := setupRouter(t)

	w := serve(router, http.MethodGet, "/api/v1/networks/btc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"default":"BTC"`)

	w = serve(router, http.MethodPut, "/api/v1/networks/selection", `{"pair":"btc-rls","network":"ERC20"}`,
		map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetupRoutes_HealthAndHistory(t *testing.T) {
	router, _ := setupRouter(t)

	w := serve(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "scheduler is not started")
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)

	w = serve(router, http.MethodGet, "/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodGet, "/api/v1/cycles", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "history is disabled without a database")
}

func TestCORSMiddleware(t *testing.T) {
	router, _ := setupRouter(t)

	w := serve(router, http.MethodGet, "/live", "", map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(router, http.MethodGet, "/live", "", map[string]string{"Origin": "http://evil.example"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(router, http.MethodOptions, "/api/v1/networks/selection", "", map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}
