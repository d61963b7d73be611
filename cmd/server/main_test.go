package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/rial-arbitrage-go/internal/config"
	"github.com/irfndi/rial-arbitrage-go/internal/models"
	"github.com/irfndi/rial-arbitrage-go/internal/services"
)

const (
	nobitexBody = `{"status":"ok","stats":{
		"btc-rls":{"isClosed":false,"bestSell":"50000","bestBuy":"49900","volumeSrc":"2","volumeDst":"100000","latest":"49950"},
		"eth-rls":{"isClosed":false,"bestSell":"3000","bestBuy":"2990","volumeSrc":"1","volumeDst":"3000","latest":"2995"}}}`
	wallexBody = `{"success":true,"result":{"symbols":{
		"BTCTMN":{"symbol":"BTCTMN","baseAsset":"BTC","quoteAsset":"TMN","isTradable":true,
			"stats":{"bidPrice":"5080","askPrice":"5100","lastPrice":"5090","24h_volume":"1","24h_quoteVolume":"5090"}}}}}`
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	t.Setenv("VENUES_NOBITEX_BASE_URL", baseURL)
	t.Setenv("VENUES_WALLEX_BASE_URL", baseURL)
	t.Setenv("FEES_WITHDRAWAL_TABLE_PATH", "../../configs/withdrawal_fees.yaml")
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func venueServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/market/stats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, nobitexBody)
	})
	mux.HandleFunc("/v1/markets", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, wallexBody)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestBuildFeeModel(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")

	model, err := buildFeeModel(cfg)
	require.NoError(t, err)

	network, ok := model.DefaultNetwork("btc")
	require.True(t, ok)
	assert.Equal(t, "BTC", network)
	assert.True(t, model.TradingFee(models.VenueNobitex, models.RoleTaker).Equal(decimal.RequireFromString("0.0025")))
	assert.True(t, model.TradingFee(models.VenueWallex, models.RoleMaker).Equal(decimal.RequireFromString("0.002")))

	cfg.Fees.WithdrawalTablePath = "does-not-exist.yaml"
	_, err = buildFeeModel(cfg)
	assert.Error(t, err)
}

func TestBreakerConfig(t *testing.T) {
	got := breakerConfig(config.CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Second,
		MaxRequests:      1,
		ResetTimeout:     time.Minute,
	})
	assert.Equal(t, services.CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Second,
		MaxRequests:      1,
		ResetTimeout:     time.Minute,
	}, got)
}

func TestBuildSources_EndToEndCycle(t *testing.T) {
	server := venueServer(t)
	cfg := testConfig(t, server.URL)
	logger := quietLogger()

	model, err := buildFeeModel(cfg)
	require.NoError(t, err)

	breakers := services.NewCircuitBreakerManager(breakerConfig(cfg.CircuitBreaker), logger)
	venueA, venueB := buildSources(cfg, breakers, logger)
	assert.Equal(t, models.VenueNobitex, venueA.Venue())
	assert.Equal(t, models.VenueWallex, venueB.Venue())

	engine := services.NewEngine(venueA, venueB, model, logger)
	snapshot := engine.Fetch(context.Background())
	require.True(t, snapshot.IsComplete())
	require.Equal(t, []models.CanonicalPair{models.NewCanonicalPair("btc", "rls")}, snapshot.Pairs)

	quoteB := snapshot.Quotes[models.VenueWallex][models.NewCanonicalPair("btc", "rls")]
	assert.True(t, quoteB.BestAsk.Equal(decimal.NewFromInt(51000)), "toman prices are scaled to rial")

	result := engine.Evaluate(snapshot, services.EvaluationParams{
		Investment: cfg.Arbitrage.Investment,
		Sort:       services.DefaultSortSpec(),
	})
	require.Len(t, result.Opportunities, 2)
	assert.Equal(t, models.LegAtoB, result.Opportunities[0].Leg)

	stats := breakers.GetAllStats()
	assert.Contains(t, stats, "nobitex")
	assert.Contains(t, stats, "wallex")
}

func TestNewRouter(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	router := newRouter(cfg, quietLogger())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}
