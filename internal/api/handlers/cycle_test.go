package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/rial-arbitrage-go/internal/database"
	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

type fakeHistory struct {
	cycles []database.CycleSummary
	err    error
	limit  int
}

func (f *fakeHistory) RecentCycles(ctx context.Context, limit int) ([]database.CycleSummary, error) {
	f.limit = limit
	return f.cycles, f.err
}

func setupCycleRouter(history CycleHistory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	router := gin.New()
	router.GET("/api/v1/cycles", NewCycleHandler(history, logger).GetRecentCycles)
	return router
}

func TestCycleHandler_GetRecentCycles(t *testing.T) {
	net := decimal.NewFromInt(693940)
	history := &fakeHistory{cycles: []database.CycleSummary{{
		ID:         "cycle-1",
		FetchedAt:  time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Status:     models.SnapshotComplete,
		PairCount:  12,
		Investment: decimal.NewFromInt(100000000),
		BestPair:   "btc-rls",
		BestNet:    &net,
	}}}

	w := get(t, setupCycleRouter(history), "/api/v1/cycles?limit=10")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, history.limit)

	var body struct {
		Success bool                    `json:"success"`
		Count   int                     `json:"count"`
		Cycles  []database.CycleSummary `json:"cycles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "btc-rls", body.Cycles[0].BestPair)
	require.NotNil(t, body.Cycles[0].BestNet)
	assert.True(t, body.Cycles[0].BestNet.Equal(net))
}

func TestCycleHandler_Errors(t *testing.T) {
	w := get(t, setupCycleRouter(nil), "/api/v1/cycles")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = get(t, setupCycleRouter(&fakeHistory{}), "/api/v1/cycles?limit=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, setupCycleRouter(&fakeHistory{err: errors.New("connection refused")}), "/api/v1/cycles")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
