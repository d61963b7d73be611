package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/rial-arbitrage-go/internal/database"
)

// CycleHistory reads recorded refresh cycles.
type CycleHistory interface {
	RecentCycles(ctx context.Context, limit int) ([]database.CycleSummary, error)
}

// CycleHandler serves cycle history when persistence is enabled.
type CycleHandler struct {
	history CycleHistory
	logger  *logrus.Logger
}

// NewCycleHandler creates a cycle handler. history may be nil.
func NewCycleHandler(history CycleHistory, logger *logrus.Logger) *CycleHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &CycleHandler{history: history, logger: logger}
}

// GetRecentCycles returns the newest recorded cycles.
func (h *CycleHandler) GetRecentCycles(c *gin.Context) {
	if h.history == nil {
		respondError(c, http.StatusServiceUnavailable, "Cycle history is disabled")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		respondError(c, http.StatusBadRequest, "Invalid limit parameter (1-500)")
		return
	}

	cycles, err := h.history.RecentCycles(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read cycle history")
		respondError(c, http.StatusInternalServerError, "Failed to read cycle history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(cycles),
		"cycles":  cycles,
	})
}
