package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
	"github.com/irfndi/rial-arbitrage-go/internal/services"
)

// NetworkCatalog lists the withdrawal networks known for a currency.
type NetworkCatalog interface {
	ListNetworks(currency string) []models.NetworkFee
	HasNetwork(currency, network string) bool
}

// NetworkHandler exposes withdrawal networks and the per-pair selection.
type NetworkHandler struct {
	catalog    NetworkCatalog
	selections *services.NetworkSelections
	logger     *logrus.Logger
}

// NetworkSelectionRequest is the body of PUT /api/v1/networks/selection.
type NetworkSelectionRequest struct {
	Pair    string `json:"pair" binding:"required"`
	Network string `json:"network"`
}

// NetworkListResponse is the body of GET /api/v1/networks/:currency.
type NetworkListResponse struct {
	Success  bool                `json:"success"`
	Currency string              `json:"currency"`
	Default  string              `json:"default,omitempty"`
	Networks []models.NetworkFee `json:"networks"`
}

// NewNetworkHandler creates a network handler.
func NewNetworkHandler(catalog NetworkCatalog, selections *services.NetworkSelections, logger *logrus.Logger) *NetworkHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &NetworkHandler{catalog: catalog, selections: selections, logger: logger}
}

// ListNetworks returns the networks for a currency in table order. An
// unknown currency yields an empty list.
func (h *NetworkHandler) ListNetworks(c *gin.Context) {
	currency := strings.ToLower(strings.TrimSpace(c.Param("currency")))
	networks := h.catalog.ListNetworks(currency)

	response := NetworkListResponse{Success: true, Currency: currency, Networks: networks}
	if len(networks) > 0 {
		response.Default = networks[0].Network
	}
	c.JSON(http.StatusOK, response)
}

// SetSelection updates the network used for a pair from the next
// evaluation on. An empty network reverts to the default.
func (h *NetworkHandler) SetSelection(c *gin.Context) {
	var req NetworkSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	pair, ok := models.ParseCanonicalPair(req.Pair)
	if !ok {
		respondError(c, http.StatusBadRequest, "Invalid pair")
		return
	}

	network := strings.ToUpper(strings.TrimSpace(req.Network))
	if network != "" && !h.catalog.HasNetwork(pair.Base, network) {
		respondError(c, http.StatusBadRequest, "Unknown network "+network+" for "+pair.Base)
		return
	}

	h.selections.Set(pair, network)
	h.logger.WithFields(logrus.Fields{
		"pair":    pair.String(),
		"network": network,
	}).Info("Updated network selection")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"pair":    pair.String(),
		"network": network,
	})
}

// GetSelections returns every explicit selection.
func (h *NetworkHandler) GetSelections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"selections": h.selections.Snapshot(),
	})
}
