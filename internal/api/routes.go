package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/rial-arbitrage-go/internal/api/handlers"
	"github.com/irfndi/rial-arbitrage-go/internal/services"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// RouteDeps are the collaborators the HTTP surface reads from.
type RouteDeps struct {
	Arbitrage      *services.ArbitrageService
	Networks       handlers.NetworkCatalog
	History        handlers.CycleHistory
	Dependencies   map[string]handlers.HealthChecker
	AllowedOrigins []string
	Logger         *logrus.Logger
}

// SetupRoutes configures all the HTTP routes for the application.
func SetupRoutes(router *gin.Engine, deps RouteDeps) {
	router.Use(corsMiddleware(deps.AllowedOrigins))

	healthHandler := handlers.NewHealthHandler(deps.Arbitrage, deps.Dependencies, Version)
	router.GET("/health", gin.WrapF(healthHandler.HealthCheck))
	router.HEAD("/health", gin.WrapF(healthHandler.HealthCheck))
	router.GET("/live", gin.WrapF(healthHandler.LivenessCheck))

	arbitrageHandler := handlers.NewArbitrageHandler(deps.Arbitrage, deps.Logger)
	networkHandler := handlers.NewNetworkHandler(deps.Networks, deps.Arbitrage.Networks(), deps.Logger)
	cycleHandler := handlers.NewCycleHandler(deps.History, deps.Logger)

	v1 := router.Group("/api/v1")
	{
		arbitrage := v1.Group("/arbitrage")
		{
			arbitrage.GET("", arbitrageHandler.GetArbitrageOpportunities)
			arbitrage.GET("/best", arbitrageHandler.GetBestOpportunity)
		}

		networks := v1.Group("/networks")
		{
			networks.GET("/:currency", networkHandler.ListNetworks)
			networks.PUT("/selection", networkHandler.SetSelection)
		}
		v1.GET("/network-selections", networkHandler.GetSelections)

		v1.GET("/cycles", cycleHandler.GetRecentCycles)
	}
}

// corsMiddleware answers preflight requests and echoes allowed origins. A
// "*" entry allows any origin.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	origins := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		origins[strings.TrimRight(strings.TrimSpace(o), "/")] = struct{}{}
	}
	_, allowAll := origins["*"]

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := origins[origin]; ok || allowAll {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Content-Type")
				c.Header("Vary", "Origin")
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
