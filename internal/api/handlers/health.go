package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/irfndi/rial-arbitrage-go/internal/services"
)

var startTime = time.Now()

// HealthChecker is implemented by the Postgres and Redis wrappers.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// StatusProvider reports the refresh scheduler's state.
type StatusProvider interface {
	GetStatus() services.ServiceStatus
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	scheduler    StatusProvider
	dependencies map[string]HealthChecker
	version      string
}

// HealthResponse represents the health status response.
type HealthResponse struct {
	// Status is "healthy" or "degraded".
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Scheduler services.ServiceStatus `json:"scheduler"`
	Services  map[string]string      `json:"services"`
}

// NewHealthHandler creates a handler. Only enabled dependencies should be
// passed in dependencies.
func NewHealthHandler(scheduler StatusProvider, dependencies map[string]HealthChecker, version string) *HealthHandler {
	if dependencies == nil {
		dependencies = map[string]HealthChecker{}
	}
	return &HealthHandler{scheduler: scheduler, dependencies: dependencies, version: version}
}

// HealthCheck reports the scheduler and the configured dependencies. A
// failing dependency or a stopped scheduler makes the reply 503.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	servicesStatus := make(map[string]string, len(h.dependencies))
	for name, checker := range h.dependencies {
		if err := checker.HealthCheck(ctx); err != nil {
			servicesStatus[name] = "unhealthy: " + err.Error()
			status = "degraded"
			continue
		}
		servicesStatus[name] = "healthy"
	}

	schedulerStatus := h.scheduler.GetStatus()
	if !schedulerStatus.Running {
		status = "degraded"
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Scheduler: schedulerStatus,
		Services:  servicesStatus,
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(response)
}

// LivenessCheck only reports that the process is serving.
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}
