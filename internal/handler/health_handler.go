package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"engage/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// Pinger is a dependency whose liveness is reported by /health
type Pinger interface {
	Health(ctx context.Context) error
}

// LifecycleProbe reports the last completed maintenance pass
type LifecycleProbe interface {
	LastLifecycleRun(ctx context.Context) (time.Time, bool)
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db        Pinger
	cache     Pinger
	lifecycle LifecycleProbe
	version   string
	logger    *logger.Logger
}

// NewHealthHandler creates a new health handler. cache and lifecycle may be nil.
func NewHealthHandler(db, cache Pinger, lifecycle LifecycleProbe, version string, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		cache:     cache,
		lifecycle: lifecycle,
		version:   version,
		logger:    logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status           string            `json:"status"`
	Timestamp        time.Time         `json:"timestamp"`
	Version          string            `json:"version"`
	Service          string            `json:"service"`
	Checks           map[string]string `json:"checks"`
	LastLifecycleRun *time.Time        `json:"last_lifecycle_run,omitempty"`
}

// RegisterRoutes registers the health route with the router
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Check)
}

// Check handles GET /health. The database is required, the cache only degrades the status.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Service:   "engage",
		Checks:    map[string]string{},
	}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.Health(ctx); err != nil {
			h.logger.WithError(err).Error("Database health check failed")
			response.Checks["database"] = "down"
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			response.Checks["database"] = "up"
		}
	}

	if h.cache != nil {
		if err := h.cache.Health(ctx); err != nil {
			h.logger.WithError(err).Warn("Cache health check failed")
			response.Checks["cache"] = "down"
			if status == http.StatusOK {
				response.Status = "degraded"
			}
		} else {
			response.Checks["cache"] = "up"
		}
	} else {
		response.Checks["cache"] = "disabled"
	}

	if h.lifecycle != nil {
		if at, ok := h.lifecycle.LastLifecycleRun(ctx); ok {
			at = at.UTC()
			response.LastLifecycleRun = &at
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("Failed to encode health check response")
	}
}
