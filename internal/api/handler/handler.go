// Package handler provides HTTP handlers for the push service endpoints.
// Handlers stay thin: the webhook hands its body to the notification engine
// and maps the result onto the documented response bodies.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/albapepper/scoracle-push/internal/api/respond"
	"github.com/albapepper/scoracle-push/internal/notifications"
)

// maxWebhookBody bounds a single webhook payload.
const maxWebhookBody = 1 << 20

// Processor runs one raw envelope through the notification engine.
type Processor interface {
	ProcessPayload(ctx context.Context, raw []byte) (notifications.Result, error)
}

// HealthChecker verifies database connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	health        HealthChecker
	engine        Processor
	webhookSecret string
	logger        *slog.Logger
}

// New creates a Handler. An empty webhookSecret disables the bearer check.
func New(health HealthChecker, engine Processor, webhookSecret string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		health:        health,
		engine:        engine,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns service name, version, status and documentation path.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Scoracle Push",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"webhook": "/webhooks/match-events",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.health.HealthCheck(r.Context()); err != nil {
		h.logger.Warn("Database health check failed", "error", err)
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
