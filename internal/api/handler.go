// Package api exposes the dispatcher's small ops surface: health probes and
// a manual tick trigger for cron-style external scheduling.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/auralabs/aura-dispatch/internal/engine"
	"github.com/auralabs/aura-dispatch/internal/metrics"
)

// Ticker is the single-tick operation the trigger endpoint invokes.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) engine.TickSummary
}

// HealthChecker reports backing store reachability for the readiness probe.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler holds dependencies for the ops endpoints
type Handler struct {
	logger  *zap.Logger
	ticker  Ticker
	health  HealthChecker
	ticking atomic.Bool
}

// NewHandler creates a new ops handler
func NewHandler(logger *zap.Logger, ticker Ticker, health HealthChecker) *Handler {
	return &Handler{
		logger: logger,
		ticker: ticker,
		health: health,
	}
}

// Routes builds the chi router for the ops surface.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Handle("/metrics", metrics.Handler())
	r.Post("/v1/tick", h.TriggerTick)

	return r
}

// Healthz handles GET /healthz (liveness)
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz (readiness; checks the database)
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.health.Health(ctx); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// TickResponse summarizes a manually triggered tick.
type TickResponse struct {
	UsersLoaded   int `json:"users_loaded"`
	UsersDue      int `json:"users_due"`
	Sent          int `json:"sent"`
	Failed        int `json:"failed"`
	InvalidTokens int `json:"invalid_tokens"`
}

// TriggerTick handles POST /v1/tick. The trigger carries no payload and the
// tick cannot fail outward; overlapping triggers are rejected because ticks
// against one store must be serialized.
func (h *Handler) TriggerTick(w http.ResponseWriter, r *http.Request) {
	if !h.ticking.CompareAndSwap(false, true) {
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": "tick already in progress"})
		return
	}
	defer h.ticking.Store(false)

	summary := h.ticker.Tick(r.Context(), time.Now().UTC())

	h.writeJSON(w, http.StatusOK, TickResponse{
		UsersLoaded:   summary.UsersLoaded,
		UsersDue:      summary.UsersDue,
		Sent:          summary.Sent,
		Failed:        summary.Failed,
		InvalidTokens: summary.InvalidTokens,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
