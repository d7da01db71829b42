package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/lebroads/pothole-map/internal/boundary"
)

// HealthChecker is satisfied by the database wrapper
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// BoundaryState reports whether the boundary is usable
type BoundaryState interface {
	State() boundary.State
}

// RealtimeStatus is satisfied by the NATS client
type RealtimeStatus interface {
	IsConnected() bool
	Reconnects() int64
}

// HealthHandler reports database and boundary readiness
type HealthHandler struct {
	db       HealthChecker
	boundary BoundaryState
	realtime RealtimeStatus
	version  string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db HealthChecker, b BoundaryState, version string) *HealthHandler {
	return &HealthHandler{db: db, boundary: b, version: version}
}

// SetRealtime adds the external update channel to the report
func (h *HealthHandler) SetRealtime(rt RealtimeStatus) {
	h.realtime = rt
}

// HealthResponse is the health check body
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Database   string `json:"database"`
	Boundary   string `json:"boundary"`
	Realtime   string `json:"realtime,omitempty"`
	Reconnects int64  `json:"realtime_reconnects,omitempty"`
}

// Health checks readiness. A failed boundary leaves the map viewable, so it
// degrades the status rather than failing it.
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:   "healthy",
		Version:  h.version,
		Database: "ok",
		Boundary: string(h.boundary.State()),
	}

	if err := h.db.HealthCheck(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Database = "error"
		respondWithJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	if h.boundary.State() != boundary.StateReady {
		resp.Status = "degraded"
	}

	if h.realtime != nil {
		resp.Realtime = "connected"
		resp.Reconnects = h.realtime.Reconnects()
		if !h.realtime.IsConnected() {
			resp.Realtime = "disconnected"
			resp.Status = "degraded"
		}
	}
	respondWithJSON(w, http.StatusOK, resp)
}
