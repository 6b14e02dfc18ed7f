package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"zapcatalog/internal/infrastructure"
)

// HealthHandler reports liveness and build identity.
type HealthHandler struct {
	startedAt time.Time
}

// NewHealthHandler creates a health handler anchored at process start.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{startedAt: time.Now().UTC()}
}

// Health handles GET /api/health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":    "healthy",
		"service":   infrastructure.ServiceName,
		"version":   infrastructure.ServiceVersion,
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"timestamp": time.Now().UTC(),
	})
}
