package api

import (
	"net/http"
	"time"

	"github.com/newthinker/cryptostream/internal/api/response"
)

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HealthHandler reports liveness and process uptime.
type HealthHandler struct {
	version string
	started time.Time
	now     func() time.Time
}

// NewHealthHandler creates a health handler; uptime counts from started.
func NewHealthHandler(version string, started time.Time) *HealthHandler {
	return &HealthHandler{version: version, started: started, now: time.Now}
}

// Health returns service status.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	response.JSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: now.UTC(),
		Uptime:    now.Sub(h.started).Seconds(),
		Service:   "CryptoStream",
		Version:   h.version,
	})
}
