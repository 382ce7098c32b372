package handlers

import (
	"net/http"
	"time"

	"kentj-backend/internal/models"
	"kentj-backend/pkg/httputil"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	version string
	queue   QueueStatusProvider
}

func NewHealthHandler(version string, queue QueueStatusProvider) *HealthHandler {
	return &HealthHandler{version: version, queue: queue}
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, models.HealthResponse{
		Status:      "ok",
		Version:     h.version,
		QueueStatus: h.queue.Status(),
		Timestamp:   models.FormatTime(time.Now()),
	})
}
