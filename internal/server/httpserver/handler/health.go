package handler

import (
	"net/http"
	"time"
)

// handleHealth handles GET /healthz. The process is healthy while it can
// answer.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   h.now().UTC().Format(time.RFC3339),
	})
}
