package handler

import "net/http"

// handleInfo handles GET /info.
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	role := h.state.Role()

	info := InfoResponse{
		Role:        role.Name(),
		PrimaryAddr: role.PrimaryAddr,
		RunID:       h.state.RunID(),
		ReplOffset:  h.state.Offset(),
		Keys:        h.state.Store().Len(),
		Build:       h.build,
	}
	if h.conns != nil {
		info.ConnectedClients = h.conns.ConnCount()
	}

	h.writeJSON(w, r, http.StatusOK, info)
}
