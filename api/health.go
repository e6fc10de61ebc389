package api

import "net/http"

/* =========================
   HEALTH CHECK ENDPOINT
========================= */

// Health handles GET /api/health
// Each configured backend is pinged; a failing backend is reported but does
// not fail the request.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	backends := make(map[string]string, len(h.deps.Checks))
	for name, check := range h.deps.Checks {
		status := "ok"
		if err := check(ctx); err != nil {
			status = "error: " + err.Error()
		}
		backends[name] = status
	}

	response := map[string]any{
		"success":  true,
		"backends": backends,
		"message":  "Health check completed",
	}
	if h.deps.Crash != nil {
		snap := h.deps.Crash.Snapshot()
		response["crash"] = map[string]any{"roundId": snap.RoundID, "phase": snap.Phase}
	}

	sendJSON(w, http.StatusOK, response)
}
