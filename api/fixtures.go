package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"virtualArena/fixtures"
)

type QuoteRequest struct {
	Legs []fixtures.Leg `json:"legs"`
}

// ListFixtures handles GET /api/fixtures
func (h *Handler) ListFixtures(w http.ResponseWriter, r *http.Request) {
	list := h.deps.Catalog.List()
	sendJSON(w, http.StatusOK, map[string]any{"success": true, "fixtures": list, "count": len(list)})
}

// GetFixture handles GET /api/fixtures/{id}
func (h *Handler) GetFixture(w http.ResponseWriter, r *http.Request) {
	f, err := h.deps.Catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, f)
}

// FixtureInsight handles GET /api/fixtures/{id}/insight
func (h *Handler) FixtureInsight(w http.ResponseWriter, r *http.Request) {
	f, err := h.deps.Catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"fixtureId": f.ID,
		"insight":   h.deps.Advisor.Insight(r.Context(), f),
	})
}

// QuoteSlip handles POST /api/slip/quote
func (h *Handler) QuoteSlip(w http.ResponseWriter, r *http.Request) {
	req, err := decode[QuoteRequest](r.Body)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	slip, err := h.deps.Catalog.Quote(req.Legs)
	if err != nil {
		fail(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, slip)
}
