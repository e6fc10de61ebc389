package api

import (
	"net/http"

	"github.com/charmbracelet/log"

	"virtualArena/config"
	"virtualArena/db"
	"virtualArena/game"
	"virtualArena/settlement"
)

const leaderboardLimit = 20

// LeaderboardResponse represents the leaderboard API response
type LeaderboardResponse struct {
	Success      bool                  `json:"success"`
	Leaderboard  []db.LeaderboardEntry `json:"leaderboard"`
	UserPosition *db.LeaderboardEntry  `json:"userPosition,omitempty"`
}

// Balance handles GET /api/wallet/balance?mode=
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	mode, err := queryMode(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	acct := accountID(r)
	if acct == "" {
		fail(w, r, game.ErrMissingAccount)
		return
	}

	balance, err := h.deps.Arena.Balance(r.Context(), mode, acct)
	if err != nil {
		fail(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"accountId": acct,
		"mode":      mode,
		"balance":   balance,
	})
}

// History handles GET /api/wallet/history?mode=&limit=
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	mode, err := queryMode(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	limit, err := queryLimit(r, config.MaxHistoryPage)
	if err != nil {
		fail(w, r, err)
		return
	}
	acct := accountID(r)
	if acct == "" {
		fail(w, r, game.ErrMissingAccount)
		return
	}

	records, err := h.deps.Arena.History(r.Context(), mode, acct, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	if records == nil {
		records = []*settlement.HistoryRecord{}
	}
	sendJSON(w, http.StatusOK, map[string]any{"success": true, "history": records, "count": len(records)})
}

// Leaderboard handles GET /api/leaderboard
// Query params: account (optional) - the caller's position when outside the
// top of the board.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := queryLimit(r, leaderboardLimit)
	if err != nil {
		fail(w, r, err)
		return
	}

	// Ranking the whole board is cheap at this size and gives the caller's
	// position without a second query.
	all, err := h.deps.Leaderboard.Leaderboard(ctx, 0)
	if err != nil {
		fail(w, r, err)
		return
	}

	response := LeaderboardResponse{Success: true, Leaderboard: all}
	if len(all) > limit {
		response.Leaderboard = all[:limit]
	}
	if response.Leaderboard == nil {
		response.Leaderboard = []db.LeaderboardEntry{}
	}

	if acct := r.URL.Query().Get("account"); acct != "" {
		for i := limit; i < len(all); i++ {
			if all[i].AccountID == acct {
				pos := all[i]
				response.UserPosition = &pos
				break
			}
		}
	}

	log.Debug("📋 Retrieved leaderboard", "entries", len(response.Leaderboard))
	sendJSON(w, http.StatusOK, response)
}
