package api

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"virtualArena/game"
)

/* =========================
   REQUEST TYPES
========================= */

// PlayRequest carries a one-shot wager. The game specific choice sits at the
// top level next to stake and mode.
type PlayRequest struct {
	Mode  string  `json:"mode"`
	Stake float64 `json:"stake"`
	game.Params
}

type LadderStartRequest struct {
	Mode  string    `json:"mode"`
	Stake float64   `json:"stake"`
	Tier  game.Tier `json:"tier"`
}

type LadderActionRequest struct {
	Mode string `json:"mode"`
}

/* =========================
   DISCRETE GAMES
========================= */

// Play handles POST /api/games/{game}/play
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	req, err := decode[PlayRequest](r.Body)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		fail(w, r, err)
		return
	}

	gameType := game.GameType(chi.URLParam(r, "game"))
	wager, err := game.NewWager(accountID(r), gameType, req.Stake, req.Params, mode)
	if err != nil {
		fail(w, r, err)
		return
	}

	res, err := h.deps.Arena.Play(r.Context(), wager)
	if err != nil {
		fail(w, r, err)
		return
	}

	log.Info("🎲 Wager settled", "account", wager.AccountID, "game", gameType, "mode", mode,
		"stake", wager.Stake, "win", res.Outcome.IsWin, "payout", res.Outcome.Payout)
	sendJSON(w, http.StatusOK, res)
}

// Tip handles GET /api/tips/{game}
func (h *Handler) Tip(w http.ResponseWriter, r *http.Request) {
	gameType := game.GameType(chi.URLParam(r, "game"))
	sendJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"game":    gameType,
		"tip":     h.deps.Advisor.Tip(r.Context(), gameType),
	})
}

/* =========================
   STEP LADDER
========================= */

// StartLadder handles POST /api/ladder/start
func (h *Handler) StartLadder(w http.ResponseWriter, r *http.Request) {
	req, err := decode[LadderStartRequest](r.Body)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		fail(w, r, err)
		return
	}

	wager, err := game.NewWager(accountID(r), game.GameLadder, req.Stake, game.Params{Tier: req.Tier}, mode)
	if err != nil {
		fail(w, r, err)
		return
	}

	res, err := h.deps.Arena.StartLadder(r.Context(), wager)
	if err != nil {
		fail(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, res)
}

// StepLadder handles POST /api/ladder/step
func (h *Handler) StepLadder(w http.ResponseWriter, r *http.Request) {
	mode, ok := ladderMode(w, r)
	if !ok {
		return
	}
	res, err := h.deps.Arena.StepLadder(r.Context(), mode, accountID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, res)
}

// CashOutLadder handles POST /api/ladder/cashout
func (h *Handler) CashOutLadder(w http.ResponseWriter, r *http.Request) {
	mode, ok := ladderMode(w, r)
	if !ok {
		return
	}
	res, err := h.deps.Arena.CashOutLadder(r.Context(), mode, accountID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, res)
}

// GetLadder handles GET /api/ladder?mode=
func (h *Handler) GetLadder(w http.ResponseWriter, r *http.Request) {
	mode, err := queryMode(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := h.deps.Arena.Ladder(mode, accountID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, res)
}

func ladderMode(w http.ResponseWriter, r *http.Request) (game.Mode, bool) {
	req, err := decode[LadderActionRequest](r.Body)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		fail(w, r, err)
		return "", false
	}
	return mode, true
}
