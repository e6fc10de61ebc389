package api

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"virtualArena/crypto"
	"virtualArena/game"
	"virtualArena/state"
)

const crashHistoryLimit = 10

type CrashBetRequest struct {
	Mode  string  `json:"mode"`
	Stake float64 `json:"stake"`
}

// VerifyResponse tells a player whether a revealed seed matches the hash
// published before the round, and which crash point it commits to.
type VerifyResponse struct {
	Success    bool    `json:"success"`
	RoundID    string  `json:"roundId"`
	HashValid  bool    `json:"hashValid"`
	CrashPoint float64 `json:"crashPoint"`
}

/* =========================
   CRASH GAME ENDPOINTS
========================= */

// CrashBet handles POST /api/crash/bet
// The wager rides the next take-off.
func (h *Handler) CrashBet(w http.ResponseWriter, r *http.Request) {
	req, err := decode[CrashBetRequest](r.Body)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		fail(w, r, err)
		return
	}
	wager, err := game.NewWager(accountID(r), game.GameCrash, req.Stake, game.Params{}, mode)
	if err != nil {
		fail(w, r, err)
		return
	}

	if err := h.deps.Crash.PlaceBet(r.Context(), wager); err != nil {
		fail(w, r, err)
		return
	}

	log.Info("✅ Crash bet queued", "account", wager.AccountID, "stake", wager.Stake, "mode", mode)
	sendJSON(w, http.StatusOK, map[string]any{"success": true, "wager": wager})
}

// CrashCancel handles POST /api/crash/cancel
func (h *Handler) CrashCancel(w http.ResponseWriter, r *http.Request) {
	wager, err := h.deps.Crash.CancelBet(r.Context(), accountID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"success": true, "wager": wager})
}

// CrashCashOut handles POST /api/crash/cashout
func (h *Handler) CrashCashOut(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.deps.Crash.CashOut(r.Context(), accountID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"success": true, "receipt": receipt})
}

// CrashState handles GET /api/crash/state
func (h *Handler) CrashState(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, h.deps.Crash.Snapshot())
}

// CrashHistory handles GET /api/crash
func (h *Handler) CrashHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, crashHistoryLimit)
	if err != nil {
		fail(w, r, err)
		return
	}
	rounds, err := h.deps.Crash.RecentRounds(r.Context(), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	if rounds == nil {
		rounds = []state.CrashRoundSummary{}
	}
	sendJSON(w, http.StatusOK, map[string]any{"success": true, "rounds": rounds, "count": len(rounds)})
}

// VerifyRound handles GET /api/crash/verify?roundId=&seed=&hash=
func (h *Handler) VerifyRound(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roundID, seed, hash := q.Get("roundId"), q.Get("seed"), q.Get("hash")
	if roundID == "" || seed == "" || hash == "" {
		fail(w, r, fmt.Errorf("%w: roundId, seed and hash are required", errBadRequest))
		return
	}

	sendJSON(w, http.StatusOK, VerifyResponse{
		Success:    true,
		RoundID:    roundID,
		HashValid:  crypto.VerifySeed(seed, hash),
		CrashPoint: game.VerifyCrashPoint(h.deps.Curve, seed, roundID),
	})
}

// ActiveBettors handles GET /api/bettor/list
func (h *Handler) ActiveBettors(w http.ResponseWriter, r *http.Request) {
	bettors := h.deps.Crash.Snapshot().Bettors
	if bettors == nil {
		bettors = []state.BettorView{}
	}
	sendJSON(w, http.StatusOK, map[string]any{"bettors": bettors, "count": len(bettors)})
}
