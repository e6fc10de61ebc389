package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"

	"virtualArena/arena"
	"virtualArena/config"
	"virtualArena/db"
	"virtualArena/fixtures"
	"virtualArena/game"
	"virtualArena/settlement"
	"virtualArena/state"
	"virtualArena/ws"
)

// Arena is the discrete game and wallet surface.
type Arena interface {
	Play(ctx context.Context, w *game.Wager) (*arena.Result, error)
	StartLadder(ctx context.Context, w *game.Wager) (*arena.LadderResult, error)
	StepLadder(ctx context.Context, mode game.Mode, accountID string) (*arena.LadderResult, error)
	CashOutLadder(ctx context.Context, mode game.Mode, accountID string) (*arena.LadderResult, error)
	Ladder(mode game.Mode, accountID string) (*arena.LadderResult, error)
	Balance(ctx context.Context, mode game.Mode, accountID string) (decimal.Decimal, error)
	History(ctx context.Context, mode game.Mode, accountID string, limit int) ([]*settlement.HistoryRecord, error)
}

type Leaderboard interface {
	Leaderboard(ctx context.Context, limit int) ([]db.LeaderboardEntry, error)
}

type Advisor interface {
	Tip(ctx context.Context, gameType game.GameType) string
	Insight(ctx context.Context, f fixtures.Fixture) string
}

// Deps is everything the HTTP surface talks to. WS and Checks are optional.
type Deps struct {
	Arena       Arena
	Crash       ws.CrashActions
	Curve       game.CrashCurve
	Leaderboard Leaderboard
	Catalog     *fixtures.Catalog
	Advisor     Advisor
	WS          http.HandlerFunc
	Checks      map[string]func(context.Context) error
}

type Handler struct {
	deps Deps
}

// ErrorResponse is the envelope of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func NewRouter(deps Deps) chi.Router {
	h := &Handler{deps: deps}
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", config.AccountHeader},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))

	if deps.WS != nil {
		r.Get("/ws", deps.WS)
	}

	r.Route("/api", func(rr chi.Router) {
		rr.Get("/health", h.Health)

		rr.Post("/games/{game}/play", h.Play)
		rr.Get("/tips/{game}", h.Tip)

		rr.Route("/ladder", func(lr chi.Router) {
			lr.Get("/", h.GetLadder)
			lr.Post("/start", h.StartLadder)
			lr.Post("/step", h.StepLadder)
			lr.Post("/cashout", h.CashOutLadder)
		})

		rr.Route("/crash", func(cr chi.Router) {
			cr.Get("/", h.CrashHistory)
			cr.Get("/state", h.CrashState)
			cr.Get("/verify", h.VerifyRound)
			cr.Post("/bet", h.CrashBet)
			cr.Post("/cancel", h.CrashCancel)
			cr.Post("/cashout", h.CrashCashOut)
		})
		rr.Get("/bettor/list", h.ActiveBettors)

		rr.Route("/wallet", func(wr chi.Router) {
			wr.Get("/balance", h.Balance)
			wr.Get("/history", h.History)
		})
		rr.Get("/leaderboard", h.Leaderboard)

		rr.Route("/fixtures", func(fr chi.Router) {
			fr.Get("/", h.ListFixtures)
			fr.Get("/{id}", h.GetFixture)
			fr.Get("/{id}/insight", h.FixtureInsight)
		})
		rr.Post("/slip/quote", h.QuoteSlip)
	})

	return r
}

/* =========================
   HELPER FUNCTIONS
========================= */

func decode[T any](body io.Reader) (T, error) {
	var payload T
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return payload, fmt.Errorf("invalid request body: %w", err)
	}
	return payload, nil
}

func sendJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("❌ Failed to write response", "err", err)
	}
}

// sendError sends an error response
func sendError(w http.ResponseWriter, statusCode int, message string) {
	sendJSON(w, statusCode, ErrorResponse{Success: false, Error: message})
}

// fail maps a domain error onto a status code. Unknown errors are logged
// and hidden from the caller.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("❌ Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		sendError(w, status, "Internal server error")
		return
	}
	sendError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrMissingAccount),
		errors.Is(err, game.ErrInvalidStake),
		errors.Is(err, game.ErrInvalidMode),
		errors.Is(err, game.ErrInvalidThreshold),
		errors.Is(err, game.ErrInvalidColor),
		errors.Is(err, game.ErrInvalidSide),
		errors.Is(err, game.ErrInvalidTier),
		errors.Is(err, game.ErrUnknownGame),
		errors.Is(err, fixtures.ErrInvalidSelection),
		errors.Is(err, fixtures.ErrEmptySlip),
		errors.Is(err, fixtures.ErrInvalidAmount),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest

	case errors.Is(err, settlement.ErrAccountFrozen),
		errors.Is(err, settlement.ErrAccountSuspended):
		return http.StatusForbidden

	case errors.Is(err, settlement.ErrAccountNotFound),
		errors.Is(err, fixtures.ErrFixtureNotFound),
		errors.Is(err, state.ErrNoLadderRun),
		errors.Is(err, state.ErrNoActiveBet),
		errors.Is(err, state.ErrNoPendingBet):
		return http.StatusNotFound

	case errors.Is(err, settlement.ErrInsufficientBalance),
		errors.Is(err, settlement.ErrBettingLimit):
		return http.StatusUnprocessableEntity

	case errors.Is(err, settlement.ErrAlreadySettled),
		errors.Is(err, settlement.ErrStakeHeld),
		errors.Is(err, settlement.ErrNoStakeHeld),
		errors.Is(err, game.ErrLadderFinished),
		errors.Is(err, game.ErrLadderTooEarly),
		errors.Is(err, state.ErrLadderInProgress),
		errors.Is(err, state.ErrNotFlying),
		errors.Is(err, state.ErrAlreadyCashedOut),
		errors.Is(err, state.ErrBetAlreadyQueued),
		errors.Is(err, state.ErrBetAlreadyActive),
		errors.Is(err, state.ErrBetLocked),
		errors.Is(err, state.ErrWrongPhase),
		errors.Is(err, fixtures.ErrFixtureClosed):
		return http.StatusConflict

	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func accountID(r *http.Request) string {
	return r.Header.Get(config.AccountHeader)
}

func queryMode(r *http.Request) (game.Mode, error) {
	return game.ParseMode(r.URL.Query().Get("mode"))
}

// queryLimit reads ?limit=, falling back to def when absent.
func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", errBadRequest)
	}
	return n, nil
}
