package state

import (
	"errors"
	"time"

	"virtualArena/game"
)

// ==============================================================================
// CRASH TABLE TYPES
// ==============================================================================

type CrashPhase string

const (
	CrashPhaseWaiting CrashPhase = "WAITING"
	CrashPhaseFlying  CrashPhase = "FLYING"
	CrashPhaseCrashed CrashPhase = "CRASHED"
)

var (
	ErrNotFlying        = errors.New("round is not flying")
	ErrNoActiveBet      = errors.New("no active bet in this round")
	ErrAlreadyCashedOut = errors.New("bet already cashed out")
	ErrBetAlreadyQueued = errors.New("a bet is already queued for the next round")
	ErrBetAlreadyActive = errors.New("a bet is still riding in this round")
	ErrNoPendingBet     = errors.New("no pending bet to cancel")
	ErrBetLocked        = errors.New("bet is already attached to a flying round")
	ErrWrongPhase       = errors.New("operation not allowed in this phase")
	ErrLadderInProgress = errors.New("a ladder run is already in progress")
	ErrNoLadderRun      = errors.New("no ladder run in progress")
)

// CrashBet is a wager attached to a flying round.
type CrashBet struct {
	Wager      *game.Wager `json:"wager"`
	CashOutAt  float64     `json:"cashOutAt,omitempty"`
	AttachedAt time.Time   `json:"attachedAt"`
}

func (b *CrashBet) CashedOut() bool {
	return b.CashOutAt > 0
}

// TickResult reports what one FLYING tick changed.
type TickResult struct {
	Tick           int                     `json:"tick"`
	Multiplier     float64                 `json:"multiplier"`
	Crashed        bool                    `json:"crashed"`
	RosterCashOuts []*game.SimulatedPlayer `json:"rosterCashOuts,omitempty"`
	Losers         []*CrashBet             `json:"-"`
}

// CrashRoundSummary is the history entry of a finished round.
type CrashRoundSummary struct {
	RoundID    string    `json:"roundId"`
	CrashPoint float64   `json:"crashPoint"`
	ServerSeed string    `json:"serverSeed"`
	SeedHash   string    `json:"seedHash"`
	Bets       int       `json:"bets"`
	CashOuts   int       `json:"cashOuts"`
	Timestamp  time.Time `json:"timestamp"`
}

// BettorView is one line of the live bettors feed.
type BettorView struct {
	Name      string  `json:"name"`
	Bet       float64 `json:"bet"`
	CashOutAt float64 `json:"cashOutAt,omitempty"`
	Lost      bool    `json:"lost"`
	Simulated bool    `json:"simulated"`
}

// CrashSnapshot is a read-only copy of the table for HTTP and websocket
// readers.
type CrashSnapshot struct {
	RoundID    string       `json:"roundId"`
	Phase      CrashPhase   `json:"phase"`
	Countdown  int          `json:"countdown"`
	Tick       int          `json:"tick"`
	Multiplier float64      `json:"multiplier"`
	CrashPoint float64      `json:"crashPoint,omitempty"`
	SeedHash   string       `json:"seedHash"`
	ServerSeed string       `json:"serverSeed,omitempty"`
	Pending    int          `json:"pending"`
	Bettors    []BettorView `json:"bettors"`
}
