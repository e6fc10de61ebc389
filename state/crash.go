package state

import (
	"sync"
	"time"

	"virtualArena/config"
	"virtualArena/game"
)

// CrashTable is the crash round state machine. A single goroutine drives all
// mutating calls; the mutex only guards concurrent Snapshot readers.
//
// WAITING -> FLYING -> CRASHED -> WAITING. Wagers are queued at any time and
// attach to the next take-off. The multiplier is derived from the tick count
// and a tick at or above the committed crash point ends the round, so an
// accepted cash-out always observes a multiplier below the crash point.
type CrashTable struct {
	mu sync.RWMutex

	curve         game.CrashCurve
	countdownFrom int

	roundID    string
	seed       string
	seedHash   string
	phase      CrashPhase
	countdown  int
	tick       int
	multiplier float64
	crashPoint float64

	roster  []*game.SimulatedPlayer
	pending map[string]*game.Wager
	active  map[string]*CrashBet
}

func NewCrashTable(curve game.CrashCurve, countdownSeconds int) *CrashTable {
	return &CrashTable{
		curve:         curve,
		countdownFrom: countdownSeconds,
		phase:         CrashPhaseCrashed,
		multiplier:    config.CrashStartMultiplier,
		pending:       make(map[string]*game.Wager),
		active:        make(map[string]*CrashBet),
	}
}

// BeginWaiting opens a new round. Bets from the previous round are dropped;
// they were settled when it crashed.
func (t *CrashTable) BeginWaiting(roundID, seed, seedHash string, roster []*game.SimulatedPlayer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.roundID = roundID
	t.seed = seed
	t.seedHash = seedHash
	t.phase = CrashPhaseWaiting
	t.countdown = t.countdownFrom
	t.tick = 0
	t.multiplier = config.CrashStartMultiplier
	t.crashPoint = 0
	t.roster = roster
	t.active = make(map[string]*CrashBet)
}

// CountdownTick steps the WAITING countdown and reports whether the round
// should take off.
func (t *CrashTable) CountdownTick() (int, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != CrashPhaseWaiting {
		return 0, false, ErrWrongPhase
	}
	if t.countdown > 0 {
		t.countdown--
	}
	return t.countdown, t.countdown == 0, nil
}

// TakeOff commits the crash point and attaches every pending wager. A crash
// point at or below the start multiplier crashes immediately; the returned
// result is then non-nil.
func (t *CrashTable) TakeOff(crashPoint float64, now time.Time) ([]*CrashBet, *TickResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != CrashPhaseWaiting {
		return nil, nil, ErrWrongPhase
	}

	t.phase = CrashPhaseFlying
	t.crashPoint = crashPoint
	t.countdown = 0

	attached := make([]*CrashBet, 0, len(t.pending))
	for account, w := range t.pending {
		bet := &CrashBet{Wager: w, AttachedAt: now}
		t.active[account] = bet
		attached = append(attached, bet)
	}
	t.pending = make(map[string]*game.Wager)

	if t.multiplier >= t.crashPoint {
		return attached, t.crashLocked(), nil
	}
	return attached, nil, nil
}

// Advance runs one FLYING tick.
func (t *CrashTable) Advance() (*TickResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != CrashPhaseFlying {
		return nil, ErrNotFlying
	}

	next := t.curve.MultiplierAt(t.tick + 1)
	t.tick++
	if next >= t.crashPoint {
		return t.crashLocked(), nil
	}

	t.multiplier = next
	res := &TickResult{Tick: t.tick, Multiplier: next}
	for _, p := range t.roster {
		if p.CashedOut() || p.Lost {
			continue
		}
		if next >= p.Target {
			p.CashOutAt = p.Target
			res.RosterCashOuts = append(res.RosterCashOuts, p)
		}
	}
	return res, nil
}

func (t *CrashTable) crashLocked() *TickResult {
	t.phase = CrashPhaseCrashed
	t.multiplier = t.crashPoint

	res := &TickResult{Tick: t.tick, Multiplier: t.crashPoint, Crashed: true}
	for _, bet := range t.active {
		if !bet.CashedOut() {
			res.Losers = append(res.Losers, bet)
		}
	}
	for _, p := range t.roster {
		if !p.CashedOut() {
			p.Lost = true
		}
	}
	return res
}

// CashOut stops the account's active bet at the current multiplier.
func (t *CrashTable) CashOut(accountID string) (*CrashBet, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != CrashPhaseFlying {
		return nil, ErrNotFlying
	}
	bet, ok := t.active[accountID]
	if !ok {
		return nil, ErrNoActiveBet
	}
	if bet.CashedOut() {
		return nil, ErrAlreadyCashedOut
	}

	bet.CashOutAt = t.multiplier
	return bet, nil
}

// RevertCashOut clears a cash-out whose settlement was refused, leaving the
// bet riding. It is a no-op once the round has crashed.
func (t *CrashTable) RevertCashOut(accountID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != CrashPhaseFlying {
		return
	}
	if bet, ok := t.active[accountID]; ok {
		bet.CashOutAt = 0
	}
}

// CanQueue reports whether the account may queue a wager now.
func (t *CrashTable) CanQueue(accountID string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.canQueueLocked(accountID)
}

func (t *CrashTable) canQueueLocked(accountID string) error {
	if _, ok := t.pending[accountID]; ok {
		return ErrBetAlreadyQueued
	}
	if bet, ok := t.active[accountID]; ok && t.phase == CrashPhaseFlying && !bet.CashedOut() {
		return ErrBetAlreadyActive
	}
	return nil
}

// Queue accepts a wager for the next take-off.
func (t *CrashTable) Queue(w *game.Wager) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.canQueueLocked(w.AccountID); err != nil {
		return err
	}
	t.pending[w.AccountID] = w
	return nil
}

// Cancel withdraws a queued wager that has not attached yet.
func (t *CrashTable) Cancel(accountID string) (*game.Wager, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if w, ok := t.pending[accountID]; ok {
		delete(t.pending, accountID)
		return w, nil
	}
	if _, ok := t.active[accountID]; ok && t.phase == CrashPhaseFlying {
		return nil, ErrBetLocked
	}
	return nil, ErrNoPendingBet
}

// Summary describes the round just crashed, revealing its seed.
func (t *CrashTable) Summary(now time.Time) CrashRoundSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := CrashRoundSummary{
		RoundID:    t.roundID,
		CrashPoint: t.crashPoint,
		SeedHash:   t.seedHash,
		Bets:       len(t.active),
		Timestamp:  now,
	}
	if t.phase == CrashPhaseCrashed {
		s.ServerSeed = t.seed
	}
	for _, bet := range t.active {
		if bet.CashedOut() {
			s.CashOuts++
		}
	}
	return s
}

func (t *CrashTable) Phase() CrashPhase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.phase
}

func (t *CrashTable) Multiplier() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.multiplier
}

func (t *CrashTable) RoundID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.roundID
}

// Snapshot copies the table for readers outside the driving goroutine. The
// crash point and seed are only exposed once the round has crashed.
func (t *CrashTable) Snapshot() CrashSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := CrashSnapshot{
		RoundID:    t.roundID,
		Phase:      t.phase,
		Countdown:  t.countdown,
		Tick:       t.tick,
		Multiplier: t.multiplier,
		SeedHash:   t.seedHash,
		Pending:    len(t.pending),
		Bettors:    make([]BettorView, 0, len(t.roster)+len(t.active)),
	}
	if t.phase == CrashPhaseCrashed {
		snap.CrashPoint = t.crashPoint
		snap.ServerSeed = t.seed
	}

	for _, bet := range t.active {
		snap.Bettors = append(snap.Bettors, BettorView{
			Name:      bet.Wager.AccountID,
			Bet:       bet.Wager.Stake,
			CashOutAt: bet.CashOutAt,
			Lost:      t.phase == CrashPhaseCrashed && !bet.CashedOut(),
		})
	}
	for _, p := range t.roster {
		snap.Bettors = append(snap.Bettors, BettorView{
			Name:      p.Name,
			Bet:       p.Bet,
			CashOutAt: p.CashOutAt,
			Lost:      p.Lost,
			Simulated: true,
		})
	}
	return snap
}
