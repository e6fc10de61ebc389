package ws

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"virtualArena/config"
	"virtualArena/crypto"
	"virtualArena/game"
	"virtualArena/settlement"
	"virtualArena/state"
)

// Settler is the part of a settlement.Recorder the crash loop needs. A bet's
// stake is held when it is queued and released if it is cancelled.
type Settler interface {
	Hold(ctx context.Context, w *game.Wager) (decimal.Decimal, error)
	Release(ctx context.Context, w *game.Wager) (decimal.Decimal, error)
	Settle(ctx context.Context, w *game.Wager, o game.Outcome) (*settlement.Receipt, error)
}

// RoundStore keeps finished round summaries for seed verification.
type RoundStore interface {
	StoreRound(ctx context.Context, s state.CrashRoundSummary) error
	RecentRounds(ctx context.Context, limit int) ([]state.CrashRoundSummary, error)
}

// BetMirror publishes live bets outside the process. Optional.
type BetMirror interface {
	StoreCrashBet(ctx context.Context, roundID string, bet *state.CrashBet) error
	CleanupCrashRound(ctx context.Context, roundID string) error
}

// Broadcaster pushes events to subscribed clients.
type Broadcaster interface {
	Broadcast(channel string, msg Message)
}

type commandKind int

const (
	cmdPlaceBet commandKind = iota
	cmdCancelBet
	cmdCashOut
)

type command struct {
	kind      commandKind
	wager     *game.Wager
	accountID string
	reply     chan commandResult
}

type commandResult struct {
	wager   *game.Wager
	receipt *settlement.Receipt
	err     error
}

// CrashRunner owns the crash table. All mutations happen on the goroutine
// running Run: timer expiries advance the round and client requests arrive
// as commands, so a cash-out is always ordered strictly before or after a
// tick.
type CrashRunner struct {
	clock    quartz.Clock
	curve    game.CrashCurve
	settings *config.CrashSettings
	table    *state.CrashTable

	settlers map[game.Mode]Settler
	rounds   RoundStore
	mirror   BetMirror
	hub      Broadcaster

	cmds chan command

	nextCrashPoint float64
	newSeed        func() (string, string, error)
}

func NewCrashRunner(clock quartz.Clock, settings *config.CrashSettings, settlers map[game.Mode]Settler, rounds RoundStore, hub Broadcaster) *CrashRunner {
	curve := game.CrashCurveFromConfig(settings)
	return &CrashRunner{
		clock:    clock,
		curve:    curve,
		settings: settings,
		table:    state.NewCrashTable(curve, settings.CountdownSeconds),
		settlers: settlers,
		rounds:   rounds,
		hub:      hub,
		cmds:     make(chan command),
		newSeed:  crypto.GenerateServerSeed,
	}
}

// WithMirror mirrors attached bets into an external store.
func (r *CrashRunner) WithMirror(m BetMirror) *CrashRunner {
	r.mirror = m
	return r
}

// Run drives rounds until ctx is cancelled.
func (r *CrashRunner) Run(ctx context.Context) error {
	log.Info("🎰 Crash loop started",
		"countdown", r.settings.CountdownSeconds, "tick", r.settings.TickInterval(), "increment", r.curve.Increment)

	if err := r.beginRound(ctx); err != nil {
		return err
	}
	timer := r.clock.NewTimer(config.CrashCountdownStep, "crash", "timer")
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("🛑 Crash loop stopped")
			return ctx.Err()

		case cmd := <-r.cmds:
			cmd.reply <- r.handle(ctx, cmd)

		case <-timer.C:
			next, err := r.step(ctx)
			if err != nil {
				return err
			}
			timer.Reset(next, "crash", "timer")
		}
	}
}

// step advances the round by one timer expiry and returns the delay until
// the next one.
func (r *CrashRunner) step(ctx context.Context) (time.Duration, error) {
	switch r.table.Phase() {
	case state.CrashPhaseWaiting:
		left, launch, err := r.table.CountdownTick()
		if err != nil {
			return 0, err
		}
		if !launch {
			r.hub.Broadcast(ChannelCrash, Message{Type: "countdown", Data: map[string]int{"countdown": left}})
			return config.CrashCountdownStep, nil
		}
		if crashed := r.takeOff(ctx); crashed != nil {
			r.onCrash(ctx, crashed)
			return r.settings.RestartDelay(), nil
		}
		return r.settings.TickInterval(), nil

	case state.CrashPhaseFlying:
		res, err := r.table.Advance()
		if err != nil {
			return 0, err
		}
		if res.Crashed {
			r.onCrash(ctx, res)
			return r.settings.RestartDelay(), nil
		}
		r.hub.Broadcast(ChannelCrash, Message{Type: "tick", Data: res})
		if len(res.RosterCashOuts) > 0 {
			r.broadcastBettors()
		}
		return r.settings.TickInterval(), nil

	default:
		if err := r.beginRound(ctx); err != nil {
			return 0, err
		}
		return config.CrashCountdownStep, nil
	}
}

// beginRound opens a WAITING round. The seed commits to both the roster and
// the crash point; only its hash is published until the round ends.
func (r *CrashRunner) beginRound(ctx context.Context) error {
	seed, hash, err := r.newSeed()
	if err != nil {
		return fmt.Errorf("failed to generate round seed: %w", err)
	}
	roundID := uuid.NewString()

	src := game.RoundSource(seed, roundID)
	roster := game.GenerateRoster(src)
	r.nextCrashPoint = r.curve.DrawCrashPoint(src)

	r.table.BeginWaiting(roundID, seed, hash, roster)
	log.Debug("🆕 Crash round opened", "round", roundID, "hash", hash, "roster", len(roster))

	r.hub.Broadcast(ChannelCrash, Message{Type: "round_start", Data: map[string]any{
		"roundId":   roundID,
		"seedHash":  hash,
		"countdown": r.settings.CountdownSeconds,
	}})
	r.broadcastBettors()
	return nil
}

func (r *CrashRunner) takeOff(ctx context.Context) *state.TickResult {
	attached, crashed, err := r.table.TakeOff(r.nextCrashPoint, r.clock.Now())
	if err != nil {
		log.Error("❌ Take-off refused", "err", err)
		return nil
	}

	roundID := r.table.RoundID()
	if r.mirror != nil {
		for _, bet := range attached {
			if err := r.mirror.StoreCrashBet(ctx, roundID, bet); err != nil {
				log.Warn("⚠️  Failed to mirror crash bet", "round", roundID, "err", err)
			}
		}
	}

	log.Info("🚀 Crash round flying", "round", roundID, "bets", len(attached))
	r.hub.Broadcast(ChannelCrash, Message{Type: "take_off", Data: map[string]any{
		"roundId": roundID,
		"bets":    len(attached),
	}})
	r.broadcastBettors()
	return crashed
}

// onCrash settles every uncashed bet as a loss and records the round.
func (r *CrashRunner) onCrash(ctx context.Context, res *state.TickResult) {
	for _, bet := range res.Losers {
		label := fmt.Sprintf("Crashed at %.2fx", res.Multiplier)
		if _, err := r.settle(ctx, bet.Wager, game.NewOutcome(bet.Wager.Stake, false, 0, label)); err != nil {
			log.Warn("⚠️  Failed to settle crash loss", "account", bet.Wager.AccountID, "err", err)
		}
	}

	summary := r.table.Summary(r.clock.Now())
	if err := r.rounds.StoreRound(ctx, summary); err != nil {
		log.Warn("⚠️  Failed to store crash round", "round", summary.RoundID, "err", err)
	}
	if r.mirror != nil {
		if err := r.mirror.CleanupCrashRound(ctx, summary.RoundID); err != nil {
			log.Warn("⚠️  Failed to clean up mirrored bets", "round", summary.RoundID, "err", err)
		}
	}

	log.Info("💥 Crash round ended",
		"round", summary.RoundID, "crashPoint", fmt.Sprintf("%.2f", summary.CrashPoint),
		"bets", summary.Bets, "cashOuts", summary.CashOuts)

	r.hub.Broadcast(ChannelCrash, Message{Type: "crashed", Data: summary})
	r.broadcastBettors()
}

func (r *CrashRunner) broadcastBettors() {
	snap := r.table.Snapshot()
	r.hub.Broadcast(ChannelBettors, Message{Type: "active_bettors", Data: snap.Bettors})
}

func (r *CrashRunner) handle(ctx context.Context, cmd command) commandResult {
	switch cmd.kind {
	case cmdPlaceBet:
		return commandResult{err: r.placeBet(ctx, cmd.wager)}
	case cmdCancelBet:
		w, err := r.cancelBet(ctx, cmd.accountID)
		return commandResult{wager: w, err: err}
	case cmdCashOut:
		receipt, err := r.cashOut(ctx, cmd.accountID)
		return commandResult{receipt: receipt, err: err}
	}
	return commandResult{err: fmt.Errorf("unknown command %d", cmd.kind)}
}

func (r *CrashRunner) placeBet(ctx context.Context, w *game.Wager) error {
	settler, err := r.settlerFor(w.Mode)
	if err != nil {
		return err
	}
	if err := r.table.CanQueue(w.AccountID); err != nil {
		return err
	}
	if _, err := settler.Hold(ctx, w); err != nil {
		return err
	}
	if err := r.table.Queue(w); err != nil {
		if _, relErr := settler.Release(ctx, w); relErr != nil {
			log.Error("❌ Failed to release stake of unqueued bet", "wager", w.ID, "err", relErr)
		}
		return err
	}
	log.Info("🎯 Crash bet queued", "account", w.AccountID, "stake", w.Stake, "mode", w.Mode, "round", r.table.RoundID())
	return nil
}

// cancelBet withdraws a queued bet and releases its stake. If the release
// is refused the bet goes back in the queue.
func (r *CrashRunner) cancelBet(ctx context.Context, accountID string) (*game.Wager, error) {
	w, err := r.table.Cancel(accountID)
	if err != nil {
		return nil, err
	}
	settler, err := r.settlerFor(w.Mode)
	if err == nil {
		_, err = settler.Release(ctx, w)
	}
	if err != nil {
		if qErr := r.table.Queue(w); qErr != nil {
			log.Error("❌ Failed to requeue bet", "wager", w.ID, "err", qErr)
		}
		return nil, err
	}
	log.Info("↩️  Crash bet cancelled", "account", accountID, "wager", w.ID)
	return w, nil
}

// cashOut stops the bet at the current multiplier. A refused settlement
// reverts the cash-out so the bet keeps riding and settles at the crash.
func (r *CrashRunner) cashOut(ctx context.Context, accountID string) (*settlement.Receipt, error) {
	bet, err := r.table.CashOut(accountID)
	if err != nil {
		return nil, err
	}

	label := fmt.Sprintf("Cashed out at %.2fx", bet.CashOutAt)
	receipt, err := r.settle(ctx, bet.Wager, game.NewOutcome(bet.Wager.Stake, true, bet.CashOutAt, label))
	if err != nil {
		r.table.RevertCashOut(accountID)
		return nil, err
	}

	if r.mirror != nil {
		if err := r.mirror.StoreCrashBet(ctx, r.table.RoundID(), bet); err != nil {
			log.Warn("⚠️  Failed to mirror crash cash-out", "round", r.table.RoundID(), "err", err)
		}
	}
	r.hub.Broadcast(ChannelCrash, Message{Type: "cashout", Data: map[string]any{
		"account":    accountID,
		"multiplier": bet.CashOutAt,
	}})
	r.broadcastBettors()
	return receipt, nil
}

func (r *CrashRunner) settle(ctx context.Context, w *game.Wager, o game.Outcome) (*settlement.Receipt, error) {
	settler, err := r.settlerFor(w.Mode)
	if err != nil {
		return nil, err
	}
	return settler.Settle(ctx, w, o)
}

func (r *CrashRunner) settlerFor(mode game.Mode) (Settler, error) {
	s, ok := r.settlers[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", game.ErrInvalidMode, mode)
	}
	return s, nil
}

func (r *CrashRunner) send(ctx context.Context, cmd command) commandResult {
	cmd.reply = make(chan commandResult, 1)
	select {
	case r.cmds <- cmd:
	case <-ctx.Done():
		return commandResult{err: ctx.Err()}
	}
	select {
	case res := <-cmd.reply:
		return res
	case <-ctx.Done():
		return commandResult{err: ctx.Err()}
	}
}

// PlaceBet queues w for the next take-off.
func (r *CrashRunner) PlaceBet(ctx context.Context, w *game.Wager) error {
	return r.send(ctx, command{kind: cmdPlaceBet, wager: w}).err
}

// CancelBet withdraws the account's queued wager.
func (r *CrashRunner) CancelBet(ctx context.Context, accountID string) (*game.Wager, error) {
	res := r.send(ctx, command{kind: cmdCancelBet, accountID: accountID})
	return res.wager, res.err
}

// CashOut stops the account's bet at the current multiplier and settles it.
func (r *CrashRunner) CashOut(ctx context.Context, accountID string) (*settlement.Receipt, error) {
	res := r.send(ctx, command{kind: cmdCashOut, accountID: accountID})
	return res.receipt, res.err
}

func (r *CrashRunner) Snapshot() state.CrashSnapshot {
	return r.table.Snapshot()
}

func (r *CrashRunner) RecentRounds(ctx context.Context, limit int) ([]state.CrashRoundSummary, error) {
	return r.rounds.RecentRounds(ctx, limit)
}
