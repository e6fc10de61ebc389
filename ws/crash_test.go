package ws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualArena/arena"
	"virtualArena/config"
	"virtualArena/crypto"
	"virtualArena/db"
	"virtualArena/game"
	"virtualArena/settlement"
	"virtualArena/state"
)

type recordingHub struct {
	mu   sync.Mutex
	msgs []Message
}

func (h *recordingHub) Broadcast(channel string, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
}

func (h *recordingHub) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.msgs))
	for i, m := range h.msgs {
		out[i] = m.Type
	}
	return out
}

type crashFixture struct {
	runner   *CrashRunner
	hub      *recordingHub
	ledger   *db.RepoLedger
	history  *db.RepoHistory
	recorder *settlement.Recorder
	rounds   *db.MemoryRounds
}

func newCrashFixture(t *testing.T) *crashFixture {
	t.Helper()
	ctx := context.Background()

	repo := db.NewMemoryRepository()
	ledger := db.NewRepoLedger(repo)
	require.NoError(t, ledger.Open(ctx, &settlement.Account{ID: "alice", Balance: decimal.NewFromInt(1000)}))
	history := db.NewRepoHistory(repo)
	recorder := settlement.NewRecorder(ledger, history, nil)

	hub := &recordingHub{}
	rounds := db.NewMemoryRounds()
	runner := NewCrashRunner(quartz.NewMock(t), config.DefaultArenaConfig().Crash,
		map[game.Mode]Settler{game.ModeReal: recorder}, rounds, hub)
	runner.newSeed = func() (string, string, error) {
		return "fixed-seed", crypto.HashSeed("fixed-seed"), nil
	}

	return &crashFixture{runner: runner, hub: hub, ledger: ledger, history: history, recorder: recorder, rounds: rounds}
}

func (f *crashFixture) bet(t *testing.T, stake float64) *game.Wager {
	t.Helper()
	w, err := game.NewWager("alice", game.GameCrash, stake, game.Params{}, game.ModeReal)
	require.NoError(t, err)
	res := f.runner.handle(context.Background(), command{kind: cmdPlaceBet, wager: w})
	require.NoError(t, res.err)
	return w
}

func (f *crashFixture) launch(t *testing.T, crashPoint float64) {
	t.Helper()
	f.runner.nextCrashPoint = crashPoint
	for i := 0; i < config.CrashCountdownSeconds; i++ {
		_, err := f.runner.step(context.Background())
		require.NoError(t, err)
	}
}

func (f *crashFixture) flyTo(t *testing.T, target float64) {
	t.Helper()
	for f.runner.Snapshot().Multiplier < target-1e-9 {
		_, err := f.runner.step(context.Background())
		require.NoError(t, err)
		require.Equal(t, state.CrashPhaseFlying, f.runner.table.Phase())
	}
}

func (f *crashFixture) flyToCrash(t *testing.T) {
	t.Helper()
	for i := 0; i < 10000 && f.runner.table.Phase() == state.CrashPhaseFlying; i++ {
		_, err := f.runner.step(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, state.CrashPhaseCrashed, f.runner.table.Phase())
}

func TestCrashCashOutPaysObservedMultiplier(t *testing.T) {
	ctx := context.Background()
	f := newCrashFixture(t)
	require.NoError(t, f.runner.beginRound(ctx))

	f.bet(t, 100)
	f.launch(t, 2.5)
	require.Equal(t, state.CrashPhaseFlying, f.runner.table.Phase())

	f.flyTo(t, 2.10)
	observed := f.runner.Snapshot().Multiplier

	res := f.runner.handle(ctx, command{kind: cmdCashOut, accountID: "alice"})
	require.NoError(t, res.err)
	require.NotNil(t, res.receipt)
	assert.True(t, res.receipt.Record.IsWin)
	assert.InDelta(t, 100*observed, res.receipt.Record.Payout.InexactFloat64(), 0.01)
	assert.InDelta(t, 210, res.receipt.Record.Payout.InexactFloat64(), 0.01)

	f.flyToCrash(t)

	// Already settled as a win; the crash must not touch the balance again.
	bal, err := f.ledger.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.InDelta(t, 1110, bal.InexactFloat64(), 0.01)

	recent, err := f.rounds.RecentRounds(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 2.5, recent[0].CrashPoint)
	assert.Equal(t, "fixed-seed", recent[0].ServerSeed)
	assert.Equal(t, 1, recent[0].CashOuts)

	assert.Contains(t, f.hub.types(), "take_off")
	assert.Contains(t, f.hub.types(), "cashout")
	assert.Contains(t, f.hub.types(), "crashed")
}

func TestCrashUncashedBetLoses(t *testing.T) {
	ctx := context.Background()
	f := newCrashFixture(t)
	require.NoError(t, f.runner.beginRound(ctx))

	f.bet(t, 40)
	f.launch(t, 1.5)
	f.flyToCrash(t)

	bal, err := f.ledger.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(960)))

	res := f.runner.handle(ctx, command{kind: cmdCashOut, accountID: "alice"})
	assert.ErrorIs(t, res.err, state.ErrNotFlying)
}

func TestCrashInstantCrashSettlesOnTakeOff(t *testing.T) {
	ctx := context.Background()
	f := newCrashFixture(t)
	require.NoError(t, f.runner.beginRound(ctx))

	f.bet(t, 10)
	f.launch(t, config.CrashInstantPoint)

	require.Equal(t, state.CrashPhaseCrashed, f.runner.table.Phase())
	bal, err := f.ledger.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(990)))
}

func TestCrashNextRoundOpensAfterCrash(t *testing.T) {
	ctx := context.Background()
	f := newCrashFixture(t)
	require.NoError(t, f.runner.beginRound(ctx))
	first := f.runner.table.RoundID()

	f.launch(t, 1.2)
	f.flyToCrash(t)

	next, err := f.runner.step(ctx)
	require.NoError(t, err)
	assert.Equal(t, config.CrashCountdownStep, next)
	assert.Equal(t, state.CrashPhaseWaiting, f.runner.table.Phase())
	assert.NotEqual(t, first, f.runner.table.RoundID())
}

func TestCrashBetRefusedWhenUnaffordable(t *testing.T) {
	ctx := context.Background()
	f := newCrashFixture(t)
	require.NoError(t, f.runner.beginRound(ctx))

	w, err := game.NewWager("alice", game.GameCrash, 5000, game.Params{}, game.ModeReal)
	require.NoError(t, err)
	res := f.runner.handle(ctx, command{kind: cmdPlaceBet, wager: w})
	assert.ErrorIs(t, res.err, settlement.ErrInsufficientBalance)

	practice, err := game.NewWager("alice", game.GameCrash, 5, game.Params{}, game.ModePractice)
	require.NoError(t, err)
	res = f.runner.handle(ctx, command{kind: cmdPlaceBet, wager: practice})
	assert.ErrorIs(t, res.err, game.ErrInvalidMode)
}

func TestCrashPointIsCommittedBySeed(t *testing.T) {
	ctx := context.Background()
	f := newCrashFixture(t)
	require.NoError(t, f.runner.beginRound(ctx))

	want := game.VerifyCrashPoint(f.runner.curve, "fixed-seed", f.runner.table.RoundID())
	assert.Equal(t, want, f.runner.nextCrashPoint)

	snap := f.runner.Snapshot()
	assert.Equal(t, crypto.HashSeed("fixed-seed"), snap.SeedHash)
	assert.Empty(t, snap.ServerSeed)
	assert.Zero(t, snap.CrashPoint)
}

func TestCrashRunnerServesCommands(t *testing.T) {
	f := newCrashFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.runner.Run(ctx) }()

	w, err := game.NewWager("alice", game.GameCrash, 25, game.Params{}, game.ModeReal)
	require.NoError(t, err)

	callCtx, callCancel := context.WithTimeout(ctx, 5*time.Second)
	defer callCancel()

	require.NoError(t, f.runner.PlaceBet(callCtx, w))
	assert.ErrorIs(t, f.runner.PlaceBet(callCtx, w), state.ErrBetAlreadyQueued)

	cancelled, err := f.runner.CancelBet(callCtx, "alice")
	require.NoError(t, err)
	assert.Equal(t, w.ID, cancelled.ID)

	_, err = f.runner.CashOut(callCtx, "alice")
	assert.ErrorIs(t, err, state.ErrNotFlying)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("crash loop did not stop")
	}
}

func TestCrashBetHoldsStakeUntilCancelled(t *testing.T) {
	ctx := context.Background()
	f := newCrashFixture(t)
	require.NoError(t, f.runner.beginRound(ctx))

	w := f.bet(t, 100)
	bal, err := f.ledger.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(900)))

	again := f.runner.handle(ctx, command{kind: cmdPlaceBet, wager: w})
	assert.ErrorIs(t, again.err, state.ErrBetAlreadyQueued)

	res := f.runner.handle(ctx, command{kind: cmdCancelBet, accountID: "alice"})
	require.NoError(t, res.err)
	assert.Equal(t, w.ID, res.wager.ID)

	bal, err = f.ledger.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(1000)))

	recs, err := f.history.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

// loseEvery is a Source that fails every draw.
type loseEvery struct{}

func (loseEvery) Float64() float64 { return 0.999 }
func (loseEvery) Intn(n int) int   { return 0 }

func TestOverlappingWagersShareOneBalance(t *testing.T) {
	ctx := context.Background()
	f := newCrashFixture(t)
	require.NoError(t, f.runner.beginRound(ctx))
	svc := arena.NewService(game.DefaultPolicies(), loseEvery{}, nil, f.recorder)

	f.bet(t, 400)

	run, err := game.NewWager("alice", game.GameLadder, 400, game.Params{Tier: game.TierEasy}, game.ModeReal)
	require.NoError(t, err)
	_, err = svc.StartLadder(ctx, run)
	require.NoError(t, err)

	color, err := game.NewWager("alice", game.GameColor, 200, game.Params{Color: game.ColorGreen}, game.ModeReal)
	require.NoError(t, err)
	played, err := svc.Play(ctx, color)
	require.NoError(t, err)
	require.False(t, played.Outcome.IsWin)

	broke, err := game.NewWager("alice", game.GameColor, 1, game.Params{Color: game.ColorGreen}, game.ModeReal)
	require.NoError(t, err)
	_, err = svc.Play(ctx, broke)
	assert.ErrorIs(t, err, settlement.ErrInsufficientBalance)

	late, err := game.NewWager("bob", game.GameCrash, 1, game.Params{}, game.ModeReal)
	require.NoError(t, err)
	res := f.runner.handle(ctx, command{kind: cmdPlaceBet, wager: late})
	assert.ErrorIs(t, res.err, settlement.ErrAccountNotFound)

	step, err := svc.StepLadder(ctx, game.ModeReal, "alice")
	require.NoError(t, err)
	require.NotNil(t, step.Receipt)
	assert.False(t, step.Outcome.IsWin)

	f.launch(t, 1.3)
	f.flyToCrash(t)

	bal, err := f.ledger.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	recs, err := f.history.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	staked := decimal.Zero
	for _, r := range recs {
		assert.False(t, r.IsWin)
		assert.False(t, r.BalanceAfter.IsNegative())
		staked = staked.Add(r.Stake)
	}
	assert.True(t, staked.Equal(decimal.NewFromInt(1000)))
}

// flakySettler refuses the first failures settlements.
type flakySettler struct {
	Settler
	failures int
}

var errStoreDown = errors.New("store unavailable")

func (s *flakySettler) Settle(ctx context.Context, w *game.Wager, o game.Outcome) (*settlement.Receipt, error) {
	if s.failures > 0 {
		s.failures--
		return nil, errStoreDown
	}
	return s.Settler.Settle(ctx, w, o)
}

func TestCrashRefusedCashOutKeepsBetRiding(t *testing.T) {
	ctx := context.Background()
	f := newCrashFixture(t)
	f.runner.settlers[game.ModeReal] = &flakySettler{Settler: f.recorder, failures: 1}
	require.NoError(t, f.runner.beginRound(ctx))

	f.bet(t, 100)
	f.launch(t, 2.5)
	f.flyTo(t, 1.5)

	res := f.runner.handle(ctx, command{kind: cmdCashOut, accountID: "alice"})
	require.ErrorIs(t, res.err, errStoreDown)
	for _, b := range f.runner.Snapshot().Bettors {
		if b.Name == "alice" {
			assert.Zero(t, b.CashOutAt)
		}
	}

	observed := f.runner.Snapshot().Multiplier
	res = f.runner.handle(ctx, command{kind: cmdCashOut, accountID: "alice"})
	require.NoError(t, res.err)
	assert.InDelta(t, 100*observed, res.receipt.Record.Payout.InexactFloat64(), 0.01)

	f.flyToCrash(t)
	recent, err := f.rounds.RecentRounds(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 1, recent[0].CashOuts)
}

func TestCrashRefusedCashOutSettlesAsLoss(t *testing.T) {
	ctx := context.Background()
	f := newCrashFixture(t)
	f.runner.settlers[game.ModeReal] = &flakySettler{Settler: f.recorder, failures: 1}
	require.NoError(t, f.runner.beginRound(ctx))

	f.bet(t, 100)
	f.launch(t, 1.5)
	f.flyTo(t, 1.2)

	res := f.runner.handle(ctx, command{kind: cmdCashOut, accountID: "alice"})
	require.ErrorIs(t, res.err, errStoreDown)
	f.flyToCrash(t)

	recs, err := f.history.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].IsWin)

	bal, err := f.ledger.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(900)))

	recent, err := f.rounds.RecentRounds(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Zero(t, recent[0].CashOuts)
}

type recordingMirror struct {
	stored []state.CrashBet
}

func (m *recordingMirror) StoreCrashBet(_ context.Context, _ string, bet *state.CrashBet) error {
	m.stored = append(m.stored, *bet)
	return nil
}

func (m *recordingMirror) CleanupCrashRound(context.Context, string) error { return nil }

func TestCrashCashOutIsMirrored(t *testing.T) {
	ctx := context.Background()
	f := newCrashFixture(t)
	mirror := &recordingMirror{}
	f.runner.WithMirror(mirror)
	require.NoError(t, f.runner.beginRound(ctx))

	f.bet(t, 50)
	f.launch(t, 3.0)
	require.Len(t, mirror.stored, 1)
	assert.Zero(t, mirror.stored[0].CashOutAt)

	f.flyTo(t, 1.8)
	res := f.runner.handle(ctx, command{kind: cmdCashOut, accountID: "alice"})
	require.NoError(t, res.err)

	require.Len(t, mirror.stored, 2)
	assert.InDelta(t, f.runner.Snapshot().Multiplier, mirror.stored[1].CashOutAt, 1e-9)
}
