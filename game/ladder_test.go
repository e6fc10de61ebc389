package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRun(t *testing.T, tier Tier, mode Mode) *LadderRun {
	t.Helper()
	run, err := NewLadderRun(DefaultPolicies(), wager(t, GameLadder, 100, Params{Tier: tier}, mode))
	require.NoError(t, err)
	return run
}

func TestLadderCashOutAfterThreeSteps(t *testing.T) {
	run := newRun(t, TierEasy, ModePractice)
	src := &scripted{floats: []float64{0.1, 0.1, 0.1}}

	for i := 0; i < 3; i++ {
		o, err := run.Advance(src)
		require.NoError(t, err)
		require.Nil(t, o)
	}
	assert.Equal(t, 3, run.Position)
	assert.InDelta(t, 4.2, run.CashOutValue(), 1e-9)

	o, err := run.CashOut()
	require.NoError(t, err)
	assert.True(t, o.IsWin)
	assert.InDelta(t, 4.2, o.Multiplier, 1e-9)
	assert.InDelta(t, 420.0, o.Payout, 1e-9)
	assert.True(t, run.Finished)
}

func TestLadderCashOutTooEarly(t *testing.T) {
	run := newRun(t, TierMedium, ModeReal)

	_, err := run.CashOut()
	assert.ErrorIs(t, err, ErrLadderTooEarly)

	_, err = run.Advance(&scripted{floats: []float64{0.0}})
	require.NoError(t, err)
	_, err = run.CashOut()
	assert.ErrorIs(t, err, ErrLadderTooEarly)

	_, err = run.Advance(&scripted{floats: []float64{0.0}})
	require.NoError(t, err)
	o, err := run.CashOut()
	require.NoError(t, err)
	assert.InDelta(t, 2.5, o.Multiplier, 1e-9)
}

func TestLadderCompletingAllStepsPaysTop(t *testing.T) {
	run := newRun(t, TierHard, ModePractice)
	src := &scripted{floats: []float64{0, 0, 0, 0, 0}}

	var o *Outcome
	var err error
	for i := 0; i < 5; i++ {
		o, err = run.Advance(src)
		require.NoError(t, err)
	}
	require.NotNil(t, o)
	assert.True(t, o.IsWin)
	assert.InDelta(t, 54.0, o.Multiplier, 1e-9)
	assert.InDelta(t, 5400.0, o.Payout, 1e-9)

	_, err = run.Advance(src)
	assert.ErrorIs(t, err, ErrLadderFinished)
	_, err = run.CashOut()
	assert.ErrorIs(t, err, ErrLadderFinished)
}

func TestLadderFailedStepPaysNothing(t *testing.T) {
	run := newRun(t, TierEasy, ModeReal)
	src := &scripted{floats: []float64{0.1, 0.1, 0.99}}

	_, _ = run.Advance(src)
	_, _ = run.Advance(src)
	o, err := run.Advance(src)
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.False(t, o.IsWin)
	assert.Zero(t, o.Payout)
	assert.Equal(t, 2, run.Position)
}

func TestLadderRealModeScalesProbability(t *testing.T) {
	policies := DefaultPolicies()

	assert.InDelta(t, 0.85, policies.Ladder[TierEasy].Policy.WinProbability(ModePractice), 1e-9)
	assert.InDelta(t, 0.85*0.75, policies.Ladder[TierEasy].Policy.WinProbability(ModeReal), 1e-9)
	assert.InDelta(t, 0.72*0.75, policies.Ladder[TierMedium].Policy.WinProbability(ModeReal), 1e-9)
	assert.InDelta(t, 0.58*0.75, policies.Ladder[TierHard].Policy.WinProbability(ModeReal), 1e-9)

	// Draw just under the practice probability: survives in practice, falls in real.
	practice := newRun(t, TierEasy, ModePractice)
	o, err := practice.Advance(&scripted{floats: []float64{0.80}})
	require.NoError(t, err)
	assert.Nil(t, o)

	realRun := newRun(t, TierEasy, ModeReal)
	o, err = realRun.Advance(&scripted{floats: []float64{0.80}})
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.False(t, o.IsWin)
}

func TestLadderRejectsUnknownTier(t *testing.T) {
	_, err := NewLadderRun(DefaultPolicies(), wager(t, GameLadder, 10, Params{Tier: "INSANE"}, ModeReal))
	assert.ErrorIs(t, err, ErrInvalidTier)
}

func TestLadderTablesIncrease(t *testing.T) {
	for tier, table := range DefaultPolicies().Ladder {
		for i := 1; i < len(table.Multipliers); i++ {
			assert.Greater(t, table.Multipliers[i], table.Multipliers[i-1], "tier %s", tier)
		}
	}
}
