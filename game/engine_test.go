package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted replays fixed draws so a test can force a result.
type scripted struct {
	floats []float64
	ints   []int
}

func (s *scripted) Float64() float64 {
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

func (s *scripted) Intn(n int) int {
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func wager(t *testing.T, g GameType, stake float64, p Params, mode Mode) *Wager {
	t.Helper()
	w, err := NewWager("acct-1", g, stake, p, mode)
	require.NoError(t, err)
	return w
}

func TestNewWagerValidation(t *testing.T) {
	_, err := NewWager("", GameDice, 10, Params{}, ModeReal)
	assert.ErrorIs(t, err, ErrMissingAccount)

	_, err = NewWager("a", GameDice, 0, Params{}, ModeReal)
	assert.ErrorIs(t, err, ErrInvalidStake)

	_, err = NewWager("a", GameDice, -5, Params{}, ModeReal)
	assert.ErrorIs(t, err, ErrInvalidStake)

	_, err = NewWager("a", GameDice, 5, Params{}, Mode("casino"))
	assert.ErrorIs(t, err, ErrInvalidMode)

	w, err := NewWager("a", GameDice, 5, Params{Threshold: 50}, ModePractice)
	require.NoError(t, err)
	assert.NotEqual(t, [16]byte{}, [16]byte(w.ID))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("REAL")
	require.NoError(t, err)
	assert.Equal(t, ModeReal, m)

	_, err = ParseMode("demo")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestDiceForcedWinInPracticeMode(t *testing.T) {
	src := &scripted{floats: []float64{0.1}, ints: []int{0}}
	w := wager(t, GameDice, 100, Params{Threshold: 50}, ModePractice)

	o, err := PlayDice(src, DefaultPolicies().Dice, w)
	require.NoError(t, err)

	assert.True(t, o.IsWin)
	assert.InDelta(t, 1.96, o.Multiplier, 1e-9)
	assert.InDelta(t, 196.0, o.Payout, 1e-9)
	assert.Equal(t, 51, o.Roll)
}

func TestDiceForcedLoss(t *testing.T) {
	src := &scripted{floats: []float64{0.95}, ints: []int{49}}
	w := wager(t, GameDice, 100, Params{Threshold: 50}, ModeReal)

	o, err := PlayDice(src, DefaultPolicies().Dice, w)
	require.NoError(t, err)

	assert.False(t, o.IsWin)
	assert.Zero(t, o.Payout)
	assert.Equal(t, 50, o.Roll)
}

func TestDiceRollsAreConsistentWithResult(t *testing.T) {
	src := NewSeededRNG("dice-consistency")
	policies := DefaultPolicies()

	for threshold := 5; threshold <= 95; threshold += 5 {
		for i := 0; i < 200; i++ {
			w := wager(t, GameDice, 10, Params{Threshold: threshold}, ModeReal)
			o, err := PlayDice(src, policies.Dice, w)
			require.NoError(t, err)

			if o.IsWin {
				assert.Greater(t, o.Roll, threshold)
				assert.LessOrEqual(t, o.Roll, 100)
			} else {
				assert.GreaterOrEqual(t, o.Roll, 1)
				assert.LessOrEqual(t, o.Roll, threshold)
				assert.Zero(t, o.Payout)
			}
		}
	}
}

func TestDiceRejectsThresholdOutsideDomain(t *testing.T) {
	for _, threshold := range []int{0, 4, 96, 100} {
		w := wager(t, GameDice, 10, Params{Threshold: threshold}, ModeReal)
		_, err := PlayDice(&scripted{}, DefaultPolicies().Dice, w)
		assert.ErrorIs(t, err, ErrInvalidThreshold, "threshold %d", threshold)
	}
}

func TestDiceMultiplier(t *testing.T) {
	assert.InDelta(t, 98.0/95.0, DiceMultiplier(5), 1e-12)
	assert.InDelta(t, 1.96, DiceMultiplier(50), 1e-12)
	assert.InDelta(t, 19.6, DiceMultiplier(95), 1e-12)
}

func TestModeBiasFrequencies(t *testing.T) {
	const n = 20000
	policies := DefaultPolicies()

	tests := []struct {
		name string
		game GameType
		p    Params
		mode Mode
		want float64
	}{
		{"dice practice", GameDice, Params{Threshold: 50}, ModePractice, 0.70},
		{"dice real", GameDice, Params{Threshold: 50}, ModeReal, 0.30},
		{"color practice", GameColor, Params{Color: ColorGreen}, ModePractice, 0.70},
		{"color real", GameColor, Params{Color: ColorYellow}, ModeReal, 0.30},
		{"flip real", GameFlip, Params{Side: SideHeads}, ModeReal, 0.50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewSeededRNG("bias-" + tt.name)
			wins := 0
			for i := 0; i < n; i++ {
				o, err := Resolve(src, policies, wager(t, tt.game, 1, tt.p, tt.mode))
				require.NoError(t, err)
				if o.IsWin {
					wins++
				}
			}
			assert.InDelta(t, tt.want, float64(wins)/n, 0.02)
		})
	}
}

func TestColorLossShowsOtherColor(t *testing.T) {
	w := wager(t, GameColor, 50, Params{Color: "green"}, ModeReal)

	o, err := PlayColor(&scripted{floats: []float64{0.99}}, DefaultPolicies().Color, w)
	require.NoError(t, err)
	assert.False(t, o.IsWin)
	assert.Equal(t, string(ColorYellow), o.Result)
	assert.Zero(t, o.Payout)

	o, err = PlayColor(&scripted{floats: []float64{0.0}}, DefaultPolicies().Color, w)
	require.NoError(t, err)
	assert.True(t, o.IsWin)
	assert.Equal(t, string(ColorGreen), o.Result)
	assert.InDelta(t, 95.0, o.Payout, 1e-9)
}

func TestColorRejectsUnknownColor(t *testing.T) {
	w := wager(t, GameColor, 50, Params{Color: "RED"}, ModeReal)
	_, err := PlayColor(&scripted{}, DefaultPolicies().Color, w)
	assert.ErrorIs(t, err, ErrInvalidColor)
}

func TestFlipPaysFixedMultiplier(t *testing.T) {
	w := wager(t, GameFlip, 20, Params{Side: SideTails}, ModeReal)
	o, err := PlayFlip(&scripted{floats: []float64{0.2}}, DefaultPolicies().Flip, w)
	require.NoError(t, err)
	assert.True(t, o.IsWin)
	assert.InDelta(t, 39.0, o.Payout, 1e-9)

	_, err = PlayFlip(&scripted{}, DefaultPolicies().Flip, wager(t, GameFlip, 20, Params{Side: "EDGE"}, ModeReal))
	assert.ErrorIs(t, err, ErrInvalidSide)
}

func TestLuckyTiers(t *testing.T) {
	tests := []struct {
		draw float64
		win  bool
		mult float64
	}{
		{0.99, true, 10},
		{0.90, true, 3},
		{0.70, true, 1.5},
		{0.60, false, 0},
		{0.10, false, 0},
	}
	for _, tt := range tests {
		o, err := PlayLucky(&scripted{floats: []float64{tt.draw}}, wager(t, GameLucky, 10, Params{}, ModeReal))
		require.NoError(t, err)
		assert.Equal(t, tt.win, o.IsWin, "draw %v", tt.draw)
		assert.InDelta(t, tt.mult*10, o.Payout, 1e-9, "draw %v", tt.draw)
	}
}

func TestResolveUnknownGame(t *testing.T) {
	_, err := Resolve(&scripted{}, DefaultPolicies(), wager(t, GameLadder, 10, Params{}, ModeReal))
	assert.ErrorIs(t, err, ErrUnknownGame)
}

func TestPayoutIsZeroOnEveryLoss(t *testing.T) {
	src := NewSeededRNG("loss-payout")
	policies := DefaultPolicies()
	games := []struct {
		g GameType
		p Params
	}{
		{GameDice, Params{Threshold: 30}},
		{GameColor, Params{Color: ColorGreen}},
		{GameFlip, Params{Side: SideHeads}},
		{GameLucky, Params{}},
	}
	for _, g := range games {
		for i := 0; i < 500; i++ {
			o, err := Resolve(src, policies, wager(t, g.g, 25, g.p, ModeReal))
			require.NoError(t, err)
			if !o.IsWin {
				assert.Zero(t, o.Payout)
			} else {
				assert.InDelta(t, 25*o.Multiplier, o.Payout, 1e-9)
			}
		}
	}
}
