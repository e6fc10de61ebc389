package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiplierAt(t *testing.T) {
	c := DefaultCrashCurve()
	assert.Equal(t, 1.0, c.MultiplierAt(0))
	assert.InDelta(t, 1.005, c.MultiplierAt(1), 1e-12)
	assert.InDelta(t, 2.0, c.MultiplierAt(200), 1e-12)

	prev := c.MultiplierAt(0)
	for tick := 1; tick < 3000; tick++ {
		m := c.MultiplierAt(tick)
		require.Greater(t, m, prev)
		prev = m
	}
}

func TestTicksToReach(t *testing.T) {
	c := DefaultCrashCurve()
	assert.Equal(t, 0, c.TicksToReach(1.0))
	assert.Equal(t, 100, c.TicksToReach(1.5))

	for _, target := range []float64{1.05, 1.2345, 2.5, 7.77, 11.04} {
		n := c.TicksToReach(target)
		assert.GreaterOrEqual(t, c.MultiplierAt(n), target)
		assert.Less(t, c.MultiplierAt(n-1), target)
	}
}

func TestDrawCrashPointForced(t *testing.T) {
	c := DefaultCrashCurve()

	assert.Equal(t, 1.0, c.DrawCrashPoint(&scripted{floats: []float64{0.05}}))
	assert.InDelta(t, 1.05, c.DrawCrashPoint(&scripted{floats: []float64{0.5, 0.0}}), 1e-12)
	assert.InDelta(t, 6.05, c.DrawCrashPoint(&scripted{floats: []float64{0.5, 0.5}}), 1e-12)
}

func TestDrawCrashPointDistribution(t *testing.T) {
	c := DefaultCrashCurve()
	src := NewSeededRNG("crash-distribution")

	const n = 20000
	instant := 0
	for i := 0; i < n; i++ {
		p := c.DrawCrashPoint(src)
		if p == 1.0 {
			instant++
			continue
		}
		require.GreaterOrEqual(t, p, 1.05)
		require.Less(t, p, 11.05)
	}
	assert.InDelta(t, 0.10, float64(instant)/n, 0.01)
}

func TestGenerateRosterShape(t *testing.T) {
	for seed := 0; seed < 50; seed++ {
		roster := GenerateRoster(NewSeededRNG(fmt.Sprintf("roster-%d", seed)))
		require.GreaterOrEqual(t, len(roster), 10)
		require.LessOrEqual(t, len(roster), 19)

		for _, p := range roster {
			assert.GreaterOrEqual(t, p.Bet, 50.0)
			assert.LessOrEqual(t, p.Bet, 1049.0)
			if p.Target != 999.0 {
				assert.GreaterOrEqual(t, p.Target, 1.1)
				assert.Less(t, p.Target, 4.1)
			}
			assert.False(t, p.CashedOut())
		}
	}
}

func TestGenerateRosterIsDeterministic(t *testing.T) {
	a := GenerateRoster(NewSeededRNG("same-seed"))
	b := GenerateRoster(NewSeededRNG("same-seed"))
	assert.Equal(t, a, b)
}

func TestVerifyCrashPointMatchesRoundDraw(t *testing.T) {
	c := DefaultCrashCurve()
	src := RoundSource("seed-abc", "round-1")
	GenerateRoster(src)
	want := c.DrawCrashPoint(src)

	assert.Equal(t, want, VerifyCrashPoint(c, "seed-abc", "round-1"))
}
