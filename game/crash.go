package game

import (
	"math"

	"virtualArena/config"
)

// CrashCurve describes how a crash round climbs and where it may end.
type CrashCurve struct {
	Increment          float64
	InstantProbability float64
	InstantPoint       float64
	PointBase          float64
	PointSpan          float64
}

func DefaultCrashCurve() CrashCurve {
	return CrashCurve{
		Increment:          config.CrashTickIncrement,
		InstantProbability: config.CrashInstantProbability,
		InstantPoint:       config.CrashInstantPoint,
		PointBase:          config.CrashPointBase,
		PointSpan:          config.CrashPointSpan,
	}
}

func CrashCurveFromConfig(c *config.CrashSettings) CrashCurve {
	return CrashCurve{
		Increment:          c.TickIncrement,
		InstantProbability: c.InstantProbability,
		InstantPoint:       config.CrashInstantPoint,
		PointBase:          c.PointBase,
		PointSpan:          c.PointSpan,
	}
}

// DrawCrashPoint commits the round's crash point: an instant crash at 1.00
// with InstantProbability, otherwise uniform in [PointBase, PointBase+PointSpan).
func (c CrashCurve) DrawCrashPoint(src Source) float64 {
	if src.Float64() < c.InstantProbability {
		return c.InstantPoint
	}
	return src.Float64()*c.PointSpan + c.PointBase
}

// MultiplierAt derives the multiplier from the tick count so repeated
// additions never drift.
func (c CrashCurve) MultiplierAt(tick int) float64 {
	return config.CrashStartMultiplier + float64(tick)*c.Increment
}

// TicksToReach is the first tick whose multiplier is at or above target.
func (c CrashCurve) TicksToReach(target float64) int {
	if target <= config.CrashStartMultiplier {
		return 0
	}
	n := int(math.Ceil((target - config.CrashStartMultiplier) / c.Increment))
	for c.MultiplierAt(n) < target {
		n++
	}
	for n > 0 && c.MultiplierAt(n-1) >= target {
		n--
	}
	return n
}
