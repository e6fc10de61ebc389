package game

import (
	"fmt"
	"strings"

	"virtualArena/config"
)

// Resolve settles a one-shot wager (dice, color, flip, lucky). Ladder runs
// and crash bets are multi-step and go through LadderRun and the crash table.
func Resolve(src Source, policies *PolicySet, w *Wager) (Outcome, error) {
	if w.Stake <= 0 {
		return Outcome{}, ErrInvalidStake
	}
	switch w.Game {
	case GameDice:
		return PlayDice(src, policies.Dice, w)
	case GameColor:
		return PlayColor(src, policies.Color, w)
	case GameFlip:
		return PlayFlip(src, policies.Flip, w)
	case GameLucky:
		return PlayLucky(src, w)
	}
	return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownGame, w.Game)
}

/* =========================
   DICE
========================= */

func ValidateThreshold(threshold int) error {
	if threshold < config.DiceMinThreshold || threshold > config.DiceMaxThreshold {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidThreshold, threshold,
			config.DiceMinThreshold, config.DiceMaxThreshold)
	}
	return nil
}

// DiceMultiplier pays 98/(100-T) for a roll over T.
func DiceMultiplier(threshold int) float64 {
	return config.DiceHouseNumerator / float64(100-threshold)
}

// PlayDice decides the result first and then draws a roll consistent with
// it: winners land in (T, 100], losers in [1, T].
func PlayDice(src Source, policy BiasPolicy, w *Wager) (Outcome, error) {
	t := w.Params.Threshold
	if err := ValidateThreshold(t); err != nil {
		return Outcome{}, err
	}

	mult := DiceMultiplier(t)
	win := src.Float64() < policy.WinProbability(w.Mode)

	var roll int
	if win {
		roll = src.Intn(100-t) + t + 1
	} else {
		roll = src.Intn(t) + 1
	}

	o := NewOutcome(w.Stake, win, mult, fmt.Sprintf("Rolled %d (over %d)", roll, t))
	o.Roll = roll
	return o, nil
}

/* =========================
   COLOR DUEL
========================= */

func PlayColor(src Source, policy BiasPolicy, w *Wager) (Outcome, error) {
	pick := Color(strings.ToUpper(string(w.Params.Color)))
	if pick != ColorGreen && pick != ColorYellow {
		return Outcome{}, ErrInvalidColor
	}

	win := src.Float64() < policy.WinProbability(w.Mode)
	result := pick
	if !win {
		result = pick.Other()
	}

	o := NewOutcome(w.Stake, win, config.ColorMultiplier, fmt.Sprintf("Color duel: %s", result))
	o.Result = string(result)
	return o, nil
}

/* =========================
   COIN FLIP
========================= */

func PlayFlip(src Source, policy BiasPolicy, w *Wager) (Outcome, error) {
	pick := Side(strings.ToUpper(string(w.Params.Side)))
	if pick != SideHeads && pick != SideTails {
		return Outcome{}, ErrInvalidSide
	}

	win := src.Float64() < policy.WinProbability(w.Mode)
	result := pick
	if !win {
		result = pick.Other()
	}

	o := NewOutcome(w.Stake, win, config.FlipMultiplier, fmt.Sprintf("Coin landed %s", result))
	o.Result = string(result)
	return o, nil
}

/* =========================
   LUCKY MULTIPLIER
========================= */

// PlayLucky draws once and pays the first tier the draw clears.
func PlayLucky(src Source, w *Wager) (Outcome, error) {
	u := src.Float64()

	var mult float64
	switch {
	case u > config.LuckyJackpotCutoff:
		mult = config.LuckyJackpotMult
	case u > config.LuckyHighCutoff:
		mult = config.LuckyHighMult
	case u > config.LuckyLowCutoff:
		mult = config.LuckyLowMult
	}

	if mult == 0 {
		return NewOutcome(w.Stake, false, 0, "No multiplier"), nil
	}
	return NewOutcome(w.Stake, true, mult, fmt.Sprintf("Lucky %.1fx", mult)), nil
}
