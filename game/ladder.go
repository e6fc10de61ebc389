package game

import (
	"fmt"
	"strings"

	"virtualArena/config"
)

// LadderRun is one walk up the step ladder. Position counts cleared steps;
// the run ends on the first failed step, a cash-out, or the final step.
type LadderRun struct {
	Wager    *Wager     `json:"wager"`
	Tier     Tier       `json:"tier"`
	Table    LadderTier `json:"table"`
	Position int        `json:"position"`
	Finished bool       `json:"finished"`
	Result   *Outcome   `json:"result,omitempty"`
}

func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(s))
	switch t {
	case TierEasy, TierMedium, TierHard:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
}

func NewLadderRun(policies *PolicySet, w *Wager) (*LadderRun, error) {
	tier, err := ParseTier(string(w.Params.Tier))
	if err != nil {
		return nil, err
	}
	table, ok := policies.Ladder[tier]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}
	return &LadderRun{Wager: w, Tier: tier, Table: table}, nil
}

// Advance attempts the next step. It returns a non-nil outcome once the run
// is over: a loss on a failed step or the top multiplier after the last one.
func (r *LadderRun) Advance(src Source) (*Outcome, error) {
	if r.Finished {
		return nil, ErrLadderFinished
	}

	step := r.Position + 1
	if src.Float64() >= r.Table.Policy.WinProbability(r.Wager.Mode) {
		o := NewOutcome(r.Wager.Stake, false, 0, fmt.Sprintf("Fell at step %d", step))
		return r.finish(o), nil
	}

	r.Position = step
	if r.Position == config.LadderSteps {
		top := r.Table.Multipliers[config.LadderSteps-1]
		o := NewOutcome(r.Wager.Stake, true, top, fmt.Sprintf("Cleared all %d steps", config.LadderSteps))
		return r.finish(o), nil
	}
	return nil, nil
}

// CashOut ends the run standing on step k and pays table[k-2].
func (r *LadderRun) CashOut() (*Outcome, error) {
	if r.Finished {
		return nil, ErrLadderFinished
	}
	if r.Position < config.LadderMinCashOutStep {
		return nil, ErrLadderTooEarly
	}

	mult := r.Table.Multipliers[r.Position-config.LadderMinCashOutStep]
	o := NewOutcome(r.Wager.Stake, true, mult, fmt.Sprintf("Cashed out at step %d", r.Position))
	return r.finish(o), nil
}

// CashOutValue is the multiplier a cash-out would pay right now, or zero.
func (r *LadderRun) CashOutValue() float64 {
	if r.Finished || r.Position < config.LadderMinCashOutStep {
		return 0
	}
	return r.Table.Multipliers[r.Position-config.LadderMinCashOutStep]
}

func (r *LadderRun) finish(o Outcome) *Outcome {
	r.Finished = true
	r.Result = &o
	return &o
}
