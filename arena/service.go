package arena

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"virtualArena/game"
	"virtualArena/settlement"
	"virtualArena/state"
)

// Result is what a settled play returns to the caller.
type Result struct {
	Wager   *game.Wager         `json:"wager"`
	Outcome game.Outcome        `json:"outcome"`
	Receipt *settlement.Receipt `json:"receipt"`
}

// LadderResult reports one ladder action. Outcome and Receipt are set once
// the run is over.
type LadderResult struct {
	Run       *game.LadderRun     `json:"run"`
	CashOutAt float64             `json:"cashOutAt"`
	Outcome   *game.Outcome       `json:"outcome,omitempty"`
	Receipt   *settlement.Receipt `json:"receipt,omitempty"`
}

// Service resolves discrete wagers and settles them against the wallet of
// the wager's mode.
type Service struct {
	policies  *game.PolicySet
	src       game.Source
	recorders map[game.Mode]*settlement.Recorder
	ladders   *state.LadderBoard
}

func NewService(policies *game.PolicySet, src game.Source, practice, realMoney *settlement.Recorder) *Service {
	return &Service{
		policies: policies,
		src:      src,
		recorders: map[game.Mode]*settlement.Recorder{
			game.ModePractice: practice,
			game.ModeReal:     realMoney,
		},
		ladders: state.NewLadderBoard(),
	}
}

// Recorder returns the recorder settling wagers of mode.
func (s *Service) Recorder(mode game.Mode) (*settlement.Recorder, error) {
	rec, ok := s.recorders[mode]
	if !ok || rec == nil {
		return nil, fmt.Errorf("%w: %q", game.ErrInvalidMode, mode)
	}
	return rec, nil
}

// Play resolves a one-shot wager and settles it. Parameters are validated
// and the stake held before anything is drawn.
func (s *Service) Play(ctx context.Context, w *game.Wager) (*Result, error) {
	rec, err := s.Recorder(w.Mode)
	if err != nil {
		return nil, err
	}
	if err := s.validate(w); err != nil {
		return nil, err
	}
	if _, err := rec.Hold(ctx, w); err != nil {
		return nil, err
	}

	o, err := game.Resolve(s.src, s.policies, w)
	if err != nil {
		if _, relErr := rec.Release(ctx, w); relErr != nil {
			log.Error("❌ Failed to release stake", "wager", w.ID, "err", relErr)
		}
		return nil, err
	}

	receipt, err := rec.Settle(ctx, w, o)
	if err != nil {
		return nil, err
	}
	return &Result{Wager: w, Outcome: o, Receipt: receipt}, nil
}

func (s *Service) validate(w *game.Wager) error {
	switch w.Game {
	case game.GameDice:
		return game.ValidateThreshold(w.Params.Threshold)
	case game.GameColor:
		c := game.Color(strings.ToUpper(string(w.Params.Color)))
		if c != game.ColorGreen && c != game.ColorYellow {
			return game.ErrInvalidColor
		}
	case game.GameFlip:
		side := game.Side(strings.ToUpper(string(w.Params.Side)))
		if side != game.SideHeads && side != game.SideTails {
			return game.ErrInvalidSide
		}
	case game.GameLucky:
	default:
		return fmt.Errorf("%w: %q", game.ErrUnknownGame, w.Game)
	}
	return nil
}

// StartLadder opens a ladder run and holds its stake until the run ends.
func (s *Service) StartLadder(ctx context.Context, w *game.Wager) (*LadderResult, error) {
	rec, err := s.Recorder(w.Mode)
	if err != nil {
		return nil, err
	}
	run, err := game.NewLadderRun(s.policies, w)
	if err != nil {
		return nil, err
	}
	if _, err := s.ladders.Get(w.Mode, w.AccountID); err == nil {
		return nil, state.ErrLadderInProgress
	}
	if _, err := rec.Hold(ctx, w); err != nil {
		return nil, err
	}
	if err := s.ladders.Start(run); err != nil {
		if _, relErr := rec.Release(ctx, w); relErr != nil {
			log.Error("❌ Failed to release stake", "wager", w.ID, "err", relErr)
		}
		return nil, err
	}

	log.Info("🪜 Ladder run started", "account", w.AccountID, "tier", run.Tier, "mode", w.Mode, "stake", w.Stake)
	cp := *run
	return &LadderResult{Run: &cp}, nil
}

// StepLadder attempts the next step of the account's run.
func (s *Service) StepLadder(ctx context.Context, mode game.Mode, accountID string) (*LadderResult, error) {
	return s.withRun(ctx, mode, accountID, func(run *game.LadderRun) (*game.Outcome, error) {
		return run.Advance(s.src)
	})
}

// CashOutLadder ends the account's run at its current step.
func (s *Service) CashOutLadder(ctx context.Context, mode game.Mode, accountID string) (*LadderResult, error) {
	return s.withRun(ctx, mode, accountID, func(run *game.LadderRun) (*game.Outcome, error) {
		return run.CashOut()
	})
}

// withRun applies act to the open run and settles the run once it ends. A
// run whose settlement was refused stays on the board finished; the next
// step or cash-out request retries that settlement instead of acting.
func (s *Service) withRun(ctx context.Context, mode game.Mode, accountID string, act func(*game.LadderRun) (*game.Outcome, error)) (*LadderResult, error) {
	rec, err := s.Recorder(mode)
	if err != nil {
		return nil, err
	}

	var res LadderResult
	err = s.ladders.With(mode, accountID, func(run *game.LadderRun) error {
		o := run.Result
		if !run.Finished {
			var err error
			if o, err = act(run); err != nil {
				return err
			}
		}

		cp := *run
		res.Run = &cp
		res.CashOutAt = run.CashOutValue()
		if o == nil {
			return nil
		}

		res.Outcome = o
		receipt, err := rec.Settle(ctx, run.Wager, *o)
		if err != nil {
			return err
		}
		res.Receipt = receipt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Ladder returns a copy of the account's open run.
func (s *Service) Ladder(mode game.Mode, accountID string) (*LadderResult, error) {
	run, err := s.ladders.Get(mode, accountID)
	if err != nil {
		return nil, err
	}
	return &LadderResult{Run: run, CashOutAt: run.CashOutValue()}, nil
}

func (s *Service) Balance(ctx context.Context, mode game.Mode, accountID string) (decimal.Decimal, error) {
	rec, err := s.Recorder(mode)
	if err != nil {
		return decimal.Zero, err
	}
	return rec.Balance(ctx, accountID)
}

func (s *Service) History(ctx context.Context, mode game.Mode, accountID string, limit int) ([]*settlement.HistoryRecord, error) {
	rec, err := s.Recorder(mode)
	if err != nil {
		return nil, err
	}
	return rec.History(ctx, accountID, limit)
}
