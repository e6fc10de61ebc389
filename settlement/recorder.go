package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"virtualArena/config"
	"virtualArena/game"
)

// Recorder applies balance := balance - stake + payout and appends the
// history record in one transaction. A wager ID is accepted once; it is
// only marked after the transaction commits, so a refused settlement leaves
// the wager unconsumed.
//
// Wagers that stay open across several requests (ladder runs, crash bets)
// Hold their stake when accepted. Their settlement then only credits the
// payout, so a loss can never be refused for want of balance.
type Recorder struct {
	ledger  Ledger
	history HistoryStore
	tx      TxRunner
	now     func() time.Time

	mu       sync.Mutex
	settled  *wagerSet
	inflight map[uuid.UUID]struct{}
	held     map[uuid.UUID]decimal.Decimal
}

func NewRecorder(ledger Ledger, history HistoryStore, tx TxRunner) *Recorder {
	if tx == nil {
		tx = NoTx{}
	}
	return &Recorder{
		ledger:   ledger,
		history:  history,
		tx:       tx,
		now:      time.Now,
		settled:  newWagerSet(config.SettledWagerMemory),
		inflight: make(map[uuid.UUID]struct{}),
		held:     make(map[uuid.UUID]decimal.Decimal),
	}
}

func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(config.MoneyPlaces)
}

// CanAfford runs the pre-wager checks: account status, betting limit and
// balance cover for the stake.
func (r *Recorder) CanAfford(ctx context.Context, accountID string, stake float64) error {
	acct, err := r.ledger.Account(ctx, accountID)
	if err != nil {
		return err
	}
	amount := Money(stake)
	if err := checkAccount(acct, amount); err != nil {
		return err
	}
	if acct.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	return nil
}

func checkAccount(acct *Account, stake decimal.Decimal) error {
	if acct.Frozen {
		return ErrAccountFrozen
	}
	if acct.Suspended {
		return ErrAccountSuspended
	}
	if acct.BettingLimit.IsPositive() && stake.GreaterThan(acct.BettingLimit) {
		return fmt.Errorf("%w: %s > %s", ErrBettingLimit, stake.StringFixed(2), acct.BettingLimit.StringFixed(2))
	}
	return nil
}

// Hold runs the pre-wager checks and debits the stake of w. The wager must
// then end in Settle or Release.
func (r *Recorder) Hold(ctx context.Context, w *game.Wager) (decimal.Decimal, error) {
	held, err := r.claim(w.ID)
	if err != nil {
		return decimal.Zero, err
	}
	if held != nil {
		r.release(w.ID, false)
		return decimal.Zero, ErrStakeHeld
	}

	stake := Money(w.Stake)
	var balance decimal.Decimal
	err = r.tx.Do(ctx, func(txCtx context.Context) error {
		acct, err := r.ledger.Account(txCtx, w.AccountID)
		if err != nil {
			return err
		}
		if err := checkAccount(acct, stake); err != nil {
			return err
		}
		balance, err = r.ledger.Adjust(txCtx, w.AccountID, stake.Neg())
		return err
	})

	r.mu.Lock()
	delete(r.inflight, w.ID)
	if err == nil {
		r.held[w.ID] = stake
	}
	r.mu.Unlock()

	if err != nil {
		return decimal.Zero, err
	}
	log.Debug("🔒 Stake held", "wager", w.ID, "account", w.AccountID, "stake", stake.StringFixed(2))
	return balance, nil
}

// Release returns the held stake of a wager that never played, such as a
// cancelled crash bet. The wager is consumed without a history record.
func (r *Recorder) Release(ctx context.Context, w *game.Wager) (decimal.Decimal, error) {
	held, err := r.claim(w.ID)
	if err != nil {
		return decimal.Zero, err
	}
	if held == nil {
		r.release(w.ID, false)
		return decimal.Zero, ErrNoStakeHeld
	}

	var balance decimal.Decimal
	err = r.tx.Do(ctx, func(txCtx context.Context) error {
		balance, err = r.ledger.Adjust(txCtx, w.AccountID, *held)
		return err
	})
	r.release(w.ID, err == nil)
	if err != nil {
		log.Warn("⚠️  Stake release refused", "wager", w.ID, "account", w.AccountID, "err", err)
		return decimal.Zero, err
	}
	log.Debug("🔓 Stake released", "wager", w.ID, "account", w.AccountID, "stake", held.StringFixed(2))
	return balance, nil
}

// Settle records the outcome of w. A wager with a held stake is only
// credited its payout; any other wager is charged stake and credited payout
// in one adjustment.
func (r *Recorder) Settle(ctx context.Context, w *game.Wager, o game.Outcome) (*Receipt, error) {
	held, err := r.claim(w.ID)
	if err != nil {
		return nil, err
	}

	stake := Money(w.Stake)
	if held != nil {
		stake = *held
	}
	payout := decimal.Zero
	if o.IsWin {
		payout = Money(o.Payout)
	}

	var receipt *Receipt
	err = r.tx.Do(ctx, func(txCtx context.Context) error {
		var balance decimal.Decimal
		if held != nil {
			var err error
			if balance, err = r.credit(txCtx, w.AccountID, payout); err != nil {
				return err
			}
		} else {
			acct, err := r.ledger.Account(txCtx, w.AccountID)
			if err != nil {
				return err
			}
			if err := checkAccount(acct, stake); err != nil {
				return err
			}
			if balance, err = r.ledger.Adjust(txCtx, w.AccountID, payout.Sub(stake)); err != nil {
				return err
			}
		}

		rec := &HistoryRecord{
			WagerID:      w.ID,
			AccountID:    w.AccountID,
			Game:         w.Game,
			Mode:         w.Mode,
			Stake:        stake,
			Payout:       payout,
			Multiplier:   o.Multiplier,
			IsWin:        o.IsWin,
			Label:        o.Label,
			BalanceAfter: balance,
			CreatedAt:    r.now(),
		}
		id, err := r.history.Append(txCtx, rec)
		if err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}
		rec.ID = id

		receipt = &Receipt{Record: rec, Balance: balance}
		return nil
	})

	r.release(w.ID, err == nil)
	if err != nil {
		log.Warn("⚠️  Settlement refused", "wager", w.ID, "account", w.AccountID, "err", err)
		return nil, err
	}

	log.Info("💰 Settled wager",
		"wager", w.ID, "account", w.AccountID, "game", w.Game, "mode", w.Mode,
		"win", o.IsWin, "payout", payout.StringFixed(2), "balance", receipt.Balance.StringFixed(2))
	return receipt, nil
}

// credit pays out a held wager. A zero payout leaves the ledger untouched.
func (r *Recorder) credit(ctx context.Context, accountID string, payout decimal.Decimal) (decimal.Decimal, error) {
	if payout.IsZero() {
		return r.ledger.Balance(ctx, accountID)
	}
	return r.ledger.Adjust(ctx, accountID, payout)
}

// claim marks id in flight and returns its held stake, if any.
func (r *Recorder) claim(id uuid.UUID) (*decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.settled.Has(id) {
		return nil, ErrAlreadySettled
	}
	if _, ok := r.inflight[id]; ok {
		return nil, ErrAlreadySettled
	}
	r.inflight[id] = struct{}{}

	if stake, ok := r.held[id]; ok {
		return &stake, nil
	}
	return nil, nil
}

func (r *Recorder) release(id uuid.UUID, settled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.inflight, id)
	if settled {
		delete(r.held, id)
		r.settled.Add(id)
	}
}

func (r *Recorder) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return r.ledger.Balance(ctx, accountID)
}

func (r *Recorder) History(ctx context.Context, accountID string, limit int) ([]*HistoryRecord, error) {
	if limit <= 0 || limit > config.MaxHistoryPage {
		limit = config.MaxHistoryPage
	}
	return r.history.List(ctx, accountID, limit)
}
