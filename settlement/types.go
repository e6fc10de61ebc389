package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"virtualArena/game"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountFrozen       = errors.New("account is frozen")
	ErrAccountSuspended    = errors.New("account is suspended")
	ErrBettingLimit        = errors.New("stake exceeds betting limit")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadySettled      = errors.New("wager already settled")
	ErrStakeHeld           = errors.New("stake already held for wager")
	ErrNoStakeHeld         = errors.New("no stake held for wager")
)

// Account is the ledger's view of a wallet.
type Account struct {
	ID           string          `json:"id"`
	Balance      decimal.Decimal `json:"balance"`
	Frozen       bool            `json:"frozen"`
	Suspended    bool            `json:"suspended"`
	BettingLimit decimal.Decimal `json:"bettingLimit"`
}

// HistoryRecord is appended once per settled wager and never modified.
type HistoryRecord struct {
	ID           string          `json:"id"`
	WagerID      uuid.UUID       `json:"wagerId"`
	AccountID    string          `json:"accountId"`
	Game         game.GameType   `json:"game"`
	Mode         game.Mode       `json:"mode"`
	Stake        decimal.Decimal `json:"stake"`
	Payout       decimal.Decimal `json:"payout"`
	Multiplier   float64         `json:"multiplier"`
	IsWin        bool            `json:"isWin"`
	Label        string          `json:"label"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Ledger holds balances. Adjust must refuse frozen accounts and any delta
// that would take the balance below zero.
type Ledger interface {
	Account(ctx context.Context, accountID string) (*Account, error)
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)
	Adjust(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error)
}

// HistoryStore is append-only.
type HistoryStore interface {
	Append(ctx context.Context, rec *HistoryRecord) (string, error)
	List(ctx context.Context, accountID string, limit int) ([]*HistoryRecord, error)
}

// TxRunner runs fn atomically. trm's manager.Manager satisfies it.
type TxRunner interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoTx runs fn directly, for stores that serialize internally.
type NoTx struct{}

func (NoTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Receipt is what a caller gets back from a successful settlement.
type Receipt struct {
	Record  *HistoryRecord  `json:"record"`
	Balance decimal.Decimal `json:"balance"`
}
