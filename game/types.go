package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type GameType string

const (
	GameDice   GameType = "dice"
	GameColor  GameType = "color"
	GameFlip   GameType = "flip"
	GameLucky  GameType = "lucky"
	GameLadder GameType = "ladder"
	GameCrash  GameType = "crash"
)

// Mode selects which wallet a wager draws on and which side of a bias
// policy applies.
type Mode string

const (
	ModePractice Mode = "practice"
	ModeReal     Mode = "real"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModePractice:
		return ModePractice, nil
	case ModeReal:
		return ModeReal, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

type Color string

const (
	ColorGreen  Color = "GREEN"
	ColorYellow Color = "YELLOW"
)

func (c Color) Other() Color {
	if c == ColorGreen {
		return ColorYellow
	}
	return ColorGreen
}

type Side string

const (
	SideHeads Side = "HEADS"
	SideTails Side = "TAILS"
)

func (s Side) Other() Side {
	if s == SideHeads {
		return SideTails
	}
	return SideHeads
}

type Tier string

const (
	TierEasy   Tier = "EASY"
	TierMedium Tier = "MEDIUM"
	TierHard   Tier = "HARD"
)

// Params carries the game specific choice of a wager. Only the field that
// matches the wager's game is read.
type Params struct {
	Threshold int   `json:"threshold,omitempty"`
	Color     Color `json:"color,omitempty"`
	Side      Side  `json:"side,omitempty"`
	Tier      Tier  `json:"tier,omitempty"`
}

// Wager is immutable once accepted and is settled at most once.
type Wager struct {
	ID        uuid.UUID `json:"id"`
	AccountID string    `json:"accountId"`
	Game      GameType  `json:"game"`
	Stake     float64   `json:"stake"`
	Params    Params    `json:"params"`
	Mode      Mode      `json:"mode"`
	PlacedAt  time.Time `json:"placedAt"`
}

// NewWager validates the common fields and stamps an ID.
func NewWager(accountID string, gameType GameType, stake float64, params Params, mode Mode) (*Wager, error) {
	if accountID == "" {
		return nil, ErrMissingAccount
	}
	if stake <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStake, stake)
	}
	if mode != ModePractice && mode != ModeReal {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	return &Wager{
		ID:        uuid.New(),
		AccountID: accountID,
		Game:      gameType,
		Stake:     stake,
		Params:    params,
		Mode:      mode,
		PlacedAt:  time.Now(),
	}, nil
}

// Outcome is the resolved result of one wager. Payout is zero on a loss.
type Outcome struct {
	IsWin      bool    `json:"isWin"`
	Multiplier float64 `json:"multiplier"`
	Payout     float64 `json:"payout"`
	Label      string  `json:"label"`
	Roll       int     `json:"roll,omitempty"`
	Result     string  `json:"result,omitempty"`
}

// NewOutcome computes the payout from the stake so the loss invariant holds
// everywhere.
func NewOutcome(stake float64, isWin bool, multiplier float64, label string) Outcome {
	o := Outcome{IsWin: isWin, Multiplier: multiplier, Label: label}
	if isWin {
		o.Payout = stake * multiplier
	}
	return o
}
