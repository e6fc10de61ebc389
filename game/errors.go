package game

import "errors"

var (
	ErrMissingAccount   = errors.New("account id is required")
	ErrInvalidStake     = errors.New("stake must be positive")
	ErrInvalidMode      = errors.New("mode must be practice or real")
	ErrInvalidThreshold = errors.New("dice threshold out of range")
	ErrInvalidColor     = errors.New("color must be GREEN or YELLOW")
	ErrInvalidSide      = errors.New("side must be HEADS or TAILS")
	ErrInvalidTier      = errors.New("tier must be EASY, MEDIUM or HARD")
	ErrUnknownGame      = errors.New("unknown game type")
	ErrLadderFinished   = errors.New("ladder run already settled")
	ErrLadderTooEarly   = errors.New("cash-out needs at least two cleared steps")
)
