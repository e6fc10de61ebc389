package state

import (
	"sync"

	"virtualArena/game"
)

// LadderBoard keeps the open ladder runs, one per account and mode.
type LadderBoard struct {
	mu   sync.Mutex
	runs map[string]*game.LadderRun
}

func NewLadderBoard() *LadderBoard {
	return &LadderBoard{
		runs: make(map[string]*game.LadderRun),
	}
}

func ladderKey(mode game.Mode, accountID string) string {
	return string(mode) + ":" + accountID
}

// Start opens run. A finished run still on the board is waiting for its
// settlement and blocks a new one.
func (b *LadderBoard) Start(run *game.LadderRun) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := ladderKey(run.Wager.Mode, run.Wager.AccountID)
	if _, ok := b.runs[key]; ok {
		return ErrLadderInProgress
	}
	b.runs[key] = run
	return nil
}

// With runs fn against the account's open run while holding the board lock.
// Finished runs are dropped once fn returns without error.
func (b *LadderBoard) With(mode game.Mode, accountID string, fn func(run *game.LadderRun) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := ladderKey(mode, accountID)
	run, ok := b.runs[key]
	if !ok {
		return ErrNoLadderRun
	}
	if err := fn(run); err != nil {
		return err
	}
	if run.Finished {
		delete(b.runs, key)
	}
	return nil
}

func (b *LadderBoard) Get(mode game.Mode, accountID string) (*game.LadderRun, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	run, ok := b.runs[ladderKey(mode, accountID)]
	if !ok {
		return nil, ErrNoLadderRun
	}
	cp := *run
	return &cp, nil
}
