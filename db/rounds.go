package db

import (
	"context"
	"sync"

	"virtualArena/config"
	"virtualArena/state"
)

// MemoryRounds keeps the last few crash rounds in a ring.
type MemoryRounds struct {
	mu     sync.RWMutex
	rounds []state.CrashRoundSummary
	max    int
}

func NewMemoryRounds() *MemoryRounds {
	return &MemoryRounds{
		rounds: make([]state.CrashRoundSummary, 0, config.MaxCrashHistory),
		max:    config.MaxCrashHistory,
	}
}

func (m *MemoryRounds) StoreRound(_ context.Context, s state.CrashRoundSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rounds = append(m.rounds, s)
	if len(m.rounds) > m.max {
		m.rounds = m.rounds[len(m.rounds)-m.max:]
	}
	return nil
}

// RecentRounds returns up to limit rounds, newest first.
func (m *MemoryRounds) RecentRounds(_ context.Context, limit int) ([]state.CrashRoundSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.rounds) {
		limit = len(m.rounds)
	}
	out := make([]state.CrashRoundSummary, 0, limit)
	for i := len(m.rounds) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.rounds[i])
	}
	return out, nil
}
