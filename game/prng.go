package game

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"
)

// Source is the draw interface every resolver consumes. *rand.Rand
// satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

func NewSeededRNG(seed string) *rand.Rand {
	hash := sha256.Sum256([]byte(seed))
	seedInt := int64(binary.BigEndian.Uint64(hash[:8]))
	return rand.New(rand.NewSource(seedInt))
}

// LockedSource serializes access to a *rand.Rand shared across handlers.
type LockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewLockedSource(rng *rand.Rand) *LockedSource {
	return &LockedSource{rng: rng}
}

// NewTimeSource seeds a shared source from the wall clock.
func NewTimeSource() *LockedSource {
	return NewLockedSource(rand.New(rand.NewSource(time.Now().UnixNano())))
}

func (s *LockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *LockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
