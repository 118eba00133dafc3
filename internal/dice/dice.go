// Package dice provides the random source behind every probabilistic choice
// the bot makes. Components take a Source so tests can script the draws.
package dice

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the subset of *rand.Rand the bot uses.
type Source interface {
	// Float64 returns a number in [0.0, 1.0).
	Float64() float64
	// IntN returns a number in [0, n). n must be positive.
	IntN(n int) int
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a goroutine-safe Source seeded with seed.
func New(seed uint64) Source {
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewTimeSeeded returns a goroutine-safe Source seeded from the clock.
func NewTimeSeeded() Source {
	return New(uint64(time.Now().UnixNano()))
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

// Chance reports whether a draw from src falls under p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// Pick returns a random element of items, or the zero value when empty.
func Pick[T any](src Source, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[src.IntN(len(items))]
}
