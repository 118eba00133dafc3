// Package dicetest provides scripted dice sources for tests.
package dicetest

import "sync"

// Scripted replays fixed draws. When a script runs out, the last value is
// repeated; an empty Floats script yields 0.99 and an empty Ints script 0.
type Scripted struct {
	mu     sync.Mutex
	Floats []float64
	Ints   []int
	fi, ii int
}

// Floats returns a source that replays the given float draws.
func Floats(vals ...float64) *Scripted {
	return &Scripted{Floats: vals}
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Floats) == 0 {
		return 0.99
	}
	v := s.Floats[min(s.fi, len(s.Floats)-1)]
	s.fi++
	return v
}

func (s *Scripted) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[min(s.ii, len(s.Ints)-1)]
	s.ii++
	if v >= n {
		v = n - 1
	}
	return v
}

// FloatCalls reports how many float draws were consumed.
func (s *Scripted) FloatCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fi
}
