// Package rng implements the engine's seeded pseudo-random stream: a
// two-word xorshift generator whose state is always exactly the two 32-bit
// words a participant can save and restore verbatim. Every participant
// advances the same stream in lockstep, so rolling a random number inside a
// system produces an identical result everywhere — the moment a game calls
// into a host-provided random source instead of this package, the
// simulation has desynced.
package rng

import "github.com/moddio/lockstep/fixedpoint"

// State is the PRNG's full state: two 32-bit words. It is part of every
// snapshot so that loading a snapshot resumes the exact same stream.
type State struct {
	S0 uint32
	S1 uint32
}

// New seeds a State from a single 64-bit seed. A zero seed is remapped to a
// nonzero state (an all-zero xorshift state never advances).
func New(seed uint64) State {
	s0 := uint32(seed)
	s1 := uint32(seed >> 32)
	if s0 == 0 && s1 == 0 {
		s0 = 0x9e3779b9
		s1 = 0x243f6a88
	}
	return State{S0: s0, S1: s1}
}

// Next advances the stream by one step and returns the next 32-bit output.
// The step is a fixed xorshift recurrence over the two words: every
// operation is an integer shift, xor, or add, so the sequence is identical
// on every platform given the same starting state.
func (s *State) Next() uint32 {
	x := s.S0
	y := s.S1
	s.S0 = y
	x ^= x << 23
	x ^= x >> 17
	x ^= y ^ (y >> 26)
	s.S1 = x
	return s.S0 + s.S1
}

// Float returns a fraction in [0, 1) as a Q16.16 fixed-point value, built
// from the top 16 bits of Next() — an integer-only construction with no
// float division anywhere in the path.
func (s *State) Float() fixedpoint.Q {
	return fixedpoint.Q(s.Next() >> 16)
}

// IntRange returns a uniform integer in [lo, hi). Panics if hi <= lo.
func (s *State) IntRange(lo, hi int32) int32 {
	if hi <= lo {
		panic("rng: IntRange requires hi > lo")
	}
	span := uint32(hi - lo)
	return lo + int32(s.Next()%span)
}

// Bool returns a uniform random boolean.
func (s *State) Bool() bool {
	return s.Next()&1 == 1
}

// SaveState returns the two words verbatim for embedding in a snapshot.
func (s *State) SaveState() State {
	return *s
}

// LoadState restores the two words verbatim from a snapshot.
func (s *State) LoadState(saved State) {
	*s = saved
}
