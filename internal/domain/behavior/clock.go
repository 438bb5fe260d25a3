package behavior

import (
	"math/rand/v2"
	"time"
)

// Clock reads wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the process wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// RandSource is the randomness the machine draws from.
// *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	Float64() float64
	IntN(n int) int
}

// NewRandSource returns a PCG-backed source seeded from the given values.
func NewRandSource(seed1, seed2 uint64) RandSource {
	return rand.New(rand.NewPCG(seed1, seed2))
}

// IntRange is an inclusive integer range.
type IntRange struct {
	Min int
	Max int
}

func (r IntRange) draw(rng RandSource) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.IntN(r.Max-r.Min+1)
}

// durationRange is a half-open range of durations drawn uniformly.
type durationRange struct {
	min time.Duration
	max time.Duration
}

func (r durationRange) draw(rng RandSource) time.Duration {
	return r.min + time.Duration(rng.Float64()*float64(r.max-r.min))
}
