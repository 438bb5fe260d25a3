package behavior

import "time"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// scriptedRand returns floats in order, then fallback once the script runs out.
type scriptedRand struct {
	floats   []float64
	fallback float64
	intValue int
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return r.fallback
	}
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f
}

func (r *scriptedRand) IntN(n int) int {
	if r.intValue >= n {
		return n - 1
	}
	return r.intValue
}

// Monday 19 October 2026.
func monday(hour, minute int) time.Time {
	return time.Date(2026, time.October, 19, hour, minute, 0, 0, time.UTC)
}

// Saturday 24 October 2026.
func saturday(hour, minute int) time.Time {
	return time.Date(2026, time.October, 24, hour, minute, 0, 0, time.UTC)
}
