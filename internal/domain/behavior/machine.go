// internal/domain/behavior/machine.go
package behavior

import "time"

const (
	activeBaseProbability = 0.7
	offHoursProbability   = 0.2
	burstProbability      = 0.9
	burstStartChance      = 0.2
	cooldownFactor        = 0.3
	peakFactor            = 1.3
	softSpacingFactor     = 0.5
	behindPaceFactor      = 1.2
	aheadPaceFactor       = 0.8

	burstMinInterval = 30 * time.Minute
	hardSpacing      = 2 * time.Minute
	softSpacing      = 5 * time.Minute
)

var (
	burstCheckDelay  = durationRange{30 * time.Second, 90 * time.Second}
	activeCheckDelay = durationRange{60 * time.Second, 180 * time.Second}
	idleCheckDelay   = durationRange{180 * time.Second, 300 * time.Second}

	burstWindowDelay     = durationRange{1 * time.Minute, 3 * time.Minute}
	burstWindowDuration  = durationRange{5 * time.Minute, 10 * time.Minute}
	activeWindowDelay    = durationRange{3 * time.Minute, 8 * time.Minute}
	activeWindowDuration = durationRange{8 * time.Minute, 15 * time.Minute}
	idleWindowDelay      = durationRange{10 * time.Minute, 20 * time.Minute}
	idleWindowDuration   = durationRange{5 * time.Minute, 10 * time.Minute}
)

// DefaultDailyTarget and DefaultBurstLimit are the ranges the soft daily quota
// and the per-burst cap are drawn from.
var (
	DefaultDailyTarget = IntRange{Min: 45, Max: 60}
	DefaultBurstLimit  = IntRange{Min: 3, Max: 5}
)

// Option customises a Machine.
type Option func(*Machine)

// WithDailyTargetRange overrides the range the daily target is drawn from.
func WithDailyTargetRange(r IntRange) Option {
	return func(m *Machine) { m.dailyTargetRange = r }
}

// WithBurstLimitRange overrides the range the burst cap is drawn from.
func WithBurstLimitRange(r IntRange) Option {
	return func(m *Machine) { m.burstLimitRange = r }
}

// Machine decides whether the agent acts now and how long to wait before
// asking again. It is not safe for concurrent use; one loop owns it.
type Machine struct {
	profiles         Profiles
	clock            Clock
	rng              RandSource
	dailyTargetRange IntRange
	burstLimitRange  IntRange

	state           State
	lastProbability float64
}

// NewMachine creates a Machine with a freshly drawn daily target and burst limit.
func NewMachine(profiles Profiles, clock Clock, rng RandSource, opts ...Option) *Machine {
	m := &Machine{
		profiles:         profiles,
		clock:            clock,
		rng:              rng,
		dailyTargetRange: DefaultDailyTarget,
		burstLimitRange:  DefaultBurstLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state.DailyTarget = m.dailyTargetRange.draw(rng)
	m.state.BurstLimit = m.burstLimitRange.draw(rng)
	return m
}

// State returns a copy of the current pacing state.
func (m *Machine) State() State {
	return m.state
}

// Restore replaces the pacing state, e.g. from a persisted snapshot.
// A restored burst count above its limit is capped.
func (m *Machine) Restore(s State) {
	if s.DailyTarget <= 0 {
		s.DailyTarget = m.dailyTargetRange.draw(m.rng)
	}
	if s.BurstLimit <= 0 {
		s.BurstLimit = m.burstLimitRange.draw(m.rng)
	}
	if s.BurstCount > s.BurstLimit {
		s.BurstCount = s.BurstLimit
	}
	m.state = s
}

// LastProbability is the probability computed by the most recent evaluation.
func (m *Machine) LastProbability() float64 {
	return m.lastProbability
}

// InActiveWindow reports whether now falls inside today's profile window.
func (m *Machine) InActiveWindow() bool {
	now := m.clock.Now()
	return m.profiles.For(now).Contains(TimeOfDayOf(now))
}

// Phase reports the current coarse phase.
func (m *Machine) Phase() Phase {
	switch {
	case m.state.BurstActive:
		return PhaseBurst
	case m.InActiveWindow():
		return PhaseActive
	default:
		return PhaseIdle
	}
}

// ComputeActionProbability returns the probability of acting at this instant.
// It may start a burst as a side effect, and it ends a burst that has hit its cap.
func (m *Machine) ComputeActionProbability() float64 {
	now := m.clock.Now()
	profile := m.profiles.For(now)

	prob := offHoursProbability
	if profile.Contains(TimeOfDayOf(now)) {
		prob = activeBaseProbability
	}

	switch {
	case m.state.BurstActive && m.state.BurstCount < m.state.BurstLimit:
		prob = burstProbability
	case m.state.BurstActive:
		m.state.clearBurst()
		prob *= cooldownFactor
	case m.burstEligible(now):
		if m.rng.Float64() < burstStartChance {
			m.state.BurstActive = true
			m.state.BurstCount = 0
			m.state.BurstLimit = m.burstLimitRange.draw(m.rng)
			m.state.LastBurstStart = now
			prob = burstProbability
		}
	}

	if profile.NearPeak(now.Hour()) {
		prob *= peakFactor
	}

	if !m.state.LastActionTime.IsZero() {
		since := now.Sub(m.state.LastActionTime)
		if since < hardSpacing {
			m.lastProbability = 0
			return 0
		}
		if since < softSpacing {
			prob *= softSpacingFactor
		}
	}

	hoursRemaining := 24 - now.Hour()
	targetRemaining := m.state.DailyTarget - m.state.DailyActionCount
	if hoursRemaining > 0 {
		rate := float64(targetRemaining) / float64(hoursRemaining)
		if rate > 3 {
			prob *= behindPaceFactor
		} else if rate < 1 {
			prob *= aheadPaceFactor
		}
	}

	m.lastProbability = clamp(prob)
	return m.lastProbability
}

// Decide performs the daily reset check, then draws against the action
// probability. On success the action is recorded immediately.
func (m *Machine) Decide() bool {
	now := m.clock.Now()
	if !m.state.LastActionTime.IsZero() && !sameDate(m.state.LastActionTime, now) {
		m.state.DailyActionCount = 0
		m.state.DailyTarget = m.dailyTargetRange.draw(m.rng)
		m.state.clearBurst()
	}

	prob := m.ComputeActionProbability()
	if m.rng.Float64() >= prob {
		return false
	}

	m.state.LastActionTime = now
	m.state.DailyActionCount++
	if m.state.BurstActive {
		m.state.BurstCount++
	}
	return true
}

// NextCheckDelay returns how long to wait before the next Decide.
func (m *Machine) NextCheckDelay() time.Duration {
	switch {
	case m.state.BurstActive:
		return burstCheckDelay.draw(m.rng)
	case m.InActiveWindow():
		return activeCheckDelay.draw(m.rng)
	default:
		return idleCheckDelay.draw(m.rng)
	}
}

// WindowParameters plans the next activity window: when it opens and how long it stays open.
func (m *Machine) WindowParameters() (time.Time, time.Duration) {
	var delay, duration time.Duration
	switch {
	case m.state.BurstActive:
		delay, duration = burstWindowDelay.draw(m.rng), burstWindowDuration.draw(m.rng)
	case m.InActiveWindow():
		delay, duration = activeWindowDelay.draw(m.rng), activeWindowDuration.draw(m.rng)
	default:
		delay, duration = idleWindowDelay.draw(m.rng), idleWindowDuration.draw(m.rng)
	}
	return m.clock.Now().Add(delay), duration
}

func (m *Machine) burstEligible(now time.Time) bool {
	return m.state.LastBurstStart.IsZero() || now.Sub(m.state.LastBurstStart) > burstMinInterval
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
