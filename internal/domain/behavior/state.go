package behavior

import "time"

// State is the mutable pacing state owned by one Machine.
// Zero times mean "never".
type State struct {
	LastActionTime   time.Time `json:"last_action_time"`
	DailyActionCount int       `json:"daily_action_count"`
	DailyTarget      int       `json:"daily_target"`
	BurstActive      bool      `json:"burst_active"`
	BurstCount       int       `json:"burst_count"`
	BurstLimit       int       `json:"burst_limit"`
	LastBurstStart   time.Time `json:"last_burst_start"`
}

// Phase is the coarse behavioral phase derived from State and the clock.
type Phase string

const (
	PhaseIdle   Phase = "IDLE"
	PhaseActive Phase = "ACTIVE_WINDOW"
	PhaseBurst  Phase = "BURST"
)

func (s *State) clearBurst() {
	s.BurstActive = false
	s.BurstCount = 0
}

func sameDate(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
