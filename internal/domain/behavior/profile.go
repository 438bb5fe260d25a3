// internal/domain/behavior/profile.go
package behavior

import (
	"fmt"
	"strings"
	"time"
)

// MaxPeaks is the largest number of peak anchors a profile may carry.
const MaxPeaks = 5

// TimeOfDay is an offset from local midnight.
type TimeOfDay time.Duration

// NewTimeOfDay builds a TimeOfDay from an hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// ParseTimeOfDay parses "HH:MM" (24-hour clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

// TimeOfDayOf extracts the wall-clock offset of t in its own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond()))
}

func (t TimeOfDay) Hour() int {
	return int(time.Duration(t) / time.Hour)
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

// ActivityProfile describes the normal active hours for one kind of day.
// End may be earlier than Start, meaning the window wraps past midnight.
type ActivityProfile struct {
	Start TimeOfDay
	End   TimeOfDay
	Peaks []TimeOfDay // ordered, at most MaxPeaks
}

// Validate checks the peak count.
func (p ActivityProfile) Validate() error {
	if len(p.Peaks) > MaxPeaks {
		return fmt.Errorf("profile has %d peaks, at most %d allowed", len(p.Peaks), MaxPeaks)
	}
	return nil
}

// Contains reports whether the time of day falls inside the active window.
// Both bounds are inclusive.
func (p ActivityProfile) Contains(t TimeOfDay) bool {
	if p.End < p.Start {
		return t >= p.Start || t <= p.End
	}
	return p.Start <= t && t <= p.End
}

// NearPeak reports whether hour is within one hour of any peak.
// Hours are compared on the same day: 0 is not near a 23:00 peak.
func (p ActivityProfile) NearPeak(hour int) bool {
	for _, peak := range p.Peaks {
		diff := hour - peak.Hour()
		if diff < 0 {
			diff = -diff
		}
		if diff <= 1 {
			return true
		}
	}
	return false
}

// Profiles pairs the weekday and weekend profiles.
type Profiles struct {
	Weekday ActivityProfile
	Weekend ActivityProfile
}

// For selects the profile for the day of t: Saturday and Sunday use Weekend.
func (ps Profiles) For(t time.Time) ActivityProfile {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return ps.Weekend
	default:
		return ps.Weekday
	}
}

// Validate checks both profiles.
func (ps Profiles) Validate() error {
	if err := ps.Weekday.Validate(); err != nil {
		return fmt.Errorf("weekday: %w", err)
	}
	if err := ps.Weekend.Validate(); err != nil {
		return fmt.Errorf("weekend: %w", err)
	}
	return nil
}

// DefaultProfiles returns the built-in active hours.
func DefaultProfiles() Profiles {
	return Profiles{
		Weekday: ActivityProfile{
			Start: NewTimeOfDay(6, 0),
			End:   NewTimeOfDay(1, 0),
			Peaks: []TimeOfDay{
				NewTimeOfDay(9, 0),
				NewTimeOfDay(12, 0),
				NewTimeOfDay(15, 0),
				NewTimeOfDay(19, 0),
				NewTimeOfDay(22, 0),
			},
		},
		Weekend: ActivityProfile{
			Start: NewTimeOfDay(8, 0),
			End:   NewTimeOfDay(2, 0),
			Peaks: []TimeOfDay{
				NewTimeOfDay(11, 0),
				NewTimeOfDay(14, 0),
				NewTimeOfDay(17, 0),
				NewTimeOfDay(20, 0),
				NewTimeOfDay(23, 0),
			},
		},
	}
}
