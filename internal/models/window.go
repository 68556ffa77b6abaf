package models

import (
	"encoding/json"
	"fmt"
	"time"
)

const minutesPerDay = 24 * 60

// TimeOfDay is a time within a day, stored as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON renders the time as "HH:MM".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses an "HH:MM" string.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeWindow is a half-open [Start, End) interval within a single day.
// The invariant Start < End is enforced by NewTimeWindow; a zero-length or
// inverted window is never constructed.
type TimeWindow struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// NewTimeWindow builds a window, rejecting inverted and zero-length ranges.
func NewTimeWindow(start, end TimeOfDay) (TimeWindow, error) {
	if start < 0 || end > minutesPerDay {
		return TimeWindow{}, fmt.Errorf("window %s-%s outside of day bounds", start, end)
	}
	if start >= end {
		return TimeWindow{}, fmt.Errorf("window end %s must be after start %s", end, start)
	}
	return TimeWindow{Start: start, End: end}, nil
}

// ParseTimeWindow builds a window from two "HH:MM" strings.
func ParseTimeWindow(start, end string) (TimeWindow, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return TimeWindow{}, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return TimeWindow{}, err
	}
	return NewTimeWindow(s, e)
}

// IsZero reports whether the window was never constructed.
func (w TimeWindow) IsZero() bool {
	return w.Start == 0 && w.End == 0
}

// Overlaps reports whether two half-open windows intersect. Touching
// endpoints do not count as overlap.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start < other.End && w.End > other.Start
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("%s-%s", w.Start, w.End)
}
