package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultSessionMinutes applies when a therapist never set a session length.
const DefaultSessionMinutes = 60

var ErrInvalidSessionLength = errors.New("session duration must be between 1 minute and a full day")

// WeeklyAvailability is one therapist's recurring weekly schedule: an
// ordered set of non-overlapping windows per weekday, plus the session
// length used to cut windows into bookable slots. A weekday that is
// absent from Days means the same as an empty window list: unavailable.
type WeeklyAvailability struct {
	Days           map[time.Weekday][]TimeWindow
	SessionMinutes int
	VideoLink      string
}

// WindowsOn returns the day's windows sorted by start. The receiver is
// not mutated.
func (w WeeklyAvailability) WindowsOn(day time.Weekday) []TimeWindow {
	windows := make([]TimeWindow, len(w.Days[day]))
	copy(windows, w.Days[day])
	sort.Slice(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })
	return windows
}

// Normalized returns a copy with every weekday present (absent days
// become empty lists), each day sorted, and the session length defaulted.
func (w WeeklyAvailability) Normalized() WeeklyAvailability {
	out := WeeklyAvailability{
		Days:           make(map[time.Weekday][]TimeWindow, 7),
		SessionMinutes: w.SessionMinutes,
		VideoLink:      w.VideoLink,
	}
	if out.SessionMinutes == 0 {
		out.SessionMinutes = DefaultSessionMinutes
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		out.Days[d] = w.WindowsOn(d)
	}
	return out
}

// ValidationError marks a whole-availability commit as rejected, naming
// the weekday that failed. The commit is all-or-nothing: one bad day
// invalidates the entire weekly schedule.
type ValidationError struct {
	Day time.Weekday
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("availability for %s is invalid: %v", e.Day, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks the session length and every day's window set.
func (w WeeklyAvailability) Validate() error {
	if w.SessionMinutes <= 0 || w.SessionMinutes > MinutesPerDay {
		return ErrInvalidSessionLength
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if err := ValidateDayWindows(w.Days[d]); err != nil {
			return &ValidationError{Day: d, Err: err}
		}
	}
	return nil
}

// ParseWeekday maps a lowercase weekday name ("monday") to time.Weekday.
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// FormatWeekday renders a weekday the way the wire format spells it.
func FormatWeekday(d time.Weekday) string {
	return strings.ToLower(d.String())
}
