package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// MinutesPerDay bounds every time-of-day value in this package.
const MinutesPerDay = 24 * 60

var (
	ErrInvalidFormat = errors.New("time must be in 24-hour HH:MM format")
	ErrInvertedRange = errors.New("window end must be after its start")
)

// TimeWindow is a contiguous time-of-day range, expressed in minutes since
// midnight so that slot arithmetic stays integral. Immutable value type.
type TimeWindow struct {
	Start int
	End   int
}

// ParseMinute converts a 24-hour "HH:MM" string to minutes since midnight.
// "24:00" is accepted as the exclusive end of day.
func ParseMinute(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return h*60 + m, nil
}

// FormatMinute renders minutes since midnight as "HH:MM".
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseWindow builds a validated TimeWindow from "HH:MM" strings.
func ParseWindow(start, end string) (TimeWindow, error) {
	s, err := ParseMinute(start)
	if err != nil {
		return TimeWindow{}, err
	}
	e, err := ParseMinute(end)
	if err != nil {
		return TimeWindow{}, err
	}
	w := TimeWindow{Start: s, End: e}
	if err := ValidateWindow(w); err != nil {
		return TimeWindow{}, err
	}
	return w, nil
}

func (w TimeWindow) String() string {
	return FormatMinute(w.Start) + "-" + FormatMinute(w.End)
}

// Minutes returns the window's length.
func (w TimeWindow) Minutes() int {
	return w.End - w.Start
}

// Overlaps reports whether two windows strictly overlap. Touching
// endpoints (one ends exactly where the other starts) do not count.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Start < o.End && o.Start < w.End
}

// ValidateWindow checks a single window's bounds and ordering.
func ValidateWindow(w TimeWindow) error {
	if w.Start < 0 || w.End > MinutesPerDay {
		return fmt.Errorf("%w: %s is outside the day", ErrInvalidFormat, w)
	}
	if w.End <= w.Start {
		return fmt.Errorf("%w: %s", ErrInvertedRange, w)
	}
	return nil
}

// OverlapError reports two windows in the same day that collide.
type OverlapError struct {
	First  TimeWindow
	Second TimeWindow
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("availability windows %s and %s overlap", e.First, e.Second)
}

// ValidateDayWindows validates each window in a day's set and rejects
// strict overlaps between any pair. The input is not mutated; the scan
// runs over a sorted copy so the result does not depend on input order.
func ValidateDayWindows(windows []TimeWindow) error {
	for _, w := range windows {
		if err := ValidateWindow(w); err != nil {
			return err
		}
	}

	sorted := make([]TimeWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i := 0; i+1 < len(sorted); i++ {
		if sorted[i].End > sorted[i+1].Start {
			return &OverlapError{First: sorted[i], Second: sorted[i+1]}
		}
	}
	return nil
}
