package schedule

import (
	"sort"
	"time"
)

// GenerateSlots discretizes the availability for date's weekday into
// back-to-back slots of durationMinutes, then drops every candidate that
// strictly overlaps a busy interval. Busy intervals are the time-of-day
// footprints of existing non-cancelled appointments on that date; a
// cancelled appointment releases its slot, so callers must not include
// it. A trailing remainder shorter than the duration is never emitted.
//
// Pure function of its inputs: no clock, no timezone conversion, no
// hidden state. Calling it twice with the same inputs yields the same
// ordered sequence.
func GenerateSlots(weekly WeeklyAvailability, date time.Time, busy []TimeWindow, durationMinutes int) []TimeWindow {
	if durationMinutes <= 0 {
		durationMinutes = weekly.SessionMinutes
	}
	if durationMinutes <= 0 {
		durationMinutes = DefaultSessionMinutes
	}

	var slots []TimeWindow
	for _, win := range weekly.WindowsOn(date.Weekday()) {
		for start := win.Start; start+durationMinutes <= win.End; start += durationMinutes {
			candidate := TimeWindow{Start: start, End: start + durationMinutes}
			if overlapsAny(candidate, busy) {
				continue
			}
			slots = append(slots, candidate)
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })
	return slots
}

func overlapsAny(w TimeWindow, busy []TimeWindow) bool {
	for _, b := range busy {
		if w.Overlaps(b) {
			return true
		}
	}
	return false
}
