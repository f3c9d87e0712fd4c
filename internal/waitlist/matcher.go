package waitlist

import (
	"sort"
	"time"

	"github.com/therapease/scheduling/internal/schedule"
)

// FindMatches returns the active entries compatible with a freed slot,
// best candidate first. Entries that explicitly named both the slot's
// weekday and its day part outrank entries that match only through an
// empty (wildcard) preference set; within a rank, older entries win.
//
// The matcher only ranks. It never transitions an entry to Matched —
// the patient has to accept first, and that acceptance goes through the
// façade.
func FindMatches(slot schedule.TimeWindow, weekday time.Weekday, entries []Entry) []Entry {
	part := ClassifyDayPart(slot.Start)

	type candidate struct {
		entry Entry
		rank  int
	}
	var candidates []candidate
	for _, e := range entries {
		if e.Status != StatusActive {
			continue
		}
		if !e.wantsWeekday(weekday) || !e.wantsDayPart(part) {
			continue
		}
		rank := 1
		if e.hasWeekday(weekday) && e.hasDayPart(part) {
			rank = 0
		}
		candidates = append(candidates, candidate{entry: e, rank: rank})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rank != candidates[j].rank {
			return candidates[i].rank < candidates[j].rank
		}
		return candidates[i].entry.CreatedAt.Before(candidates[j].entry.CreatedAt)
	})

	matched := make([]Entry, len(candidates))
	for i, c := range candidates {
		matched[i] = c.entry
	}
	return matched
}
