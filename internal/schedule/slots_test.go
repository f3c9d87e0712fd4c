package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func mondayAvailability(windows ...TimeWindow) WeeklyAvailability {
	return WeeklyAvailability{
		Days:           map[time.Weekday][]TimeWindow{time.Monday: windows},
		SessionMinutes: 60,
	}
}

func TestGenerateSlotsBasic(t *testing.T) {
	// Monday 09:00-12:00 with 60-minute sessions yields exactly three
	// slots; there is no 12:00 slot since it would end past the window.
	weekly := mondayAvailability(TimeWindow{540, 720})

	slots := GenerateSlots(weekly, monday, nil, 60)
	require.Equal(t, []TimeWindow{
		{540, 600},
		{600, 660},
		{660, 720},
	}, slots)
}

func TestGenerateSlotsSkipsBusy(t *testing.T) {
	weekly := mondayAvailability(TimeWindow{540, 720})
	busy := []TimeWindow{{600, 660}} // 10:00 is taken

	slots := GenerateSlots(weekly, monday, busy, 60)
	assert.Equal(t, []TimeWindow{{540, 600}, {660, 720}}, slots)
}

func TestGenerateSlotsTrailingRemainderDropped(t *testing.T) {
	// 09:00-10:30 fits one 60-minute slot; the 30-minute tail is never
	// emitted as a short slot.
	weekly := mondayAvailability(TimeWindow{540, 630})

	slots := GenerateSlots(weekly, monday, nil, 60)
	assert.Equal(t, []TimeWindow{{540, 600}}, slots)
}

func TestGenerateSlotsEmptyDay(t *testing.T) {
	weekly := mondayAvailability(TimeWindow{540, 720})
	tuesday := monday.AddDate(0, 0, 1)

	assert.Empty(t, GenerateSlots(weekly, tuesday, nil, 60))
}

func TestGenerateSlotsMultipleWindows(t *testing.T) {
	weekly := mondayAvailability(TimeWindow{780, 900}, TimeWindow{540, 660})

	slots := GenerateSlots(weekly, monday, nil, 60)
	assert.Equal(t, []TimeWindow{
		{540, 600},
		{600, 660},
		{780, 840},
		{840, 900},
	}, slots, "slots from all windows, ascending")
}

func TestGenerateSlotsBusyTouchingBoundary(t *testing.T) {
	// A busy interval ending exactly where a candidate starts does not
	// block it; the overlap rule is strict.
	weekly := mondayAvailability(TimeWindow{540, 720})
	busy := []TimeWindow{{480, 540}, {720, 780}}

	slots := GenerateSlots(weekly, monday, busy, 60)
	assert.Len(t, slots, 3)
}

func TestGenerateSlotsDurationFallback(t *testing.T) {
	weekly := mondayAvailability(TimeWindow{540, 720})
	weekly.SessionMinutes = 90

	slots := GenerateSlots(weekly, monday, nil, 0)
	assert.Equal(t, []TimeWindow{{540, 630}, {630, 720}}, slots, "falls back to the schedule's session length")
}

func TestGenerateSlotsIdempotent(t *testing.T) {
	weekly := mondayAvailability(TimeWindow{540, 1020})
	busy := []TimeWindow{{600, 660}, {840, 900}}

	first := GenerateSlots(weekly, monday, busy, 60)
	second := GenerateSlots(weekly, monday, busy, 60)
	assert.Equal(t, first, second)
}

func TestGenerateSlotsContainedInWindows(t *testing.T) {
	weekly := mondayAvailability(TimeWindow{555, 725}, TimeWindow{800, 1000})

	for _, dur := range []int{30, 45, 60, 75} {
		for _, s := range GenerateSlots(weekly, monday, nil, dur) {
			contained := false
			for _, w := range weekly.Days[time.Monday] {
				if s.Start >= w.Start && s.End <= w.End {
					contained = true
					break
				}
			}
			assert.True(t, contained, "slot %s (dur %d) escapes every window", s, dur)
		}
	}
}
