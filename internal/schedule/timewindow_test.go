package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinute(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"16:30", 990, false},
		{"23:59", 1439, false},
		{"24:00", 1440, false},
		{"24:01", 0, true},
		{"25:00", 0, true},
		{"09:60", 0, true},
		{"9:00", 0, true},
		{"09-00", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMinute(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatMinuteRoundTrip(t *testing.T) {
	for _, s := range []string{"00:00", "09:05", "12:00", "23:59"} {
		m, err := ParseMinute(s)
		require.NoError(t, err)
		assert.Equal(t, s, FormatMinute(m))
	}
}

func TestValidateWindow(t *testing.T) {
	tests := []struct {
		name    string
		w       TimeWindow
		wantErr error
	}{
		{"valid", TimeWindow{540, 600}, nil},
		{"full day", TimeWindow{0, 1440}, nil},
		{"inverted", TimeWindow{600, 540}, ErrInvertedRange},
		{"zero length", TimeWindow{540, 540}, ErrInvertedRange},
		{"negative start", TimeWindow{-10, 60}, ErrInvalidFormat},
		{"past midnight", TimeWindow{1380, 1500}, ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWindow(tt.w)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDayWindows(t *testing.T) {
	t.Run("empty day is valid", func(t *testing.T) {
		assert.NoError(t, ValidateDayWindows(nil))
	})

	t.Run("touching windows do not overlap", func(t *testing.T) {
		err := ValidateDayWindows([]TimeWindow{
			{540, 600},  // 09:00-10:00
			{600, 660},  // 10:00-11:00
			{660, 1020}, // 11:00-17:00
		})
		assert.NoError(t, err)
	})

	t.Run("overlap detected regardless of input order", func(t *testing.T) {
		windows := []TimeWindow{
			{630, 720}, // 10:30-12:00
			{540, 660}, // 09:00-11:00
		}
		err := ValidateDayWindows(windows)
		var overlap *OverlapError
		require.ErrorAs(t, err, &overlap)
		assert.Equal(t, TimeWindow{540, 660}, overlap.First)
		assert.Equal(t, TimeWindow{630, 720}, overlap.Second)
		// input must be left untouched
		assert.Equal(t, TimeWindow{630, 720}, windows[0])
	})

	t.Run("contained window overlaps", func(t *testing.T) {
		err := ValidateDayWindows([]TimeWindow{
			{540, 1020}, // 09:00-17:00
			{600, 660},  // 10:00-11:00
		})
		var overlap *OverlapError
		assert.ErrorAs(t, err, &overlap)
	})

	t.Run("invalid member rejected before overlap scan", func(t *testing.T) {
		err := ValidateDayWindows([]TimeWindow{{600, 540}})
		assert.ErrorIs(t, err, ErrInvertedRange)
	})
}

func TestOverlaps(t *testing.T) {
	a := TimeWindow{540, 600}
	assert.False(t, a.Overlaps(TimeWindow{600, 660}), "touching endpoints are not an overlap")
	assert.False(t, a.Overlaps(TimeWindow{480, 540}))
	assert.True(t, a.Overlaps(TimeWindow{570, 630}))
	assert.True(t, a.Overlaps(TimeWindow{500, 700}))
}
