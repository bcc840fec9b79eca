package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meinhoongagan/clinic-booking/models"
)

func TestGenerateSlots(t *testing.T) {
	tests := []struct {
		name   string
		window models.DaySchedule
		slot   int
		want   []string
	}{
		{
			name:   "morning half hours",
			window: *window("09:00", "12:00"),
			slot:   30,
			want:   []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"},
		},
		{
			name:   "break drops the overlapping slot only",
			window: models.DaySchedule{Start: str("09:00"), End: str("12:00"), BreakStart: str("10:00"), BreakEnd: str("10:30")},
			slot:   30,
			want:   []string{"09:00", "09:30", "10:30", "11:00", "11:30"},
		},
		{
			name:   "partial overlap is dropped not truncated",
			window: models.DaySchedule{Start: str("09:00"), End: str("12:00"), BreakStart: str("10:15"), BreakEnd: str("10:45")},
			slot:   30,
			want:   []string{"09:00", "09:30", "11:00", "11:30"},
		},
		{
			name:   "last slot must fit",
			window: *window("09:00", "10:50"),
			slot:   45,
			want:   []string{"09:00", "09:45"},
		},
		{
			name:   "bare hours",
			window: *window("9", "11"),
			slot:   60,
			want:   []string{"09:00", "10:00"},
		},
		{
			name:   "end of day",
			window: *window("22:00", "24:00"),
			slot:   60,
			want:   []string{"22:00", "23:00"},
		},
		{
			name:   "inverted break ignored",
			window: models.DaySchedule{Start: str("09:00"), End: str("10:00"), BreakStart: str("09:30"), BreakEnd: str("09:00")},
			slot:   30,
			want:   []string{"09:00", "09:30"},
		},
		{name: "end before start", window: *window("12:00", "09:00"), slot: 30},
		{name: "end equals start", window: *window("09:00", "09:00"), slot: 30},
		{name: "malformed start", window: *window("nine", "12:00"), slot: 30},
		{name: "missing end", window: models.DaySchedule{Start: str("09:00")}, slot: 30},
		{name: "zero duration", window: *window("09:00", "12:00"), slot: 0},
		{name: "slot longer than window", window: *window("09:00", "09:20"), slot: 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSlots(tt.window, tt.slot))
		})
	}
}

func TestGenerateSlotsCount(t *testing.T) {
	durations := []int{20, 25, 30, 45, 60, 90, 120}
	for start := 0; start < 12*60; start += 35 {
		for _, length := range []int{60, 185, 240, 480} {
			for _, d := range durations {
				w := *window(FormatMinutes(start), FormatMinutes(start+length))
				slots := GenerateSlots(w, d)
				require.Len(t, slots, length/d, "start=%d length=%d d=%d", start, length, d)
			}
		}
	}
}

func TestGenerateSlotsCountWithBreak(t *testing.T) {
	// 08:00-18:00, break 12:00-13:00
	w := models.DaySchedule{Start: str("08:00"), End: str("18:00"), BreakStart: str("12:00"), BreakEnd: str("13:00")}
	for _, d := range []int{20, 30, 45, 60, 90, 120} {
		total := (600) / d
		overlapping := 0
		for t0 := 480; t0+d <= 1080; t0 += d {
			if t0 < 780 && t0+d > 720 {
				overlapping++
			}
		}
		assert.Len(t, GenerateSlots(w, d), total-overlapping, "duration %d", d)
	}
}

func TestGenerateSlotsIsRestartable(t *testing.T) {
	w := *window("09:00", "12:00")
	assert.Equal(t, GenerateSlots(w, 30), GenerateSlots(w, 30))
}

func TestSlotsFor(t *testing.T) {
	s := models.ClinicSchedule{
		Default:   window("09:00", "11:00"),
		WeeklyOff: []models.Weekday{models.Sunday},
	}

	w, slots, err := SlotsFor(s, "2026-02-02", 30)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, slots)

	w, slots, err = SlotsFor(s, "2026-02-01", 30)
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Empty(t, slots)
}
