package scheduling

import "github.com/meinhoongagan/clinic-booking/models"

// GenerateSlots enumerates slot start times that fit entirely inside window.
// Slots touching the break are dropped, not truncated. A break whose end is
// not after its start is ignored.
func GenerateSlots(window models.DaySchedule, slotMinutes int) []string {
	if slotMinutes <= 0 {
		return nil
	}
	start, ok := parseField(window.Start)
	if !ok {
		return nil
	}
	end, ok := parseField(window.End)
	if !ok || end <= start {
		return nil
	}

	breakStart, breakEnd, hasBreak := breakBounds(window)

	var slots []string
	for t := start; t+slotMinutes <= end; t += slotMinutes {
		slotEnd := t + slotMinutes
		if hasBreak && t < breakEnd && slotEnd > breakStart {
			continue
		}
		slots = append(slots, FormatMinutes(t))
	}
	return slots
}

func breakBounds(window models.DaySchedule) (start, end int, ok bool) {
	if !window.HasBreak() {
		return 0, 0, false
	}
	start, okStart := parseField(window.BreakStart)
	end, okEnd := parseField(window.BreakEnd)
	if !okStart || !okEnd || end <= start {
		return 0, 0, false
	}
	return start, end, true
}

// SlotsFor resolves date against schedule and generates its grid. A nil
// window means the day is closed.
func SlotsFor(schedule models.ClinicSchedule, date string, slotMinutes int) (window *models.DaySchedule, slots []string, err error) {
	window, err = ResolveDay(schedule, date)
	if err != nil || window == nil {
		return window, nil, err
	}
	return window, GenerateSlots(*window, slotMinutes), nil
}
