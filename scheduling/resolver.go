package scheduling

import "github.com/meinhoongagan/clinic-booking/models"

// ResolveDay returns the effective window for date, or nil when the clinic
// has no hours that day. Precedence: weekly_off, then the weekday's own
// entry, then default.
func ResolveDay(schedule models.ClinicSchedule, date string) (*models.DaySchedule, error) {
	wd, err := WeekdayOf(date)
	if err != nil {
		return nil, err
	}
	return ResolveWeekday(schedule, wd), nil
}

// ResolveWeekday applies the same precedence as ResolveDay to a weekday key.
func ResolveWeekday(schedule models.ClinicSchedule, wd models.Weekday) *models.DaySchedule {
	if schedule.IsWeeklyOff(wd) {
		return nil
	}
	if day := schedule.Days[wd]; day.HasHours() {
		return day
	}
	if schedule.Default.HasHours() {
		return schedule.Default
	}
	return nil
}
