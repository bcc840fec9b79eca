package scheduling

import (
	"errors"
	"fmt"

	"github.com/meinhoongagan/clinic-booking/models"
)

// ValidateSchedule reports every problem in a schedule at once. It is meant
// for the save path; the read path degrades malformed values to "no slots".
func ValidateSchedule(schedule models.ClinicSchedule) error {
	var errs []error
	if schedule.Default != nil {
		errs = append(errs, validateDay("default", *schedule.Default)...)
	}
	for _, wd := range models.Weekdays {
		if day := schedule.Days[wd]; day != nil {
			errs = append(errs, validateDay(string(wd), *day)...)
		}
	}
	return errors.Join(errs...)
}

func validateDay(name string, day models.DaySchedule) []error {
	var errs []error
	fields := []struct {
		label string
		value *string
	}{
		{"start", day.Start},
		{"end", day.End},
		{"break_start", day.BreakStart},
		{"break_end", day.BreakEnd},
	}
	parsed := make(map[string]int, len(fields))
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		m, ok := ParseTimeOfDay(*f.value)
		if !ok {
			errs = append(errs, fmt.Errorf("%s.%s: %w: %q", name, f.label, ErrMalformedTime, *f.value))
			continue
		}
		parsed[f.label] = m
	}

	start, hasStart := parsed["start"]
	end, hasEnd := parsed["end"]
	if hasStart != hasEnd && len(errs) == 0 {
		errs = append(errs, fmt.Errorf("%s: start and end must be set together", name))
	}
	if hasStart && hasEnd && end <= start {
		errs = append(errs, fmt.Errorf("%s: end %s must be after start %s", name, FormatMinutes(end), FormatMinutes(start)))
	}

	bs, hasBS := parsed["break_start"]
	be, hasBE := parsed["break_end"]
	if hasBS && hasBE {
		if be <= bs {
			errs = append(errs, fmt.Errorf("%s: break_end must be after break_start", name))
		} else if hasStart && hasEnd && (bs < start || be > end) {
			errs = append(errs, fmt.Errorf("%s: break must lie within working hours", name))
		}
	}
	return errs
}
