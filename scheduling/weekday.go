package scheduling

import (
	"fmt"
	"time"

	"github.com/meinhoongagan/clinic-booking/models"
)

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date. The result is midnight UTC and
// only its calendar fields are meaningful.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t, nil
}

// WeekdayOf returns the weekday key of a calendar date. The date is never
// converted to an instant, so the server timezone cannot shift it.
func WeekdayOf(date string) (models.Weekday, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return models.Weekdays[t.Weekday()], nil
}

// DateIn formats the calendar date of t as seen in loc.
func DateIn(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}
