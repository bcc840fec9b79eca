package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Weekday is the lowercase three-letter key a clinic schedule uses for a day.
type Weekday string

const (
	Sunday    Weekday = "sun"
	Monday    Weekday = "mon"
	Tuesday   Weekday = "tue"
	Wednesday Weekday = "wed"
	Thursday  Weekday = "thu"
	Friday    Weekday = "fri"
	Saturday  Weekday = "sat"
)

// Weekdays is indexed by time.Weekday (0 = Sunday).
var Weekdays = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// ParseWeekday accepts "sun", "Sunday", "SUN" and so on.
func ParseWeekday(s string) (Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, wd := range Weekdays {
		if s == string(wd) {
			return wd, true
		}
	}
	full := map[string]Weekday{
		"sunday": Sunday, "monday": Monday, "tuesday": Tuesday, "wednesday": Wednesday,
		"thursday": Thursday, "friday": Friday, "saturday": Saturday,
	}
	wd, ok := full[s]
	return wd, ok
}

// DaySchedule is one day's working window. Nil fields are absent, never "".
type DaySchedule struct {
	Start      *string `json:"start,omitempty"`
	End        *string `json:"end,omitempty"`
	BreakStart *string `json:"break_start,omitempty"` // Optional break start time
	BreakEnd   *string `json:"break_end,omitempty"`   // Optional break end time
}

// HasHours reports whether both start and end are set.
func (d *DaySchedule) HasHours() bool {
	return d != nil && isSet(d.Start) && isSet(d.End)
}

// HasBreak reports whether both break bounds are set.
func (d *DaySchedule) HasBreak() bool {
	return d != nil && isSet(d.BreakStart) && isSet(d.BreakEnd)
}

func isSet(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// ClinicSchedule is a clinic's recurring weekly schedule.
//
// Its JSON form is flat: {"default": {...}, "weekly_off": ["sun"], "mon": {...}}.
type ClinicSchedule struct {
	Default   *DaySchedule
	WeeklyOff []Weekday
	Days      map[Weekday]*DaySchedule
}

// IsWeeklyOff reports whether wd is listed in weekly_off.
func (s ClinicSchedule) IsWeeklyOff(wd Weekday) bool {
	for _, off := range s.WeeklyOff {
		if off == wd {
			return true
		}
	}
	return false
}

func (s ClinicSchedule) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(s.Days)+2)
	if s.Default != nil {
		out["default"] = s.Default
	}
	if len(s.WeeklyOff) > 0 {
		out["weekly_off"] = s.WeeklyOff
	}
	for wd, day := range s.Days {
		if day != nil {
			out[string(wd)] = day
		}
	}
	return json.Marshal(out)
}

func (s *ClinicSchedule) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ClinicSchedule{}
	for key, value := range raw {
		switch key {
		case "default":
			var day DaySchedule
			if err := json.Unmarshal(value, &day); err != nil {
				return fmt.Errorf("default: %w", err)
			}
			s.Default = &day
		case "weekly_off":
			var names []string
			if err := json.Unmarshal(value, &names); err != nil {
				return fmt.Errorf("weekly_off: %w", err)
			}
			for _, name := range names {
				wd, ok := ParseWeekday(name)
				if !ok {
					return fmt.Errorf("weekly_off: unknown weekday %q", name)
				}
				s.WeeklyOff = append(s.WeeklyOff, wd)
			}
		default:
			wd, ok := ParseWeekday(key)
			if !ok {
				continue
			}
			if string(value) == "null" {
				continue
			}
			var day DaySchedule
			if err := json.Unmarshal(value, &day); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if s.Days == nil {
				s.Days = make(map[Weekday]*DaySchedule)
			}
			s.Days[wd] = &day
		}
	}
	return nil
}

// Value implements the driver.Valuer interface
func (s ClinicSchedule) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil // Return as string for JSONB type
}

// Scan implements the sql.Scanner interface
func (s *ClinicSchedule) Scan(value interface{}) error {
	if value == nil {
		*s = ClinicSchedule{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal ClinicSchedule: unsupported type %T", value)
	}

	return json.Unmarshal(data, s)
}
