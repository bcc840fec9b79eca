// Package scheduling computes bookable slots from a clinic's weekly schedule
// and arbitrates booking attempts against the current bookings and blocks.
package scheduling

import (
	"fmt"
	"strconv"
	"strings"
)

// EndOfDay is 24:00, accepted only as a window end.
const EndOfDay = 24 * 60

// ParseTimeOfDay converts "HH:MM" or a bare hour ("9") to minutes since
// midnight. ok is false for anything malformed, so 0 (midnight) stays
// distinguishable from a parse failure.
func ParseTimeOfDay(s string) (minutes int, ok bool) {
	s = strings.TrimSpace(s)
	hourPart, minutePart, hasColon := strings.Cut(s, ":")
	if !hasColon {
		minutePart = "0"
	}
	hour, ok := parseDigits(hourPart)
	if !ok {
		return 0, false
	}
	minute, ok := parseDigits(minutePart)
	if !ok {
		return 0, false
	}
	if minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, false
	}
	return hour*60 + minute, true
}

// parseDigits accepts one or two ASCII digits.
func parseDigits(s string) (int, bool) {
	if len(s) == 0 || len(s) > 2 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatMinutes renders minutes since midnight as zero-padded 24-hour "HH:MM".
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeTime parses and re-formats s, so "9" and "09:00" compare equal.
func NormalizeTime(s string) (string, bool) {
	m, ok := ParseTimeOfDay(s)
	if !ok || m == EndOfDay {
		return "", false
	}
	return FormatMinutes(m), true
}

func parseField(s *string) (int, bool) {
	if s == nil {
		return 0, false
	}
	return ParseTimeOfDay(*s)
}
