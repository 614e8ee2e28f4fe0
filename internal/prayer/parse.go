package prayer

import (
	"fmt"
	"strconv"
	"strings"
)

// MalformedTimeError reports a raw time string that could not be parsed.
// The offending entry is dropped from the schedule; it is never fatal to the
// whole refresh.
type MalformedTimeError struct {
	Raw string
}

func (e *MalformedTimeError) Error() string {
	return fmt.Sprintf("malformed prayer time %q", e.Raw)
}

// ParseClock parses a raw time-of-day string from an upstream source into an
// (hour, minute) pair. Sources emit values like "05:12", "05:12 (AST)" or
// "05:12 AM"; anything after the first whitespace-separated token is dropped,
// as is a trailing parenthetical annotation. The remaining token must be a
// colon-separated hour and minute. No timezone conversion happens here; the
// value is resolved against the host's local day when the schedule is built.
func ParseClock(raw string) (hour, minute int, err error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return 0, 0, &MalformedTimeError{Raw: raw}
	}

	token := fields[0]
	if i := strings.Index(token, "("); i >= 0 {
		token = strings.TrimSpace(token[:i])
	}

	parts := strings.Split(token, ":")
	if len(parts) < 2 {
		return 0, 0, &MalformedTimeError{Raw: raw}
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, &MalformedTimeError{Raw: raw}
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, &MalformedTimeError{Raw: raw}
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, &MalformedTimeError{Raw: raw}
	}

	return hour, minute, nil
}

// pmAdjusted lists the prayers affected by the 12-hour heuristic. Fajr,
// Sunrise and Dhuhr are never adjusted.
var pmAdjusted = map[Name]bool{
	Asr:     true,
	Maghrib: true,
	Isha:    true,
}

// ApplyPMRule disambiguates hours from the Qatar MOI table, which publishes
// times in 12-hour format without an AM/PM marker: an afternoon prayer with
// an hour below 10 is taken to be PM and gets 12 added. This heuristic is
// specific to that source's table format and must not be applied to 24-hour
// providers.
func ApplyPMRule(name Name, hour int) int {
	if pmAdjusted[name] && hour < 10 {
		return hour + 12
	}
	return hour
}
