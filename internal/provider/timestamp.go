package provider

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The restore subsystem reports creation times in three encodings depending
// on the query path: RFC3339 when the shell serializes a DateTime with zone
// information, a bare ISO local string without any offset, and the WMI
// fixed-width form yyyyMMddHHmmss.ffffff±UUU where UUU is the offset from
// UTC in minutes. Everything downstream works on a single time.Time, so all
// three are folded here at the boundary. Bare ISO strings are taken as UTC.

// TimestampError is returned when a provider-reported creation time cannot
// be folded into a time.Time. Callers keep the checkpoint in the inventory
// count but must exclude it from age arithmetic.
type TimestampError struct {
	Raw string
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("cannot normalize provider timestamp %q", e.Raw)
}

// NormalizeTimestamp folds any of the three accepted encodings into a UTC
// instant.
func NormalizeTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, &TimestampError{Raw: raw}
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC(), nil
	}
	if t, err := parseWMIDatetime(s); err == nil {
		return t.UTC(), nil
	}

	return time.Time{}, &TimestampError{Raw: raw}
}

// parseWMIDatetime parses the DMTF/WMI datetime form 20251029133027.000000-000.
// The trailing three digits are minutes east of UTC, signed.
func parseWMIDatetime(s string) (time.Time, error) {
	// 14 digits, '.', 6 digits, sign, 3 digits
	if len(s) != 25 || s[14] != '.' || (s[21] != '+' && s[21] != '-') {
		return time.Time{}, fmt.Errorf("not a WMI datetime: %q", s)
	}

	digits := s[:14] + s[15:21] + s[22:]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return time.Time{}, fmt.Errorf("not a WMI datetime: %q", s)
		}
	}

	year, _ := strconv.Atoi(s[0:4])
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])
	hour, _ := strconv.Atoi(s[8:10])
	minute, _ := strconv.Atoi(s[10:12])
	second, _ := strconv.Atoi(s[12:14])
	micros, _ := strconv.Atoi(s[15:21])
	offsetMinutes, _ := strconv.Atoi(s[22:25])
	if s[21] == '-' {
		offsetMinutes = -offsetMinutes
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 60 {
		return time.Time{}, fmt.Errorf("WMI datetime out of range: %q", s)
	}

	loc := time.FixedZone("", offsetMinutes*60)
	return time.Date(year, time.Month(month), day, hour, minute, second, micros*1000, loc), nil
}
