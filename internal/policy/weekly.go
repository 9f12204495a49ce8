package policy

import (
	"fmt"
	"time"
)

// WeeklySchedule fires on a specific day of the week at a configured time of
// day.
//
// Fields:
//   - DayOfWeek: target day ("Monday", "mon", "1", ...). Defaults to Sunday.
//   - StartTime: trigger time in "HH:MM".
//   - TimeZone: IANA timezone. Defaults to UTC.
type WeeklySchedule struct {
	DayOfWeek string
	StartTime string
	TimeZone  string

	loc         *time.Location
	weekday     time.Weekday
	startHour   int
	startMinute int
}

func (s *WeeklySchedule) Kind() string { return "weekly" }

func (s *WeeklySchedule) Normalize() error {
	timezone, loc, err := helperNormalizeTimezone(s.TimeZone)
	if err != nil {
		return err
	}
	s.TimeZone = timezone
	s.loc = loc

	weekday, err := helperNormalizeDay(s.DayOfWeek)
	if err != nil {
		return err
	}
	s.weekday = weekday
	s.DayOfWeek = weekday.String()

	start, err := helperNormalizeStartTime(s.StartTime)
	if err != nil {
		return err
	}
	s.startHour = start.Hour()
	s.startMinute = start.Minute()
	s.StartTime = fmt.Sprintf("%02d:%02d", s.startHour, s.startMinute)

	return nil
}

// NextAfter finds the next occurrence of the configured weekday/time
// strictly after last.
func (s *WeeklySchedule) NextAfter(last time.Time) time.Time {
	ref := last.In(s.loc)

	// Candidate on the reference day itself, then walk forward to the
	// target weekday.
	candidate := time.Date(ref.Year(), ref.Month(), ref.Day(), s.startHour, s.startMinute, 0, 0, s.loc)
	daysAhead := (int(s.weekday) - int(candidate.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, daysAhead)

	if !candidate.After(ref) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}
