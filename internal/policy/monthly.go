package policy

import (
	"fmt"
	"time"
)

// MonthlySchedule fires on a specific day of the month at a configured time
// of day. Days beyond the month length clamp to the last valid day, so a
// DayOfMonth of 31 fires on Feb 28th (29th in leap years).
type MonthlySchedule struct {
	DayOfMonth int
	StartTime  string
	TimeZone   string

	loc         *time.Location
	startHour   int
	startMinute int
}

func (s *MonthlySchedule) Kind() string { return "monthly" }

func (s *MonthlySchedule) Normalize() error {
	if s.DayOfMonth == 0 {
		s.DayOfMonth = 1
	}
	if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
		return fmt.Errorf("day of month must be 1-31; got %d", s.DayOfMonth)
	}

	timezone, loc, err := helperNormalizeTimezone(s.TimeZone)
	if err != nil {
		return err
	}
	s.TimeZone = timezone
	s.loc = loc

	start, err := helperNormalizeStartTime(s.StartTime)
	if err != nil {
		return err
	}
	s.startHour = start.Hour()
	s.startMinute = start.Minute()
	s.StartTime = fmt.Sprintf("%02d:%02d", s.startHour, s.startMinute)

	return nil
}

func (s *MonthlySchedule) NextAfter(last time.Time) time.Time {
	ref := last.In(s.loc)

	candidate := helperGetMonthlyDate(ref.Year(), ref.Month(), s.DayOfMonth, s.startHour, s.startMinute, s.loc)
	if !candidate.After(ref) {
		nextMonth := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, s.loc).AddDate(0, 1, 0)
		candidate = helperGetMonthlyDate(nextMonth.Year(), nextMonth.Month(), s.DayOfMonth, s.startHour, s.startMinute, s.loc)
	}
	return candidate
}

// YearlySchedule fires once a year on a specific month/day at a configured
// time of day, with the same month-length clamping as MonthlySchedule.
type YearlySchedule struct {
	MonthOfYear int
	DayOfMonth  int
	StartTime   string
	TimeZone    string

	loc         *time.Location
	startHour   int
	startMinute int
}

func (s *YearlySchedule) Kind() string { return "yearly" }

func (s *YearlySchedule) Normalize() error {
	if s.MonthOfYear == 0 {
		s.MonthOfYear = 1
	}
	if s.MonthOfYear < 1 || s.MonthOfYear > 12 {
		return fmt.Errorf("month must be 1-12; got %d", s.MonthOfYear)
	}
	if s.DayOfMonth == 0 {
		s.DayOfMonth = 1
	}
	if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
		return fmt.Errorf("day of month must be 1-31; got %d", s.DayOfMonth)
	}

	timezone, loc, err := helperNormalizeTimezone(s.TimeZone)
	if err != nil {
		return err
	}
	s.TimeZone = timezone
	s.loc = loc

	start, err := helperNormalizeStartTime(s.StartTime)
	if err != nil {
		return err
	}
	s.startHour = start.Hour()
	s.startMinute = start.Minute()
	s.StartTime = fmt.Sprintf("%02d:%02d", s.startHour, s.startMinute)

	return nil
}

func (s *YearlySchedule) NextAfter(last time.Time) time.Time {
	ref := last.In(s.loc)

	candidate := helperGetMonthlyDate(ref.Year(), time.Month(s.MonthOfYear), s.DayOfMonth, s.startHour, s.startMinute, s.loc)
	if !candidate.After(ref) {
		candidate = helperGetMonthlyDate(ref.Year()+1, time.Month(s.MonthOfYear), s.DayOfMonth, s.startHour, s.startMinute, s.loc)
	}
	return candidate
}
