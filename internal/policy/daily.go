package policy

import (
	"fmt"
	"time"
)

// HourlySchedule fires at the top of every hour in the configured timezone.
type HourlySchedule struct {
	TimeZone string

	loc *time.Location
}

func (s *HourlySchedule) Kind() string { return "hourly" }

func (s *HourlySchedule) Normalize() error {
	timezone, loc, err := helperNormalizeTimezone(s.TimeZone)
	if err != nil {
		return err
	}
	s.TimeZone = timezone
	s.loc = loc
	return nil
}

func (s *HourlySchedule) NextAfter(last time.Time) time.Time {
	ref := last.In(s.loc)
	top := time.Date(ref.Year(), ref.Month(), ref.Day(), ref.Hour(), 0, 0, 0, s.loc)
	return top.Add(time.Hour)
}

// DailySchedule fires once per day at a configured time of day.
//
// Fields:
//   - StartTime: the target trigger time in "HH:MM" format.
//   - TimeZone: IANA timezone name (e.g., "America/New_York"). Defaults to UTC.
type DailySchedule struct {
	StartTime string
	TimeZone  string

	loc         *time.Location
	startHour   int
	startMinute int
}

func (s *DailySchedule) Kind() string { return "daily" }

// Normalize validates and prepares the schedule for evaluation: parses the
// timezone (defaulting to UTC) and the "HH:MM" start time.
func (s *DailySchedule) Normalize() error {
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

func (s *DailySchedule) NextAfter(last time.Time) time.Time {
	ref := last.In(s.loc)
	next := time.Date(ref.Year(), ref.Month(), ref.Day(), s.startHour, s.startMinute, 0, 0, s.loc)
	if !next.After(ref) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// EveryNDaysSchedule fires N days after the previous creation, at a
// configured time of day. Unlike DailySchedule the cadence is anchored to
// the last fire, not the calendar.
type EveryNDaysSchedule struct {
	Days      int
	StartTime string
	TimeZone  string

	loc         *time.Location
	startHour   int
	startMinute int
}

func (s *EveryNDaysSchedule) Kind() string { return "every-n-days" }

func (s *EveryNDaysSchedule) Normalize() error {
	if s.Days <= 0 {
		return fmt.Errorf("day count must be positive; got %d", s.Days)
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

func (s *EveryNDaysSchedule) NextAfter(last time.Time) time.Time {
	ref := last.In(s.loc)
	anchor := ref.AddDate(0, 0, s.Days)
	return time.Date(anchor.Year(), anchor.Month(), anchor.Day(), s.startHour, s.startMinute, 0, 0, s.loc)
}
