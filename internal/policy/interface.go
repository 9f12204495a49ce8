package policy

import (
	"fmt"
	"strings"
	"time"
)

// Schedule defines the contract all creation-frequency strategies implement.
// A Schedule answers one question: given the instant the last checkpoint was
// created, when is the next scheduled creation?
type Schedule interface {
	// Normalize validates the schedule configuration and sets sane defaults
	// (e.g., defaulting to UTC if no timezone is provided).
	Normalize() error

	// NextAfter returns the first scheduled fire instant strictly after
	// last. Creation is due once the current time reaches that instant.
	NextAfter(last time.Time) time.Time

	// Kind returns the unique identifier for this schedule (e.g., "daily").
	Kind() string
}

// Spec is the serialized form of a creation schedule, discriminated by the
// Frequency tag. Fields that do not apply to the selected frequency are
// ignored.
type Spec struct {
	Frequency       string `mapstructure:"frequency"`
	IntervalMinutes int    `mapstructure:"interval_minutes"`
	StartTime       string `mapstructure:"start_time"`
	EveryNDays      int    `mapstructure:"every_n_days"`
	DayOfWeek       string `mapstructure:"day_of_week"`
	DayOfMonth      int    `mapstructure:"day_of_month"`
	MonthOfYear     int    `mapstructure:"month_of_year"`
	Timezone        string `mapstructure:"timezone"`
}

// New builds and normalizes the Schedule selected by spec.Frequency.
func New(spec Spec) (Schedule, error) {
	var s Schedule

	switch strings.ToLower(strings.TrimSpace(spec.Frequency)) {
	case "interval":
		s = &IntervalSchedule{IntervalMinutes: spec.IntervalMinutes}
	case "hourly":
		s = &HourlySchedule{TimeZone: spec.Timezone}
	case "daily", "":
		s = &DailySchedule{StartTime: spec.StartTime, TimeZone: spec.Timezone}
	case "every-n-days":
		s = &EveryNDaysSchedule{Days: spec.EveryNDays, StartTime: spec.StartTime, TimeZone: spec.Timezone}
	case "weekly":
		s = &WeeklySchedule{DayOfWeek: spec.DayOfWeek, StartTime: spec.StartTime, TimeZone: spec.Timezone}
	case "monthly":
		s = &MonthlySchedule{DayOfMonth: spec.DayOfMonth, StartTime: spec.StartTime, TimeZone: spec.Timezone}
	case "yearly":
		s = &YearlySchedule{MonthOfYear: spec.MonthOfYear, DayOfMonth: spec.DayOfMonth, StartTime: spec.StartTime, TimeZone: spec.Timezone}
	default:
		return nil, fmt.Errorf("unknown schedule frequency %q", spec.Frequency)
	}

	if err := s.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid %s schedule: %w", s.Kind(), err)
	}
	return s, nil
}
