package policy

import (
	"fmt"
	"time"
)

// IntervalSchedule fires a fixed number of minutes after the previous
// creation, with no calendar alignment. It is the "every X minutes/hours"
// frequency.
type IntervalSchedule struct {
	IntervalMinutes int
}

func (s *IntervalSchedule) Kind() string { return "interval" }

func (s *IntervalSchedule) Normalize() error {
	if s.IntervalMinutes <= 0 {
		return fmt.Errorf("interval must be positive; got %d minutes", s.IntervalMinutes)
	}
	return nil
}

func (s *IntervalSchedule) NextAfter(last time.Time) time.Time {
	return last.Add(time.Duration(s.IntervalMinutes) * time.Minute)
}
