package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type ScheduleKind string

const (
	ScheduleInterval ScheduleKind = "Interval"
	ScheduleHourly   ScheduleKind = "Hourly"
	ScheduleDaily    ScheduleKind = "Daily"
	ScheduleWeekly   ScheduleKind = "Weekly"
)

// Schedule is the closed recurrence union. Exactly one variant is active,
// selected by Type; the other fields are meaningful only for their variant.
// Day follows the 0=Sunday .. 6=Saturday convention.
type Schedule struct {
	Type     ScheduleKind
	Minutes  int
	AtMinute int
	AtHour   int
	Day      int
}

type scheduleWire struct {
	Type     ScheduleKind `json:"type"`
	Minutes  int          `json:"minutes,omitempty"`
	AtMinute *int         `json:"at_minute,omitempty"`
	AtHour   *int         `json:"at_hour,omitempty"`
	Day      *int         `json:"day,omitempty"`
}

// MarshalJSON renders the tagged wire shape, emitting only the fields of the
// active variant.
func (s Schedule) MarshalJSON() ([]byte, error) {
	w := scheduleWire{Type: s.Type}
	switch s.Type {
	case ScheduleInterval:
		w.Minutes = s.Minutes
	case ScheduleHourly:
		w.AtMinute = &s.AtMinute
	case ScheduleDaily:
		w.AtHour = &s.AtHour
		w.AtMinute = &s.AtMinute
	case ScheduleWeekly:
		w.Day = &s.Day
		w.AtHour = &s.AtHour
		w.AtMinute = &s.AtMinute
	}
	return json.Marshal(w)
}

func (s *Schedule) UnmarshalJSON(data []byte) error {
	var w scheduleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*s = Schedule{Type: w.Type, Minutes: w.Minutes}
	if w.AtMinute != nil {
		s.AtMinute = *w.AtMinute
	}
	if w.AtHour != nil {
		s.AtHour = *w.AtHour
	}
	if w.Day != nil {
		s.Day = *w.Day
	}
	return nil
}

// Validate checks the variant's field ranges. Out-of-range values are rejected
// here, at task creation; Next assumes a valid schedule.
func (s Schedule) Validate() error {
	switch s.Type {
	case ScheduleInterval:
		if s.Minutes < 1 {
			return fmt.Errorf("interval minutes must be >= 1, got %d", s.Minutes)
		}
	case ScheduleHourly:
		if s.AtMinute < 0 || s.AtMinute > 59 {
			return fmt.Errorf("at_minute must be between 0 and 59, got %d", s.AtMinute)
		}
	case ScheduleDaily:
		if s.AtHour < 0 || s.AtHour > 23 {
			return fmt.Errorf("at_hour must be between 0 and 23, got %d", s.AtHour)
		}
		if s.AtMinute < 0 || s.AtMinute > 59 {
			return fmt.Errorf("at_minute must be between 0 and 59, got %d", s.AtMinute)
		}
	case ScheduleWeekly:
		if s.Day < 0 || s.Day > 6 {
			return fmt.Errorf("day must be between 0 (Sunday) and 6 (Saturday), got %d", s.Day)
		}
		if s.AtHour < 0 || s.AtHour > 23 {
			return fmt.Errorf("at_hour must be between 0 and 23, got %d", s.AtHour)
		}
		if s.AtMinute < 0 || s.AtMinute > 59 {
			return fmt.Errorf("at_minute must be between 0 and 59, got %d", s.AtMinute)
		}
	default:
		return fmt.Errorf("unknown schedule type %q", s.Type)
	}
	return nil
}

// Next computes the first due instant strictly after from. It is pure and
// operates in the calendar of from's location; wall-clock fields are rebuilt
// with time.Date, so daylight-saving gaps resolve through Go's normalization.
// Returning an instant strictly after from guarantees forward progress even
// when called repeatedly at the same instant.
func (s Schedule) Next(from time.Time) time.Time {
	switch s.Type {
	case ScheduleInterval:
		return from.Add(time.Duration(s.Minutes) * time.Minute)

	case ScheduleHourly:
		next := time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), s.AtMinute, 0, 0, from.Location())
		if !next.After(from) {
			next = next.Add(time.Hour)
		}
		return next

	case ScheduleDaily:
		next := time.Date(from.Year(), from.Month(), from.Day(), s.AtHour, s.AtMinute, 0, 0, from.Location())
		if !next.After(from) {
			next = next.AddDate(0, 0, 1)
		}
		return next

	case ScheduleWeekly:
		days := (s.Day - int(from.Weekday()) + 7) % 7
		next := time.Date(from.Year(), from.Month(), from.Day()+days, s.AtHour, s.AtMinute, 0, 0, from.Location())
		if !next.After(from) {
			next = next.AddDate(0, 0, 7)
		}
		return next
	}

	// Unreachable for schedules that passed Validate.
	return time.Time{}
}
