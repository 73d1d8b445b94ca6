package models

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// PostingSchedule is the weekly availability template for one
// connection. Slots are stored as a JSON column but validated here at
// the serialization boundary, never trusted on read.
type PostingSchedule struct {
	ID           int64          `db:"id" json:"id"`
	ConnectionID int64          `db:"connection_id" json:"connection_id"`
	Timezone     string         `db:"timezone" json:"timezone"`
	Slots        []ScheduleSlot `db:"slots" json:"slots"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// ScheduleSlot is one weekday's posting times. Day follows time.Weekday
// numbering (0 = Sunday).
type ScheduleSlot struct {
	Day   int      `json:"day"`
	Times []string `json:"times"`
}

var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func (s *PostingSchedule) Validate() error {
	if s.Timezone == "" {
		return errors.New("timezone is required")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q", s.Timezone)
	}
	for _, slot := range s.Slots {
		if slot.Day < 0 || slot.Day > 6 {
			return fmt.Errorf("day must be 0-6, got %d", slot.Day)
		}
		for _, t := range slot.Times {
			if !timeOfDayRe.MatchString(t) {
				return fmt.Errorf("time %q is not zero-padded 24-hour HH:MM", t)
			}
		}
	}
	return nil
}

// TimesFor returns the configured times for a weekday, or nil.
func (s *PostingSchedule) TimesFor(day time.Weekday) []string {
	for _, slot := range s.Slots {
		if slot.Day == int(day) {
			return slot.Times
		}
	}
	return nil
}
