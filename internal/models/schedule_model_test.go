package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleValidate(t *testing.T) {
	schedule := &PostingSchedule{
		Timezone: "America/New_York",
		Slots: []ScheduleSlot{
			{Day: 1, Times: []string{"09:30", "14:00"}},
			{Day: 5, Times: []string{"18:15"}},
		},
	}
	require.NoError(t, schedule.Validate())

	cases := []struct {
		name     string
		mutate   func(*PostingSchedule)
		errMatch string
	}{
		{"missing timezone", func(s *PostingSchedule) { s.Timezone = "" }, "timezone is required"},
		{"bad timezone", func(s *PostingSchedule) { s.Timezone = "Mars/Olympus" }, "unknown timezone"},
		{"day out of range", func(s *PostingSchedule) { s.Slots[0].Day = 7 }, "day must be 0-6"},
		{"unpadded hour", func(s *PostingSchedule) { s.Slots[0].Times[0] = "9:30" }, "not zero-padded"},
		{"bad minutes", func(s *PostingSchedule) { s.Slots[0].Times[0] = "09:60" }, "not zero-padded"},
		{"hour overflow", func(s *PostingSchedule) { s.Slots[0].Times[0] = "24:00" }, "not zero-padded"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bad := &PostingSchedule{
				Timezone: "America/New_York",
				Slots: []ScheduleSlot{
					{Day: 1, Times: []string{"09:30", "14:00"}},
				},
			}
			tc.mutate(bad)
			err := bad.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMatch)
		})
	}
}

func TestScheduleTimesFor(t *testing.T) {
	schedule := &PostingSchedule{
		Timezone: "UTC",
		Slots: []ScheduleSlot{
			{Day: 1, Times: []string{"09:30"}},
			{Day: 3, Times: nil},
		},
	}

	assert.Equal(t, []string{"09:30"}, schedule.TimesFor(time.Monday))
	assert.Nil(t, schedule.TimesFor(time.Wednesday))
	assert.Nil(t, schedule.TimesFor(time.Sunday))
}
