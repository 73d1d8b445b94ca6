package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/publora/publora/internal/models"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("loading %s: %v", name, err)
	}
	return loc
}

func weekdaySchedule(tz string, slots ...models.ScheduleSlot) *models.PostingSchedule {
	return &models.PostingSchedule{ConnectionID: 1, Timezone: tz, Slots: slots}
}

func TestNextSlotNoSchedule(t *testing.T) {
	_, err := NextSlot(nil, nil, time.Now())
	if !errors.Is(err, ErrNoSchedule) {
		t.Fatalf("expected ErrNoSchedule, got %v", err)
	}
}

func TestNextSlotEmptySchedule(t *testing.T) {
	schedule := weekdaySchedule("UTC",
		models.ScheduleSlot{Day: 1, Times: nil},
		models.ScheduleSlot{Day: 3, Times: []string{}},
	)

	_, err := NextSlot(schedule, nil, time.Now())
	if !errors.Is(err, ErrEmptySchedule) {
		t.Fatalf("expected ErrEmptySchedule, got %v", err)
	}
}

func TestNextSlotPicksFirstFutureTime(t *testing.T) {
	loc := mustLoc(t, "UTC")
	// 2026-03-02 is a Monday.
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, loc)

	schedule := weekdaySchedule("UTC",
		models.ScheduleSlot{Day: 1, Times: []string{"14:00", "09:00"}},
	)

	got, err := NextSlot(schedule, nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 09:00 already passed today; 14:00 is the first future slot.
	want := time.Date(2026, 3, 2, 14, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextSlotTriesTimesInClockOrder(t *testing.T) {
	loc := mustLoc(t, "UTC")
	now := time.Date(2026, 3, 2, 6, 0, 0, 0, loc)

	// Times deliberately out of order in the schedule.
	schedule := weekdaySchedule("UTC",
		models.ScheduleSlot{Day: 1, Times: []string{"18:00", "08:00", "12:00"}},
	)

	got, err := NextSlot(schedule, nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 3, 2, 8, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextSlotSkipsOccupiedMinutes(t *testing.T) {
	loc := mustLoc(t, "America/New_York")
	now := time.Date(2026, 3, 2, 6, 0, 0, 0, loc)

	schedule := weekdaySchedule("America/New_York",
		models.ScheduleSlot{Day: 1, Times: []string{"09:00", "17:00"}},
	)

	occupied := OccupiedSet([]time.Time{
		time.Date(2026, 3, 2, 9, 0, 0, 0, loc),
	}, loc)

	got, err := NextSlot(schedule, occupied, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 3, 2, 17, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextSlotCollisionKeyIgnoresSeconds(t *testing.T) {
	loc := mustLoc(t, "UTC")
	now := time.Date(2026, 3, 2, 6, 0, 0, 0, loc)

	schedule := weekdaySchedule("UTC",
		models.ScheduleSlot{Day: 1, Times: []string{"09:00"}},
	)

	// Booked 9:00:45 still occupies the 9:00 minute.
	occupied := OccupiedSet([]time.Time{
		time.Date(2026, 3, 2, 9, 0, 45, 0, loc),
	}, loc)

	got, err := NextSlot(schedule, occupied, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Next Monday.
	want := time.Date(2026, 3, 9, 9, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextSlotRollsToNextWeek(t *testing.T) {
	loc := mustLoc(t, "UTC")
	// Monday evening, past the only configured time.
	now := time.Date(2026, 3, 2, 20, 0, 0, 0, loc)

	schedule := weekdaySchedule("UTC",
		models.ScheduleSlot{Day: 1, Times: []string{"10:00"}},
	)

	got, err := NextSlot(schedule, nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 3, 9, 10, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextSlotExhaustsHorizon(t *testing.T) {
	loc := mustLoc(t, "UTC")
	now := time.Date(2026, 3, 2, 6, 0, 0, 0, loc)

	schedule := weekdaySchedule("UTC",
		models.ScheduleSlot{Day: 1, Times: []string{"09:00"}},
	)

	// Occupy every Monday 09:00 far past the horizon.
	var taken []time.Time
	for d := 0; d <= horizonDays+7; d++ {
		day := now.AddDate(0, 0, d)
		if day.Weekday() == time.Monday {
			taken = append(taken, time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, loc))
		}
	}

	_, err := NextSlot(schedule, OccupiedSet(taken, loc), now)
	if !errors.Is(err, ErrNoFreeSlot) {
		t.Fatalf("expected ErrNoFreeSlot, got %v", err)
	}
}

func TestNextSlotHonorsTimezone(t *testing.T) {
	tokyo := mustLoc(t, "Asia/Tokyo")

	// 23:30 UTC Monday is already Tuesday 08:30 in Tokyo.
	now := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)

	schedule := weekdaySchedule("Asia/Tokyo",
		models.ScheduleSlot{Day: 2, Times: []string{"09:00"}},
	)

	got, err := NextSlot(schedule, nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 3, 3, 9, 0, 0, 0, tokyo)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
