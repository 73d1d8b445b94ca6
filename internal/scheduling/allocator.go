package scheduling

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/publora/publora/internal/models"
)

const horizonDays = 60

var (
	// ErrNoSchedule means the connection never configured a posting
	// schedule at all.
	ErrNoSchedule = errors.New("no posting schedule configured")
	// ErrEmptySchedule means a schedule exists but has no times in it.
	ErrEmptySchedule = errors.New("posting schedule has no slots")
	// ErrNoFreeSlot means every slot in the search horizon is taken.
	ErrNoFreeSlot = errors.New("no free slot within scheduling horizon")
)

// occupiedKey is the collision granularity: two jobs occupy the same
// slot when they land on the same minute in the schedule's timezone.
func occupiedKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02 15:04")
}

// OccupiedSet builds the collision set from already-booked times.
func OccupiedSet(taken []time.Time, loc *time.Location) map[string]bool {
	occupied := make(map[string]bool, len(taken))
	for _, t := range taken {
		occupied[occupiedKey(t, loc)] = true
	}
	return occupied
}

// NextSlot walks day by day from now through the horizon and returns
// the first schedule time that is strictly in the future and not in
// the occupied set. Times within a day are tried in clock order
// regardless of their order in the schedule.
func NextSlot(schedule *models.PostingSchedule, occupied map[string]bool, now time.Time) (time.Time, error) {
	if schedule == nil {
		return time.Time{}, ErrNoSchedule
	}

	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule timezone: %w", err)
	}

	empty := true
	for _, slot := range schedule.Slots {
		if len(slot.Times) > 0 {
			empty = false
			break
		}
	}
	if empty {
		return time.Time{}, ErrEmptySchedule
	}

	local := now.In(loc)
	for dayOffset := 0; dayOffset <= horizonDays; dayOffset++ {
		day := local.AddDate(0, 0, dayOffset)
		times := append([]string(nil), schedule.TimesFor(day.Weekday())...)
		sort.Strings(times)

		for _, hhmm := range times {
			clock, err := time.ParseInLocation("15:04", hhmm, loc)
			if err != nil {
				return time.Time{}, fmt.Errorf("schedule time %q: %w", hhmm, err)
			}

			candidate := time.Date(day.Year(), day.Month(), day.Day(),
				clock.Hour(), clock.Minute(), 0, 0, loc)
			if !candidate.After(now) {
				continue
			}
			if occupied[occupiedKey(candidate, loc)] {
				continue
			}
			return candidate, nil
		}
	}

	return time.Time{}, ErrNoFreeSlot
}
