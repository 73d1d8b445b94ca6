package queue

import (
	"database/sql"
	"testing"
	"time"

	"github.com/publora/publora/internal/models"
)

func TestStartAt(t *testing.T) {
	now := time.Now()
	future := now.Add(2 * time.Hour)

	tests := []struct {
		name     string
		platform string
		schedule sql.NullTime
		deferred bool
	}{
		{name: "immediate job", platform: models.PlatformTiktok},
		{
			name:     "past schedule runs now",
			platform: models.PlatformTiktok,
			schedule: sql.NullTime{Time: now.Add(-time.Hour), Valid: true},
		},
		{
			name:     "broker holds non-native schedule",
			platform: models.PlatformTiktok,
			schedule: sql.NullTime{Time: future, Valid: true},
			deferred: true,
		},
		{
			name:     "broker holds vimeo schedule",
			platform: models.PlatformVimeo,
			schedule: sql.NullTime{Time: future, Valid: true},
			deferred: true,
		},
		{
			name:     "native platform uploads immediately",
			platform: models.PlatformYoutube,
			schedule: sql.NullTime{Time: future, Valid: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &models.PublishJob{Platform: tt.platform, ScheduledFor: tt.schedule}
			at, ok := startAt(job, now)
			if ok != tt.deferred {
				t.Fatalf("deferred = %v, want %v", ok, tt.deferred)
			}
			if ok && !at.Equal(tt.schedule.Time) {
				t.Fatalf("process time %v, want %v", at, tt.schedule.Time)
			}
		})
	}
}
