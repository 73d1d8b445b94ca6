package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/repository"
)

type fakeDueRepo struct {
	repository.PublishJobRepository
	due      []*models.PublishJob
	gotNow   time.Time
	gotLimit int
}

func (f *fakeDueRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*models.PublishJob, error) {
	f.gotNow = now
	f.gotLimit = limit
	return f.due, nil
}

func TestSweepEnqueuesDueJobs(t *testing.T) {
	repo := &fakeDueRepo{due: []*models.PublishJob{
		{ID: 1, Platform: models.PlatformYoutube},
		{ID: 2, Platform: models.PlatformTiktok},
	}}

	var enqueued []int64
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	j := &ScheduledSweepJob{
		jobs: repo,
		enqueue: func(job *models.PublishJob) error {
			enqueued = append(enqueued, job.ID)
			return nil
		},
		now: func() time.Time { return now },
	}

	j.Sweep()

	if repo.gotLimit != sweepBatchSize {
		t.Fatalf("got batch size %d, want %d", repo.gotLimit, sweepBatchSize)
	}
	if !repo.gotNow.Equal(now) {
		t.Fatalf("got now %v, want %v", repo.gotNow, now)
	}
	if len(enqueued) != 2 || enqueued[0] != 1 || enqueued[1] != 2 {
		t.Fatalf("unexpected enqueue order: %v", enqueued)
	}
}

func TestSweepContinuesPastEnqueueFailure(t *testing.T) {
	repo := &fakeDueRepo{due: []*models.PublishJob{
		{ID: 1}, {ID: 2}, {ID: 3},
	}}

	var enqueued []int64
	j := &ScheduledSweepJob{
		jobs: repo,
		enqueue: func(job *models.PublishJob) error {
			if job.ID == 2 {
				return errors.New("broker down")
			}
			enqueued = append(enqueued, job.ID)
			return nil
		},
		now: time.Now,
	}

	j.Sweep()

	if len(enqueued) != 2 || enqueued[1] != 3 {
		t.Fatalf("sweep should continue after a failed enqueue: %v", enqueued)
	}
}
