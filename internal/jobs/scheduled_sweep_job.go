package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/queue"
	"github.com/publora/publora/internal/repository"
)

const sweepBatchSize = 50

// ScheduledSweepJob is the safety net behind the broker: any due job
// whose task got lost (enqueue crash, Redis flush) is re-enqueued
// here. Duplicate tasks are harmless because the worker's claim
// update turns them into no-ops.
type ScheduledSweepJob struct {
	jobs    repository.PublishJobRepository
	enqueue func(job *models.PublishJob) error
	now     func() time.Time
}

func NewScheduledSweepJob(jobs repository.PublishJobRepository, asynqClient *asynq.Client) *ScheduledSweepJob {
	return &ScheduledSweepJob{
		jobs: jobs,
		enqueue: func(job *models.PublishJob) error {
			return queue.EnqueueJob(asynqClient, job)
		},
		now: time.Now,
	}
}

func (j *ScheduledSweepJob) Sweep() {
	ctx := context.Background()

	due, err := j.jobs.FindDue(ctx, j.now(), sweepBatchSize)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, dueJob := range due {
		if err := j.enqueue(dueJob); err != nil {
			slog.Info(err.Error())
		}
	}
}
