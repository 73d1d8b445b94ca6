package queue

import (
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/platforms"
)

const maxTaskRetries = 3

// startAt decides when the broker should run a publish task. Platforms
// that schedule natively get the task right away so the upload carries
// the publish time to the platform; everything else waits in the
// broker until scheduled_for.
func startAt(job *models.PublishJob, now time.Time) (time.Time, bool) {
	if !job.ScheduledFor.Valid || !job.ScheduledFor.Time.After(now) {
		return time.Time{}, false
	}
	if platforms.NativelyScheduled(job.Platform) {
		return time.Time{}, false
	}
	return job.ScheduledFor.Time, true
}

// EnqueueJob schedules the publish/update task for a job. A future
// scheduled_for becomes asynq's ProcessAt, so the wait survives
// restarts without any in-process timer.
func EnqueueJob(asynqClient *asynq.Client, job *models.PublishJob) error {
	taskPayload, err := json.Marshal(PublishJobPayload{JobID: job.ID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(PublishTaskType(job.Platform, job.IsUpdate), taskPayload)

	opts := []asynq.Option{asynq.MaxRetry(maxTaskRetries)}
	if at, ok := startAt(job, time.Now()); ok {
		opts = append(opts, asynq.ProcessAt(at))
	}

	if _, err := asynqClient.Enqueue(task, opts...); err != nil {
		return err
	}

	log.Printf("Task scheduled: job %d (%s)", job.ID, job.Platform)
	return nil
}

func EnqueueStatusPoll(asynqClient *asynq.Client, payload StatusPollPayload, delay time.Duration) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeTiktokStatus, taskPayload)

	if _, err := asynqClient.Enqueue(task, asynq.MaxRetry(maxTaskRetries), asynq.ProcessIn(delay)); err != nil {
		return err
	}

	log.Printf("Status poll scheduled: job %d attempt %d", payload.JobID, payload.Attempt)
	return nil
}

func EnqueueCommentSync(asynqClient *asynq.Client, connectionID int64) error {
	taskPayload, err := json.Marshal(CommentSyncPayload{ConnectionID: connectionID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeCommentSync, taskPayload)

	if _, err := asynqClient.Enqueue(task, asynq.MaxRetry(1)); err != nil {
		return err
	}

	return nil
}
