package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/platforms"
	"github.com/publora/publora/pkg/utils"
)

const (
	statusPollInterval = 30 * time.Second
	maxStatusPolls     = 5
)

func (q *Queue) HandlePublishTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishJobPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return q.RunPublishJob(ctx, payload.JobID)
}

// RunPublishJob drives one job through the publish state machine. Every
// transition is persisted before the next step, so a crash at any point
// leaves the job either re-claimable or in a final state.
func (q *Queue) RunPublishJob(ctx context.Context, jobID int64) error {
	job, err := q.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil || job.Terminal() {
		return nil
	}

	now := q.now()

	// A rescheduled job can have a stale task in the queue. Hand the
	// wait back to the broker instead of publishing early. Platforms
	// with native scheduling upload right away and carry the publish
	// time themselves.
	adapter := q.registry.Adapter(job.Platform)
	if adapter == nil {
		if markErr := q.jobs.MarkFailed(ctx, job.ID, "unknown platform: "+job.Platform, now); markErr != nil {
			return markErr
		}
		return nil
	}
	if job.ScheduledFor.Valid && job.ScheduledFor.Time.After(now) && !adapter.NativeScheduling() {
		return q.enqueueJob(job)
	}

	claimed, err := q.jobs.ClaimProcessing(ctx, job.ID, now)
	if err != nil {
		return err
	}
	if !claimed {
		log.Printf("job %d not claimable, skipping", job.ID)
		return nil
	}

	result, nativeScheduled, err := q.publish(ctx, adapter, job)
	if err != nil {
		if markErr := q.jobs.MarkFailed(ctx, job.ID, err.Error(), q.now()); markErr != nil {
			return markErr
		}
		return err
	}

	if result.Deferred {
		if err := q.jobs.SetPublishHandle(ctx, job.ID, result.RemoteID); err != nil {
			return err
		}
		return q.enqueueStatusPoll(StatusPollPayload{JobID: job.ID, Attempt: 1}, statusPollInterval)
	}

	status := models.JobStatusCompleted
	if nativeScheduled {
		status = models.JobStatusPlatformScheduled
	}
	return q.jobs.MarkCompleted(ctx, job.ID, status, result.RemoteID, result.RemoteURL, q.now())
}

func (q *Queue) publish(ctx context.Context, adapter platforms.Adapter, job *models.PublishJob) (*platforms.UploadResult, bool, error) {
	conn, err := q.connections.GetByID(ctx, job.ConnectionID)
	if err != nil {
		return nil, false, err
	}
	if conn == nil {
		return nil, false, fmt.Errorf("connection %d not found", job.ConnectionID)
	}
	if !conn.IsActive {
		return nil, false, fmt.Errorf("connection %d is disconnected", job.ConnectionID)
	}

	accessToken, err := utils.Decrypt(conn.AccessToken, q.secretKey)
	if err != nil {
		return nil, false, fmt.Errorf("decrypting access token: %w", err)
	}
	creds := platforms.Credentials{AccessToken: accessToken, AccountID: conn.AccountID}

	post, err := q.posts.GetByID(ctx, job.PostID)
	if err != nil {
		return nil, false, err
	}
	if post == nil {
		return nil, false, fmt.Errorf("post %d not found", job.PostID)
	}

	meta := jobMetadata(job, post)
	nativeScheduled := false
	if job.ScheduledFor.Valid && job.ScheduledFor.Time.After(q.now()) && adapter.NativeScheduling() {
		publishAt := job.ScheduledFor.Time
		meta.PublishAt = &publishAt
		nativeScheduled = true
	}

	if job.IsUpdate {
		result, err := adapter.Update(ctx, creds, job.UpdateTargetVideoID.String, meta)
		return result, nativeScheduled, err
	}

	// Text posts have no storage object; the adapter gets an empty
	// asset and publishes commentary only.
	var asset platforms.Asset
	if post.StorageKey != "" {
		assetURL, err := q.storage.PresignDownload(ctx, post.StorageKey)
		if err != nil {
			return nil, false, err
		}
		asset = platforms.Asset{URL: assetURL, ContentType: post.ContentType, Size: post.FileSize}
	}

	result, err := adapter.Upload(ctx, creds, asset, meta)
	return result, nativeScheduled, err
}

// jobMetadata merges per-job overrides over the post's own metadata.
func jobMetadata(job *models.PublishJob, post *models.Post) platforms.Metadata {
	meta := platforms.Metadata{
		Title:       post.Title,
		Description: post.Description,
		Tags:        post.Tags,
		Privacy:     post.Privacy,
	}
	if job.Title.Valid && job.Title.String != "" {
		meta.Title = job.Title.String
	}
	if job.Description.Valid && job.Description.String != "" {
		meta.Description = job.Description.String
	}
	if len(job.Tags) > 0 {
		meta.Tags = job.Tags
	}
	if job.Privacy.Valid && job.Privacy.String != "" {
		meta.Privacy = job.Privacy.String
	}
	return meta
}

func (q *Queue) HandleTiktokStatusTask(ctx context.Context, task *asynq.Task) error {
	var payload StatusPollPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return q.PollUploadStatus(ctx, payload)
}

// PollUploadStatus checks one deferred upload. Still-processing jobs
// get another poll with a linearly growing delay; after maxStatusPolls
// the job fails rather than spinning forever.
func (q *Queue) PollUploadStatus(ctx context.Context, payload StatusPollPayload) error {
	job, err := q.jobs.GetByID(ctx, payload.JobID)
	if err != nil {
		return err
	}
	if job == nil || job.Status != models.JobStatusProcessing {
		return nil
	}
	if !job.PublishHandle.Valid {
		return q.jobs.MarkFailed(ctx, job.ID, "missing publish handle", q.now())
	}

	poller := q.registry.StatusPoller(job.Platform)
	if poller == nil {
		return q.jobs.MarkFailed(ctx, job.ID, "platform has no status endpoint", q.now())
	}

	conn, err := q.connections.GetByID(ctx, job.ConnectionID)
	if err != nil {
		return err
	}
	if conn == nil {
		return q.jobs.MarkFailed(ctx, job.ID, fmt.Sprintf("connection %d not found", job.ConnectionID), q.now())
	}
	accessToken, err := utils.Decrypt(conn.AccessToken, q.secretKey)
	if err != nil {
		return err
	}
	creds := platforms.Credentials{AccessToken: accessToken, AccountID: conn.AccountID}

	status, err := poller.CheckUploadStatus(ctx, creds, job.PublishHandle.String)
	if err != nil {
		if markErr := q.jobs.MarkFailed(ctx, job.ID, err.Error(), q.now()); markErr != nil {
			return markErr
		}
		return err
	}

	switch {
	case status.Done:
		return q.jobs.MarkCompleted(ctx, job.ID, models.JobStatusCompleted, status.RemoteID, status.RemoteURL, q.now())
	case status.Failed:
		reason := status.FailReason
		if reason == "" {
			reason = "platform rejected the upload"
		}
		return q.jobs.MarkFailed(ctx, job.ID, reason, q.now())
	}

	if payload.Attempt >= maxStatusPolls {
		return q.jobs.MarkFailed(ctx, job.ID, "timed out waiting for platform processing", q.now())
	}

	next := StatusPollPayload{JobID: job.ID, Attempt: payload.Attempt + 1}
	return q.enqueueStatusPoll(next, time.Duration(next.Attempt)*statusPollInterval)
}

func (q *Queue) HandleCommentSyncTask(ctx context.Context, task *asynq.Task) error {
	var payload CommentSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return q.syncer.SyncConnection(ctx, payload.ConnectionID)
}
