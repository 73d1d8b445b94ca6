package models

import (
	"database/sql"
	"time"
)

// PublishJob is the durable record of one upload or update against one
// platform connection. It is the single source of truth for status and
// idempotency: every worker step reads it and writes it back before
// anything else happens.
type PublishJob struct {
	ID           int64  `db:"id" json:"id"`
	UserID       int64  `db:"user_id" json:"user_id"`
	PostID       int64  `db:"post_id" json:"post_id"`
	ConnectionID int64  `db:"connection_id" json:"connection_id"`
	Platform     string `db:"platform" json:"platform"`
	Status       string `db:"status" json:"status"`

	// Per-platform overrides; empty values fall back to the post's own
	// metadata.
	Title       sql.NullString `db:"title" json:"title"`
	Description sql.NullString `db:"description" json:"description"`
	Tags        []string       `db:"tags" json:"tags"`
	Privacy     sql.NullString `db:"privacy" json:"privacy"`

	ScheduledFor        sql.NullTime   `db:"scheduled_for" json:"scheduled_for"`
	IsUpdate            bool           `db:"is_update" json:"is_update"`
	UpdateTargetVideoID sql.NullString `db:"update_target_video_id" json:"update_target_video_id"`

	PlatformVideoID  sql.NullString `db:"platform_video_id" json:"platform_video_id"`
	PlatformVideoURL sql.NullString `db:"platform_video_url" json:"platform_video_url"`
	// PublishHandle holds TikTok's publish_id while the platform is
	// still processing an upload.
	PublishHandle sql.NullString `db:"publish_handle" json:"-"`

	ErrorMessage sql.NullString `db:"error_message" json:"error_message"`
	RetryCount   int            `db:"retry_count" json:"retry_count"`
	StartedAt    sql.NullTime   `db:"started_at" json:"started_at"`
	CompletedAt  sql.NullTime   `db:"completed_at" json:"completed_at"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	JobStatusPending   = "pending"
	JobStatusScheduled = "scheduled"
	// JobStatusPlatformScheduled means the upload happened and the
	// platform itself holds the publish-at time (YouTube/Vimeo native
	// scheduling).
	JobStatusPlatformScheduled = "platform_scheduled"
	JobStatusProcessing        = "processing"
	JobStatusCompleted         = "completed"
	JobStatusFailed            = "failed"
	JobStatusCancelled         = "cancelled"
)

// Reschedulable reports whether a user may still move the job's
// publish time.
func (j *PublishJob) Reschedulable() bool {
	switch j.Status {
	case JobStatusPending, JobStatusScheduled, JobStatusPlatformScheduled:
		return true
	}
	return false
}

func (j *PublishJob) Terminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}
