package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/publora/publora/internal/models"
)

type PublishJobRepository interface {
	Create(ctx context.Context, tx *sql.Tx, job *models.PublishJob) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.PublishJob, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.PublishJob, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PublishJob, error)

	// FindDue returns up to limit jobs ready to run: status pending or
	// scheduled, scheduled_for null or in the past.
	FindDue(ctx context.Context, now time.Time, limit int) ([]*models.PublishJob, error)

	// ClaimProcessing flips the job into processing and bumps
	// retry_count, but only from a claimable status. A false return
	// means another worker already owns the job or it reached a
	// terminal state.
	ClaimProcessing(ctx context.Context, id int64, now time.Time) (bool, error)

	MarkScheduled(ctx context.Context, id int64) error
	MarkCompleted(ctx context.Context, id int64, status, videoID, videoURL string, now time.Time) error
	MarkFailed(ctx context.Context, id int64, errorMessage string, now time.Time) error
	SetPublishHandle(ctx context.Context, id int64, handle string) error
	SetStatus(ctx context.Context, id int64, status string) error
	ResetForRetry(ctx context.Context, id int64) error
	UpdateScheduledFor(ctx context.Context, id int64, scheduledFor time.Time) error

	FindLatestCompleted(ctx context.Context, postID, connectionID int64) (*models.PublishJob, error)
	GetByPlatformVideoID(ctx context.Context, platform, videoID string) (*models.PublishJob, error)
	ListCompletedWithVideo(ctx context.Context) ([]*models.PublishJob, error)
	ListFutureScheduledTimes(ctx context.Context, connectionID int64, now time.Time) ([]time.Time, error)
}

type publishJobRepository struct {
	db *sql.DB
}

func NewPublishJobRepository(db *sql.DB) PublishJobRepository {
	return &publishJobRepository{db: db}
}

const jobColumns = `id, user_id, post_id, connection_id, platform, status, title, description, tags, privacy, scheduled_for, is_update, update_target_video_id, platform_video_id, platform_video_url, publish_handle, error_message, retry_count, started_at, completed_at, created_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (*models.PublishJob, error) {
	var j models.PublishJob
	err := row.Scan(&j.ID, &j.UserID, &j.PostID, &j.ConnectionID, &j.Platform, &j.Status,
		&j.Title, &j.Description, pq.Array(&j.Tags), &j.Privacy,
		&j.ScheduledFor, &j.IsUpdate, &j.UpdateTargetVideoID,
		&j.PlatformVideoID, &j.PlatformVideoURL, &j.PublishHandle,
		&j.ErrorMessage, &j.RetryCount, &j.StartedAt, &j.CompletedAt,
		&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *publishJobRepository) Create(ctx context.Context, tx *sql.Tx, job *models.PublishJob) (int64, error) {
	query := `
		INSERT INTO publish_jobs (
			user_id, post_id, connection_id, platform, status,
			title, description, tags, privacy,
			scheduled_for, is_update, update_target_video_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	args := []any{job.UserID, job.PostID, job.ConnectionID, job.Platform, job.Status,
		job.Title, job.Description, pq.Array(job.Tags), job.Privacy,
		job.ScheduledFor, job.IsUpdate, job.UpdateTargetVideoID}

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publishJobRepository) GetByID(ctx context.Context, id int64) (*models.PublishJob, error) {
	query := `SELECT ` + jobColumns + ` FROM publish_jobs WHERE id = $1`
	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return job, nil
}

func (r *publishJobRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.PublishJob, error) {
	query := `SELECT ` + jobColumns + ` FROM publish_jobs WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *publishJobRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishJob, error) {
	query := `SELECT ` + jobColumns + ` FROM publish_jobs WHERE post_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, postID)
}

func (r *publishJobRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*models.PublishJob, error) {
	query := `SELECT ` + jobColumns + `
		FROM publish_jobs
		WHERE status IN ($1, $2)
		AND (scheduled_for IS NULL OR scheduled_for <= $3)
		ORDER BY scheduled_for ASC NULLS FIRST
		LIMIT $4`
	return r.list(ctx, query, models.JobStatusPending, models.JobStatusScheduled, now, limit)
}

func (r *publishJobRepository) list(ctx context.Context, query string, args ...any) ([]*models.PublishJob, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.PublishJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *publishJobRepository) ClaimProcessing(ctx context.Context, id int64, now time.Time) (bool, error) {
	query := `
		UPDATE publish_jobs
		SET status = $1,
			started_at = $2,
			retry_count = retry_count + 1,
			updated_at = $2
		WHERE id = $3 AND status IN ($4, $5, $6)
	`
	res, err := r.db.ExecContext(ctx, query, models.JobStatusProcessing, now, id,
		models.JobStatusPending, models.JobStatusScheduled, models.JobStatusFailed)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *publishJobRepository) MarkScheduled(ctx context.Context, id int64) error {
	return r.SetStatus(ctx, id, models.JobStatusScheduled)
}

// MarkCompleted only lands on a row still held by the worker. A job
// cancelled while the upload was in flight keeps its cancelled status;
// the zero-row update is not an error.
func (r *publishJobRepository) MarkCompleted(ctx context.Context, id int64, status, videoID, videoURL string, now time.Time) error {
	query := `
		UPDATE publish_jobs
		SET status = $1,
			platform_video_id = $2,
			platform_video_url = $3,
			error_message = NULL,
			completed_at = $4,
			updated_at = $4
		WHERE id = $5 AND status = $6
	`
	_, err := r.db.ExecContext(ctx, query, status, videoID, videoURL, now, id,
		models.JobStatusProcessing)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// MarkFailed skips rows already in a terminal or cancelled state, so a
// late failure never overwrites a cancel or a completed upload.
func (r *publishJobRepository) MarkFailed(ctx context.Context, id int64, errorMessage string, now time.Time) error {
	query := `
		UPDATE publish_jobs
		SET status = $1,
			error_message = $2,
			completed_at = $3,
			updated_at = $3
		WHERE id = $4 AND status IN ($5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, models.JobStatusFailed, errorMessage, now, id,
		models.JobStatusPending, models.JobStatusScheduled, models.JobStatusProcessing)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publishJobRepository) SetPublishHandle(ctx context.Context, id int64, handle string) error {
	query := `UPDATE publish_jobs SET publish_handle = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, handle, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publishJobRepository) SetStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE publish_jobs SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publishJobRepository) ResetForRetry(ctx context.Context, id int64) error {
	query := `
		UPDATE publish_jobs
		SET status = $1,
			error_message = NULL,
			started_at = NULL,
			completed_at = NULL,
			updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, models.JobStatusPending, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publishJobRepository) UpdateScheduledFor(ctx context.Context, id int64, scheduledFor time.Time) error {
	// platform_scheduled keeps its status: the platform already holds
	// the new time and the local row just mirrors it.
	query := `
		UPDATE publish_jobs
		SET scheduled_for = $1,
			status = CASE WHEN status = $2 THEN status ELSE $3 END,
			updated_at = NOW()
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, scheduledFor, models.JobStatusPlatformScheduled, models.JobStatusScheduled, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publishJobRepository) FindLatestCompleted(ctx context.Context, postID, connectionID int64) (*models.PublishJob, error) {
	query := `SELECT ` + jobColumns + `
		FROM publish_jobs
		WHERE post_id = $1 AND connection_id = $2 AND status = $3 AND platform_video_id IS NOT NULL
		ORDER BY completed_at DESC
		LIMIT 1`
	job, err := scanJob(r.db.QueryRowContext(ctx, query, postID, connectionID, models.JobStatusCompleted))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return job, nil
}

func (r *publishJobRepository) GetByPlatformVideoID(ctx context.Context, platform, videoID string) (*models.PublishJob, error) {
	query := `SELECT ` + jobColumns + `
		FROM publish_jobs
		WHERE platform = $1 AND platform_video_id = $2 AND status = $3
		LIMIT 1`
	job, err := scanJob(r.db.QueryRowContext(ctx, query, platform, videoID, models.JobStatusCompleted))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return job, nil
}

func (r *publishJobRepository) ListCompletedWithVideo(ctx context.Context) ([]*models.PublishJob, error) {
	query := `SELECT ` + jobColumns + `
		FROM publish_jobs
		WHERE status = $1 AND platform_video_id IS NOT NULL`
	return r.list(ctx, query, models.JobStatusCompleted)
}

func (r *publishJobRepository) ListFutureScheduledTimes(ctx context.Context, connectionID int64, now time.Time) ([]time.Time, error) {
	query := `
		SELECT scheduled_for FROM publish_jobs
		WHERE connection_id = $1
		AND scheduled_for IS NOT NULL
		AND scheduled_for > $2
		AND status IN ($3, $4, $5)
	`
	rows, err := r.db.QueryContext(ctx, query, connectionID, now,
		models.JobStatusPending, models.JobStatusScheduled, models.JobStatusPlatformScheduled)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}
