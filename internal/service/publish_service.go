package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	config "github.com/publora/publora/configs"
	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/platforms"
	"github.com/publora/publora/internal/queue"
	"github.com/publora/publora/internal/repository"
	"github.com/publora/publora/internal/scheduling"
	"github.com/publora/publora/internal/transfer"
	"github.com/publora/publora/pkg/utils"
)

type PublishService interface {
	Create(ctx context.Context, userID int64, req *transfer.CreatePublishRequest) ([]*models.PublishJob, error)
	List(ctx context.Context, userID int64) ([]*models.PublishJob, error)
	Get(ctx context.Context, userID, jobID int64) (*models.PublishJob, error)
	Retry(ctx context.Context, userID, jobID int64) error
	Reschedule(ctx context.Context, userID, jobID int64, newTime time.Time) error
	Cancel(ctx context.Context, userID, jobID int64) error
	NextSlot(ctx context.Context, userID, connectionID int64) (time.Time, error)
}

type publishService struct {
	cfg         config.Config
	jobs        repository.PublishJobRepository
	posts       repository.PostRepository
	connections repository.ConnectionRepository
	schedules   repository.PostingScheduleRepository
	registry    *platforms.Registry

	enqueue func(job *models.PublishJob) error
	now     func() time.Time
}

func NewPublishService(
	cfg config.Config,
	jobs repository.PublishJobRepository,
	posts repository.PostRepository,
	connections repository.ConnectionRepository,
	schedules repository.PostingScheduleRepository,
	registry *platforms.Registry,
	asynqClient *asynq.Client) PublishService {
	return &publishService{
		cfg:         cfg,
		jobs:        jobs,
		posts:       posts,
		connections: connections,
		schedules:   schedules,
		registry:    registry,
		enqueue: func(job *models.PublishJob) error {
			return queue.EnqueueJob(asynqClient, job)
		},
		now: time.Now,
	}
}

// Create makes one job per target connection. If the post already has
// a completed upload on a connection, the new job becomes a metadata
// update against that remote video instead of a second upload.
func (s *publishService) Create(ctx context.Context, userID int64, req *transfer.CreatePublishRequest) ([]*models.PublishJob, error) {
	post, err := s.posts.GetByID(ctx, req.PostID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, errors.New("post doesn't exist")
	}
	if len(req.ConnectionIDs) == 0 {
		return nil, errors.New("no connections selected")
	}
	if req.ScheduledFor != nil && !req.ScheduledFor.After(s.now()) {
		return nil, errors.New("scheduled time must be in the future")
	}
	if req.Privacy != "" && !models.ValidPrivacy(req.Privacy) {
		return nil, fmt.Errorf("unknown privacy value %q", req.Privacy)
	}

	var created []*models.PublishJob
	for _, connectionID := range req.ConnectionIDs {
		conn, err := s.connections.GetByID(ctx, connectionID)
		if err != nil {
			return created, err
		}
		if conn == nil || conn.UserID != userID {
			return created, errors.New("connection doesn't exist")
		}
		if !conn.IsActive {
			return created, fmt.Errorf("%s connection is disconnected", conn.Platform)
		}
		if post.PostType == models.PostTypeText && !platforms.SupportsText(conn.Platform) {
			return created, fmt.Errorf("%s cannot publish text posts", conn.Platform)
		}

		job := &models.PublishJob{
			UserID:       userID,
			PostID:       post.ID,
			ConnectionID: conn.ID,
			Platform:     conn.Platform,
			Status:       models.JobStatusPending,
		}
		applyOverrides(job, req)

		previous, err := s.jobs.FindLatestCompleted(ctx, post.ID, conn.ID)
		if err != nil {
			return created, err
		}
		if previous != nil && previous.PlatformVideoID.Valid {
			job.IsUpdate = true
			job.UpdateTargetVideoID = previous.PlatformVideoID
		}

		switch {
		case req.ScheduledFor != nil:
			job.ScheduledFor = sql.NullTime{Time: *req.ScheduledFor, Valid: true}
			job.Status = models.JobStatusScheduled
		case req.UseSchedule:
			slot, err := s.nextSlotFor(ctx, conn.ID)
			if err != nil {
				return created, err
			}
			job.ScheduledFor = sql.NullTime{Time: slot, Valid: true}
			job.Status = models.JobStatusScheduled
		}

		id, err := s.jobs.Create(ctx, nil, job)
		if err != nil {
			return created, err
		}
		job.ID = id
		created = append(created, job)

		if err := s.enqueue(job); err != nil {
			slog.Info(err.Error())
		}
	}

	return created, nil
}

func applyOverrides(job *models.PublishJob, req *transfer.CreatePublishRequest) {
	if req.Title != "" {
		job.Title = sql.NullString{String: req.Title, Valid: true}
	}
	if req.Description != "" {
		job.Description = sql.NullString{String: req.Description, Valid: true}
	}
	if len(req.Tags) > 0 {
		job.Tags = req.Tags
	}
	if req.Privacy != "" {
		job.Privacy = sql.NullString{String: req.Privacy, Valid: true}
	}
}

func (s *publishService) List(ctx context.Context, userID int64) ([]*models.PublishJob, error) {
	return s.jobs.ListByUserID(ctx, userID)
}

func (s *publishService) Get(ctx context.Context, userID, jobID int64) (*models.PublishJob, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.UserID != userID {
		return nil, errors.New("job doesn't exist")
	}
	return job, nil
}

// Retry resets a failed job to pending and fires a fresh task. The
// retry count is kept so attempts stay visible across manual retries.
func (s *publishService) Retry(ctx context.Context, userID, jobID int64) error {
	job, err := s.Get(ctx, userID, jobID)
	if err != nil {
		return err
	}
	if job.Status != models.JobStatusFailed {
		return errors.New("only failed jobs can be retried")
	}

	if err := s.jobs.ResetForRetry(ctx, job.ID); err != nil {
		return err
	}

	job.Status = models.JobStatusPending
	job.ScheduledFor = sql.NullTime{}
	return s.enqueue(job)
}

// Reschedule moves a not-yet-published job. For platform_scheduled
// jobs the remote publish time changes first; a remote failure leaves
// the local row untouched.
func (s *publishService) Reschedule(ctx context.Context, userID, jobID int64, newTime time.Time) error {
	if !newTime.After(s.now()) {
		return errors.New("new schedule time must be in the future")
	}

	job, err := s.Get(ctx, userID, jobID)
	if err != nil {
		return err
	}
	if !job.Reschedulable() {
		return fmt.Errorf("job in status %s cannot be rescheduled", job.Status)
	}

	if job.Status == models.JobStatusPlatformScheduled {
		if err := s.rescheduleRemote(ctx, job, newTime); err != nil {
			return err
		}
	}

	if err := s.jobs.UpdateScheduledFor(ctx, job.ID, newTime); err != nil {
		return err
	}

	if job.Status != models.JobStatusPlatformScheduled {
		job.Status = models.JobStatusScheduled
		job.ScheduledFor = sql.NullTime{Time: newTime, Valid: true}
		return s.enqueue(job)
	}
	return nil
}

func (s *publishService) rescheduleRemote(ctx context.Context, job *models.PublishJob, newTime time.Time) error {
	adapter := s.registry.Adapter(job.Platform)
	if adapter == nil {
		return fmt.Errorf("no adapter for platform %s", job.Platform)
	}
	if !job.PlatformVideoID.Valid {
		return errors.New("job has no remote video to reschedule")
	}

	conn, err := s.connections.GetByID(ctx, job.ConnectionID)
	if err != nil {
		return err
	}
	if conn == nil || !conn.IsActive {
		return fmt.Errorf("connection %d is unavailable", job.ConnectionID)
	}

	accessToken, err := utils.Decrypt(conn.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}
	creds := platforms.Credentials{AccessToken: accessToken, AccountID: conn.AccountID}

	post, err := s.posts.GetByID(ctx, job.PostID)
	if err != nil {
		return err
	}
	if post == nil {
		return fmt.Errorf("post %d not found", job.PostID)
	}

	meta := platforms.Metadata{
		Title:       post.Title,
		Description: post.Description,
		Tags:        post.Tags,
		Privacy:     post.Privacy,
		PublishAt:   &newTime,
	}
	if job.Title.Valid {
		meta.Title = job.Title.String
	}
	if job.Description.Valid {
		meta.Description = job.Description.String
	}
	if len(job.Tags) > 0 {
		meta.Tags = job.Tags
	}
	if job.Privacy.Valid {
		meta.Privacy = job.Privacy.String
	}

	_, err = adapter.Update(ctx, creds, job.PlatformVideoID.String, meta)
	return err
}

// Cancel is a status write, valid any time before completion. An
// in-flight upload finishes on its own; its result is just ignored.
func (s *publishService) Cancel(ctx context.Context, userID, jobID int64) error {
	job, err := s.Get(ctx, userID, jobID)
	if err != nil {
		return err
	}
	if job.Status == models.JobStatusCompleted || job.Status == models.JobStatusCancelled {
		return fmt.Errorf("job in status %s cannot be cancelled", job.Status)
	}

	return s.jobs.SetStatus(ctx, job.ID, models.JobStatusCancelled)
}

func (s *publishService) NextSlot(ctx context.Context, userID, connectionID int64) (time.Time, error) {
	conn, err := s.connections.GetByID(ctx, connectionID)
	if err != nil {
		return time.Time{}, err
	}
	if conn == nil || conn.UserID != userID {
		return time.Time{}, errors.New("connection doesn't exist")
	}
	return s.nextSlotFor(ctx, connectionID)
}

func (s *publishService) nextSlotFor(ctx context.Context, connectionID int64) (time.Time, error) {
	schedule, err := s.schedules.GetByConnectionID(ctx, connectionID)
	if err != nil {
		return time.Time{}, err
	}

	occupied := map[string]bool{}
	if schedule != nil {
		loc, err := time.LoadLocation(schedule.Timezone)
		if err != nil {
			return time.Time{}, err
		}
		taken, err := s.jobs.ListFutureScheduledTimes(ctx, connectionID, s.now())
		if err != nil {
			return time.Time{}, err
		}
		occupied = scheduling.OccupiedSet(taken, loc)
	}

	return scheduling.NextSlot(schedule, occupied, s.now())
}
