package queue

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/platforms"
	"github.com/publora/publora/internal/repository"
)

// CommentSyncer reconciles remote comments for one connection.
type CommentSyncer interface {
	SyncConnection(ctx context.Context, connectionID int64) error
}

// AssetStore is the slice of the storage layer workers need: a
// presigned read URL for the object being published.
type AssetStore interface {
	PresignDownload(ctx context.Context, key string) (string, error)
}

type Queue struct {
	jobs        repository.PublishJobRepository
	posts       repository.PostRepository
	connections repository.ConnectionRepository
	registry    *platforms.Registry
	storage     AssetStore
	syncer      CommentSyncer
	secretKey   []byte
	now         func() time.Time

	enqueueJob        func(job *models.PublishJob) error
	enqueueStatusPoll func(payload StatusPollPayload, delay time.Duration) error
}

func NewQueue(
	jobs repository.PublishJobRepository,
	posts repository.PostRepository,
	connections repository.ConnectionRepository,
	registry *platforms.Registry,
	storage AssetStore,
	syncer CommentSyncer,
	client *asynq.Client,
	secretKey []byte) *Queue {
	return &Queue{
		jobs:        jobs,
		posts:       posts,
		connections: connections,
		registry:    registry,
		storage:     storage,
		syncer:      syncer,
		secretKey:   secretKey,
		now:         time.Now,
		enqueueJob: func(job *models.PublishJob) error {
			return EnqueueJob(client, job)
		},
		enqueueStatusPoll: func(payload StatusPollPayload, delay time.Duration) error {
			return EnqueueStatusPoll(client, payload, delay)
		},
	}
}

const (
	// Prefixes; the full task type carries the platform so queue
	// dashboards show where time goes (publish:youtube, update:vimeo).
	TaskPrefixPublish = "publish:"
	TaskPrefixUpdate  = "update:"

	TaskTypeTiktokStatus = "publish:tiktok:status"
	TaskTypeCommentSync  = "comments:sync"
)

// PublishTaskType routes a job to its task type by platform and kind.
func PublishTaskType(platform string, isUpdate bool) string {
	if isUpdate {
		return TaskPrefixUpdate + platform
	}
	return TaskPrefixPublish + platform
}

type PublishJobPayload struct {
	JobID int64 `json:"job_id"`
}

type StatusPollPayload struct {
	JobID   int64 `json:"job_id"`
	Attempt int   `json:"attempt"`
}

type CommentSyncPayload struct {
	ConnectionID int64 `json:"connection_id"`
}
