package job

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/publora/publora/internal/platforms"
	"github.com/publora/publora/internal/queue"
	"github.com/publora/publora/internal/repository"
)

// CommentSyncJob fans a sync task out per active connection so one
// slow or broken platform never blocks the others.
type CommentSyncJob struct {
	connections repository.ConnectionRepository
	registry    *platforms.Registry
	enqueue     func(connectionID int64) error
}

func NewCommentSyncJob(connections repository.ConnectionRepository, registry *platforms.Registry, asynqClient *asynq.Client) *CommentSyncJob {
	return &CommentSyncJob{
		connections: connections,
		registry:    registry,
		enqueue: func(connectionID int64) error {
			return queue.EnqueueCommentSync(asynqClient, connectionID)
		},
	}
}

func (j *CommentSyncJob) EnqueueSyncs() {
	ctx := context.Background()

	conns, err := j.connections.ListActive(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, conn := range conns {
		if j.registry.CommentSource(conn.Platform) == nil {
			continue
		}
		if err := j.enqueue(conn.ID); err != nil {
			slog.Info(err.Error())
		}
	}
}
