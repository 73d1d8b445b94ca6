package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/platforms"
	"github.com/publora/publora/internal/repository"
	"github.com/publora/publora/pkg/utils"
)

const statsConcurrencyLimit = 10

// AnalyticsJob takes the daily metric sweep: one FetchStats pass per
// connection over everything it has published, one snapshot row per
// video. Snapshots are append-only so a partial failure just leaves a
// thinner day, never corrupt data.
type AnalyticsJob struct {
	jobs        repository.PublishJobRepository
	connections repository.ConnectionRepository
	metrics     repository.MetricSnapshotRepository
	registry    *platforms.Registry
	secretKey   []byte
	now         func() time.Time
}

func NewAnalyticsJob(
	jobs repository.PublishJobRepository,
	connections repository.ConnectionRepository,
	metrics repository.MetricSnapshotRepository,
	registry *platforms.Registry,
	secretKey []byte) *AnalyticsJob {
	return &AnalyticsJob{
		jobs:        jobs,
		connections: connections,
		metrics:     metrics,
		registry:    registry,
		secretKey:   secretKey,
		now:         time.Now,
	}
}

func (j *AnalyticsJob) CaptureMetrics() {
	ctx := context.Background()

	published, err := j.jobs.ListCompletedWithVideo(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	byConnection := make(map[int64][]*models.PublishJob)
	for _, pubJob := range published {
		byConnection[pubJob.ConnectionID] = append(byConnection[pubJob.ConnectionID], pubJob)
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, statsConcurrencyLimit)

	for connectionID, connJobs := range byConnection {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(connectionID int64, connJobs []*models.PublishJob) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := j.captureConnection(ctx, connectionID, connJobs); err != nil {
				slog.Info(err.Error())
			}
		}(connectionID, connJobs)
	}

	wg.Wait()
}

func (j *AnalyticsJob) captureConnection(ctx context.Context, connectionID int64, connJobs []*models.PublishJob) error {
	conn, err := j.connections.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}
	if conn == nil || !conn.IsActive {
		return nil
	}

	adapter := j.registry.Adapter(conn.Platform)
	if adapter == nil {
		return nil
	}

	accessToken, err := utils.Decrypt(conn.AccessToken, j.secretKey)
	if err != nil {
		return err
	}
	creds := platforms.Credentials{AccessToken: accessToken, AccountID: conn.AccountID}

	jobByVideoID := make(map[string]int64, len(connJobs))
	remoteIDs := make([]string, 0, len(connJobs))
	for _, connJob := range connJobs {
		if !connJob.PlatformVideoID.Valid {
			continue
		}
		jobByVideoID[connJob.PlatformVideoID.String] = connJob.ID
		remoteIDs = append(remoteIDs, connJob.PlatformVideoID.String)
	}
	if len(remoteIDs) == 0 {
		return nil
	}

	stats, err := adapter.FetchStats(ctx, creds, remoteIDs)
	if err != nil {
		return err
	}

	capturedAt := j.now()
	for _, stat := range stats {
		jobID, ok := jobByVideoID[stat.RemoteID]
		if !ok {
			continue
		}
		snapshot := &models.MetricSnapshot{
			JobID:      jobID,
			Views:      stat.Views,
			Likes:      stat.Likes,
			Comments:   stat.Comments,
			Shares:     stat.Shares,
			CapturedAt: capturedAt,
		}
		if _, err := j.metrics.Create(ctx, snapshot); err != nil {
			slog.Info(err.Error())
		}
	}

	return nil
}
