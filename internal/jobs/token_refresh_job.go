package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/repository"
)

// TokenRefresher exchanges a connection's refresh token for fresh
// credentials and persists them.
type TokenRefresher interface {
	RefreshConnection(ctx context.Context, conn *models.PlatformConnection) error
}

type TokenRefreshJob struct {
	connections repository.ConnectionRepository
	refresher   TokenRefresher
}

func NewTokenRefreshJob(connections repository.ConnectionRepository, refresher TokenRefresher) *TokenRefreshJob {
	return &TokenRefreshJob{
		connections: connections,
		refresher:   refresher,
	}
}

func (j *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	conns, err := j.connections.ListExpiringBetween(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, conn := range conns {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(conn *models.PlatformConnection) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := j.refresher.RefreshConnection(ctx, conn); err != nil {
				slog.Info("Unable to refresh tokens for " + conn.Platform)
			}
		}(conn)
	}

	wg.Wait()
}
