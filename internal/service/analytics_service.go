package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/repository"
)

type AnalyticsService interface {
	Latest(ctx context.Context, userID int64) ([]*models.MetricSnapshot, error)
	History(ctx context.Context, userID, jobID int64) ([]*models.MetricSnapshot, error)
}

type analyticsService struct {
	m repository.MetricSnapshotRepository
	j repository.PublishJobRepository
}

func NewAnalyticsService(m repository.MetricSnapshotRepository, j repository.PublishJobRepository) AnalyticsService {
	return &analyticsService{
		m: m,
		j: j,
	}
}

func (s *analyticsService) Latest(ctx context.Context, userID int64) ([]*models.MetricSnapshot, error) {
	if userID == 0 {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	return s.m.LatestPerJob(ctx, userID)
}

func (s *analyticsService) History(ctx context.Context, userID, jobID int64) ([]*models.MetricSnapshot, error) {
	job, err := s.j.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.UserID != userID {
		err = errors.New("job doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	return s.m.ListByJobID(ctx, jobID)
}
