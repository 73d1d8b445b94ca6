package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/repository"
	"github.com/publora/publora/internal/transfer"
)

type ScheduleService interface {
	Get(ctx context.Context, userID, connectionID int64) (*models.PostingSchedule, error)
	Update(ctx context.Context, userID, connectionID int64, r *transfer.UpdateScheduleRequest) error
}

type scheduleService struct {
	ps repository.PostingScheduleRepository
	pc repository.ConnectionRepository
}

func NewScheduleService(ps repository.PostingScheduleRepository, pc repository.ConnectionRepository) ScheduleService {
	return &scheduleService{
		ps: ps,
		pc: pc,
	}
}

func (s *scheduleService) Get(ctx context.Context, userID, connectionID int64) (*models.PostingSchedule, error) {
	isValid, err := s.pc.CheckByUserID(ctx, connectionID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("connection doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	return s.ps.GetByConnectionID(ctx, connectionID)
}

func (s *scheduleService) Update(ctx context.Context, userID, connectionID int64, r *transfer.UpdateScheduleRequest) error {
	isValid, err := s.pc.CheckByUserID(ctx, connectionID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("connection doesn't exist")
		slog.Info(err.Error())
		return err
	}

	schedule := &models.PostingSchedule{
		ConnectionID: connectionID,
		Timezone:     r.Timezone,
		Slots:        r.Slots,
	}
	if err := schedule.Validate(); err != nil {
		slog.Info(err.Error())
		return err
	}

	return s.ps.Upsert(ctx, schedule)
}
