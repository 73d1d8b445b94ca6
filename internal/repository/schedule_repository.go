package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/publora/publora/internal/models"
)

type PostingScheduleRepository interface {
	GetByConnectionID(ctx context.Context, connectionID int64) (*models.PostingSchedule, error)
	Upsert(ctx context.Context, schedule *models.PostingSchedule) error
}

type postingScheduleRepository struct {
	db *sql.DB
}

func NewPostingScheduleRepository(db *sql.DB) PostingScheduleRepository {
	return &postingScheduleRepository{db: db}
}

func (r *postingScheduleRepository) GetByConnectionID(ctx context.Context, connectionID int64) (*models.PostingSchedule, error) {
	query := `SELECT id, connection_id, timezone, slots, created_at, updated_at FROM posting_schedules WHERE connection_id = $1`
	row := r.db.QueryRowContext(ctx, query, connectionID)

	var schedule models.PostingSchedule
	var rawSlots []byte
	err := row.Scan(&schedule.ID, &schedule.ConnectionID, &schedule.Timezone, &rawSlots,
		&schedule.CreatedAt, &schedule.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	if err := json.Unmarshal(rawSlots, &schedule.Slots); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	// Stored rows are not trusted; the column may predate validation.
	if err := schedule.Validate(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &schedule, nil
}

func (r *postingScheduleRepository) Upsert(ctx context.Context, schedule *models.PostingSchedule) error {
	if err := schedule.Validate(); err != nil {
		return err
	}

	rawSlots, err := json.Marshal(schedule.Slots)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	query := `
		INSERT INTO posting_schedules (connection_id, timezone, slots)
		VALUES ($1, $2, $3)
		ON CONFLICT (connection_id) DO UPDATE SET
			timezone = EXCLUDED.timezone,
			slots = EXCLUDED.slots,
			updated_at = NOW()
	`
	_, err = r.db.ExecContext(ctx, query, schedule.ConnectionID, schedule.Timezone, rawSlots)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
