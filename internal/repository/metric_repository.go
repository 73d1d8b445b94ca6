package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/publora/publora/internal/models"
)

type MetricSnapshotRepository interface {
	Create(ctx context.Context, snapshot *models.MetricSnapshot) (int64, error)
	ListByJobID(ctx context.Context, jobID int64) ([]*models.MetricSnapshot, error)
	// LatestPerJob returns the newest snapshot for each of the user's
	// completed jobs; the series itself stays append-only.
	LatestPerJob(ctx context.Context, userID int64) ([]*models.MetricSnapshot, error)
}

type metricSnapshotRepository struct {
	db *sql.DB
}

func NewMetricSnapshotRepository(db *sql.DB) MetricSnapshotRepository {
	return &metricSnapshotRepository{db: db}
}

func (r *metricSnapshotRepository) Create(ctx context.Context, snapshot *models.MetricSnapshot) (int64, error) {
	query := `
		INSERT INTO metric_snapshots (job_id, views, likes, comments, shares)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, snapshot.JobID, snapshot.Views, snapshot.Likes,
		snapshot.Comments, snapshot.Shares).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *metricSnapshotRepository) ListByJobID(ctx context.Context, jobID int64) ([]*models.MetricSnapshot, error) {
	query := `SELECT id, job_id, views, likes, comments, shares, captured_at FROM metric_snapshots WHERE job_id = $1 ORDER BY captured_at ASC`
	return r.list(ctx, query, jobID)
}

func (r *metricSnapshotRepository) LatestPerJob(ctx context.Context, userID int64) ([]*models.MetricSnapshot, error) {
	query := `
		SELECT DISTINCT ON (m.job_id) m.id, m.job_id, m.views, m.likes, m.comments, m.shares, m.captured_at
		FROM metric_snapshots m
		JOIN publish_jobs j ON j.id = m.job_id
		WHERE j.user_id = $1
		ORDER BY m.job_id, m.captured_at DESC
	`
	return r.list(ctx, query, userID)
}

func (r *metricSnapshotRepository) list(ctx context.Context, query string, args ...any) ([]*models.MetricSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var snapshots []*models.MetricSnapshot
	for rows.Next() {
		var s models.MetricSnapshot
		if err := rows.Scan(&s.ID, &s.JobID, &s.Views, &s.Likes, &s.Comments, &s.Shares, &s.CapturedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		snapshots = append(snapshots, &s)
	}
	return snapshots, rows.Err()
}
