package models

import "time"

// MetricSnapshot is one point-in-time reading for a completed publish
// job. Rows are append-only; time series and latest-per-job views are
// derived by query.
type MetricSnapshot struct {
	ID         int64     `db:"id" json:"id"`
	JobID      int64     `db:"job_id" json:"job_id"`
	Views      int64     `db:"views" json:"views"`
	Likes      int64     `db:"likes" json:"likes"`
	Comments   int64     `db:"comments" json:"comments"`
	Shares     int64     `db:"shares" json:"shares"`
	CapturedAt time.Time `db:"captured_at" json:"captured_at"`
}
