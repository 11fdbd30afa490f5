package postgres

import (
	"context"
	"database/sql"
	"time"

	"calldesk-platform/internal/calls"
)

// ReportingRepo serves the read-only analytics queries.
type ReportingRepo struct {
	db *sql.DB
}

func NewReportingRepo(db *sql.DB) *ReportingRepo { return &ReportingRepo{db: db} }

func (r *ReportingRepo) ListCallsInRange(ctx context.Context, userID string, from, to time.Time) ([]calls.Record, error) {
	q := `SELECT ` + recordColumns + `
FROM call_details
WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]calls.Record, 0)
	for rows.Next() {
		rec, err := scanRecordRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
