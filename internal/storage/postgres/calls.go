package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"calldesk-platform/internal/calls"
	"calldesk-platform/pkg/utils"
)

// CallRepo persists the authoritative call rows (call_details) and the
// worker-written staging rows (call_log).
type CallRepo struct {
	db *sql.DB
}

func NewCallRepo(db *sql.DB) *CallRepo { return &CallRepo{db: db} }

func (r *CallRepo) CreateRecord(ctx context.Context, rec calls.Record) error {
	const q = `
INSERT INTO call_details (id, user_id, number, developer, project, call_attempted, call_status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.UserID,
		rec.Number,
		rec.Developer,
		rec.Project,
		rec.CallAttempted,
		rec.CallStatus,
		rec.CreatedAt,
	)
	return err
}

func (r *CallRepo) CreateLogEntry(ctx context.Context, e calls.LogEntry) error {
	const q = `
INSERT INTO call_log (call_detail_id, user_id, number, developer, project, call_attempted, call_status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := r.db.ExecContext(ctx, q,
		e.CallDetailID,
		e.UserID,
		e.Number,
		e.Developer,
		e.Project,
		e.CallAttempted,
		e.CallStatus,
		e.CreatedAt,
	)
	return err
}

const recordColumns = `
id, user_id, number, developer, project, call_attempted,
COALESCE(call_status, ''), call_duration, credits_consumed, credits_applied_at,
COALESCE(call_recording, ''), COALESCE(transcript, ''), COALESCE(summary, ''), COALESCE(feedback, ''),
call_time, created_at`

func (r *CallRepo) GetRecord(ctx context.Context, id string) (calls.Record, error) {
	q := `SELECT ` + recordColumns + ` FROM call_details WHERE id = $1`
	return scanRecord(r.db.QueryRowContext(ctx, q, id))
}

func (r *CallRepo) GetLogEntry(ctx context.Context, id string) (calls.LogEntry, error) {
	const q = `
SELECT call_detail_id, user_id, number, developer, project, call_attempted,
       COALESCE(call_status, ''), call_duration, credits_consumed,
       COALESCE(call_recording, ''), COALESCE(transcript, ''), COALESCE(summary, ''), COALESCE(feedback, ''),
       call_time, created_at
FROM call_log
WHERE call_detail_id = $1
`
	var e calls.LogEntry
	var duration sql.NullInt64
	var credits sql.NullInt64
	var callTime sql.NullTime
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&e.CallDetailID,
		&e.UserID,
		&e.Number,
		&e.Developer,
		&e.Project,
		&e.CallAttempted,
		&e.CallStatus,
		&duration,
		&credits,
		&e.RecordingURL,
		&e.Transcript,
		&e.Summary,
		&e.Feedback,
		&callTime,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return calls.LogEntry{}, calls.ErrNotFound
		}
		return calls.LogEntry{}, err
	}
	if duration.Valid {
		d := int(duration.Int64)
		e.DurationSeconds = &d
	}
	if credits.Valid {
		c := credits.Int64
		e.CreditsConsumed = &c
	}
	if callTime.Valid {
		t := callTime.Time
		e.CallTime = &t
	}
	return e, nil
}

// ApplySync copies the worker-reported fields onto the authoritative row in
// one statement. credits_consumed is frozen once the charge was applied.
func (r *CallRepo) ApplySync(ctx context.Context, id string, e calls.LogEntry) error {
	const q = `
UPDATE call_details SET
  call_attempted  = $2,
  call_status     = $3,
  call_time       = $4,
  call_duration   = $5,
  call_recording  = $6,
  transcript      = $7,
  summary         = $8,
  feedback        = $9,
  credits_consumed = CASE WHEN credits_applied_at IS NULL THEN $10 ELSE credits_consumed END
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q,
		id,
		e.CallAttempted,
		e.CallStatus,
		nullableTime(e.CallTime),
		nullableIntAsInt64(e.DurationSeconds),
		e.RecordingURL,
		e.Transcript,
		e.Summary,
		e.Feedback,
		nullableInt64(e.CreditsConsumed),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return calls.ErrNotFound
	}
	return nil
}

func (r *CallRepo) ListByUser(ctx context.Context, userID string) ([]calls.Record, error) {
	q := `SELECT ` + recordColumns + ` FROM call_details WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
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

// UpdateFeedback writes the user's feedback to BOTH rows in one transaction.
// The staging copy matters: sync is last-writer-wins, so feedback left only
// on the authoritative row would be wiped by the next status poll.
func (r *CallRepo) UpdateFeedback(ctx context.Context, id, userID, feedback string) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const q = `UPDATE call_details SET feedback = $3 WHERE id = $1 AND user_id = $2`
		res, err := tx.ExecContext(ctx, q, id, userID, feedback)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return calls.ErrNotFound
		}

		const ql = `UPDATE call_log SET feedback = $3 WHERE call_detail_id = $1 AND user_id = $2`
		_, err = tx.ExecContext(ctx, ql, id, userID, feedback)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row *sql.Row) (calls.Record, error) {
	rec, err := scanRecordFrom(row)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return calls.Record{}, calls.ErrNotFound
	}
	return rec, err
}

func scanRecordRows(rows *sql.Rows) (calls.Record, error) {
	return scanRecordFrom(rows)
}

func scanRecordFrom(sc rowScanner) (calls.Record, error) {
	var rec calls.Record
	var duration sql.NullInt64
	var credits sql.NullInt64
	var appliedAt sql.NullTime
	var callTime sql.NullTime
	err := sc.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Number,
		&rec.Developer,
		&rec.Project,
		&rec.CallAttempted,
		&rec.CallStatus,
		&duration,
		&credits,
		&appliedAt,
		&rec.RecordingURL,
		&rec.Transcript,
		&rec.Summary,
		&rec.Feedback,
		&callTime,
		&rec.CreatedAt,
	)
	if err != nil {
		return calls.Record{}, err
	}
	if duration.Valid {
		d := int(duration.Int64)
		rec.DurationSeconds = &d
	}
	if credits.Valid {
		c := credits.Int64
		rec.CreditsConsumed = &c
	}
	if appliedAt.Valid {
		t := appliedAt.Time
		rec.CreditsAppliedAt = &t
	}
	if callTime.Valid {
		t := callTime.Time
		rec.CallTime = &t
	}
	return rec, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullableIntAsInt64(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
