package postgres

import (
	"context"
	"database/sql"

	"calldesk-platform/internal/audit"
)

// AuditRepo appends events to the activity tables. Events tied to a user go
// to user_activity, the rest to system_logs.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) Append(ctx context.Context, e audit.Event) error {
	if e.UserID != "" {
		const q = `
INSERT INTO user_activity (id, type, user_id, call_id, message, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,NULLIF($6, '')::jsonb,$7)
`
		_, err := r.db.ExecContext(ctx, q, e.ID, e.Type, e.UserID, nullableString(e.CallID), e.Message, e.Metadata, e.CreatedAt)
		return err
	}
	const q = `
INSERT INTO system_logs (id, type, call_id, message, metadata, created_at)
VALUES ($1,$2,$3,$4,NULLIF($5, '')::jsonb,$6)
`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.Type, nullableString(e.CallID), e.Message, e.Metadata, e.CreatedAt)
	return err
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
