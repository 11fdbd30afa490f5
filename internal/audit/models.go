package audit

import "time"

// Event is an immutable, append-only audit record.
//
// Invariants:
// - Events are never updated or deleted.
// - Events with a UserID land in user_activity; the rest land in system_logs.
// - Audit capture is best-effort; do not block critical flows on audit failures.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// UserID is the account the event concerns (if any).
	UserID string `json:"user_id,omitempty" db:"user_id"`

	// CallID links the event to a call record (if applicable).
	CallID string `json:"call_id,omitempty" db:"call_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details (store as JSONB in Postgres).
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeSignup         EventType = "signup"
	EventTypeLogin          EventType = "login"
	EventTypeCallInitiated  EventType = "call_initiated"
	EventTypeCallCompleted  EventType = "call_completed"
	EventTypeCreditDeduct   EventType = "credit_deduction"
	EventTypeReconciliation EventType = "credit_reconciliation"
	EventTypeAdminAction    EventType = "admin_action"
)
