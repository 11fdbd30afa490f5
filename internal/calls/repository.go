package calls

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("call not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Repository abstracts persistence for the call rows.
//
// ApplySync is the ONLY write path for the worker-reported fields on the
// authoritative row, and it must honor the credits freeze: once the
// record's credits have been applied to a balance, credits_consumed is no
// longer overwritten by sync.
type Repository interface {
	CreateRecord(ctx context.Context, rec Record) error
	CreateLogEntry(ctx context.Context, e LogEntry) error

	GetRecord(ctx context.Context, id string) (Record, error)
	GetLogEntry(ctx context.Context, id string) (LogEntry, error)

	// ApplySync copies the worker-reported fields from the staging entry onto
	// the authoritative row. Last-writer-wins, one-directional, idempotent.
	ApplySync(ctx context.Context, id string, e LogEntry) error

	ListByUser(ctx context.Context, userID string) ([]Record, error)

	// UpdateFeedback appends user feedback; the row must belong to userID.
	// Implementations must write the feedback to the staging row too, or the
	// next last-writer-wins sync would erase it.
	UpdateFeedback(ctx context.Context, id, userID, feedback string) error
}
