package credits

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Repository abstracts the balance column and the per-call charge marker.
//
// DecrementBalance must be atomic on the storage side (a single
// read-modify-write statement); it is the preferred deduction path.
// MarkCreditsApplied must be a compare-and-set: it succeeds for exactly one
// caller per call, which is what makes completion charging safe under
// concurrent pollers.
type Repository interface {
	GetBalance(ctx context.Context, userID string) (int64, error)

	// SetBalance overwrites the balance outright (fallback deduction and reconciliation).
	SetBalance(ctx context.Context, userID string, balance int64) error

	// DecrementBalance atomically subtracts amount and returns the new balance.
	DecrementBalance(ctx context.Context, userID string, amount int64) (int64, error)

	// SumCreditsConsumed totals credits_consumed over the user's call rows,
	// skipping rows where it is not yet set.
	SumCreditsConsumed(ctx context.Context, userID string) (int64, error)

	ListUserIDs(ctx context.Context) ([]string, error)

	// MarkCreditsApplied persists the charge on the call row and stamps it as
	// applied, but only if it has not been applied before. Returns whether
	// this caller won the stamp.
	MarkCreditsApplied(ctx context.Context, callID string, amount int64, at time.Time) (bool, error)
}
