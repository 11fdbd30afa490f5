package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to end users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogCallInitiated records an outbound call request on the user's activity trail.
func (s *Service) LogCallInitiated(ctx context.Context, userID, callID, number string) error {
	return s.Append(ctx, Event{
		Type:    EventTypeCallInitiated,
		UserID:  userID,
		CallID:  callID,
		Message: "call initiated to " + number,
	})
}

// LogCreditDeduction records a deduction attempt outcome, including the path taken.
func (s *Service) LogCreditDeduction(ctx context.Context, userID, callID, method string, amount, newBalance int64, opErr error) error {
	msg := fmt.Sprintf("deducted %d credits via %s, balance %d", amount, method, newBalance)
	if opErr != nil {
		msg = fmt.Sprintf("deduction of %d credits via %s failed: %v", amount, method, opErr)
	}
	return s.Append(ctx, Event{
		Type:    EventTypeCreditDeduct,
		UserID:  userID,
		CallID:  callID,
		Message: msg,
	})
}

// LogReconciliation records a balance recompute with before/after values.
func (s *Service) LogReconciliation(ctx context.Context, userID string, previous, updated, totalConsumed int64) error {
	return s.Append(ctx, Event{
		Type:    EventTypeReconciliation,
		UserID:  userID,
		Message: fmt.Sprintf("balance reconciled %d -> %d (total consumed %d)", previous, updated, totalConsumed),
	})
}
