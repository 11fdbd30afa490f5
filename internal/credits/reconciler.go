package credits

import (
	"context"
	"fmt"

	"calldesk-platform/pkg/logger"
)

// ReconcileResult reports a single-user balance rebuild.
type ReconcileResult struct {
	UserID          string `json:"user_id"`
	PreviousBalance int64  `json:"previous_balance"`
	NewBalance      int64  `json:"new_balance"`
	TotalConsumed   int64  `json:"total_consumed"`
}

// ReconcileAllResult reports a bulk rebuild. Per-user failures are collected,
// never aborting the batch.
type ReconcileAllResult struct {
	UsersUpdated int      `json:"users_updated"`
	Errors       []string `json:"errors,omitempty"`
}

// Reconcile rebuilds a user's balance from scratch:
//
//	balance = initialCredit − Σ credits_consumed over the user's calls
//
// It is a full overwrite, so it is idempotent and self-correcting no matter
// how many earlier deduction attempts partially failed. This is the repair
// path for drift, not the primary charging mechanism.
func (s *Service) Reconcile(ctx context.Context, userID string) (ReconcileResult, error) {
	if userID == "" {
		return ReconcileResult{}, ErrInvalidArgument
	}

	previous, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("credits: reconcile %s: %w", userID, err)
	}

	total, err := s.repo.SumCreditsConsumed(ctx, userID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("credits: reconcile %s: %w", userID, err)
	}

	newBal := s.initialCredit - total
	if err := s.repo.SetBalance(ctx, userID, newBal); err != nil {
		return ReconcileResult{}, fmt.Errorf("credits: reconcile %s: %w", userID, err)
	}

	if s.audit != nil {
		_ = s.audit.LogReconciliation(ctx, userID, previous, newBal, total)
	}
	logger.From(ctx).Info("balance reconciled",
		"user_id", userID,
		"previous", previous,
		"new", newBal,
		"total_consumed", total,
	)

	return ReconcileResult{
		UserID:          userID,
		PreviousBalance: previous,
		NewBalance:      newBal,
		TotalConsumed:   total,
	}, nil
}

// ReconcileAll rebuilds every user's balance, continuing past per-user
// errors. Only ever invoked explicitly (admin endpoint or the reconcile CLI).
func (s *Service) ReconcileAll(ctx context.Context) (ReconcileAllResult, error) {
	ids, err := s.repo.ListUserIDs(ctx)
	if err != nil {
		return ReconcileAllResult{}, fmt.Errorf("credits: reconcile all: %w", err)
	}

	out := ReconcileAllResult{}
	for _, id := range ids {
		if _, err := s.Reconcile(ctx, id); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("user %s: %v", id, err))
			continue
		}
		out.UsersUpdated++
	}
	return out, nil
}
