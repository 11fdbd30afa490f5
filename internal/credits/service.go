package credits

import (
	"context"
	"fmt"
	"time"

	"calldesk-platform/internal/audit"
	"calldesk-platform/internal/config"
	"calldesk-platform/pkg/logger"
	"calldesk-platform/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Service owns every mutation of a user's credit balance.
//
// Money invariants:
// - A completed call is charged at most once (MarkCreditsApplied CAS).
// - The balance can always be rebuilt from call history (Reconcile), so a
//   partially failed deduction degrades to drift, never to data loss.
// - Balances are allowed to go negative; clamping is a product decision
//   that was explicitly decided against.
type Service struct {
	repo  Repository
	audit *audit.Service
	rdb   *redis.Client // optional; nil disables the claim fast path
	clock func() time.Time

	initialCredit int64
	perMinute     int64
}

func NewService(repo Repository, auditSvc *audit.Service, rdb *redis.Client, cfg config.CreditsConfig) *Service {
	initial := cfg.InitialCredit
	if initial <= 0 {
		initial = DefaultInitialCredit
	}
	perMin := cfg.PerMinute
	if perMin <= 0 {
		perMin = DefaultPerMinute
	}
	return &Service{
		repo:          repo,
		audit:         auditSvc,
		rdb:           rdb,
		clock:         time.Now,
		initialCredit: initial,
		perMinute:     perMin,
	}
}

// PerMinute exposes the one-block charge, used as the initiation floor.
func (s *Service) PerMinute() int64 { return s.perMinute }

func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, ErrInvalidArgument
	}
	return s.repo.GetBalance(ctx, userID)
}

// Deduct subtracts amount from the user's balance.
//
// The atomic storage-side decrement is preferred; if it fails, a plain
// read-subtract-write fallback is attempted. Both outcomes are audited with
// the method used. If both paths fail the error is returned; callers that
// tolerate drift rely on Reconcile to repair it later.
func (s *Service) Deduct(ctx context.Context, userID string, amount int64, callID string) (int64, error) {
	if userID == "" || amount <= 0 {
		return 0, ErrInvalidArgument
	}
	log := logger.From(ctx)

	newBal, err := s.repo.DecrementBalance(ctx, userID, amount)
	method := "atomic"
	if err != nil {
		log.Warn("atomic credit decrement failed, using fallback", "user_id", userID, "err", err)

		method = "fallback"
		newBal, err = s.deductFallback(ctx, userID, amount)
	}

	if s.audit != nil {
		_ = s.audit.LogCreditDeduction(ctx, userID, callID, method, amount, newBal, err)
	}
	if err != nil {
		return 0, fmt.Errorf("credits: deduct %d from %s: %w", amount, userID, err)
	}

	// Verification read; observability only, never used for control flow.
	if verified, verr := s.repo.GetBalance(ctx, userID); verr == nil {
		log.Debug("credit balance after deduction", "user_id", userID, "balance", verified, "method", method)
	}
	return newBal, nil
}

func (s *Service) deductFallback(ctx context.Context, userID string, amount int64) (int64, error) {
	bal, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	newBal := bal - amount
	if err := s.repo.SetBalance(ctx, userID, newBal); err != nil {
		return 0, err
	}
	return newBal, nil
}

// CompletionCharge identifies a finished call whose credits should be
// applied to the owner's balance.
type CompletionCharge struct {
	CallID string
	UserID string

	// DurationSeconds is the synced call duration, nil if the worker never
	// reported one (the call is then charged the one-block minimum).
	DurationSeconds *int

	// CreditsConsumed carries a worker-supplied charge if one was synced;
	// when set it wins over the duration-derived amount.
	CreditsConsumed *int64
}

type ChargeResult struct {
	Applied    bool
	Credits    int64
	NewBalance int64
}

// ApplyCompletionCharge charges a finished call exactly once, no matter how
// many status pollers detect completion concurrently.
//
// Two guards stack: a redis claim cheaply filters racing pollers, and the
// MarkCreditsApplied compare-and-set is the actual correctness barrier. If
// the deduction itself fails after the stamp, the charge is still recorded
// on the call row and Reconcile will settle the balance.
func (s *Service) ApplyCompletionCharge(ctx context.Context, ch CompletionCharge) (ChargeResult, error) {
	if ch.CallID == "" || ch.UserID == "" {
		return ChargeResult{}, ErrInvalidArgument
	}

	if s.rdb != nil {
		owner := uuid.NewString()
		won, err := utils.AcquireClaim(ctx, s.rdb, "charge:"+ch.CallID, owner, time.Minute)
		if err != nil {
			// Redis being down must not block charging; the CAS still protects us.
			logger.From(ctx).Warn("charge claim unavailable", "call_id", ch.CallID, "err", err)
		} else if !won {
			return ChargeResult{}, nil
		}
	}

	amount := CreditsForDuration(ch.DurationSeconds, s.perMinute)
	if ch.CreditsConsumed != nil && *ch.CreditsConsumed > 0 {
		amount = *ch.CreditsConsumed
	}

	won, err := s.repo.MarkCreditsApplied(ctx, ch.CallID, amount, s.clock().UTC())
	if err != nil {
		return ChargeResult{}, fmt.Errorf("credits: mark applied %s: %w", ch.CallID, err)
	}
	if !won {
		return ChargeResult{}, nil
	}

	newBal, err := s.Deduct(ctx, ch.UserID, amount, ch.CallID)
	if err != nil {
		// The stamp is already in place, so no retry can double-charge;
		// the drift is repaired by the next reconciliation.
		return ChargeResult{Applied: true, Credits: amount}, err
	}
	return ChargeResult{Applied: true, Credits: amount, NewBalance: newBal}, nil
}
