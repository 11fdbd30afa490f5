package calls

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"

	"calldesk-platform/internal/audit"
	"calldesk-platform/internal/credits"
	"calldesk-platform/internal/webhook"
	"calldesk-platform/pkg/logger"

	"github.com/google/uuid"
)

var ErrInsufficientCredits = errors.New("insufficient credits")
var ErrInvalidNumber = errors.New("number must be 10 digits")

// syncAttempts bounds the best-effort sync before a status read; the worker
// may be mid-write, so a transient failure is retried a couple of times.
const syncAttempts = 3

// Service implements call initiation, staging-row synchronization and
// status resolution.
type Service struct {
	repo    Repository
	trigger webhook.CallTrigger
	audit   *audit.Service
	credits *credits.Service
	clock   func() time.Time
}

func NewService(repo Repository, trigger webhook.CallTrigger, auditSvc *audit.Service, creditsSvc *credits.Service) *Service {
	return &Service{
		repo:    repo,
		trigger: trigger,
		audit:   auditSvc,
		credits: creditsSvc,
		clock:   time.Now,
	}
}

// Initiate creates the call rows and fires the worker webhook.
//
// The webhook POST is not required to succeed: the worker may still pick the
// call up out-of-band, so a trigger failure is logged and the initiation
// still reports success. Persistence failures do fail the initiation.
func (s *Service) Initiate(ctx context.Context, userID, number, developer, project string) (Record, error) {
	if userID == "" {
		return Record{}, ErrInvalidArgument
	}
	// Upstream validates the number too, but do not assume it did.
	if !isTenDigits(number) {
		return Record{}, ErrInvalidNumber
	}

	if s.credits != nil {
		bal, err := s.credits.Balance(ctx, userID)
		if err != nil {
			return Record{}, fmt.Errorf("calls: initiate balance check: %w", err)
		}
		if bal < s.credits.PerMinute() {
			return Record{}, ErrInsufficientCredits
		}
	}

	now := s.clock().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Number:    number,
		Developer: developer,
		Project:   project,
		CreatedAt: now,
	}

	if err := s.repo.CreateRecord(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("calls: create record: %w", err)
	}
	if s.audit != nil {
		_ = s.audit.LogCallInitiated(ctx, userID, rec.ID, number)
	}
	if err := s.repo.CreateLogEntry(ctx, LogEntry{
		CallDetailID: rec.ID,
		UserID:       userID,
		Number:       number,
		Developer:    developer,
		Project:      project,
		CreatedAt:    now,
	}); err != nil {
		return Record{}, fmt.Errorf("calls: create log entry: %w", err)
	}

	if s.trigger != nil {
		err := s.trigger.TriggerCall(ctx, webhook.TriggerRequest{
			ID:        rec.ID,
			UserID:    userID,
			Number:    number,
			Developer: developer,
			Project:   project,
		})
		if err != nil {
			logger.From(ctx).Warn("call trigger webhook failed", "call_id", rec.ID, "err", err)
		}
	}

	return rec, nil
}

// Sync copies the worker-reported fields from the staging row onto the
// authoritative row. One-directional, last-writer-wins, idempotent.
//
// ErrNotFound means the staging row does not exist yet, an expected
// transient state early in a call's life.
func (s *Service) Sync(ctx context.Context, callID string) error {
	if callID == "" {
		return ErrInvalidArgument
	}
	entry, err := s.repo.GetLogEntry(ctx, callID)
	if err != nil {
		return err
	}
	return s.repo.ApplySync(ctx, callID, entry)
}

// Resolution is the normalized status view the dashboard polls.
type Resolution struct {
	CallID   string      `json:"call_id"`
	Status   string      `json:"status"`
	Class    StatusClass `json:"class"`
	Complete bool        `json:"is_complete"`
	Errored  bool        `json:"is_error"`

	// Source names the row the view was built from; "call_log" marks the
	// degraded path where the authoritative row was unreadable.
	Source string `json:"source"`

	Record Record `json:"data"`
}

// Resolve computes the completion view of a call.
//
// A best-effort sync runs first; then the authoritative row is read, falling
// back to the staging row if it is unreadable (possibly one sync cycle stale,
// better than nothing). On first completion detection the credit charge is
// applied; a charge failure never fails the status read.
func (s *Service) Resolve(ctx context.Context, callID string) (Resolution, error) {
	if callID == "" {
		return Resolution{}, ErrInvalidArgument
	}
	log := logger.From(ctx)

	for i := 0; i < syncAttempts; i++ {
		err := s.Sync(ctx, callID)
		if err == nil || errors.Is(err, ErrNotFound) {
			break
		}
		log.Debug("sync attempt failed", "call_id", callID, "attempt", i+1, "err", err)
	}

	rec, err := s.repo.GetRecord(ctx, callID)
	source := "call_details"
	if err != nil {
		entry, lerr := s.repo.GetLogEntry(ctx, callID)
		if lerr != nil {
			return Resolution{}, err
		}
		rec = entry.AsRecord()
		source = "call_log"
	}

	complete, errored := Completion(rec)

	// Still in flight: nudge the worker to re-check on its side. Advisory only.
	if !complete && s.trigger != nil {
		if err := s.trigger.NudgeStatusCheck(ctx, callID); err != nil {
			log.Debug("status check nudge failed", "call_id", callID, "err", err)
		}
	}

	res := Resolution{
		CallID:   callID,
		Status:   rec.CallStatus,
		Class:    Classify(rec.CallStatus),
		Complete: complete,
		Errored:  errored,
		Source:   source,
		Record:   rec,
	}

	if complete && rec.CreditsAppliedAt == nil && s.credits != nil {
		result, cerr := s.credits.ApplyCompletionCharge(ctx, credits.CompletionCharge{
			CallID:          rec.ID,
			UserID:          rec.UserID,
			DurationSeconds: rec.DurationSeconds,
			CreditsConsumed: rec.CreditsConsumed,
		})
		if cerr != nil {
			log.Warn("completion charge failed", "call_id", callID, "err", cerr)
		} else if result.Applied {
			if s.audit != nil {
				_ = s.audit.Append(ctx, audit.Event{
					Type:    audit.EventTypeCallCompleted,
					UserID:  rec.UserID,
					CallID:  rec.ID,
					Message: fmt.Sprintf("call completed, %d credits applied", result.Credits),
				})
			}
		}
	}

	return res, nil
}

// ResolveForUser resolves a call only after confirming userID owns it.
// The ownership read runs before Resolve so a foreign caller cannot trigger
// sync, worker nudges or the completion charge; they just get ErrNotFound.
func (s *Service) ResolveForUser(ctx context.Context, callID, userID string) (Resolution, error) {
	if callID == "" || userID == "" {
		return Resolution{}, ErrInvalidArgument
	}
	owner, err := s.owner(ctx, callID)
	if err != nil {
		return Resolution{}, err
	}
	if owner != userID {
		return Resolution{}, ErrNotFound
	}
	return s.Resolve(ctx, callID)
}

func (s *Service) owner(ctx context.Context, callID string) (string, error) {
	rec, err := s.repo.GetRecord(ctx, callID)
	if err == nil {
		return rec.UserID, nil
	}
	entry, lerr := s.repo.GetLogEntry(ctx, callID)
	if lerr != nil {
		return "", err
	}
	return entry.UserID, nil
}

// ListByUser returns the user's call history, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByUser(ctx, userID)
}

// SubmitFeedback appends user feedback to a call the user owns.
func (s *Service) SubmitFeedback(ctx context.Context, callID, userID, feedback string) error {
	if callID == "" || userID == "" || feedback == "" {
		return ErrInvalidArgument
	}
	return s.repo.UpdateFeedback(ctx, callID, userID, feedback)
}

func isTenDigits(number string) bool {
	if len(number) != 10 {
		return false
	}
	for _, r := range number {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
