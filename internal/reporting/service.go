package reporting

import (
	"context"
	"errors"
	"time"

	"calldesk-platform/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// Implementations must enforce per-user filtering; reporting reads are the
// dashboard's analytics view and must never leak another user's calls.

type Repository interface {
	ListCallsInRange(ctx context.Context, userID string, from, to time.Time) ([]calls.Record, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	rows, err := s.list(ctx, req.UserID, req.Range)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{UserID: req.UserID}
	for _, c := range rows {
		out.TotalCalls++
		if c.DurationSeconds != nil {
			out.TotalDurationSeconds += *c.DurationSeconds
		}
		if c.RecordingURL != "" {
			out.RecordedCalls++
		}
		switch calls.Classify(c.CallStatus) {
		case calls.StatusCompleted:
			out.CompletedCalls++
		case calls.StatusAnswered:
			out.AnsweredCalls++
		case calls.StatusFailed:
			out.FailedCalls++
		case calls.StatusNoAnswer:
			out.NoAnswerCalls++
		case calls.StatusBusy:
			out.BusyCalls++
		case calls.StatusPending, calls.StatusUnknown:
			out.PendingCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}

func (s *Service) SpendSummary(ctx context.Context, req SpendSummaryRequest) (SpendSummary, error) {
	rows, err := s.list(ctx, req.UserID, req.Range)
	if err != nil {
		return SpendSummary{}, err
	}

	out := SpendSummary{UserID: req.UserID}
	for _, c := range rows {
		if c.CreditsConsumed == nil {
			out.UnchargedCalls++
			continue
		}
		out.ChargedCalls++
		out.TotalCreditsConsumed += *c.CreditsConsumed
		if c.DurationSeconds == nil || *c.DurationSeconds <= 0 {
			out.MinimumFeeCalls++
		}
	}
	return out, nil
}

func (s *Service) list(ctx context.Context, userID string, r TimeRange) ([]calls.Record, error) {
	if userID == "" {
		return nil, ErrInvalidRequest
	}
	if r.From.IsZero() || r.To.IsZero() || !r.To.After(r.From) {
		return nil, ErrInvalidRequest
	}
	if s.repo == nil {
		return nil, errors.New("reporting: repository not configured")
	}
	return s.repo.ListCallsInRange(ctx, userID, r.From, r.To)
}
