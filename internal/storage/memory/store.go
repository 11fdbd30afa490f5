// Package memory holds an in-process store used by tests. The charge marker
// spans the user and call tables, so a single shared store backs all the
// repository interfaces instead of one fake per package.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"calldesk-platform/internal/calls"
	"calldesk-platform/internal/credits"
	"calldesk-platform/internal/users"
)

type Store struct {
	mu sync.Mutex

	Users   map[string]users.User     // by id
	Records map[string]calls.Record   // call_details by id
	Logs    map[string]calls.LogEntry // call_log by call_detail_id

	// Error injection hooks for failure-path tests.
	DecrementErr error
	SetErr       error
	GetErr       error
	SumErrFor    map[string]error // per-user SumCreditsConsumed failures
}

func NewStore() *Store {
	return &Store{
		Users:   make(map[string]users.User),
		Records: make(map[string]calls.Record),
		Logs:    make(map[string]calls.LogEntry),
	}
}

// users.Repository

func (s *Store) Create(ctx context.Context, u users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.Users {
		if existing.PhoneNumber == u.PhoneNumber {
			return users.ErrPhoneTaken
		}
	}
	s.Users[u.ID] = u
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetByPhone(ctx context.Context, phone string) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.Users {
		if u.PhoneNumber == phone {
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (s *Store) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return users.ErrNotFound
	}
	t := at
	u.LastLogin = &t
	s.Users[id] = u
	return nil
}

// calls.Repository

func (s *Store) CreateRecord(ctx context.Context, rec calls.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Records[rec.ID] = rec
	return nil
}

func (s *Store) CreateLogEntry(ctx context.Context, e calls.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Logs[e.CallDetailID] = e
	return nil
}

func (s *Store) GetRecord(ctx context.Context, id string) (calls.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.Records[id]
	if !ok {
		return calls.Record{}, calls.ErrNotFound
	}
	return rec, nil
}

func (s *Store) GetLogEntry(ctx context.Context, id string) (calls.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.Logs[id]
	if !ok {
		return calls.LogEntry{}, calls.ErrNotFound
	}
	return e, nil
}

func (s *Store) ApplySync(ctx context.Context, id string, e calls.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.Records[id]
	if !ok {
		return calls.ErrNotFound
	}
	rec.CallAttempted = e.CallAttempted
	rec.CallStatus = e.CallStatus
	rec.CallTime = e.CallTime
	rec.DurationSeconds = e.DurationSeconds
	rec.RecordingURL = e.RecordingURL
	rec.Transcript = e.Transcript
	rec.Summary = e.Summary
	rec.Feedback = e.Feedback
	if rec.CreditsAppliedAt == nil {
		rec.CreditsConsumed = e.CreditsConsumed
	}
	s.Records[id] = rec
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]calls.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]calls.Record, 0)
	for _, rec := range s.Records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateFeedback(ctx context.Context, id, userID, feedback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.Records[id]
	if !ok || rec.UserID != userID {
		return calls.ErrNotFound
	}
	rec.Feedback = feedback
	s.Records[id] = rec
	// Mirror onto the staging row so a later sync re-copies it instead of wiping it.
	if e, ok := s.Logs[id]; ok && e.UserID == userID {
		e.Feedback = feedback
		s.Logs[id] = e
	}
	return nil
}

// credits.Repository

func (s *Store) GetBalance(ctx context.Context, userID string) (int64, error) {
	if s.GetErr != nil {
		return 0, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[userID]
	if !ok {
		return 0, credits.ErrUserNotFound
	}
	return u.Credit, nil
}

func (s *Store) SetBalance(ctx context.Context, userID string, balance int64) error {
	if s.SetErr != nil {
		return s.SetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[userID]
	if !ok {
		return credits.ErrUserNotFound
	}
	u.Credit = balance
	s.Users[userID] = u
	return nil
}

func (s *Store) DecrementBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	if s.DecrementErr != nil {
		return 0, s.DecrementErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[userID]
	if !ok {
		return 0, credits.ErrUserNotFound
	}
	u.Credit -= amount
	s.Users[userID] = u
	return u.Credit, nil
}

func (s *Store) SumCreditsConsumed(ctx context.Context, userID string) (int64, error) {
	if err := s.SumErrFor[userID]; err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, rec := range s.Records {
		if rec.UserID == userID && rec.CreditsConsumed != nil {
			total += *rec.CreditsConsumed
		}
	}
	return total, nil
}

func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.Users))
	for id := range s.Users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) MarkCreditsApplied(ctx context.Context, callID string, amount int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.Records[callID]
	if !ok {
		return false, calls.ErrNotFound
	}
	if rec.CreditsAppliedAt != nil {
		return false, nil
	}
	a := amount
	t := at
	rec.CreditsConsumed = &a
	rec.CreditsAppliedAt = &t
	s.Records[callID] = rec
	return true, nil
}

// reporting.Repository

func (s *Store) ListCallsInRange(ctx context.Context, userID string, from, to time.Time) ([]calls.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]calls.Record, 0)
	for _, rec := range s.Records {
		if rec.UserID != userID {
			continue
		}
		if rec.CreatedAt.Before(from) || !rec.CreatedAt.Before(to) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
