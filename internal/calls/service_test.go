package calls_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"calldesk-platform/internal/audit"
	"calldesk-platform/internal/calls"
	"calldesk-platform/internal/config"
	"calldesk-platform/internal/credits"
	"calldesk-platform/internal/storage/memory"
	"calldesk-platform/internal/users"
	"calldesk-platform/internal/webhook"
)

type fakeTrigger struct {
	calls  []webhook.TriggerRequest
	nudges []string
	err    error
}

func (f *fakeTrigger) TriggerCall(ctx context.Context, req webhook.TriggerRequest) error {
	f.calls = append(f.calls, req)
	return f.err
}

func (f *fakeTrigger) NudgeStatusCheck(ctx context.Context, callID string) error {
	f.nudges = append(f.nudges, callID)
	return nil
}

func newCallService(store *memory.Store, trigger *fakeTrigger) (*calls.Service, *audit.MemoryRepo) {
	auditRepo := audit.NewMemoryRepo()
	auditSvc := audit.NewService(auditRepo)
	creditsSvc := credits.NewService(store, auditSvc, nil, config.CreditsConfig{InitialCredit: 1000, PerMinute: 10})
	return calls.NewService(store, trigger, auditSvc, creditsSvc), auditRepo
}

func seedUser(t *testing.T, store *memory.Store, id string, balance int64) {
	t.Helper()
	err := store.Create(context.Background(), users.User{
		ID:          id,
		Name:        "Test",
		PhoneNumber: "9876543210",
		Role:        "user",
		Credit:      balance,
		SignupTime:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestInitiateCreatesBothRowsAndFiresWebhook(t *testing.T) {
	store := memory.NewStore()
	trigger := &fakeTrigger{}
	svc, auditRepo := newCallService(store, trigger)
	seedUser(t, store, "user-1", 1000)

	rec, err := svc.Initiate(context.Background(), "user-1", "9123456789", "dev", "proj")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("expected generated call id")
	}

	if _, err := store.GetRecord(context.Background(), rec.ID); err != nil {
		t.Fatalf("authoritative row missing: %v", err)
	}
	entry, err := store.GetLogEntry(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("staging row missing: %v", err)
	}
	if entry.CallDetailID != rec.ID || entry.UserID != "user-1" {
		t.Fatalf("staging row not linked: %+v", entry)
	}

	if len(trigger.calls) != 1 || trigger.calls[0].ID != rec.ID {
		t.Fatalf("expected one webhook trigger for %s, got %+v", rec.ID, trigger.calls)
	}
	if got := auditRepo.ByType(audit.EventTypeCallInitiated); len(got) != 1 {
		t.Fatalf("expected initiation audit event, got %d", len(got))
	}
}

func TestInitiateSucceedsWhenWebhookFails(t *testing.T) {
	store := memory.NewStore()
	trigger := &fakeTrigger{err: errors.New("worker unreachable")}
	svc, _ := newCallService(store, trigger)
	seedUser(t, store, "user-1", 1000)

	rec, err := svc.Initiate(context.Background(), "user-1", "9123456789", "", "")
	if err != nil {
		t.Fatalf("initiate should tolerate webhook failure, got %v", err)
	}
	if _, err := store.GetRecord(context.Background(), rec.ID); err != nil {
		t.Fatalf("record should exist: %v", err)
	}
}

func TestInitiateRejectsInsufficientCredits(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newCallService(store, &fakeTrigger{})
	seedUser(t, store, "user-1", 5)

	if _, err := svc.Initiate(context.Background(), "user-1", "9123456789", "", ""); !errors.Is(err, calls.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
}

func TestInitiateRejectsBadNumber(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newCallService(store, &fakeTrigger{})
	seedUser(t, store, "user-1", 1000)

	for _, number := range []string{"", "12345", "12345678901", "91234abcde"} {
		if _, err := svc.Initiate(context.Background(), "user-1", number, "", ""); !errors.Is(err, calls.ErrInvalidNumber) {
			t.Fatalf("number %q: expected ErrInvalidNumber, got %v", number, err)
		}
	}
}

func TestSyncCopiesWorkerFields(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newCallService(store, &fakeTrigger{})
	seedUser(t, store, "user-1", 1000)

	rec, err := svc.Initiate(context.Background(), "user-1", "9123456789", "", "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	dur := 95
	entry, _ := store.GetLogEntry(context.Background(), rec.ID)
	entry.CallAttempted = true
	entry.CallStatus = "completed"
	entry.DurationSeconds = &dur
	entry.Transcript = "hi"
	if err := store.CreateLogEntry(context.Background(), entry); err != nil {
		t.Fatalf("update staging row: %v", err)
	}

	if err := svc.Sync(context.Background(), rec.ID); err != nil {
		t.Fatalf("sync: %v", err)
	}

	got, err := store.GetRecord(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if !got.CallAttempted || got.CallStatus != "completed" || got.Transcript != "hi" {
		t.Fatalf("worker fields not copied: %+v", got)
	}
	if got.DurationSeconds == nil || *got.DurationSeconds != 95 {
		t.Fatalf("duration not copied: %+v", got.DurationSeconds)
	}
}

func TestSyncMissingStagingRowReturnsNotFound(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newCallService(store, &fakeTrigger{})

	if err := svc.Sync(context.Background(), "nope"); !errors.Is(err, calls.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolvePendingCall(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newCallService(store, &fakeTrigger{})
	seedUser(t, store, "user-1", 1000)

	rec, err := svc.Initiate(context.Background(), "user-1", "9123456789", "", "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	res, err := svc.Resolve(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Complete || res.Errored {
		t.Fatalf("fresh call should be incomplete: %+v", res)
	}
	if res.Class != calls.StatusPending {
		t.Fatalf("expected pending class, got %q", res.Class)
	}
	if res.Source != "call_details" {
		t.Fatalf("expected authoritative source, got %q", res.Source)
	}
}

func TestResolveChargesCompletedCallOnce(t *testing.T) {
	store := memory.NewStore()
	svc, auditRepo := newCallService(store, &fakeTrigger{})
	seedUser(t, store, "user-1", 1000)

	rec, err := svc.Initiate(context.Background(), "user-1", "9123456789", "", "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	dur := 125
	entry, _ := store.GetLogEntry(context.Background(), rec.ID)
	entry.CallStatus = "completed"
	entry.DurationSeconds = &dur
	if err := store.CreateLogEntry(context.Background(), entry); err != nil {
		t.Fatalf("update staging row: %v", err)
	}

	res, err := svc.Resolve(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !res.Complete || res.Errored {
		t.Fatalf("expected clean completion: %+v", res)
	}

	bal, err := store.GetBalance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 970 {
		t.Fatalf("expected 30 credits charged for 125s, balance %d", bal)
	}

	// Poll again twice; the charge must not repeat.
	for i := 0; i < 2; i++ {
		if _, err := svc.Resolve(context.Background(), rec.ID); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}
	bal, _ = store.GetBalance(context.Background(), "user-1")
	if bal != 970 {
		t.Fatalf("repeated polls double-charged, balance %d", bal)
	}
	if got := auditRepo.ByType(audit.EventTypeCallCompleted); len(got) != 1 {
		t.Fatalf("expected exactly one completion event, got %d", len(got))
	}
}

func TestResolveChargesErroredCallMinimum(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newCallService(store, &fakeTrigger{})
	seedUser(t, store, "user-1", 1000)

	rec, err := svc.Initiate(context.Background(), "user-1", "9123456789", "", "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	entry, _ := store.GetLogEntry(context.Background(), rec.ID)
	entry.CallStatus = "no answer"
	if err := store.CreateLogEntry(context.Background(), entry); err != nil {
		t.Fatalf("update staging row: %v", err)
	}

	res, err := svc.Resolve(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !res.Complete || !res.Errored {
		t.Fatalf("no answer should be errored and complete: %+v", res)
	}

	bal, _ := store.GetBalance(context.Background(), "user-1")
	if bal != 990 {
		t.Fatalf("expected one-block minimum charge, balance %d", bal)
	}
}

func TestResolveFallsBackToStagingRow(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newCallService(store, &fakeTrigger{})

	// Only the staging row exists: the authoritative write was lost.
	entry := calls.LogEntry{
		CallDetailID: "orphan-1",
		UserID:       "user-1",
		Number:       "9123456789",
		CallStatus:   "ringing",
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.CreateLogEntry(context.Background(), entry); err != nil {
		t.Fatalf("seed staging row: %v", err)
	}

	res, err := svc.Resolve(context.Background(), "orphan-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != "call_log" {
		t.Fatalf("expected degraded source call_log, got %q", res.Source)
	}
	if res.Class != calls.StatusPending {
		t.Fatalf("expected pending, got %q", res.Class)
	}
}

func TestResolveUnknownCall(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newCallService(store, &fakeTrigger{})

	if _, err := svc.Resolve(context.Background(), "missing"); !errors.Is(err, calls.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSyncDoesNotOverwriteAppliedCredits(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newCallService(store, &fakeTrigger{})
	seedUser(t, store, "user-1", 1000)

	rec, err := svc.Initiate(context.Background(), "user-1", "9123456789", "", "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	dur := 60
	entry, _ := store.GetLogEntry(context.Background(), rec.ID)
	entry.CallStatus = "completed"
	entry.DurationSeconds = &dur
	if err := store.CreateLogEntry(context.Background(), entry); err != nil {
		t.Fatalf("update staging row: %v", err)
	}

	// First resolve applies the 10-credit charge and stamps the row.
	if _, err := svc.Resolve(context.Background(), rec.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// The worker later rewrites its own credits figure; sync must not take it.
	late := int64(999)
	entry.CreditsConsumed = &late
	if err := store.CreateLogEntry(context.Background(), entry); err != nil {
		t.Fatalf("update staging row: %v", err)
	}
	if err := svc.Sync(context.Background(), rec.ID); err != nil {
		t.Fatalf("sync: %v", err)
	}

	got, err := store.GetRecord(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if got.CreditsConsumed == nil || *got.CreditsConsumed != 10 {
		t.Fatalf("applied credits were overwritten: %+v", got.CreditsConsumed)
	}
}

func TestFeedbackSurvivesStatusPoll(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newCallService(store, &fakeTrigger{})
	seedUser(t, store, "user-1", 1000)

	rec, err := svc.Initiate(context.Background(), "user-1", "9123456789", "", "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	dur := 60
	entry, _ := store.GetLogEntry(context.Background(), rec.ID)
	entry.CallStatus = "completed"
	entry.DurationSeconds = &dur
	if err := store.CreateLogEntry(context.Background(), entry); err != nil {
		t.Fatalf("update staging row: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), rec.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if err := svc.SubmitFeedback(context.Background(), rec.ID, "user-1", "great call"); err != nil {
		t.Fatalf("feedback: %v", err)
	}

	// The dashboard keeps polling after feedback lands; the sync inside each
	// poll must not wipe what the user wrote.
	for i := 0; i < 2; i++ {
		if _, err := svc.Resolve(context.Background(), rec.ID); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}

	got, err := store.GetRecord(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if got.Feedback != "great call" {
		t.Fatalf("feedback lost after status poll: %q", got.Feedback)
	}
}

func TestResolveForUserBlocksForeignCaller(t *testing.T) {
	store := memory.NewStore()
	trigger := &fakeTrigger{}
	svc, _ := newCallService(store, trigger)
	seedUser(t, store, "user-1", 1000)

	rec, err := svc.Initiate(context.Background(), "user-1", "9123456789", "", "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	dur := 60
	entry, _ := store.GetLogEntry(context.Background(), rec.ID)
	entry.CallStatus = "completed"
	entry.DurationSeconds = &dur
	if err := store.CreateLogEntry(context.Background(), entry); err != nil {
		t.Fatalf("update staging row: %v", err)
	}

	nudgesBefore := len(trigger.nudges)
	if _, err := svc.ResolveForUser(context.Background(), rec.ID, "intruder"); !errors.Is(err, calls.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign caller, got %v", err)
	}

	// The foreign poll must not have fired any side effect: no nudge, no
	// sync, no completion charge.
	if len(trigger.nudges) != nudgesBefore {
		t.Fatalf("foreign caller triggered a worker nudge")
	}
	got, _ := store.GetRecord(context.Background(), rec.ID)
	if got.CreditsAppliedAt != nil {
		t.Fatalf("foreign caller triggered the completion charge")
	}
	bal, _ := store.GetBalance(context.Background(), "user-1")
	if bal != 1000 {
		t.Fatalf("foreign caller moved the balance: %d", bal)
	}

	// The owner still resolves and gets charged normally.
	res, err := svc.ResolveForUser(context.Background(), rec.ID, "user-1")
	if err != nil {
		t.Fatalf("owner resolve: %v", err)
	}
	if !res.Complete {
		t.Fatalf("expected completion for owner: %+v", res)
	}
	bal, _ = store.GetBalance(context.Background(), "user-1")
	if bal != 990 {
		t.Fatalf("expected owner charged 10, balance %d", bal)
	}
}

func TestSubmitFeedbackRequiresOwnership(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newCallService(store, &fakeTrigger{})
	seedUser(t, store, "user-1", 1000)

	rec, err := svc.Initiate(context.Background(), "user-1", "9123456789", "", "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	if err := svc.SubmitFeedback(context.Background(), rec.ID, "someone-else", "bad"); !errors.Is(err, calls.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
	if err := svc.SubmitFeedback(context.Background(), rec.ID, "user-1", "great call"); err != nil {
		t.Fatalf("feedback: %v", err)
	}
	got, _ := store.GetRecord(context.Background(), rec.ID)
	if got.Feedback != "great call" {
		t.Fatalf("feedback not stored: %q", got.Feedback)
	}
}
