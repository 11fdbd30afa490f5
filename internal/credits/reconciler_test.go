package credits_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"calldesk-platform/internal/calls"
	"calldesk-platform/internal/storage/memory"
)

func seedChargedCall(t *testing.T, store *memory.Store, callID, userID string, consumed int64) {
	t.Helper()
	rec := calls.Record{ID: callID, UserID: userID, CreatedAt: time.Now().UTC()}
	if err := store.CreateRecord(context.Background(), rec); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	if _, err := store.MarkCreditsApplied(context.Background(), callID, consumed, time.Now().UTC()); err != nil {
		t.Fatalf("seed charge: %v", err)
	}
}

func TestReconcileRebuildsBalanceFromHistory(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newCreditService(store)

	// Balance drifted to an arbitrary wrong value; one 125s call cost 30.
	seedUser(t, store, "user-10", 123)
	seedChargedCall(t, store, "call-a", "user-10", 30)

	out, err := svc.Reconcile(context.Background(), "user-10")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if out.PreviousBalance != 123 || out.NewBalance != 970 || out.TotalConsumed != 30 {
		t.Fatalf("unexpected result: %+v", out)
	}

	// Idempotent: running again changes nothing.
	again, err := svc.Reconcile(context.Background(), "user-10")
	if err != nil {
		t.Fatalf("reconcile again: %v", err)
	}
	if again.PreviousBalance != 970 || again.NewBalance != 970 {
		t.Fatalf("expected stable balance, got %+v", again)
	}
}

func TestReconcileSkipsUnchargedCalls(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newCreditService(store)
	seedUser(t, store, "user-11", 0)

	seedChargedCall(t, store, "call-b", "user-11", 20)
	// An in-flight call with no charge yet must not count.
	rec := calls.Record{ID: "call-c", UserID: "user-11", CallStatus: "ringing", CreatedAt: time.Now().UTC()}
	if err := store.CreateRecord(context.Background(), rec); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	out, err := svc.Reconcile(context.Background(), "user-11")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if out.TotalConsumed != 20 || out.NewBalance != 980 {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestReconcileAllContinuesPastFailures(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newCreditService(store)

	seedUser(t, store, "user-12", 500)
	seedUser(t, store, "user-13", 500)
	seedChargedCall(t, store, "call-d", "user-13", 50)

	store.SumErrFor = map[string]error{"user-12": errors.New("query timeout")}

	out, err := svc.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("reconcile all: %v", err)
	}
	if out.UsersUpdated != 1 {
		t.Fatalf("expected 1 user updated, got %d", out.UsersUpdated)
	}
	if len(out.Errors) != 1 {
		t.Fatalf("expected 1 error collected, got %v", out.Errors)
	}

	bal, err := svc.Balance(context.Background(), "user-13")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 950 {
		t.Fatalf("expected healthy user settled at 950, got %d", bal)
	}
}
