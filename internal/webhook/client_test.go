package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"calldesk-platform/internal/config"
)

func TestTriggerCallPostsJSON(t *testing.T) {
	var got TriggerRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(config.WebhookConfig{TriggerURL: srv.URL, RequestTimeout: 2 * time.Second})
	err := c.TriggerCall(context.Background(), TriggerRequest{
		ID:     "call-1",
		UserID: "user-1",
		Number: "9876543210",
	})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if got.ID != "call-1" || got.Number != "9876543210" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestTriggerCallReportsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(config.WebhookConfig{TriggerURL: srv.URL, RequestTimeout: 2 * time.Second})
	err := c.TriggerCall(context.Background(), TriggerRequest{ID: "c", UserID: "u", Number: "9876543210"})
	if err == nil {
		t.Fatalf("expected error for 502")
	}
}

func TestTriggerCallValidatesRequest(t *testing.T) {
	c := NewClient(config.WebhookConfig{TriggerURL: "http://localhost:0"})
	if err := c.TriggerCall(context.Background(), TriggerRequest{}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestNudgeStatusCheck(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(config.WebhookConfig{StatusCheckURL: srv.URL, RequestTimeout: 2 * time.Second})
	if err := c.NudgeStatusCheck(context.Background(), "call-1"); err != nil {
		t.Fatalf("nudge: %v", err)
	}
	if body["callId"] != "check-status" {
		t.Fatalf("unexpected nudge payload: %+v", body)
	}
}

func TestNudgeStatusCheckNoURLIsNoop(t *testing.T) {
	c := NewClient(config.WebhookConfig{})
	if err := c.NudgeStatusCheck(context.Background(), "call-1"); err != nil {
		t.Fatalf("expected silent noop, got %v", err)
	}
}
