package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"calldesk-platform/internal/config"
)

// CallTrigger is the provider-agnostic contract for reaching the external
// call worker. The worker is a fire-and-forget HTTP sink: a non-2xx or
// unreachable endpoint is reported to the caller, but callers are free to
// treat that as non-fatal because the worker may still pick the call up
// out-of-band.
type CallTrigger interface {
	TriggerCall(ctx context.Context, req TriggerRequest) error
	NudgeStatusCheck(ctx context.Context, callID string) error
}

// TriggerRequest is the wire payload the worker expects for a new call.
type TriggerRequest struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Number    string `json:"number"`
	Developer string `json:"developer"`
	Project   string `json:"project"`
}

type statusCheckRequest struct {
	CallID    string `json:"callId"`
	Timestamp int64  `json:"timestamp"`
}

// Client posts JSON to the worker's fixed webhook URLs.
type Client struct {
	triggerURL     string
	statusCheckURL string
	httpClient     *http.Client
	clock          func() time.Time
}

func NewClient(cfg config.WebhookConfig) *Client {
	return &Client{
		triggerURL:     cfg.TriggerURL,
		statusCheckURL: cfg.StatusCheckURL,
		httpClient:     &http.Client{Timeout: cfg.RequestTimeout},
		clock:          time.Now,
	}
}

func (c *Client) TriggerCall(ctx context.Context, req TriggerRequest) error {
	if req.ID == "" || req.UserID == "" || req.Number == "" {
		return fmt.Errorf("webhook: trigger request missing identifying fields")
	}
	return c.post(ctx, c.triggerURL, req)
}

// NudgeStatusCheck asks the worker to re-check a call. Purely advisory;
// no response contract is relied upon.
func (c *Client) NudgeStatusCheck(ctx context.Context, callID string) error {
	if c.statusCheckURL == "" {
		return nil
	}
	return c.post(ctx, c.statusCheckURL, statusCheckRequest{
		CallID:    "check-status",
		Timestamp: c.clock().UnixMilli(),
	})
}

func (c *Client) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post %s: %w", url, err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: post %s: unexpected status %d", url, resp.StatusCode)
	}
	return nil
}
