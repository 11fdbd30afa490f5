package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics for one user.

type CallsSummaryRequest struct {
	UserID string    `json:"user_id"`
	Range  TimeRange `json:"range"`
}

type CallsSummary struct {
	UserID string `json:"user_id"`

	TotalCalls     int `json:"total_calls"`
	CompletedCalls int `json:"completed_calls"`
	AnsweredCalls  int `json:"answered_calls"`
	FailedCalls    int `json:"failed_calls"`
	NoAnswerCalls  int `json:"no_answer_calls"`
	BusyCalls      int `json:"busy_calls"`
	PendingCalls   int `json:"pending_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	RecordedCalls int `json:"recorded_calls"`
}

// SpendSummaryRequest requests aggregated credit consumption for one user.
// Spend derives from the persisted per-call credits, so it reflects exactly
// what reconciliation would settle against.

type SpendSummaryRequest struct {
	UserID string    `json:"user_id"`
	Range  TimeRange `json:"range"`
}

type SpendSummary struct {
	UserID string `json:"user_id"`

	TotalCreditsConsumed int64 `json:"total_credits_consumed"`

	// ChargedCalls counts calls whose credits have been computed.
	ChargedCalls int `json:"charged_calls"`

	// MinimumFeeCalls counts calls charged the one-block minimum without a
	// recorded duration (failed/unanswered).
	MinimumFeeCalls int `json:"minimum_fee_calls"`

	// UnchargedCalls counts calls still awaiting a charge.
	UnchargedCalls int `json:"uncharged_calls"`
}
