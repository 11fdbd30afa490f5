package calls

import "time"

// Record is the authoritative, user-facing call row (call_details).
//
// Write ownership: the worker-reported fields (attempted flag, status, call
// time, duration, recording, transcript, summary, worker-side credits,
// feedback) are written ONLY by the synchronizer copying from the staging
// row. Nothing else may write them directly.
//
// Money invariant: CreditsConsumed is computed at most once per call; after
// CreditsAppliedAt is set it is frozen and must never be recomputed, or the
// user would be double-charged.
type Record struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	Number    string `json:"number" db:"number"`
	Developer string `json:"developer" db:"developer"`
	Project   string `json:"project" db:"project"`

	// CallAttempted is set once the external worker acknowledges the call started.
	CallAttempted bool `json:"call_attempted" db:"call_attempted"`

	// CallStatus is the worker's free-text status; see Classify for how it is read.
	CallStatus string `json:"call_status" db:"call_status"`

	// DurationSeconds is nil until the call finishes.
	DurationSeconds *int `json:"call_duration,omitempty" db:"call_duration"`

	CreditsConsumed  *int64     `json:"credits_consumed,omitempty" db:"credits_consumed"`
	CreditsAppliedAt *time.Time `json:"credits_applied_at,omitempty" db:"credits_applied_at"`

	RecordingURL string `json:"call_recording,omitempty" db:"call_recording"`
	Transcript   string `json:"transcript,omitempty" db:"transcript"`
	Summary      string `json:"summary,omitempty" db:"summary"`
	Feedback     string `json:"feedback,omitempty" db:"feedback"`

	CallTime  *time.Time `json:"call_time,omitempty" db:"call_time"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// LogEntry is the staging row (call_log) mutated by the external call worker.
// It shadows the Record and is linked solely by CallDetailID; there is no
// enforced foreign key, so the synchronizer owns consistency between the two.
type LogEntry struct {
	CallDetailID string `json:"call_detail_id" db:"call_detail_id"`
	UserID       string `json:"user_id" db:"user_id"`

	Number    string `json:"number" db:"number"`
	Developer string `json:"developer" db:"developer"`
	Project   string `json:"project" db:"project"`

	CallAttempted   bool   `json:"call_attempted" db:"call_attempted"`
	CallStatus      string `json:"call_status" db:"call_status"`
	DurationSeconds *int   `json:"call_duration,omitempty" db:"call_duration"`
	CreditsConsumed *int64 `json:"credits_consumed,omitempty" db:"credits_consumed"`

	RecordingURL string `json:"call_recording,omitempty" db:"call_recording"`
	Transcript   string `json:"transcript,omitempty" db:"transcript"`
	Summary      string `json:"summary,omitempty" db:"summary"`
	Feedback     string `json:"feedback,omitempty" db:"feedback"`

	CallTime  *time.Time `json:"call_time,omitempty" db:"call_time"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// AsRecord projects a staging row into the Record shape for the degraded
// read path. The projection may be one sync cycle stale.
func (e LogEntry) AsRecord() Record {
	return Record{
		ID:              e.CallDetailID,
		UserID:          e.UserID,
		Number:          e.Number,
		Developer:       e.Developer,
		Project:         e.Project,
		CallAttempted:   e.CallAttempted,
		CallStatus:      e.CallStatus,
		DurationSeconds: e.DurationSeconds,
		CreditsConsumed: e.CreditsConsumed,
		RecordingURL:    e.RecordingURL,
		Transcript:      e.Transcript,
		Summary:         e.Summary,
		Feedback:        e.Feedback,
		CallTime:        e.CallTime,
		CreatedAt:       e.CreatedAt,
	}
}
