package calls

import "strings"

// StatusClass is the closed set of call outcomes this system reasons about.
// The external worker reports free text; Classify maps known vocabulary
// through an explicit table and falls back to permissive substring matching
// for anything unrecognized, landing on StatusUnknown when neither applies.
type StatusClass string

const (
	StatusUnknown   StatusClass = "unknown"
	StatusPending   StatusClass = "pending"
	StatusAnswered  StatusClass = "answered"
	StatusCompleted StatusClass = "completed"
	StatusNoAnswer  StatusClass = "no_answer"
	StatusBusy      StatusClass = "busy"
	StatusFailed    StatusClass = "failed"
)

// vocabulary covers the worker statuses observed in production.
// Extend this table first; the substring fallback is a safety net, not the contract.
var vocabulary = map[string]StatusClass{
	"queued":      StatusPending,
	"initiated":   StatusPending,
	"ringing":     StatusPending,
	"in progress": StatusPending,
	"in_progress": StatusPending,
	"answered":    StatusAnswered,
	"complete":    StatusCompleted,
	"completed":   StatusCompleted,
	"no answer":   StatusNoAnswer,
	"no_answer":   StatusNoAnswer,
	"no-answer":   StatusNoAnswer,
	"busy":        StatusBusy,
	"failed":      StatusFailed,
	"error":       StatusFailed,
	"canceled":    StatusFailed,
	"cancelled":   StatusFailed,
}

func Classify(raw string) StatusClass {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return StatusPending
	}
	if c, ok := vocabulary[s]; ok {
		return c
	}

	// Unrecognized vocabulary: error-ish markers win over completion markers,
	// so a status carrying both reads as an errored (and therefore finished) call.
	switch {
	case strings.Contains(s, "error"), strings.Contains(s, "failed"):
		return StatusFailed
	case strings.Contains(s, "busy"):
		return StatusBusy
	case strings.Contains(s, "no answer"), strings.Contains(s, "no_answer"), strings.Contains(s, "noanswer"):
		return StatusNoAnswer
	case strings.Contains(s, "complete"):
		return StatusCompleted
	case strings.Contains(s, "answer"):
		return StatusAnswered
	}
	return StatusUnknown
}

// Errored reports whether the class represents a call that finished without
// connecting normally. Errored calls still consumed worker resources and are
// charged the minimum block.
func (c StatusClass) Errored() bool {
	switch c {
	case StatusNoAnswer, StatusBusy, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether the class alone proves the call is finished.
func (c StatusClass) Terminal() bool {
	return c == StatusCompleted || c.Errored()
}

// Completion derives the (complete, errored) view of a record. Completion is
// monotonic: every signal here only ever appears, never disappears.
func Completion(rec Record) (complete, errored bool) {
	class := Classify(rec.CallStatus)
	errored = class.Errored()

	complete = errored ||
		class == StatusCompleted ||
		(rec.DurationSeconds != nil && *rec.DurationSeconds > 0) ||
		rec.Transcript != "" ||
		rec.RecordingURL != "" ||
		rec.Summary != ""
	return complete, errored
}
