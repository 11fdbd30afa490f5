package calls

import "testing"

func TestClassifyVocabulary(t *testing.T) {
	cases := []struct {
		raw  string
		want StatusClass
	}{
		{"", StatusPending},
		{"queued", StatusPending},
		{"Ringing", StatusPending},
		{"in progress", StatusPending},
		{"answered", StatusAnswered},
		{"complete", StatusCompleted},
		{"Completed", StatusCompleted},
		{"no answer", StatusNoAnswer},
		{"no-answer", StatusNoAnswer},
		{"busy", StatusBusy},
		{"failed", StatusFailed},
		{"error", StatusFailed},
		{"cancelled", StatusFailed},
		{"something else entirely", StatusUnknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.raw); got != tc.want {
			t.Fatalf("Classify(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestClassifySubstringFallback(t *testing.T) {
	cases := []struct {
		raw  string
		want StatusClass
	}{
		{"call completed successfully", StatusCompleted},
		{"worker error: timeout", StatusFailed},
		{"line busy, retry later", StatusBusy},
		{"no answer after 30s", StatusNoAnswer},
		{"call was answered by machine", StatusAnswered},
		// Mixed markers: error-ish beats completion, so the call reads errored.
		{"completed with error", StatusFailed},
	}
	for _, tc := range cases {
		if got := Classify(tc.raw); got != tc.want {
			t.Fatalf("Classify(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestErroredAndTerminal(t *testing.T) {
	for _, c := range []StatusClass{StatusNoAnswer, StatusBusy, StatusFailed} {
		if !c.Errored() || !c.Terminal() {
			t.Fatalf("%q should be errored and terminal", c)
		}
	}
	if StatusCompleted.Errored() {
		t.Fatalf("completed is not errored")
	}
	if !StatusCompleted.Terminal() {
		t.Fatalf("completed is terminal")
	}
	for _, c := range []StatusClass{StatusPending, StatusAnswered, StatusUnknown} {
		if c.Terminal() {
			t.Fatalf("%q should not be terminal", c)
		}
	}
}

func TestCompletion(t *testing.T) {
	dur := 42
	zero := 0

	cases := []struct {
		name         string
		rec          Record
		wantComplete bool
		wantErrored  bool
	}{
		{"fresh call", Record{CallStatus: ""}, false, false},
		{"ringing", Record{CallStatus: "ringing"}, false, false},
		{"completed status", Record{CallStatus: "completed"}, true, false},
		{"errored implies complete", Record{CallStatus: "busy"}, true, true},
		{"positive duration implies complete", Record{CallStatus: "answered", DurationSeconds: &dur}, true, false},
		{"zero duration is not completion", Record{CallStatus: "answered", DurationSeconds: &zero}, false, false},
		{"transcript implies complete", Record{CallStatus: "answered", Transcript: "hello"}, true, false},
		{"recording implies complete", Record{RecordingURL: "https://cdn/x.mp3"}, true, false},
		{"summary implies complete", Record{Summary: "short call"}, true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			complete, errored := Completion(tc.rec)
			if complete != tc.wantComplete || errored != tc.wantErrored {
				t.Fatalf("Completion() = (%v, %v), want (%v, %v)", complete, errored, tc.wantComplete, tc.wantErrored)
			}
		})
	}
}
