package credits

import "testing"

func intPtr(v int) *int { return &v }

func TestCreditsForDuration(t *testing.T) {
	cases := []struct {
		name     string
		duration *int
		want     int64
	}{
		{"nil duration charges one block", nil, 10},
		{"zero duration charges one block", intPtr(0), 10},
		{"negative duration charges one block", intPtr(-5), 10},
		{"one second", intPtr(1), 10},
		{"full minute", intPtr(60), 10},
		{"one second over", intPtr(61), 20},
		{"two minutes", intPtr(120), 20},
		{"two minutes and change", intPtr(121), 30},
		{"long call", intPtr(601), 110},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CreditsForDuration(tc.duration, 10)
			if got != tc.want {
				t.Fatalf("CreditsForDuration(%v, 10) = %d, want %d", tc.duration, got, tc.want)
			}
		})
	}
}

func TestCreditsForDurationDefaultsRate(t *testing.T) {
	if got := CreditsForDuration(intPtr(60), 0); got != DefaultPerMinute {
		t.Fatalf("expected default rate %d, got %d", DefaultPerMinute, got)
	}
}
