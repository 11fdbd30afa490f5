package credits

// DefaultInitialCredit is the signup grant and the reconciliation baseline.
const DefaultInitialCredit int64 = 1000

// DefaultPerMinute is the charge per started minute-block of call time.
const DefaultPerMinute int64 = 10

// CreditsForDuration maps a call duration to the credits it consumes.
//
// Rule: every started minute costs perMinute credits, with a floor of one
// block. A missing or zero duration (failed/unanswered calls that still
// consumed worker resources) is charged the one-block minimum.
func CreditsForDuration(durationSeconds *int, perMinute int64) int64 {
	if perMinute <= 0 {
		perMinute = DefaultPerMinute
	}
	if durationSeconds == nil || *durationSeconds <= 0 {
		return perMinute
	}

	blocks := int64(*durationSeconds) / 60
	if int64(*durationSeconds)%60 != 0 {
		blocks++
	}
	if blocks < 1 {
		blocks = 1
	}
	return blocks * perMinute
}
