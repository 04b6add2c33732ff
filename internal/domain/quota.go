package domain

import "math"

// QuotaVerdict is the caller-side decision for a counted message
type QuotaVerdict string

const (
	QuotaOK       QuotaVerdict = "ok"
	QuotaWarn     QuotaVerdict = "warn"
	QuotaExceeded QuotaVerdict = "exceeded"
)

// WarnAt returns the message number that triggers the one-off warning.
func WarnAt(limit int, threshold float64) int {
	return int(math.Floor(float64(limit) * threshold))
}

// EvaluateQuota maps a post-increment count to a verdict. The warning is an
// equality check on a counter that only grows, so it fires once per day.
func EvaluateQuota(count, limit int, threshold float64) QuotaVerdict {
	switch {
	case count > limit:
		return QuotaExceeded
	case count == WarnAt(limit, threshold):
		return QuotaWarn
	default:
		return QuotaOK
	}
}

// EffectiveLimit is the limit seeded into a new day's counter.
func EffectiveLimit(groupDefault, extension int) int {
	return groupDefault + extension
}
