package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateQuota_DefaultLimit(t *testing.T) {
	const limit, threshold = 20, 0.9

	var warns, exceeded []int
	for count := 1; count <= 22; count++ {
		switch EvaluateQuota(count, limit, threshold) {
		case QuotaWarn:
			warns = append(warns, count)
		case QuotaExceeded:
			exceeded = append(exceeded, count)
		}
	}

	assert.Equal(t, []int{18}, warns)
	assert.Equal(t, []int{21, 22}, exceeded)
}

func TestEvaluateQuota_FirstExceededIsLimitPlusOne(t *testing.T) {
	for _, limit := range []int{1, 5, 10, 33} {
		for count := 1; count <= limit; count++ {
			assert.NotEqual(t, QuotaExceeded, EvaluateQuota(count, limit, 0.5), "limit %d count %d", limit, count)
		}
		assert.Equal(t, QuotaExceeded, EvaluateQuota(limit+1, limit, 0.5))
	}
}

func TestEvaluateQuota_WarningExactlyOnce(t *testing.T) {
	tests := []struct {
		limit     int
		threshold float64
		want      int
	}{
		{limit: 20, threshold: 0.9, want: 18},
		{limit: 10, threshold: 0.75, want: 7},
		{limit: 3, threshold: 1, want: 3},
	}

	for _, tt := range tests {
		hits := 0
		for count := 1; count <= tt.limit+3; count++ {
			if EvaluateQuota(count, tt.limit, tt.threshold) == QuotaWarn {
				hits++
				assert.Equal(t, tt.want, count)
			}
		}
		assert.Equal(t, 1, hits, "limit %d threshold %v", tt.limit, tt.threshold)
	}
}

func TestEffectiveLimit(t *testing.T) {
	assert.Equal(t, 20, EffectiveLimit(20, 0))
	assert.Equal(t, 30, EffectiveLimit(20, 10))
}
