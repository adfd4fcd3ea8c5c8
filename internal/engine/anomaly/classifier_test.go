package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySeverity_Ladder(t *testing.T) {
	cases := []struct {
		name  string
		absZ  float64
		score float64
		want  Severity
	}{
		{"extreme z", 3.5, 0.1, SeverityCritical},
		{"extreme score", 0.5, -0.55, SeverityCritical},
		{"high z", 2.5, 0.1, SeverityHigh},
		{"high score", 0.5, -0.35, SeverityHigh},
		{"medium z", 1.7, 0.1, SeverityMedium},
		{"medium score", 0.5, -0.15, SeverityMedium},
		{"below every threshold", 1.0, -0.05, SeverityLow},
		{"boundary z not exceeded", 3.0, 0.0, SeverityHigh},
		{"boundary score not exceeded", 0.0, -0.5, SeverityHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifySeverity(tc.absZ, tc.score))
		})
	}
}

func TestClassifySeverity_MonotonicInZ(t *testing.T) {
	// Increasing |z| must never decrease severity.
	rank := map[Severity]int{SeverityLow: 0, SeverityMedium: 1, SeverityHigh: 2, SeverityCritical: 3}

	prev := -1
	for z := 0.0; z <= 5.0; z += 0.1 {
		got := rank[classifySeverity(z, 0)]
		assert.GreaterOrEqual(t, got, prev, "severity regressed at z=%f", z)
		prev = got
	}
}

func TestClassifyType(t *testing.T) {
	cases := []struct {
		name    string
		cost    float64
		prev    float64
		hasPrev bool
		want    Type
	}{
		{"spike", 160, 100, true, TypeSpike},
		{"drop", 40, 100, true, TypeDrop},
		{"moderate rise", 140, 100, true, TypePatternChange},
		{"exactly +50%", 150, 100, true, TypePatternChange},
		{"exactly -50%", 50, 100, true, TypePatternChange},
		{"no predecessor", 400, 0, false, TypePatternChange},
		{"zero predecessor cost", 400, 0, true, TypePatternChange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyType(tc.cost, tc.prev, tc.hasPrev))
		})
	}
}

func TestEstimatedImpact_NeverNegative(t *testing.T) {
	assert.Equal(t, 50.0, estimatedImpact(150, 100))
	assert.Equal(t, 0.0, estimatedImpact(40, 100), "cost drops carry zero excess spend")
	assert.Equal(t, 0.0, estimatedImpact(100, 100))
}

func TestBaselineZ_FlatBaselineFinite(t *testing.T) {
	z := baselineZ(105, 100, 0)
	assert.False(t, z != z, "z must not be NaN")
	assert.Greater(t, z, 0.0)
}
