package rightsizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costlens/costlens-engine/internal/engine/utilization"
)

func TestAssemble_CompleteRecord(t *testing.T) {
	match := &Match{
		Profile: utilization.Profile{
			ResourceID: "i-0abc",
			AvgCPU:     12,
			P95CPU:     28,
			P95Mem:     floatPtr(28),
			P99Mem:     floatPtr(30),
		},
		Current:            CatalogEntry{TypeName: "m5.xlarge", VCPU: 4, MemoryGB: 16, HourlyPrice: 0.192},
		Recommended:        CatalogEntry{TypeName: "m5.large", VCPU: 2, MemoryGB: 8, HourlyPrice: 0.096},
		RequiredVCPU:       1.44,
		RequiredMemoryGB:   5.76,
		CurrentMonthly:     138.24,
		RecommendedMonthly: 69.12,
		MonthlySavings:     69.12,
		SavingsPct:         50,
	}

	rec := Assemble(match, 0.20)

	assert.Equal(t, "i-0abc", rec.ResourceID)
	assert.Equal(t, "m5.xlarge", rec.CurrentType)
	assert.Equal(t, "m5.large", rec.RecommendedType)
	assert.Equal(t, 138.24, rec.CurrentMonthlyCost)
	assert.Equal(t, 69.12, rec.RecommendedMonthlyCost)
	assert.Equal(t, 69.12, rec.MonthlySavings)
	assert.Equal(t, 50.0, rec.SavingsPct)
	assert.Equal(t, RiskMedium, rec.RiskLevel)
	assert.Equal(t, 85.0, rec.Confidence)

	require.NotEmpty(t, rec.Reasoning)
	assert.Contains(t, rec.Reasoning, "m5.large")
	assert.Contains(t, rec.Reasoning, "1.44 vCPU")
	assert.Contains(t, rec.Reasoning, "$69.12/month")
	assert.Contains(t, rec.Reasoning, "20% headroom")
}

func TestAssemble_MemoryDegradedReasoning(t *testing.T) {
	match := &Match{
		Profile:        utilization.Profile{ResourceID: "i-0abc", AvgCPU: 10, P95CPU: 20},
		Current:        CatalogEntry{TypeName: "m5.xlarge", VCPU: 4, MemoryGB: 16, HourlyPrice: 0.192},
		Recommended:    CatalogEntry{TypeName: "t3.small", VCPU: 2, MemoryGB: 2, HourlyPrice: 0.0208},
		RequiredVCPU:   1,
		MonthlySavings: 123.26,
		MemoryDegraded: true,
	}

	rec := Assemble(match, 0.20)
	assert.Contains(t, rec.Reasoning, "memory metrics unavailable")
}

func TestBuildReport_SortsAndSums(t *testing.T) {
	input := []Recommendation{
		{ResourceID: "small", MonthlySavings: 10},
		{ResourceID: "big", MonthlySavings: 100},
		{ResourceID: "mid", MonthlySavings: 40},
	}

	report := BuildReport(input)

	require.Len(t, report.Recommendations, 3)
	assert.Equal(t, "big", report.Recommendations[0].ResourceID)
	assert.Equal(t, "mid", report.Recommendations[1].ResourceID)
	assert.Equal(t, "small", report.Recommendations[2].ResourceID)
	assert.Equal(t, 150.0, report.TotalPotentialSavings)

	assert.Equal(t, "small", input[0].ResourceID, "input order is preserved")
}

func TestBuildReport_Empty(t *testing.T) {
	report := BuildReport(nil)
	assert.Empty(t, report.Recommendations)
	assert.Equal(t, 0.0, report.TotalPotentialSavings)
}
