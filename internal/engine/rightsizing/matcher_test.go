package rightsizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costlens/costlens-engine/internal/engine/utilization"
)

func testCatalog() []CatalogEntry {
	entries := []CatalogEntry{
		{TypeName: "t3.small", VCPU: 2, MemoryGB: 2, HourlyPrice: 0.0208},
		{TypeName: "t3.medium", VCPU: 2, MemoryGB: 4, HourlyPrice: 0.0416},
		{TypeName: "m5.large", VCPU: 2, MemoryGB: 8, HourlyPrice: 0.096},
		{TypeName: "c5.xlarge", VCPU: 4, MemoryGB: 8, HourlyPrice: 0.17},
		{TypeName: "m5.xlarge", VCPU: 4, MemoryGB: 16, HourlyPrice: 0.192},
		{TypeName: "r5.xlarge", VCPU: 4, MemoryGB: 32, HourlyPrice: 0.252},
		{TypeName: "m5.2xlarge", VCPU: 8, MemoryGB: 32, HourlyPrice: 0.384},
	}
	SortCatalog(entries)
	return entries
}

func floatPtr(v float64) *float64 { return &v }

func idleProfile() utilization.Profile {
	return utilization.Profile{
		ResourceID: "i-0abc",
		AvgCPU:     12,
		P95CPU:     28,
		P99CPU:     30,
		AvgMem:     floatPtr(25),
		P95Mem:     floatPtr(28),
		P99Mem:     floatPtr(30),
		Samples:    30,
	}
}

func TestMatch_DownsizesIdleXlarge(t *testing.T) {
	matcher := NewMatcher(DefaultMatcherConfig(), nil)
	catalog := testCatalog()
	current, ok := FindEntry(catalog, "m5.xlarge")
	require.True(t, ok)

	match := matcher.Match(idleProfile(), current, catalog)
	require.NotNil(t, match)

	// p99 30% of 4 vCPU with 20% headroom: 1.44 vCPU and 5.76 GB required.
	assert.InDelta(t, 1.44, match.RequiredVCPU, 1e-9)
	assert.InDelta(t, 5.76, match.RequiredMemoryGB, 1e-9)

	// t3.small and t3.medium fail the memory requirement; m5.large is the
	// cheapest entry that fits.
	assert.Equal(t, "m5.large", match.Recommended.TypeName)
	assert.InDelta(t, 138.24, match.CurrentMonthly, 1e-9)
	assert.InDelta(t, 69.12, match.RecommendedMonthly, 1e-9)
	assert.InDelta(t, 69.12, match.MonthlySavings, 1e-9)
	assert.InDelta(t, 50.0, match.SavingsPct, 1e-9)
	assert.False(t, match.MemoryDegraded)
}

func TestMatch_NoCandidateWhenBusy(t *testing.T) {
	matcher := NewMatcher(DefaultMatcherConfig(), nil)
	catalog := testCatalog()
	current, _ := FindEntry(catalog, "t3.medium")

	profile := idleProfile()
	profile.P99CPU = 95 // 0.95*2*1.2 = 2.28 vCPU required, above every 2-vCPU entry

	match := matcher.Match(profile, current, catalog)
	assert.Nil(t, match, "a busy resource yields no recommendation, not an error")
}

func TestMatch_NeverUpsizes(t *testing.T) {
	matcher := NewMatcher(DefaultMatcherConfig(), nil)
	catalog := testCatalog()
	current, _ := FindEntry(catalog, "m5.xlarge")

	profile := idleProfile()
	profile.P99Mem = floatPtr(90) // needs 17.28 GB; only r5.xlarge (32 GB) would fit

	match := matcher.Match(profile, current, catalog)
	assert.Nil(t, match, "entries larger than current on any dimension are ineligible")
}

func TestMatch_MinVCPUFloor(t *testing.T) {
	matcher := NewMatcher(DefaultMatcherConfig(), nil)
	catalog := testCatalog()
	current, _ := FindEntry(catalog, "m5.xlarge")

	profile := idleProfile()
	profile.P99CPU = 1 // near-zero usage still floors at 1 vCPU
	profile.P99Mem = floatPtr(1)

	match := matcher.Match(profile, current, catalog)
	require.NotNil(t, match)
	assert.Equal(t, 1.0, match.RequiredVCPU)
	assert.Equal(t, "t3.small", match.Recommended.TypeName)
}

func TestMatch_MemoryMissingSizesOnCPU(t *testing.T) {
	matcher := NewMatcher(DefaultMatcherConfig(), nil)
	catalog := testCatalog()
	current, _ := FindEntry(catalog, "m5.xlarge")

	profile := idleProfile()
	profile.AvgMem, profile.P95Mem, profile.P99Mem = nil, nil, nil

	match := matcher.Match(profile, current, catalog)
	require.NotNil(t, match)
	assert.True(t, match.MemoryDegraded)
	assert.Equal(t, 0.0, match.RequiredMemoryGB)
	// With no memory requirement the cheapest 2-vCPU entry wins.
	assert.Equal(t, "t3.small", match.Recommended.TypeName)
}

func TestMatch_NoSavingsMeansNoMatch(t *testing.T) {
	matcher := NewMatcher(DefaultMatcherConfig(), nil)
	catalog := testCatalog()
	current, _ := FindEntry(catalog, "t3.small")

	// Already on the smallest entry: the only eligible candidate is the
	// current one, which saves nothing.
	profile := idleProfile()
	profile.P99Mem = floatPtr(10)

	match := matcher.Match(profile, current, catalog)
	assert.Nil(t, match)
}

func TestSelectCandidate_TieBreaksTowardTightestFit(t *testing.T) {
	matcher := NewMatcher(DefaultMatcherConfig(), nil)
	catalog := []CatalogEntry{
		{TypeName: "wide", VCPU: 4, MemoryGB: 8, HourlyPrice: 0.10},
		{TypeName: "tight", VCPU: 2, MemoryGB: 8, HourlyPrice: 0.10},
		{TypeName: "tighter-mem", VCPU: 2, MemoryGB: 4, HourlyPrice: 0.10},
	}
	current := CatalogEntry{TypeName: "big", VCPU: 8, MemoryGB: 32, HourlyPrice: 0.40}

	best, found := matcher.selectCandidate(current, catalog, 1.5, 3)
	require.True(t, found)
	assert.Equal(t, "tighter-mem", best.TypeName,
		"equal price ties break to smallest vcpu, then smallest memory")
}
