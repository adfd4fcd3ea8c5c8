package rightsizing

import (
	"math"

	"go.uber.org/zap"

	"github.com/costlens/costlens-engine/internal/engine/utilization"
)

// MatcherConfig holds the capacity-matching tunables. Headroom is a
// configurable default, not a protocol constant.
type MatcherConfig struct {
	Headroom      float64 // fractional safety margin over p99 utilization
	MinVCPUFloor  float64 // never require less than this many vCPUs
	HoursPerMonth float64 // monthly cost projection factor
}

// DefaultMatcherConfig returns the standard matching parameters.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		Headroom:      0.20,
		MinVCPUFloor:  1,
		HoursPerMonth: 24 * 30,
	}
}

// Match is the matcher's internal result handed to the risk scorer and the
// assembler. A nil *Match means "nothing to recommend", a normal outcome.
type Match struct {
	Profile            utilization.Profile
	Current            CatalogEntry
	Recommended        CatalogEntry
	RequiredVCPU       float64
	RequiredMemoryGB   float64
	CurrentMonthly     float64
	RecommendedMonthly float64
	MonthlySavings     float64
	SavingsPct         float64
	// MemoryDegraded is set when memory metrics were absent and the
	// requirement was computed on CPU alone.
	MemoryDegraded bool
}

// Matcher computes minimal-capacity downsizing candidates.
type Matcher struct {
	cfg MatcherConfig
	log *zap.Logger
}

// NewMatcher creates a matcher. A nil logger disables logging.
func NewMatcher(cfg MatcherConfig, log *zap.Logger) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Matcher{cfg: cfg, log: log}
}

// Match finds the cheapest catalog entry that satisfies the headroom-padded
// requirement and is not larger than the current entry on either dimension.
// It returns nil when no eligible candidate saves money; the caller treats
// that as "no recommendation", not an error.
func (m *Matcher) Match(profile utilization.Profile, current CatalogEntry, catalog []CatalogEntry) *Match {
	requiredVCPU := math.Max(profile.P99CPU/100*current.VCPU*(1+m.cfg.Headroom), m.cfg.MinVCPUFloor)

	var requiredMem float64
	memoryDegraded := !profile.HasMemory()
	if memoryDegraded {
		m.log.Warn("memory utilization missing; matching on CPU requirement only",
			zap.String("resource_id", profile.ResourceID),
			zap.String("current_type", current.TypeName))
	} else {
		requiredMem = *profile.P99Mem / 100 * current.MemoryGB * (1 + m.cfg.Headroom)
	}

	best, found := m.selectCandidate(current, catalog, requiredVCPU, requiredMem)
	if !found {
		m.log.Debug("no eligible downsizing candidate",
			zap.String("resource_id", profile.ResourceID),
			zap.String("current_type", current.TypeName),
			zap.Float64("required_vcpu", requiredVCPU),
			zap.Float64("required_memory_gb", requiredMem))
		return nil
	}

	currentMonthly := current.HourlyPrice * m.cfg.HoursPerMonth
	recommendedMonthly := best.HourlyPrice * m.cfg.HoursPerMonth
	savings := currentMonthly - recommendedMonthly
	if savings <= 0 {
		return nil
	}

	return &Match{
		Profile:            profile,
		Current:            current,
		Recommended:        best,
		RequiredVCPU:       requiredVCPU,
		RequiredMemoryGB:   requiredMem,
		CurrentMonthly:     currentMonthly,
		RecommendedMonthly: recommendedMonthly,
		MonthlySavings:     savings,
		SavingsPct:         savings / currentMonthly * 100,
		MemoryDegraded:     memoryDegraded,
	}
}

// selectCandidate picks the cheapest eligible entry; ties break toward the
// tightest fit (smallest vcpu, then smallest memory).
func (m *Matcher) selectCandidate(current CatalogEntry, catalog []CatalogEntry, requiredVCPU, requiredMem float64) (CatalogEntry, bool) {
	var best CatalogEntry
	found := false
	for _, entry := range catalog {
		if entry.VCPU < requiredVCPU || entry.MemoryGB < requiredMem {
			continue
		}
		// Downsizing only: never recommend a larger instance on either
		// dimension.
		if entry.VCPU > current.VCPU || entry.MemoryGB > current.MemoryGB {
			continue
		}
		if !found || betterCandidate(entry, best) {
			best = entry
			found = true
		}
	}
	return best, found
}

func betterCandidate(a, b CatalogEntry) bool {
	if a.HourlyPrice != b.HourlyPrice {
		return a.HourlyPrice < b.HourlyPrice
	}
	if a.VCPU != b.VCPU {
		return a.VCPU < b.VCPU
	}
	return a.MemoryGB < b.MemoryGB
}
