package utilization

import (
	"math"
	"sort"

	"go.uber.org/zap"
)

// Package utilization aggregates raw per-resource metric samples into the
// percentile profiles the capacity matcher consumes.
//
// Responsibilities:
//   - Compute mean, p95, and p99 over a lookback window of samples
//   - Flag profiles built from short windows so downstream confidence
//     degrades instead of silently trusting thin data
//   - Leave memory fields nil when no memory samples exist; the engine
//     never fabricates a utilization number

// MinSamples is the recommended lookback size. Profiles built from fewer
// samples are flagged low-sample.
const MinSamples = 14

// Profile summarizes one resource's utilization over a lookback window.
// Percentages are 0-100 relative to provisioned capacity. Memory fields are
// nil when the resource reports no memory metrics.
type Profile struct {
	ResourceID    string   `json:"resource_id"`
	AvgCPU        float64  `json:"avg_cpu"`
	P95CPU        float64  `json:"p95_cpu"`
	P99CPU        float64  `json:"p99_cpu"`
	AvgMem        *float64 `json:"avg_mem,omitempty"`
	P95Mem        *float64 `json:"p95_mem,omitempty"`
	P99Mem        *float64 `json:"p99_mem,omitempty"`
	AvgNetworkIn  float64  `json:"avg_network_in"`
	AvgNetworkOut float64  `json:"avg_network_out"`
	Samples       int      `json:"samples"`
	LowSample     bool     `json:"low_sample,omitempty"`
}

// HasMemory reports whether the profile carries memory metrics.
func (p *Profile) HasMemory() bool {
	return p.P99Mem != nil
}

// Builder turns raw sample series into profiles.
type Builder struct {
	log *zap.Logger
}

// NewBuilder creates a profile builder. A nil logger disables logging.
func NewBuilder(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{log: log}
}

// Build aggregates the sample series for one resource. cpu is required;
// mem may be nil or empty, in which case the profile's memory fields stay
// nil and the degradation is logged.
func (b *Builder) Build(resourceID string, cpu, mem, netIn, netOut []float64) Profile {
	profile := Profile{
		ResourceID:    resourceID,
		AvgCPU:        mean(cpu),
		P95CPU:        percentile(cpu, 95),
		P99CPU:        percentile(cpu, 99),
		AvgNetworkIn:  mean(netIn),
		AvgNetworkOut: mean(netOut),
		Samples:       len(cpu),
	}

	if len(mem) > 0 {
		avg, p95, p99 := mean(mem), percentile(mem, 95), percentile(mem, 99)
		profile.AvgMem = &avg
		profile.P95Mem = &p95
		profile.P99Mem = &p99
	} else {
		b.log.Warn("memory metrics missing; matcher will size on CPU only",
			zap.String("resource_id", resourceID))
	}

	if len(cpu) < MinSamples {
		profile.LowSample = true
		b.log.Warn("short utilization window; recommendation confidence degraded",
			zap.String("resource_id", resourceID),
			zap.Int("samples", len(cpu)),
			zap.Int("recommended", MinSamples))
	}
	return profile
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentile computes the p-th percentile with linear interpolation between
// closest ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
