package rightsizing

// RiskLevel buckets how aggressive a downsizing move is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// riskRule maps headroom margins to a bucket. Rules are evaluated top-down,
// first match wins; comparisons are strict so a 30% margin lands in medium,
// not low.
type riskRule struct {
	level      RiskLevel
	confidence float64
	match      func(cpuHeadroomPct, memHeadroomPct float64) bool
}

var riskRules = []riskRule{
	{RiskLow, 95, func(cpu, mem float64) bool { return cpu > 30 && mem > 30 }},
	{RiskMedium, 85, func(cpu, mem float64) bool { return cpu > 20 && mem > 20 }},
}

// AssessRisk maps the headroom margins remaining on the chosen candidate to
// a risk bucket and numeric confidence. When memory metrics were absent the
// CPU margin alone decides, and confidence is capped at the medium bucket to
// reflect the reduced certainty; the same cap applies to profiles built from
// short windows.
func AssessRisk(match *Match) (RiskLevel, float64) {
	cpuHeadroomPct := headroomPct(match.Recommended.VCPU, match.RequiredVCPU)

	// With memory unknown, let the CPU margin drive the bucket lookup.
	memHeadroomPct := cpuHeadroomPct
	if !match.MemoryDegraded {
		memHeadroomPct = headroomPct(match.Recommended.MemoryGB, match.RequiredMemoryGB)
	}

	level, confidence := RiskHigh, 70.0
	for _, rule := range riskRules {
		if rule.match(cpuHeadroomPct, memHeadroomPct) {
			level, confidence = rule.level, rule.confidence
			break
		}
	}

	if (match.MemoryDegraded || match.Profile.LowSample) && level == RiskLow {
		level, confidence = RiskMedium, 85
	}
	return level, confidence
}

func headroomPct(capacity, required float64) float64 {
	if capacity == 0 {
		return 0
	}
	return (capacity - required) / capacity * 100
}
