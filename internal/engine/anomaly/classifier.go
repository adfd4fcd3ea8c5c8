package anomaly

import "math"

// Classification is table-driven: ordered (predicate, label) pairs evaluated
// top-down, first match wins. Keeping the tables as data makes the threshold
// ladder testable independently of the scoring path.

// severityRule matches on the absolute baseline z-score and the isolation
// score of a flagged point.
type severityRule struct {
	label Severity
	match func(absZ, score float64) bool
}

// severityRules is ordered most severe first.
var severityRules = []severityRule{
	{SeverityCritical, func(absZ, score float64) bool { return absZ > 3 || score < -0.5 }},
	{SeverityHigh, func(absZ, score float64) bool { return absZ > 2 || score < -0.3 }},
	{SeverityMedium, func(absZ, score float64) bool { return absZ > 1.5 || score < -0.1 }},
}

// classifySeverity maps a flagged point to its severity bucket.
func classifySeverity(absZ, score float64) Severity {
	for _, rule := range severityRules {
		if rule.match(absZ, score) {
			return rule.label
		}
	}
	return SeverityLow
}

// typeRule matches on the fractional day-over-day change against the
// chronological predecessor.
type typeRule struct {
	label Type
	match func(change float64) bool
}

var typeRules = []typeRule{
	{TypeSpike, func(change float64) bool { return change > 0.5 }},
	{TypeDrop, func(change float64) bool { return change < -0.5 }},
}

// classifyType labels the move from prevCost to cost. Points without a
// usable predecessor are anomalous relative to baseline rather than via an
// abrupt single-day move, so they classify as pattern_change.
func classifyType(cost, prevCost float64, hasPrev bool) Type {
	if !hasPrev || prevCost <= 0 {
		return TypePatternChange
	}
	change := (cost - prevCost) / prevCost
	for _, rule := range typeRules {
		if rule.match(change) {
			return rule.label
		}
	}
	return TypePatternChange
}

// baselineZ computes the long-run z-score against the training baseline.
// The epsilon guard keeps flat baselines finite; zero-variance snapshots
// short-circuit to critical before this value matters.
func baselineZ(cost, baselineMean, baselineStd float64) float64 {
	return (cost - baselineMean) / (baselineStd + 1e-6)
}

// estimatedImpact is the excess spend attributable to the anomaly, never
// negative.
func estimatedImpact(cost, baselineMean float64) float64 {
	return math.Max(0, cost-baselineMean)
}
