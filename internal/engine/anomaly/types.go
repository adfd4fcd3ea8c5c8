package anomaly

import (
	"fmt"
	"time"

	"github.com/costlens/costlens-engine/internal/engine/ml"
)

// Package anomaly scores per-tenant cost series for outliers.
//
// Responsibilities:
//   - Train a per-tenant baseline model: an isolation forest over feature
//     vectors plus the mean/std of raw cost captured at training time
//   - Score batches of observations against a frozen model snapshot
//   - Classify severity and type for every flagged point via ordered,
//     data-driven rule tables
//   - Attribute anomalies to the services whose deltas drove them
//
// Two-stage hybrid: the forest supplies a continuous isolation score (lower
// = more anomalous) and the training-time baseline supplies a long-run
// z-score. Severity reflects the baseline deviation, not the short rolling
// window, so a slow drift and a hard spike are judged against the same
// reference.
//
// Model snapshots are immutable. Scoring holds no mutable state and may run
// concurrently with a new training run for the same tenant; callers read the
// old snapshot until the registry swaps in the new one.

// Severity buckets, ordered from least to most severe.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Type describes how the anomalous point moved relative to its
// chronological predecessor.
type Type string

const (
	TypeSpike         Type = "spike"
	TypeDrop          Type = "drop"
	TypePatternChange Type = "pattern_change"
)

// Record is one detected anomaly. Records are immutable once created;
// re-running detection over the same range supersedes rather than mutates.
type Record struct {
	Date             time.Time `json:"date"`
	Cost             float64   `json:"cost"`
	AnomalyScore     float64   `json:"anomaly_score"`
	Severity         Severity  `json:"severity"`
	Type             Type      `json:"type"`
	AffectedServices []string  `json:"affected_services"`
	EstimatedImpact  float64   `json:"estimated_impact"`
}

// Summary aggregates a detection run for the presentation layer.
type Summary struct {
	Total         int     `json:"total"`
	CriticalCount int     `json:"critical_count"`
	TotalImpact   float64 `json:"total_impact"`
}

// Result is the full output of one detection run.
type Result struct {
	RunID     string    `json:"run_id"`
	TenantID  string    `json:"tenant_id"`
	Anomalies []Record  `json:"anomalies"`
	Summary   Summary   `json:"summary"`
	ScoredAt  time.Time `json:"scored_at"`
}

// ModelSnapshot is an immutable, versioned training artifact for one tenant.
// Callers pass snapshots explicitly; nothing in this package holds one as
// shared mutable state.
type ModelSnapshot struct {
	ID               string     `json:"id"`
	TenantID         string     `json:"tenant_id"`
	Version          int        `json:"version"`
	Estimator        *ml.Forest `json:"estimator"`
	BaselineMean     float64    `json:"baseline_mean"`
	BaselineStd      float64    `json:"baseline_std"`
	DecisionBoundary float64    `json:"decision_boundary"`
	ZeroVariance     bool       `json:"zero_variance"`
	Observations     int        `json:"observations"`
	TrainedAt        time.Time  `json:"trained_at"`
}

// TrainingDataInsufficientError reports a training call with too few
// observations. The caller recovers by retrying once more data accumulates.
type TrainingDataInsufficientError struct {
	Got  int
	Want int
}

func (e *TrainingDataInsufficientError) Error() string {
	return fmt.Sprintf("training requires at least %d observations, got %d", e.Want, e.Got)
}
