package anomaly

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/costlens/costlens-engine/internal/engine/feature"
)

// maxAffectedServices caps how many top delta contributors are attached to a
// record.
const maxAffectedServices = 3

// ErrNilSnapshot is returned when detection is attempted without a model.
var ErrNilSnapshot = errors.New("anomaly: nil model snapshot")

// Detector scores observation batches against a frozen model snapshot. It is
// stateless and safe for concurrent use; a single Detector may serve many
// tenants as long as each call passes its own snapshot.
type Detector struct {
	extractor *feature.Extractor
	log       *zap.Logger
}

// NewDetector creates a detector whose feature width matches the trainer's.
func NewDetector(topServices int, log *zap.Logger) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{
		extractor: feature.NewExtractor(topServices),
		log:       log,
	}
}

// Detect scores every observation dated batchStart or later. The history
// slice should include the observations immediately preceding the batch so
// type classification can see each anomaly's chronological neighbor; feature
// rolling statistics use the same context.
//
// An empty batch is a valid call and yields an empty result, not an error.
func (d *Detector) Detect(snapshot *ModelSnapshot, history []feature.CostObservation, batchStart time.Time) (*Result, error) {
	if snapshot == nil || snapshot.Estimator == nil {
		return nil, ErrNilSnapshot
	}

	result := &Result{
		RunID:     uuid.NewString(),
		TenantID:  snapshot.TenantID,
		Anomalies: []Record{},
		ScoredAt:  time.Now().UTC(),
	}
	if len(history) == 0 {
		d.log.Debug("empty scoring batch", zap.String("tenant_id", snapshot.TenantID))
		return result, nil
	}

	vectors := d.extractor.Extract(history)
	for i, obs := range history {
		if obs.Date.Before(batchStart) {
			continue
		}

		score, err := snapshot.Estimator.Score(vectors[i].Columns())
		if err != nil {
			return nil, fmt.Errorf("score observation %s: %w", obs.Date.Format("2006-01-02"), err)
		}

		deviates := obs.TotalCost != snapshot.BaselineMean
		isOutlier := score < snapshot.DecisionBoundary
		if snapshot.ZeroVariance {
			// Against a flat baseline any deviation is abnormal.
			isOutlier = deviates
		}
		if !isOutlier {
			continue
		}

		z := baselineZ(obs.TotalCost, snapshot.BaselineMean, snapshot.BaselineStd)
		severity := classifySeverity(math.Abs(z), score)
		if snapshot.ZeroVariance && deviates {
			severity = SeverityCritical
		}

		var prev feature.CostObservation
		hasPrev := i > 0
		if hasPrev {
			prev = history[i-1]
		}

		record := Record{
			Date:             obs.Date,
			Cost:             obs.TotalCost,
			AnomalyScore:     score,
			Severity:         severity,
			Type:             classifyType(obs.TotalCost, prev.TotalCost, hasPrev),
			AffectedServices: affectedServices(obs, prev, hasPrev),
			EstimatedImpact:  estimatedImpact(obs.TotalCost, snapshot.BaselineMean),
		}
		result.Anomalies = append(result.Anomalies, record)

		result.Summary.Total++
		result.Summary.TotalImpact += record.EstimatedImpact
		if severity == SeverityCritical {
			result.Summary.CriticalCount++
		}
	}

	if result.Summary.Total > 0 {
		d.log.Info("anomalies detected",
			zap.String("tenant_id", snapshot.TenantID),
			zap.String("run_id", result.RunID),
			zap.Int("total", result.Summary.Total),
			zap.Int("critical", result.Summary.CriticalCount),
			zap.Float64("estimated_impact", result.Summary.TotalImpact))
	}
	return result, nil
}

// affectedServices returns the services whose per-service deltas contributed
// most to the total move on the anomalous date, largest absolute delta first.
func affectedServices(obs, prev feature.CostObservation, hasPrev bool) []string {
	type contribution struct {
		name  string
		delta float64
	}

	var contributions []contribution
	for name, cost := range obs.PerServiceCost {
		var prevCost float64
		if hasPrev {
			prevCost = prev.PerServiceCost[name]
		}
		if delta := cost - prevCost; delta != 0 {
			contributions = append(contributions, contribution{name, delta})
		}
	}
	if hasPrev {
		// Services that disappeared entirely still contributed a delta.
		for name, prevCost := range prev.PerServiceCost {
			if _, ok := obs.PerServiceCost[name]; !ok && prevCost != 0 {
				contributions = append(contributions, contribution{name, -prevCost})
			}
		}
	}

	sort.Slice(contributions, func(i, j int) bool {
		a, b := math.Abs(contributions[i].delta), math.Abs(contributions[j].delta)
		if a != b {
			return a > b
		}
		return contributions[i].name < contributions[j].name
	})

	n := len(contributions)
	if n > maxAffectedServices {
		n = maxAffectedServices
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = contributions[i].name
	}
	return names
}
