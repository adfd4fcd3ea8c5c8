package anomaly

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/costlens/costlens-engine/internal/engine/feature"
	"github.com/costlens/costlens-engine/internal/engine/ml"
)

// TrainerConfig holds the tunables for model training. The observation
// minimum and contamination rate are configurable defaults, not protocol
// constants.
type TrainerConfig struct {
	MinObservations int     // minimum cost observations to fit a model
	Trees           int     // number of isolation trees
	SubSample       int     // per-tree sample size
	MaxDepth        int     // 0 = derive from sub-sample size
	Contamination   float64 // expected outlier fraction, sets the decision boundary
	TopServices     int     // per-service feature columns
	Seed            int64   // RNG seed, fixed for reproducible fits
}

// DefaultTrainerConfig returns the standard training parameters.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		MinObservations: 90,
		Trees:           100,
		SubSample:       256,
		MaxDepth:        0,
		Contamination:   0.10,
		TopServices:     5,
		Seed:            1,
	}
}

// Trainer fits per-tenant model snapshots.
type Trainer struct {
	cfg       TrainerConfig
	extractor *feature.Extractor
	log       *zap.Logger
}

// NewTrainer creates a trainer. A nil logger disables logging.
func NewTrainer(cfg TrainerConfig, log *zap.Logger) *Trainer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Trainer{
		cfg:       cfg,
		extractor: feature.NewExtractor(cfg.TopServices),
		log:       log,
	}
}

// Train fits a new immutable snapshot for the tenant from an ordered cost
// series. A zero-variance series still trains successfully; the snapshot is
// marked so detection treats any deviation from the mean as critical.
func (t *Trainer) Train(tenantID string, observations []feature.CostObservation) (*ModelSnapshot, error) {
	if len(observations) < t.cfg.MinObservations {
		err := &TrainingDataInsufficientError{Got: len(observations), Want: t.cfg.MinObservations}
		t.log.Warn("training rejected",
			zap.String("tenant_id", tenantID),
			zap.Int("observations", len(observations)),
			zap.Int("required", t.cfg.MinObservations))
		return nil, err
	}

	baselineMean, baselineStd := costBaseline(observations)
	zeroVariance := baselineStd == 0
	if zeroVariance {
		t.log.Info("zero-variance training series; any deviation will score critical",
			zap.String("tenant_id", tenantID),
			zap.Float64("baseline_mean", baselineMean))
	}

	matrix := t.extractor.Matrix(observations)
	forest := ml.NewForest(t.cfg.Trees, t.cfg.SubSample, t.cfg.MaxDepth, t.cfg.Seed)
	if err := forest.Fit(matrix); err != nil {
		return nil, fmt.Errorf("fit estimator for tenant %s: %w", tenantID, err)
	}

	trainScores, err := forest.ScoreAll(matrix)
	if err != nil {
		return nil, fmt.Errorf("score training window for tenant %s: %w", tenantID, err)
	}
	boundary := ml.Quantile(trainScores, t.cfg.Contamination)

	snapshot := &ModelSnapshot{
		ID:               uuid.NewString(),
		TenantID:         tenantID,
		Estimator:        forest,
		BaselineMean:     baselineMean,
		BaselineStd:      baselineStd,
		DecisionBoundary: boundary,
		ZeroVariance:     zeroVariance,
		Observations:     len(observations),
		TrainedAt:        time.Now().UTC(),
	}

	t.log.Info("model trained",
		zap.String("tenant_id", tenantID),
		zap.String("snapshot_id", snapshot.ID),
		zap.Int("observations", len(observations)),
		zap.Float64("baseline_mean", baselineMean),
		zap.Float64("baseline_std", baselineStd),
		zap.Float64("decision_boundary", boundary))

	return snapshot, nil
}

// costBaseline captures the raw-cost mean and population std at training
// time, the stable reference severity is judged against.
func costBaseline(observations []feature.CostObservation) (float64, float64) {
	if len(observations) == 0 {
		return 0, 0
	}
	var sum float64
	for _, obs := range observations {
		sum += obs.TotalCost
	}
	mean := sum / float64(len(observations))

	var ss float64
	for _, obs := range observations {
		d := obs.TotalCost - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(observations)))
}
