package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/costlens/costlens-engine/internal/engine/anomaly"
	"github.com/costlens/costlens-engine/internal/engine/feature"
	"github.com/costlens/costlens-engine/internal/engine/forecast"
	"github.com/costlens/costlens-engine/internal/engine/rightsizing"
	"github.com/costlens/costlens-engine/internal/engine/utilization"
	"github.com/costlens/costlens-engine/internal/metrics"
	"github.com/costlens/costlens-engine/internal/registry"
)

// Package engine is the facade over the two computation paths:
//
//	cost series → feature extraction → anomaly scoring → AnomalyRecord list
//	utilization + catalog → capacity matching → risk scoring → recommendations
//
// The paths share no mutable state and compose only at the presentation
// boundary. Everything here is synchronous and pure apart from registry
// reads/writes; a scheduling layer may run one call per tenant/resource
// concurrently without locking.

// Config aggregates the engine tunables.
type Config struct {
	Trainer anomaly.TrainerConfig
	Matcher rightsizing.MatcherConfig
}

// DefaultConfig returns the standard engine parameters.
func DefaultConfig() Config {
	return Config{
		Trainer: anomaly.DefaultTrainerConfig(),
		Matcher: rightsizing.DefaultMatcherConfig(),
	}
}

// ResourceUsage pairs a utilization profile with the resource's current
// catalog type for a recommendation run.
type ResourceUsage struct {
	Profile     utilization.Profile `json:"profile"`
	CurrentType string              `json:"current_type"`
}

// Engine wires the extractor, trainer, detector, matcher, and registry.
type Engine struct {
	cfg      Config
	trainer  *anomaly.Trainer
	detector *anomaly.Detector
	matcher  *rightsizing.Matcher
	profiles *utilization.Builder
	registry *registry.Registry
	log      *zap.Logger
}

// New creates an engine. A nil logger disables logging.
func New(cfg Config, reg *registry.Registry, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = registry.New(nil, log)
	}
	return &Engine{
		cfg:      cfg,
		trainer:  anomaly.NewTrainer(cfg.Trainer, log.Named("trainer")),
		detector: anomaly.NewDetector(cfg.Trainer.TopServices, log.Named("detector")),
		matcher:  rightsizing.NewMatcher(cfg.Matcher, log.Named("matcher")),
		profiles: utilization.NewBuilder(log.Named("utilization")),
		registry: reg,
		log:      log,
	}
}

// Train fits a new model snapshot for the tenant and registers it as the
// latest version. Scoring calls in flight keep reading the previous
// snapshot until the new one is durably stored.
func (e *Engine) Train(ctx context.Context, tenantID string, observations []feature.CostObservation) (*anomaly.ModelSnapshot, error) {
	start := time.Now()
	snapshot, err := e.trainer.Train(tenantID, observations)
	if err != nil {
		var insufficient *anomaly.TrainingDataInsufficientError
		if errors.As(err, &insufficient) {
			metrics.TrainingsTotal.WithLabelValues("insufficient_data").Inc()
		} else {
			metrics.TrainingsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	if err := e.registry.Put(ctx, snapshot); err != nil {
		metrics.TrainingsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("register snapshot for tenant %s: %w", tenantID, err)
	}

	metrics.TrainingsTotal.WithLabelValues("ok").Inc()
	metrics.TrainingDuration.Observe(time.Since(start).Seconds())
	return snapshot, nil
}

// DetectAnomalies scores the observations dated batchStart or later against
// the tenant's latest frozen snapshot. history should include a few
// observations before batchStart so type classification sees each point's
// chronological neighbor.
func (e *Engine) DetectAnomalies(ctx context.Context, tenantID string, history []feature.CostObservation, batchStart time.Time) (*anomaly.Result, error) {
	snapshot, err := e.registry.Latest(ctx, tenantID)
	if err != nil {
		metrics.DetectionsTotal.WithLabelValues("no_model").Inc()
		return nil, fmt.Errorf("detect for tenant %s: %w", tenantID, err)
	}

	start := time.Now()
	result, err := e.detector.Detect(snapshot, history, batchStart)
	if err != nil {
		metrics.DetectionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.DetectionsTotal.WithLabelValues("ok").Inc()
	metrics.DetectionDuration.Observe(time.Since(start).Seconds())
	for _, record := range result.Anomalies {
		metrics.AnomaliesDetected.WithLabelValues(string(record.Severity)).Inc()
	}
	return result, nil
}

// Recommend runs the right-sizing path over a batch of resources and
// returns the assembled report, sorted descending by monthly savings.
// Resources whose current type is missing from the catalog are skipped and
// logged; resources with no eligible candidate are a normal empty outcome.
func (e *Engine) Recommend(resources []ResourceUsage, catalog []rightsizing.CatalogEntry) rightsizing.Report {
	recommendations := make([]rightsizing.Recommendation, 0, len(resources))
	for _, res := range resources {
		current, ok := rightsizing.FindEntry(catalog, res.CurrentType)
		if !ok {
			e.log.Warn("current type not in catalog; skipping resource",
				zap.String("resource_id", res.Profile.ResourceID),
				zap.String("current_type", res.CurrentType))
			continue
		}

		match := e.matcher.Match(res.Profile, current, catalog)
		if match == nil {
			metrics.NoCandidateTotal.Inc()
			continue
		}

		recommendations = append(recommendations, rightsizing.Assemble(match, e.cfg.Matcher.Headroom))
		metrics.RecommendationsTotal.Inc()
	}

	report := rightsizing.BuildReport(recommendations)
	metrics.PotentialSavingsUSD.Set(report.TotalPotentialSavings)
	return report
}

// BuildProfile aggregates raw utilization samples for one resource.
func (e *Engine) BuildProfile(resourceID string, cpu, mem, netIn, netOut []float64) utilization.Profile {
	return e.profiles.Build(resourceID, cpu, mem, netIn, netOut)
}

// ForecastCost projects near-term spend from the trailing cost window.
func (e *Engine) ForecastCost(observations []feature.CostObservation, horizon int) (*forecast.Result, error) {
	return forecast.Forecast(observations, horizon)
}
