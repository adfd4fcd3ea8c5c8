package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine metrics for production monitoring
var (
	// Training metrics
	TrainingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costlens_trainings_total",
			Help: "Total number of model training runs",
		},
		[]string{"status"}, // ok / insufficient_data / error
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "costlens_training_duration_seconds",
			Help:    "Model training duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		},
	)

	// Detection metrics
	DetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costlens_detections_total",
			Help: "Total number of anomaly detection runs",
		},
		[]string{"status"},
	)

	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costlens_anomalies_detected_total",
			Help: "Total number of anomaly records emitted",
		},
		[]string{"severity"},
	)

	DetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "costlens_detection_duration_seconds",
			Help:    "Anomaly detection duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	// Right-sizing metrics
	RecommendationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "costlens_recommendations_total",
			Help: "Total number of right-sizing recommendations emitted",
		},
	)

	NoCandidateTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "costlens_no_candidate_total",
			Help: "Total number of resources with no eligible downsizing candidate",
		},
	)

	PotentialSavingsUSD = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "costlens_potential_savings_usd",
			Help: "Total potential monthly savings from the latest scoring run",
		},
	)
)
