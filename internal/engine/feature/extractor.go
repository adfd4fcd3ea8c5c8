package feature

import (
	"math"
	"sort"
	"time"
)

// Package feature turns raw per-day cost series into numeric feature vectors.
//
// Responsibilities:
//   - Compute day-over-day deltas and percentage deltas (zero-guarded)
//   - Compute trailing 7-point rolling mean and standard deviation
//   - Compute rolling z-scores with an epsilon guard for flat series
//   - Append per-service cost columns for the top-N services, zero-padded
//     so the feature width is stable across calls
//
// Extraction is a pure function of the input window: no shared state, no
// randomness, no clock reads. Re-running on identical input yields
// byte-identical output.

const (
	// rollingWindow is the trailing window length for rolling statistics.
	rollingWindow = 7

	// epsilon guards the z-score denominator on flat series.
	epsilon = 1e-6
)

// CostObservation is one day of spend for a tenant.
type CostObservation struct {
	Date           time.Time          `json:"date"`
	TotalCost      float64            `json:"total_cost"`
	PerServiceCost map[string]float64 `json:"per_service_cost,omitempty"`
}

// Vector is the derived feature row for a single observation. Vectors are
// ephemeral: they are recomputed from their source window and never persisted
// on their own.
type Vector struct {
	Date         time.Time `json:"date"`
	Cost         float64   `json:"cost"`
	Delta        float64   `json:"delta"`
	PctDelta     float64   `json:"pct_delta"`
	RollingMean7 float64   `json:"rolling_mean_7d"`
	RollingStd7  float64   `json:"rolling_std_7d"`
	ZScore       float64   `json:"z_score"`
	// ServiceCosts holds the daily cost of the top services by total window
	// spend, padded with zeros up to the configured width.
	ServiceCosts []float64 `json:"service_costs"`
}

// Columns flattens the vector into the row consumed by the outlier estimator.
func (v Vector) Columns() []float64 {
	row := []float64{v.Cost, v.Delta, v.PctDelta, v.RollingMean7, v.RollingStd7, v.ZScore}
	return append(row, v.ServiceCosts...)
}

// Extractor computes feature vectors from ordered cost observations.
type Extractor struct {
	topServices int
}

// NewExtractor creates an extractor that keeps per-service columns for the
// topServices highest-total-cost services.
func NewExtractor(topServices int) *Extractor {
	if topServices <= 0 {
		topServices = 5
	}
	return &Extractor{topServices: topServices}
}

// Extract computes one feature vector per observation, aligned by date.
// The input must be ordered by date ascending.
func (e *Extractor) Extract(observations []CostObservation) []Vector {
	if len(observations) == 0 {
		return []Vector{}
	}

	costs := make([]float64, len(observations))
	for i, obs := range observations {
		costs[i] = obs.TotalCost
	}
	fullStd := stdDev(costs)
	topServices := e.rankServices(observations)

	vectors := make([]Vector, len(observations))
	for i, obs := range observations {
		v := Vector{Date: obs.Date, Cost: obs.TotalCost}

		if i > 0 {
			v.Delta = obs.TotalCost - costs[i-1]
			if costs[i-1] != 0 {
				v.PctDelta = v.Delta / costs[i-1] * 100
			}
		}

		start := i - rollingWindow + 1
		if start < 0 {
			start = 0
		}
		window := costs[start : i+1]
		v.RollingMean7 = mean(window)
		if len(window) < 2 {
			// Not enough trailing points for a meaningful spread.
			v.RollingStd7 = fullStd
		} else {
			v.RollingStd7 = stdDev(window)
		}
		v.ZScore = (obs.TotalCost - v.RollingMean7) / (v.RollingStd7 + epsilon)

		v.ServiceCosts = make([]float64, e.topServices)
		for s, name := range topServices {
			v.ServiceCosts[s] = obs.PerServiceCost[name]
		}
		vectors[i] = v
	}
	return vectors
}

// Matrix extracts vectors and flattens them into estimator rows.
func (e *Extractor) Matrix(observations []CostObservation) [][]float64 {
	vectors := e.Extract(observations)
	rows := make([][]float64, len(vectors))
	for i, v := range vectors {
		rows[i] = v.Columns()
	}
	return rows
}

// rankServices returns up to topServices service names ordered by total
// window spend, highest first. Ties break on name so ordering is stable.
func (e *Extractor) rankServices(observations []CostObservation) []string {
	totals := make(map[string]float64)
	for _, obs := range observations {
		for name, cost := range obs.PerServiceCost {
			totals[name] += cost
		}
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if totals[names[i]] != totals[names[j]] {
			return totals[names[i]] > totals[names[j]]
		}
		return names[i] < names[j]
	})

	if len(names) > e.topServices {
		names = names[:e.topServices]
	}
	return names
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

// stdDev is the population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}
