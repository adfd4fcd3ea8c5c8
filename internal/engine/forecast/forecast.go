package forecast

import (
	"errors"
	"math"
	"time"

	"github.com/costlens/costlens-engine/internal/engine/feature"
)

// Package forecast projects near-term spend from the trailing cost window
// using ordinary least squares, with a confidence band derived from the
// residual standard error. It informs the presentation layer's month-end
// estimate; it plays no part in anomaly scoring or right-sizing.

// ErrInsufficientData is returned when fewer than two observations are
// supplied.
var ErrInsufficientData = errors.New("forecast: need at least 2 observations")

// Point is one forecast day.
type Point struct {
	Date    time.Time `json:"date"`
	Value   float64   `json:"value"`
	Lower95 float64   `json:"lower_95"`
	Upper95 float64   `json:"upper_95"`
}

// Result carries the projected points and fit diagnostics.
type Result struct {
	Points    []Point `json:"points"`
	Slope     float64 `json:"slope"`
	RSquared  float64 `json:"r_squared"`
	StdError  float64 `json:"std_error"`
	Direction string  `json:"direction"` // increasing, decreasing, stable
}

// Forecast fits a trend line over the observations and projects horizon days
// past the last observation. Negative projections clamp to zero; spend does
// not go negative.
func Forecast(observations []feature.CostObservation, horizon int) (*Result, error) {
	n := len(observations)
	if n < 2 {
		return nil, ErrInsufficientData
	}
	if horizon <= 0 {
		horizon = 7
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, obs := range observations {
		x, y := float64(i), obs.TotalCost
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	fn := float64(n)
	denom := fn*sumX2 - sumX*sumX
	if denom == 0 {
		return nil, ErrInsufficientData
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	meanY := sumY / fn
	var ssTot, ssRes float64
	for i, obs := range observations {
		predicted := slope*float64(i) + intercept
		ssTot += (obs.TotalCost - meanY) * (obs.TotalCost - meanY)
		ssRes += (obs.TotalCost - predicted) * (obs.TotalCost - predicted)
	}

	rSquared := 0.0
	if ssTot > 0 {
		rSquared = 1 - ssRes/ssTot
	}
	stdError := 0.0
	if n > 2 {
		stdError = math.Sqrt(ssRes / float64(n-2))
	}

	direction := "stable"
	switch {
	case slope > 0.01:
		direction = "increasing"
	case slope < -0.01:
		direction = "decreasing"
	}

	last := observations[n-1].Date
	points := make([]Point, horizon)
	for h := 1; h <= horizon; h++ {
		value := slope*float64(n-1+h) + intercept
		band := 1.96 * stdError
		points[h-1] = Point{
			Date:    last.AddDate(0, 0, h),
			Value:   math.Max(0, value),
			Lower95: math.Max(0, value-band),
			Upper95: math.Max(0, value+band),
		}
	}

	return &Result{
		Points:    points,
		Slope:     slope,
		RSquared:  rSquared,
		StdError:  stdError,
		Direction: direction,
	}, nil
}
