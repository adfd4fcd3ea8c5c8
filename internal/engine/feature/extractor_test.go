package feature

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func series(costs ...float64) []CostObservation {
	observations := make([]CostObservation, len(costs))
	for i, c := range costs {
		observations[i] = CostObservation{Date: day(i), TotalCost: c}
	}
	return observations
}

func TestExtract_Idempotent(t *testing.T) {
	observations := series(100, 110, 95, 300, 102, 98, 101, 99, 250, 100)
	for i := range observations {
		observations[i].PerServiceCost = map[string]float64{
			"compute": observations[i].TotalCost * 0.6,
			"storage": observations[i].TotalCost * 0.3,
			"network": observations[i].TotalCost * 0.1,
		}
	}

	e := NewExtractor(5)
	first := e.Extract(observations)
	second := e.Extract(observations)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("extraction is not deterministic: two runs on the same window differ")
	}
}

func TestExtract_Deltas(t *testing.T) {
	e := NewExtractor(5)
	vectors := e.Extract(series(100, 150, 75))

	if vectors[0].Delta != 0 || vectors[0].PctDelta != 0 {
		t.Errorf("first point should have zero deltas, got %f / %f", vectors[0].Delta, vectors[0].PctDelta)
	}
	if vectors[1].Delta != 50 {
		t.Errorf("expected delta 50, got %f", vectors[1].Delta)
	}
	if vectors[1].PctDelta != 50 {
		t.Errorf("expected pct delta 50, got %f", vectors[1].PctDelta)
	}
	if vectors[2].Delta != -75 {
		t.Errorf("expected delta -75, got %f", vectors[2].Delta)
	}
	if vectors[2].PctDelta != -50 {
		t.Errorf("expected pct delta -50, got %f", vectors[2].PctDelta)
	}
}

func TestExtract_ZeroCostGuard(t *testing.T) {
	e := NewExtractor(5)
	vectors := e.Extract(series(0, 50))

	if vectors[1].PctDelta != 0 {
		t.Errorf("pct delta over a zero previous cost should be 0, got %f", vectors[1].PctDelta)
	}
	if vectors[1].Delta != 50 {
		t.Errorf("absolute delta should still be 50, got %f", vectors[1].Delta)
	}
}

func TestExtract_RollingWindowTruncated(t *testing.T) {
	e := NewExtractor(5)
	costs := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90}
	vectors := e.Extract(series(costs...))

	// Third point: trailing window is [10 20 30], not zero-padded.
	if got, want := vectors[2].RollingMean7, 20.0; got != want {
		t.Errorf("truncated rolling mean = %f, want %f", got, want)
	}
	// Ninth point: full 7-point window [30..90].
	if got, want := vectors[8].RollingMean7, 60.0; got != want {
		t.Errorf("full-window rolling mean = %f, want %f", got, want)
	}
}

func TestExtract_StdFallbackOnFirstPoint(t *testing.T) {
	e := NewExtractor(5)
	costs := []float64{100, 200, 300, 400}
	vectors := e.Extract(series(costs...))

	fullStd := stdDev(costs)
	if vectors[0].RollingStd7 != fullStd {
		t.Errorf("single-point window should fall back to full-series std %f, got %f", fullStd, vectors[0].RollingStd7)
	}
}

func TestExtract_FlatSeriesFiniteZScore(t *testing.T) {
	e := NewExtractor(5)
	vectors := e.Extract(series(100, 100, 100, 100, 100))

	for i, v := range vectors {
		if math.IsNaN(v.ZScore) || math.IsInf(v.ZScore, 0) {
			t.Fatalf("z-score at %d is not finite: %f", i, v.ZScore)
		}
		if v.ZScore != 0 {
			t.Errorf("flat series z-score at %d = %f, want 0", i, v.ZScore)
		}
	}
}

func TestExtract_ServiceColumnsPadded(t *testing.T) {
	observations := series(100, 100)
	observations[0].PerServiceCost = map[string]float64{"compute": 70, "storage": 30}
	observations[1].PerServiceCost = map[string]float64{"compute": 60, "storage": 40}

	e := NewExtractor(5)
	vectors := e.Extract(observations)

	for i, v := range vectors {
		if len(v.ServiceCosts) != 5 {
			t.Fatalf("vector %d has %d service columns, want 5 (padded)", i, len(v.ServiceCosts))
		}
	}
	// compute has the higher total, so it occupies the first column.
	if vectors[0].ServiceCosts[0] != 70 || vectors[1].ServiceCosts[0] != 60 {
		t.Errorf("first service column should be compute: got %f, %f",
			vectors[0].ServiceCosts[0], vectors[1].ServiceCosts[0])
	}
	for i := 2; i < 5; i++ {
		if vectors[0].ServiceCosts[i] != 0 {
			t.Errorf("padding column %d should be zero, got %f", i, vectors[0].ServiceCosts[i])
		}
	}
}

func TestExtract_StableFeatureWidth(t *testing.T) {
	e := NewExtractor(5)

	withServices := series(100, 100)
	withServices[0].PerServiceCost = map[string]float64{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5, "f": 6, "g": 7}
	withServices[1].PerServiceCost = map[string]float64{"a": 1}

	wide := e.Extract(withServices)
	narrow := e.Extract(series(100, 100))

	if len(wide[0].Columns()) != len(narrow[0].Columns()) {
		t.Errorf("feature width differs across calls: %d vs %d",
			len(wide[0].Columns()), len(narrow[0].Columns()))
	}
}

func TestExtract_Empty(t *testing.T) {
	e := NewExtractor(5)
	if got := e.Extract(nil); len(got) != 0 {
		t.Errorf("empty input should yield empty output, got %d vectors", len(got))
	}
}
