package utils

import (
	"math"
	"testing"
)

func TestClampFloat64(t *testing.T) {
	if ClampFloat64(5, 0, 1) != 1 {
		t.Fatalf("expected clamp to upper bound")
	}
	if ClampFloat64(-5, 0, 1) != 0 {
		t.Fatalf("expected clamp to lower bound")
	}
	if ClampFloat64(0.5, 0, 1) != 0.5 {
		t.Fatalf("in-range value must pass through")
	}
}

func TestMeanVariance(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if Mean(values) != 5 {
		t.Fatalf("expected mean 5, got %f", Mean(values))
	}
	if Variance(values) != 4 {
		t.Fatalf("expected variance 4, got %f", Variance(values))
	}
	if Mean(nil) != 0 || Variance(nil) != 0 {
		t.Fatalf("empty input must yield zero")
	}
}

func TestSquaredDistance(t *testing.T) {
	d := SquaredDistance([]float64{0, 0}, []float64{3, 4})
	if math.Abs(d-25) > 1e-12 {
		t.Fatalf("expected 25, got %f", d)
	}
}

func TestPointsEqual(t *testing.T) {
	if !PointsEqual([]float64{1, 2}, []float64{1 + 1e-12, 2}, 1e-9) {
		t.Fatalf("expected points equal within tolerance")
	}
	if PointsEqual([]float64{1, 2}, []float64{1.1, 2}, 1e-9) {
		t.Fatalf("expected points not equal")
	}
	if PointsEqual([]float64{1}, []float64{1, 2}, 1e-9) {
		t.Fatalf("length mismatch must not be equal")
	}
}
