package acquisition

import (
	"math"
	"testing"

	"github.com/ThoriDay/cpoi-mobo/internal/correlation"
	"github.com/ThoriDay/cpoi-mobo/internal/pareto"
	"github.com/ThoriDay/cpoi-mobo/pkg/utils"
)

func threePointFront() *pareto.Front {
	f := pareto.NewFront()
	f.Insert([]float64{1, 4}, 0)
	f.Insert([]float64{2, 2}, 1)
	f.Insert([]float64{4, 1}, 2)
	return f
}

func params(samples int) Params {
	return Params{Samples: samples, EmptyFront: EmptyFrontImproveEverywhere}
}

func TestCPoIDominatingCandidate(t *testing.T) {
	front := threePointFront()
	corr := correlation.Identity(2)

	p, err := CPoI([]float64{0, 0}, []float64{1e-6, 1e-6}, corr, front, params(2000), utils.NewRandSource(1))
	if err != nil {
		t.Fatalf("CPoI failed: %v", err)
	}
	if p < 0.999 {
		t.Fatalf("a candidate far below the front must improve with near certainty, got %f", p)
	}
}

func TestCPoIDominatedCandidate(t *testing.T) {
	front := threePointFront()
	corr := correlation.Identity(2)

	p, err := CPoI([]float64{5, 5}, []float64{1e-6, 1e-6}, corr, front, params(2000), utils.NewRandSource(2))
	if err != nil {
		t.Fatalf("CPoI failed: %v", err)
	}
	if p > 0.001 {
		t.Fatalf("a candidate deep in the dominated region cannot improve, got %f", p)
	}
}

func TestCPoIMatchesIndependentBaseline(t *testing.T) {
	// With a single front member and an identity correlation the Monte
	// Carlo estimate must agree with the closed form
	front := pareto.NewFront()
	member := []float64{1, 1}
	front.Insert(member, 0)

	means := []float64{0.8, 0.9}
	variances := []float64{0.04, 0.09}

	want := IndependentPoI(means, variances, member)
	got, err := CPoI(means, variances, correlation.Identity(2), front, params(40000), utils.NewRandSource(3))
	if err != nil {
		t.Fatalf("CPoI failed: %v", err)
	}
	if math.Abs(got-want) > 0.02 {
		t.Fatalf("Monte Carlo estimate %f deviates from the closed form %f", got, want)
	}
}

func TestCPoIDeterministicForSeed(t *testing.T) {
	front := threePointFront()
	corr := correlation.Identity(2)
	means := []float64{2, 2}
	variances := []float64{1, 1}

	a, err := CPoI(means, variances, corr, front, params(500), utils.NewRandSource(9))
	if err != nil {
		t.Fatalf("CPoI failed: %v", err)
	}
	b, err := CPoI(means, variances, corr, front, params(500), utils.NewRandSource(9))
	if err != nil {
		t.Fatalf("CPoI failed: %v", err)
	}
	if a != b {
		t.Fatalf("same seed must give identical estimates: %f vs %f", a, b)
	}
}

func TestCPoIEmptyFrontPolicies(t *testing.T) {
	empty := pareto.NewFront()
	corr := correlation.Identity(2)
	means := []float64{0, 0}

	p, err := CPoI(means, []float64{1, 1}, corr, empty, Params{Samples: 10, EmptyFront: EmptyFrontImproveEverywhere}, utils.NewRandSource(1))
	if err != nil || p != 1 {
		t.Fatalf("improve-everywhere must score 1, got %f (%v)", p, err)
	}

	low, err := CPoI(means, []float64{0.1, 0.1}, corr, empty, Params{Samples: 10, EmptyFront: EmptyFrontExploreVariance}, utils.NewRandSource(1))
	if err != nil {
		t.Fatalf("CPoI failed: %v", err)
	}
	high, err := CPoI(means, []float64{2, 2}, corr, empty, Params{Samples: 10, EmptyFront: EmptyFrontExploreVariance}, utils.NewRandSource(1))
	if err != nil {
		t.Fatalf("CPoI failed: %v", err)
	}
	if high <= low {
		t.Fatalf("explore-variance must rank higher variance above lower: %f vs %f", high, low)
	}

	if _, err := CPoI(means, []float64{1, 1}, corr, empty, Params{Samples: 10, EmptyFront: "bogus"}, utils.NewRandSource(1)); err == nil {
		t.Fatalf("unknown empty-front policy must be rejected")
	}
}

func TestCPoIRejectsBadInput(t *testing.T) {
	front := threePointFront()
	corr := correlation.Identity(2)

	if _, err := CPoI([]float64{0, 0}, []float64{1}, corr, front, params(10), utils.NewRandSource(1)); err == nil {
		t.Fatalf("mismatched variance length must be rejected")
	}
	if _, err := CPoI([]float64{0, 0, 0}, []float64{1, 1, 1}, corr, front, params(10), utils.NewRandSource(1)); err == nil {
		t.Fatalf("correlation dimension mismatch must be rejected")
	}
	if _, err := CPoI([]float64{0, 0}, []float64{1, 1}, corr, front, params(0), utils.NewRandSource(1)); err == nil {
		t.Fatalf("non-positive sample count must be rejected")
	}
}

func TestCPoIDecreasesTowardDominatedRegion(t *testing.T) {
	front := threePointFront()
	corr := correlation.Identity(2)
	variances := []float64{0.25, 0.25}

	near, err := CPoI([]float64{1, 1}, variances, corr, front, params(8000), utils.NewRandSource(4))
	if err != nil {
		t.Fatalf("CPoI failed: %v", err)
	}
	far, err := CPoI([]float64{3.5, 3.5}, variances, corr, front, params(8000), utils.NewRandSource(4))
	if err != nil {
		t.Fatalf("CPoI failed: %v", err)
	}
	if near <= far {
		t.Fatalf("moving into the dominated region must lower the score: %f vs %f", near, far)
	}
}
