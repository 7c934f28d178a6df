package correlation

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

type fakePosterior struct {
	fn func(x []float64) (float64, float64)
}

func (f fakePosterior) Predict(x []float64) (float64, float64) {
	return f.fn(x)
}

func zeroMean() Predictor {
	return fakePosterior{fn: func([]float64) (float64, float64) { return 0, 1 }}
}

func TestResidualCorrelation(t *testing.T) {
	// With zero-mean posteriors the residuals are the observations
	// themselves; the second objective mirrors the first
	posteriors := []Predictor{zeroMean(), zeroMean()}
	X := [][]float64{{0}, {1}, {2}, {3}, {4}}
	Y := [][]float64{
		{-2.0, -1.9},
		{-1.0, -1.1},
		{0.0, 0.1},
		{1.0, 0.9},
		{2.0, 2.1},
	}

	e := &Estimator{Method: MethodResidual}
	c, delta, err := e.Estimate(posteriors, X, Y, nil)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if c.Dim() != 2 {
		t.Fatalf("expected 2x2 matrix, got %d", c.Dim())
	}
	if c.At(0, 0) != 1 || c.At(1, 1) != 1 {
		t.Fatalf("diagonal must be exactly 1")
	}
	if c.At(0, 1) != c.At(1, 0) {
		t.Fatalf("matrix must be symmetric")
	}
	if c.At(0, 1) < 0.95 {
		t.Fatalf("near-identical residuals must correlate strongly, got %f", c.At(0, 1))
	}
	if delta != 0 {
		t.Fatalf("a valid 2x2 correlation needs no repair, got delta %f", delta)
	}
}

func TestResidualFallsBackToIdentity(t *testing.T) {
	posteriors := []Predictor{zeroMean(), zeroMean()}
	X := [][]float64{{0}, {1}}
	Y := [][]float64{{1, 2}, {3, 4}}

	e := &Estimator{Method: MethodResidual}
	c, delta, err := e.Estimate(posteriors, X, Y, nil)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if c.At(0, 1) != 0 || delta != 0 {
		t.Fatalf("too few shared points must give the identity, got %f", c.At(0, 1))
	}
}

func TestSingleObjectiveIsIdentity(t *testing.T) {
	e := &Estimator{Method: MethodResidual}
	c, _, err := e.Estimate([]Predictor{zeroMean()}, nil, nil, nil)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if c.Dim() != 1 || c.At(0, 0) != 1 {
		t.Fatalf("single objective must yield the 1x1 identity")
	}
}

func TestSampledCorrelation(t *testing.T) {
	// Two posteriors with the same mean surface and near-zero variance
	// produce almost identical draws
	same := func(x []float64) (float64, float64) { return x[0], 1e-12 }
	posteriors := []Predictor{fakePosterior{fn: same}, fakePosterior{fn: same}}

	e := &Estimator{Method: MethodSampled, Samples: 100, Seed: 7}
	c, _, err := e.Estimate(posteriors, nil, nil, [][2]float64{{0, 10}})
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if c.At(0, 1) < 0.99 {
		t.Fatalf("identical posteriors must correlate near 1, got %f", c.At(0, 1))
	}
}

func TestUnknownMethod(t *testing.T) {
	e := &Estimator{Method: "bogus"}
	if _, _, err := e.Estimate([]Predictor{zeroMean(), zeroMean()}, nil, nil, nil); err == nil {
		t.Fatalf("unknown method must be rejected")
	}
}

func TestNearestCorrelationRepairsIndefinite(t *testing.T) {
	// r12 = r13 = 0.9 with r23 = -0.9 is not positive semidefinite
	raw := mat.NewSymDense(3, []float64{
		1, 0.9, 0.9,
		0.9, 1, -0.9,
		0.9, -0.9, 1,
	})

	c, delta := NearestCorrelation(raw)
	if delta <= 0 {
		t.Fatalf("an indefinite input must be adjusted, got delta %f", delta)
	}
	for i := 0; i < 3; i++ {
		if c.At(i, i) != 1 {
			t.Fatalf("repaired diagonal must be exactly 1")
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(c.Sym(), false) {
		t.Fatalf("eigendecomposition failed")
	}
	for _, v := range eig.Values(nil) {
		if v < -1e-9 {
			t.Fatalf("repaired matrix must be positive semidefinite, eigenvalue %g", v)
		}
	}
}

func TestNearestCorrelationKeepsValidInput(t *testing.T) {
	raw := mat.NewSymDense(2, []float64{1, 0.5, 0.5, 1})
	c, delta := NearestCorrelation(raw)
	if math.Abs(c.At(0, 1)-0.5) > 1e-12 {
		t.Fatalf("valid input must pass through unchanged, got %f", c.At(0, 1))
	}
	if delta > 1e-12 {
		t.Fatalf("valid input needs no adjustment, got delta %g", delta)
	}
}
