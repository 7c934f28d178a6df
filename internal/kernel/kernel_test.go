package kernel

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ThoriDay/cpoi-mobo/pkg/config"
)

func thetaFor(dim int, lengthScale, signalVar float64) []float64 {
	theta := make([]float64, dim+1)
	for i := 0; i < dim; i++ {
		theta[i] = math.Log(lengthScale)
	}
	theta[dim] = math.Log(signalVar)
	return theta
}

func TestNewByFamily(t *testing.T) {
	for _, family := range []string{config.KernelSquaredExponential, config.KernelMatern52} {
		k, err := New(family)
		if err != nil {
			t.Fatalf("family %s: %v", family, err)
		}
		if k.Name() != family {
			t.Fatalf("expected name %s, got %s", family, k.Name())
		}
	}
	if _, err := New("periodic"); err == nil {
		t.Fatalf("expected error for unknown family")
	}
}

func TestCovProperties(t *testing.T) {
	theta := thetaFor(2, 1.0, 2.0)
	for _, k := range []Kernel{SquaredExponential{}, Matern52{}} {
		x := []float64{0.3, -0.7}
		y := []float64{1.1, 0.4}

		// Symmetry
		if math.Abs(k.Cov(theta, x, y)-k.Cov(theta, y, x)) > 1e-14 {
			t.Fatalf("%s: covariance must be symmetric", k.Name())
		}

		// Signal variance at zero distance
		if math.Abs(k.Cov(theta, x, x)-2.0) > 1e-12 {
			t.Fatalf("%s: k(x,x) must equal signal variance", k.Name())
		}

		// Decay with distance
		far := []float64{30, 30}
		if k.Cov(theta, x, far) >= k.Cov(theta, x, y) {
			t.Fatalf("%s: covariance must decay with distance", k.Name())
		}
		if k.Cov(theta, x, far) < 0 {
			t.Fatalf("%s: covariance must be non-negative", k.Name())
		}
	}
}

func TestLengthScaleControlsDecay(t *testing.T) {
	k := SquaredExponential{}
	x := []float64{0}
	y := []float64{1}
	narrow := k.Cov(thetaFor(1, 0.2, 1.0), x, y)
	wide := k.Cov(thetaFor(1, 5.0, 1.0), x, y)
	if narrow >= wide {
		t.Fatalf("shorter length-scale must decay faster: narrow=%f wide=%f", narrow, wide)
	}
}

func TestGramPositiveDefiniteWithNugget(t *testing.T) {
	X := [][]float64{{0}, {0.5}, {1}, {1.5}, {2}}
	theta := thetaFor(1, 1.0, 1.0)

	for _, k := range []Kernel{SquaredExponential{}, Matern52{}} {
		g := Gram(k, theta, X, 1e-4, 0)

		var chol mat.Cholesky
		if ok := chol.Factorize(g); !ok {
			t.Fatalf("%s: Gram with nugget must be positive definite", k.Name())
		}
	}
}

func TestGramNearSingularWithoutNugget(t *testing.T) {
	// Duplicated inputs without noise produce a singular Gram matrix
	X := [][]float64{{1}, {1}, {2}}
	g := Gram(SquaredExponential{}, thetaFor(1, 1.0, 1.0), X, 0, 0)

	var chol mat.Cholesky
	if ok := chol.Factorize(g); ok {
		t.Fatalf("duplicate rows without nugget should not factorize")
	}
}

func TestCrossCov(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}}
	theta := thetaFor(1, 1.0, 1.0)
	k := SquaredExponential{}
	kv := CrossCov(k, theta, []float64{1}, X)
	if len(kv) != 3 {
		t.Fatalf("expected 3 entries")
	}
	if kv[1] < kv[0] || kv[1] < kv[2] {
		t.Fatalf("nearest training point must have the largest covariance")
	}
}
