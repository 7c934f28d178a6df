// Package kernel implements the stationary covariance functions used by the
// Gaussian process surrogates. Hyperparameters are passed in log space as a
// flat vector: one log length-scale per input dimension followed by the log
// signal variance. Observation noise is not part of the kernel; the
// surrogate adds it to the Gram diagonal as a nugget.
package kernel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ThoriDay/cpoi-mobo/pkg/config"
)

// Kernel is a stationary covariance function over the design space
type Kernel interface {
	// Cov evaluates the covariance between x1 and x2 under the given
	// log-hyperparameter vector
	Cov(theta, x1, x2 []float64) float64
	// NumHyper returns the hyperparameter count for a given input dimension
	NumHyper(dim int) int
	// Name returns the configuration name of the kernel family
	Name() string
}

// New creates a kernel from a configured family name
func New(family string) (Kernel, error) {
	switch family {
	case config.KernelSquaredExponential:
		return SquaredExponential{}, nil
	case config.KernelMatern52:
		return Matern52{}, nil
	default:
		return nil, fmt.Errorf("unknown kernel family: %s", family)
	}
}

// scaledSquaredDistance computes sum_i ((x1_i - x2_i) / l_i)^2 with
// per-dimension length-scales taken from the first len(x1) entries of theta
func scaledSquaredDistance(theta, x1, x2 []float64) float64 {
	sum := 0.0
	for i := range x1 {
		l := math.Exp(theta[i])
		d := (x1[i] - x2[i]) / l
		sum += d * d
	}
	return sum
}

// SquaredExponential is the ARD squared-exponential (RBF) kernel
type SquaredExponential struct{}

func (SquaredExponential) Name() string { return config.KernelSquaredExponential }

func (SquaredExponential) NumHyper(dim int) int { return dim + 1 }

func (SquaredExponential) Cov(theta, x1, x2 []float64) float64 {
	sf2 := math.Exp(theta[len(x1)])
	return sf2 * math.Exp(-0.5*scaledSquaredDistance(theta, x1, x2))
}

// Matern52 is the ARD Matern kernel with smoothness 5/2
type Matern52 struct{}

func (Matern52) Name() string { return config.KernelMatern52 }

func (Matern52) NumHyper(dim int) int { return dim + 1 }

func (Matern52) Cov(theta, x1, x2 []float64) float64 {
	sf2 := math.Exp(theta[len(x1)])
	r := math.Sqrt(scaledSquaredDistance(theta, x1, x2))
	s := math.Sqrt(5) * r
	return sf2 * (1 + s + s*s/3) * math.Exp(-s)
}

// Gram assembles the n x n covariance matrix over X with noiseVar plus
// jitter added to the diagonal. The result is symmetric positive
// semi-definite by construction for any valid kernel; positive definiteness
// additionally requires a nonzero diagonal term.
func Gram(k Kernel, theta []float64, X [][]float64, noiseVar, jitter float64) *mat.SymDense {
	n := len(X)
	g := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := k.Cov(theta, X[i], X[j])
			if i == j {
				v += noiseVar + jitter
			}
			g.SetSym(i, j, v)
		}
	}
	return g
}

// CrossCov evaluates the covariance vector between a query point and every
// training point
func CrossCov(k Kernel, theta []float64, x []float64, X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i := range X {
		out[i] = k.Cov(theta, x, X[i])
	}
	return out
}
