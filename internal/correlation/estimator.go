package correlation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ThoriDay/cpoi-mobo/pkg/utils"
)

// minResidualPoints is the smallest number of shared observations that
// supports a residual correlation estimate; below it the estimator falls
// back to independence
const minResidualPoints = 3

// Supported estimation methods
const (
	MethodResidual = "residual"
	MethodSampled  = "sampled"
)

// Predictor is the posterior query surface the estimator needs from a
// surrogate
type Predictor interface {
	Predict(x []float64) (mean, variance float64)
}

// Estimator computes the objective correlation matrix
type Estimator struct {
	// Method selects between residual correlation over shared
	// observations and correlation of posterior samples over the domain
	Method string
	// Samples is the number of domain points used by the sampled method
	Samples int
	Seed    int64
}

// Estimate returns the repaired correlation matrix and the Frobenius norm
// of the repair adjustment. X and Y are the shared highest-fidelity
// observations: Y[i][m] is objective m at input X[i]. The bounds are only
// used by the sampled method.
func (e *Estimator) Estimate(posteriors []Predictor, X [][]float64, Y [][]float64, bounds [][2]float64) (*Matrix, float64, error) {
	m := len(posteriors)
	if m == 0 {
		return nil, 0, fmt.Errorf("no posteriors to correlate")
	}
	if m == 1 {
		return Identity(1), 0, nil
	}

	switch e.Method {
	case MethodResidual, "":
		return e.residual(posteriors, X, Y)
	case MethodSampled:
		return e.sampled(posteriors, bounds)
	default:
		return nil, 0, fmt.Errorf("unknown correlation method %q", e.Method)
	}
}

// residual correlates the per-objective residuals at the shared
// observations. With fewer than three shared points the estimate is too
// unstable, so the objectives are treated as independent.
func (e *Estimator) residual(posteriors []Predictor, X [][]float64, Y [][]float64) (*Matrix, float64, error) {
	m := len(posteriors)
	if len(X) != len(Y) {
		return nil, 0, fmt.Errorf("observation count mismatch: %d inputs, %d objective rows", len(X), len(Y))
	}
	if len(X) < minResidualPoints {
		return Identity(m), 0, nil
	}

	res := make([][]float64, m)
	for j, p := range posteriors {
		res[j] = make([]float64, len(X))
		for i, x := range X {
			if len(Y[i]) != m {
				return nil, 0, fmt.Errorf("observation %d has %d objectives, expected %d", i, len(Y[i]), m)
			}
			mean, _ := p.Predict(x)
			res[j][i] = Y[i][j] - mean
		}
	}

	return pairwise(res)
}

// sampled correlates single posterior draws at Latin hypercube points
// across the domain
func (e *Estimator) sampled(posteriors []Predictor, bounds [][2]float64) (*Matrix, float64, error) {
	if len(bounds) == 0 {
		return nil, 0, fmt.Errorf("sampled correlation requires domain bounds")
	}
	n := e.Samples
	if n < minResidualPoints {
		n = 64
	}

	rng := utils.NewRandSource(e.Seed)
	points := utils.LatinHypercube(n, bounds, rng)

	// Each objective draws from its own sub-stream, so the draws at a
	// point do not depend on how many objectives precede it
	draws := make([][]float64, len(posteriors))
	for j, p := range posteriors {
		sub := rng.Split()
		draws[j] = make([]float64, n)
		for i, x := range points {
			mean, variance := p.Predict(x)
			draws[j][i] = sub.NormFloat64(mean, math.Sqrt(variance))
		}
	}

	return pairwise(draws)
}

// pairwise builds the raw Pearson matrix from per-objective series and
// repairs it into a valid correlation matrix
func pairwise(series [][]float64) (*Matrix, float64, error) {
	m := len(series)
	raw := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		raw.SetSym(i, i, 1)
		for j := i + 1; j < m; j++ {
			r := stat.Correlation(series[i], series[j], nil)
			// Constant series produce NaN; treat them as uncorrelated
			if math.IsNaN(r) {
				r = 0
			}
			raw.SetSym(i, j, r)
		}
	}

	repaired, delta := NearestCorrelation(raw)
	return repaired, delta, nil
}
