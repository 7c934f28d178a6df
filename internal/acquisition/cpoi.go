// Package acquisition scores candidate points by their probability of
// improving the Pareto front under the joint posterior over objectives.
// Correlation between objectives is carried into the sampling distribution
// instead of assuming independence.
package acquisition

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ThoriDay/cpoi-mobo/internal/correlation"
	"github.com/ThoriDay/cpoi-mobo/internal/pareto"
	"github.com/ThoriDay/cpoi-mobo/pkg/utils"
)

// Empty-front policies. With no incumbent front every sample trivially
// improves, so the behavior must be chosen explicitly.
const (
	// EmptyFrontImproveEverywhere scores every candidate 1
	EmptyFrontImproveEverywhere = "improve-everywhere"
	// EmptyFrontExploreVariance scores by total predictive variance,
	// mapped into [0, 1)
	EmptyFrontExploreVariance = "explore-variance"
)

// covJitterAttempts bounds the diagonal inflation retries when the
// assembled covariance is not positive definite
const covJitterAttempts = 3

// Params controls the Monte Carlo estimate
type Params struct {
	// Samples is the Monte Carlo sample count
	Samples int
	// EmptyFront selects the policy applied when the front is empty
	EmptyFront string
}

// CPoI estimates the probability that a joint posterior sample at the
// candidate improves the front: no front member dominates the sample. The
// caller supplies per-objective means and variances plus the objective
// correlation matrix; the rng should be derived from the candidate so the
// estimate is a deterministic function of the point.
func CPoI(means, variances []float64, corr *correlation.Matrix, front *pareto.Front, p Params, rng *utils.RandSource) (float64, error) {
	m := len(means)
	if m == 0 || len(variances) != m {
		return 0, fmt.Errorf("objective count mismatch: %d means, %d variances", m, len(variances))
	}
	if corr.Dim() != m {
		return 0, fmt.Errorf("correlation matrix is %dx%d, expected %d objectives", corr.Dim(), corr.Dim(), m)
	}
	if p.Samples <= 0 {
		return 0, fmt.Errorf("sample count must be positive, got %d", p.Samples)
	}

	if front.Len() == 0 {
		switch p.EmptyFront {
		case EmptyFrontImproveEverywhere:
			return 1, nil
		case EmptyFrontExploreVariance:
			total := 0.0
			for _, v := range variances {
				total += v
			}
			return 1 - math.Exp(-total), nil
		default:
			return 0, fmt.Errorf("unknown empty-front policy %q", p.EmptyFront)
		}
	}

	sample := sampler(means, variances, corr, rng)

	improved := 0
	buf := make([]float64, m)
	for i := 0; i < p.Samples; i++ {
		sample(buf)
		if front.ImprovedBy(buf) {
			improved++
		}
	}
	return float64(improved) / float64(p.Samples), nil
}

// IndependentPoI is the closed-form probability of improvement against a
// single front member under independent objectives. Used as a reference
// for the Monte Carlo estimate.
func IndependentPoI(means, variances []float64, member []float64) float64 {
	pDominated := 1.0
	for j := range means {
		sd := math.Sqrt(variances[j])
		if sd == 0 {
			if means[j] >= member[j] {
				continue
			}
			return 1
		}
		n := distuv.Normal{Mu: means[j], Sigma: sd}
		pDominated *= 1 - n.CDF(member[j])
	}
	return 1 - pDominated
}

// sampler returns a draw function over the joint posterior. The covariance
// is assembled from the correlation matrix and the marginal variances;
// when it cannot be factorized even after diagonal inflation, the draws
// fall back to independent marginals.
func sampler(means, variances []float64, corr *correlation.Matrix, rng *utils.RandSource) func(buf []float64) {
	m := len(means)
	sd := make([]float64, m)
	maxVar := 0.0
	for j, v := range variances {
		sd[j] = math.Sqrt(v)
		if v > maxVar {
			maxVar = v
		}
	}

	sigma := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			sigma.SetSym(i, j, corr.At(i, j)*sd[i]*sd[j])
		}
	}

	jitter := 1e-10 * math.Max(maxVar, 1)
	for attempt := 0; attempt <= covJitterAttempts; attempt++ {
		if attempt > 0 {
			for i := 0; i < m; i++ {
				sigma.SetSym(i, i, sigma.At(i, i)+jitter)
			}
			jitter *= 10
		}
		if dist, ok := distmv.NewNormal(means, sigma, rng); ok {
			return func(buf []float64) { dist.Rand(buf) }
		}
	}

	return func(buf []float64) {
		for j := range buf {
			buf[j] = rng.NormFloat64(means[j], sd[j])
		}
	}
}
