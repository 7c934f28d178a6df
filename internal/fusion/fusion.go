// Package fusion combines a low-fidelity and a high-fidelity surrogate for
// one objective into a single posterior using an autoregressive model: the
// high-fidelity response is a scaled low-fidelity response plus a residual
// process fitted on the high-fidelity observations.
package fusion

import (
	"fmt"

	"github.com/ThoriDay/cpoi-mobo/internal/gp"
	"github.com/ThoriDay/cpoi-mobo/pkg/utils"
)

// minColocated is the smallest number of co-located observations that
// supports a correlation coefficient estimate
const minColocated = 2

// Config controls the fusion fit
type Config struct {
	// Delta is the fit configuration for the residual surrogate
	Delta gp.FitConfig
	// Tol is the tolerance for treating two inputs as co-located
	Tol float64
}

// FusedPosterior is the combined predictive distribution over the
// high-fidelity objective
type FusedPosterior struct {
	// Rho is the estimated scale between the low and high fidelity
	// responses
	Rho float64
	// Degraded marks a single-fidelity fallback where no fusion was
	// possible
	Degraded bool

	low   *gp.Surrogate
	delta *gp.Surrogate
}

// Fuse estimates the autoregressive scale from co-located observations,
// fits a residual surrogate on the high-fidelity data and returns the
// combined posterior. Returns InsufficientDataError when fewer than two
// high-fidelity inputs coincide with low-fidelity training inputs.
func Fuse(low *gp.Surrogate, highX [][]float64, highY []float64, cfg Config) (*FusedPosterior, error) {
	if low == nil || !low.Fitted() {
		return nil, fmt.Errorf("low-fidelity surrogate is not fitted")
	}
	if len(highX) == 0 || len(highX) != len(highY) {
		return nil, fmt.Errorf("high-fidelity observation count mismatch: %d inputs, %d targets", len(highX), len(highY))
	}
	if cfg.Tol <= 0 {
		cfg.Tol = 1e-9
	}

	// Estimate rho by least squares over the co-located pairs, using the
	// low posterior mean as the low-fidelity response
	var num, den float64
	colocated := 0
	for i, x := range highX {
		if !isColocated(x, low.TrainingInputs(), cfg.Tol) {
			continue
		}
		mu, _ := low.Predict(x)
		num += mu * highY[i]
		den += mu * mu
		colocated++
	}
	if colocated < minColocated {
		return nil, &InsufficientDataError{Colocated: colocated, Needed: minColocated}
	}

	rho := 1.0
	if den > 0 {
		rho = num / den
	}

	// Residuals over every high-fidelity observation, not just the
	// co-located ones
	residuals := make([]float64, len(highY))
	for i, x := range highX {
		mu, _ := low.Predict(x)
		residuals[i] = highY[i] - rho*mu
	}

	delta := gp.New(cfg.Delta)
	if err := delta.Fit(highX, residuals); err != nil {
		return nil, fmt.Errorf("fitting residual surrogate: %w", err)
	}

	return &FusedPosterior{Rho: rho, low: low, delta: delta}, nil
}

// NewSingleFidelity wraps a single surrogate as a degraded posterior with
// no low-fidelity contribution. Used when fusion is impossible.
func NewSingleFidelity(s *gp.Surrogate) *FusedPosterior {
	return &FusedPosterior{Rho: 0, Degraded: true, delta: s}
}

// Predict returns the fused posterior mean and variance at x
func (f *FusedPosterior) Predict(x []float64) (mean, variance float64) {
	dMean, dVar := f.delta.Predict(x)
	if f.Degraded {
		return dMean, dVar
	}
	lMean, lVar := f.low.Predict(x)
	mean = f.Rho*lMean + dMean
	variance = f.Rho*f.Rho*lVar + dVar
	return mean, variance
}

// Dim returns the input dimension of the posterior
func (f *FusedPosterior) Dim() int {
	return f.delta.Dim()
}

// WithFantasy returns a copy of the posterior that behaves as if x had
// been observed at the current posterior mean. Only the residual
// surrogate is extended; the low-fidelity surrogate is shared.
func (f *FusedPosterior) WithFantasy(x []float64) (*FusedPosterior, error) {
	target, _ := f.delta.Predict(x)
	delta, err := f.delta.WithFantasy(x, target)
	if err != nil {
		return nil, err
	}
	return &FusedPosterior{Rho: f.Rho, Degraded: f.Degraded, low: f.low, delta: delta}, nil
}

func isColocated(x []float64, inputs [][]float64, tol float64) bool {
	for _, xi := range inputs {
		if utils.PointsEqual(x, xi, tol) {
			return true
		}
	}
	return false
}
