// Package gp implements the Gaussian process surrogate fitted per
// (objective, fidelity) pair. A fit selects hyperparameters by multi-start
// maximization of the log marginal likelihood and caches a Cholesky
// factorization of the Gram matrix for posterior queries. Refitting
// replaces the factorization wholesale; there is no incremental update.
package gp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/ThoriDay/cpoi-mobo/internal/kernel"
	"github.com/ThoriDay/cpoi-mobo/pkg/utils"
)

const (
	// baseJitter is the first diagonal jitter tried when a factorization
	// fails; escalation multiplies it by 10 per attempt
	baseJitter = 1e-10
	// jitterAttempts bounds escalation to five orders of magnitude
	jitterAttempts = 5
	// penaltyValue is returned to the optimizer when a candidate cannot be
	// evaluated (failed factorization)
	penaltyValue = 1e12
)

// FitConfig controls hyperparameter fitting
type FitConfig struct {
	Kernel kernel.Kernel
	// LogHyperMin and LogHyperMax bound every log hyperparameter
	LogHyperMin float64
	LogHyperMax float64
	// Restarts is the multi-start budget for the likelihood search
	Restarts int
	// MaxIterations bounds each Nelder-Mead run
	MaxIterations int
	// LikelihoodFloor is the minimum acceptable log marginal likelihood;
	// fits whose best candidate stays below it fail with
	// OptimizationDivergedError
	LikelihoodFloor float64
	Seed            int64
}

// DefaultFitConfig returns fitting defaults for the given kernel
func DefaultFitConfig(k kernel.Kernel, seed int64) FitConfig {
	return FitConfig{
		Kernel:          k,
		LogHyperMin:     -5,
		LogHyperMax:     5,
		Restarts:        5,
		MaxIterations:   200,
		LikelihoodFloor: -1e10,
		Seed:            seed,
	}
}

// Surrogate is a Gaussian process regression model for one
// (objective, fidelity) pair
type Surrogate struct {
	cfg FitConfig
	dim int

	x [][]float64
	y []float64

	// theta is the full log-hyperparameter vector: kernel hyperparameters
	// followed by the log noise variance
	theta  []float64
	chol   mat.Cholesky
	alpha  *mat.VecDense
	jitter float64
	lml    float64
	fitted bool
}

// New creates an unfitted surrogate
func New(cfg FitConfig) *Surrogate {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 200
	}
	if cfg.LikelihoodFloor == 0 {
		cfg.LikelihoodFloor = -1e10
	}
	return &Surrogate{cfg: cfg}
}

// numHyper returns the full hyperparameter count including the noise term
func (s *Surrogate) numHyper() int {
	return s.cfg.Kernel.NumHyper(s.dim) + 1
}

// Fit selects hyperparameters by multi-start Nelder-Mead maximization of
// the log marginal likelihood, then caches the factorization for the
// winning candidate. Deterministic for a fixed FitConfig.Seed.
func (s *Surrogate) Fit(X [][]float64, y []float64) error {
	if err := s.setData(X, y); err != nil {
		return err
	}

	nh := s.numHyper()
	rng := utils.NewRandSource(s.cfg.Seed)

	starts := make([][]float64, 0, s.cfg.Restarts)
	// First start at log(1) for every hyperparameter, clamped into bounds
	zero := make([]float64, nh)
	for i := range zero {
		zero[i] = utils.ClampFloat64(0, s.cfg.LogHyperMin, s.cfg.LogHyperMax)
	}
	starts = append(starts, zero)
	for len(starts) < s.cfg.Restarts {
		h := make([]float64, nh)
		for i := range h {
			h[i] = rng.UniformFloat64(s.cfg.LogHyperMin, s.cfg.LogHyperMax)
		}
		starts = append(starts, h)
	}

	neg := func(h []float64) float64 {
		clamped, penalty := s.clampHypers(h)
		l, _, err := s.likelihood(clamped)
		if err != nil {
			return penaltyValue
		}
		return -l + penalty
	}

	best := math.Inf(1)
	var bestTheta []float64
	allFailed := true
	for _, start := range starts {
		// Keep the raw start as a candidate in case the local search fails
		if v := neg(start); v < best {
			best = v
			clamped, _ := s.clampHypers(start)
			bestTheta = clamped
		}
		if best < penaltyValue {
			allFailed = false
		}

		problem := optimize.Problem{Func: neg}
		settings := &optimize.Settings{MajorIterations: s.cfg.MaxIterations}
		result, err := optimize.Minimize(problem, start, settings, &optimize.NelderMead{})
		if err != nil && result == nil {
			continue
		}
		if v := neg(result.X); v < best {
			best = v
			clamped, _ := s.clampHypers(result.X)
			bestTheta = clamped
		}
		if best < penaltyValue {
			allFailed = false
		}
	}

	if allFailed {
		return &NumericalInstabilityError{Size: len(s.x), MaxJitter: maxJitter()}
	}
	if bestTheta == nil || -best < s.cfg.LikelihoodFloor {
		return &OptimizationDivergedError{
			Restarts:          s.cfg.Restarts,
			BestLogLikelihood: -best,
			Floor:             s.cfg.LikelihoodFloor,
		}
	}

	return s.finalize(bestTheta)
}

// FitFixed fits the factorization for the given data under frozen
// hyperparameters. Used for fantasized batch observations, where the
// hyperparameters of the parent fit are reused.
func (s *Surrogate) FitFixed(X [][]float64, y []float64, theta []float64) error {
	if err := s.setData(X, y); err != nil {
		return err
	}
	if len(theta) != s.numHyper() {
		return fmt.Errorf("expected %d hyperparameters, got %d", s.numHyper(), len(theta))
	}
	t := make([]float64, len(theta))
	copy(t, theta)
	return s.finalize(t)
}

// WithFantasy returns a copy of the surrogate with one extra observation
// appended and the factorization rebuilt under the parent's
// hyperparameters. The receiver is unchanged.
func (s *Surrogate) WithFantasy(x []float64, y float64) (*Surrogate, error) {
	if !s.fitted {
		return nil, fmt.Errorf("surrogate not fitted")
	}
	n := len(s.x)
	X := make([][]float64, n+1)
	copy(X, s.x)
	xc := make([]float64, len(x))
	copy(xc, x)
	X[n] = xc
	Y := make([]float64, n+1)
	copy(Y, s.y)
	Y[n] = y

	clone := New(s.cfg)
	if err := clone.FitFixed(X, Y, s.theta); err != nil {
		return nil, err
	}
	return clone, nil
}

// Predict returns the posterior mean and latent variance at x using the
// cached factorization. Variance is clamped at zero to absorb floating
// point underflow. Panics if the surrogate has not been fitted.
func (s *Surrogate) Predict(x []float64) (mean, variance float64) {
	if !s.fitted {
		panic("gp: Predict called on unfitted surrogate")
	}
	if len(x) != s.dim {
		panic(fmt.Sprintf("gp: point dimension %d does not match training dimension %d", len(x), s.dim))
	}

	kernTheta := s.theta[:len(s.theta)-1]
	kv := kernel.CrossCov(s.cfg.Kernel, kernTheta, x, s.x)
	kVec := mat.NewVecDense(len(kv), kv)

	mean = mat.Dot(kVec, s.alpha)

	var v mat.VecDense
	if err := s.chol.SolveVecTo(&v, kVec); err != nil {
		// Factorization was valid at fit time; a solve failure here means
		// severe conditioning loss, so report prior variance
		return mean, math.Exp(kernTheta[len(kernTheta)-1])
	}
	kss := s.cfg.Kernel.Cov(kernTheta, x, x)
	variance = kss - mat.Dot(kVec, &v)
	if variance < 0 {
		variance = 0
	}
	return mean, variance
}

// Theta returns the fitted log-hyperparameter vector (kernel
// hyperparameters followed by log noise variance)
func (s *Surrogate) Theta() []float64 {
	out := make([]float64, len(s.theta))
	copy(out, s.theta)
	return out
}

// NoiseVariance returns the fitted observation noise variance
func (s *Surrogate) NoiseVariance() float64 {
	if !s.fitted {
		return 0
	}
	return math.Exp(s.theta[len(s.theta)-1])
}

// LogMarginalLikelihood returns the log marginal likelihood of the fit
func (s *Surrogate) LogMarginalLikelihood() float64 {
	return s.lml
}

// TrainingSize returns the number of observations in the training set
func (s *Surrogate) TrainingSize() int {
	return len(s.x)
}

// Dim returns the input dimension, or 0 before the first fit
func (s *Surrogate) Dim() int {
	return s.dim
}

// Fitted reports whether the surrogate has a usable factorization
func (s *Surrogate) Fitted() bool {
	return s.fitted
}

// TrainingInputs returns the training inputs (shared backing arrays;
// callers must not mutate)
func (s *Surrogate) TrainingInputs() [][]float64 {
	return s.x
}

func (s *Surrogate) setData(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("training set is empty")
	}
	if len(X) != len(y) {
		return fmt.Errorf("input count %d does not match target count %d", len(X), len(y))
	}
	dim := len(X[0])
	for i, x := range X {
		if len(x) != dim {
			return fmt.Errorf("input %d has dimension %d, expected %d", i, len(x), dim)
		}
	}

	s.dim = dim
	s.x = make([][]float64, len(X))
	for i, x := range X {
		xc := make([]float64, dim)
		copy(xc, x)
		s.x[i] = xc
	}
	s.y = make([]float64, len(y))
	copy(s.y, y)
	s.fitted = false
	return nil
}

func (s *Surrogate) clampHypers(h []float64) (clamped []float64, penalty float64) {
	clamped = make([]float64, len(h))
	for i, v := range h {
		c := utils.ClampFloat64(v, s.cfg.LogHyperMin, s.cfg.LogHyperMax)
		d := v - c
		penalty += 100 * d * d
		clamped[i] = c
	}
	return clamped, penalty
}

// likelihood factorizes the Gram matrix for the given hyperparameters with
// jitter escalation and returns the log marginal likelihood together with
// the jitter that was needed
func (s *Surrogate) likelihood(theta []float64) (float64, float64, error) {
	n := len(s.x)
	noise := math.Exp(theta[len(theta)-1])
	kernTheta := theta[:len(theta)-1]

	jitter := 0.0
	for attempt := 0; attempt <= jitterAttempts; attempt++ {
		if attempt > 0 {
			jitter = baseJitter * math.Pow(10, float64(attempt-1))
		}
		g := kernel.Gram(s.cfg.Kernel, kernTheta, s.x, noise, jitter)

		var chol mat.Cholesky
		if ok := chol.Factorize(g); !ok {
			continue
		}

		yVec := mat.NewVecDense(n, s.y)
		var alpha mat.VecDense
		if err := chol.SolveVecTo(&alpha, yVec); err != nil {
			continue
		}
		lml := -0.5*mat.Dot(yVec, &alpha) - 0.5*chol.LogDet() - 0.5*float64(n)*math.Log(2*math.Pi)
		return lml, jitter, nil
	}

	return 0, 0, &NumericalInstabilityError{Size: n, MaxJitter: maxJitter()}
}

// finalize caches the factorization for the chosen hyperparameters
func (s *Surrogate) finalize(theta []float64) error {
	n := len(s.x)
	noise := math.Exp(theta[len(theta)-1])
	kernTheta := theta[:len(theta)-1]

	jitter := 0.0
	for attempt := 0; attempt <= jitterAttempts; attempt++ {
		if attempt > 0 {
			jitter = baseJitter * math.Pow(10, float64(attempt-1))
		}
		g := kernel.Gram(s.cfg.Kernel, kernTheta, s.x, noise, jitter)

		var chol mat.Cholesky
		if ok := chol.Factorize(g); !ok {
			continue
		}
		yVec := mat.NewVecDense(n, s.y)
		var alpha mat.VecDense
		if err := chol.SolveVecTo(&alpha, yVec); err != nil {
			continue
		}

		s.theta = theta
		s.chol = chol
		s.alpha = &alpha
		s.jitter = jitter
		s.lml = -0.5*mat.Dot(yVec, &alpha) - 0.5*chol.LogDet() - 0.5*float64(n)*math.Log(2*math.Pi)
		s.fitted = true
		return nil
	}

	return &NumericalInstabilityError{Size: n, MaxJitter: maxJitter()}
}

func maxJitter() float64 {
	return baseJitter * math.Pow(10, float64(jitterAttempts-1))
}
