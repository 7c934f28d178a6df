// Package loop orchestrates the optimization run: bootstrap sampling,
// surrogate modeling, acquisition search, fidelity-aware evaluation and
// assimilation, until a stopping rule fires. Every run is a deterministic
// function of its configuration seed and can be resumed from its
// observation log.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ThoriDay/cpoi-mobo/internal/acqopt"
	"github.com/ThoriDay/cpoi-mobo/internal/acquisition"
	"github.com/ThoriDay/cpoi-mobo/internal/correlation"
	"github.com/ThoriDay/cpoi-mobo/internal/fusion"
	"github.com/ThoriDay/cpoi-mobo/internal/gp"
	"github.com/ThoriDay/cpoi-mobo/internal/kernel"
	"github.com/ThoriDay/cpoi-mobo/internal/pareto"
	"github.com/ThoriDay/cpoi-mobo/pkg/config"
	"github.com/ThoriDay/cpoi-mobo/pkg/logger"
	"github.com/ThoriDay/cpoi-mobo/pkg/utils"
)

// minHighFidelitySamples is the smallest bootstrap count at the highest
// fidelity that supports an initial front and fusion
const minHighFidelitySamples = 2

// Evaluator runs the expensive objective function at a fidelity level
type Evaluator interface {
	// Evaluate returns the objective vector at x for the given fidelity
	// index into the configured fidelities. The second return is an
	// optional per-objective noise variance estimate; evaluators without
	// one return nil.
	Evaluate(ctx context.Context, x []float64, fidelity int) ([]float64, []float64, error)
}

// Result summarizes a finished run
type Result struct {
	State        State
	Reason       string
	Iterations   int
	TotalCost    float64
	Observations int
	Front        []pareto.Point
}

// Loop drives one optimization experiment
type Loop struct {
	cfg     *config.Config
	eval    Evaluator
	kern    kernel.Kernel
	obs     *ObservationLog
	front   *pareto.Front
	term    TerminationStrategy
	backoff utils.BackoffStrategy
	logger  *slog.Logger

	posteriors []*fusion.FusedPosterior
	corr       *correlation.Matrix
	scores     []float64
	iteration  int
	state      State
}

// New validates the configuration and builds an idle loop
func New(cfg *config.Config, eval Evaluator, lg *slog.Logger) (*Loop, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if eval == nil {
		return nil, fmt.Errorf("an evaluator is required")
	}
	if lg == nil {
		lg = logger.Default
	}

	k, err := kernel.New(cfg.Kernel.Family)
	if err != nil {
		return nil, err
	}

	high := cfg.HighestFidelity()
	if n := cfg.Bootstrap.SamplesPerFidelity[high]; n < minHighFidelitySamples {
		return nil, &InsufficientBootstrapError{
			Fidelity: cfg.Fidelities[high].Name,
			Got:      n,
			Need:     minHighFidelitySamples,
		}
	}
	for i := 1; i < len(cfg.Bootstrap.SamplesPerFidelity); i++ {
		if cfg.Bootstrap.SamplesPerFidelity[i] > cfg.Bootstrap.SamplesPerFidelity[i-1] {
			return nil, fmt.Errorf("bootstrap counts must be non-increasing across fidelities: level %d has %d, level %d has %d",
				i, cfg.Bootstrap.SamplesPerFidelity[i], i-1, cfg.Bootstrap.SamplesPerFidelity[i-1])
		}
	}

	var strategies []TerminationStrategy
	if cfg.Termination.MaxIterations > 0 {
		strategies = append(strategies, &MaxIterationsStrategy{Max: cfg.Termination.MaxIterations})
	}
	if cfg.Termination.CostBudget > 0 {
		strategies = append(strategies, &CostBudgetStrategy{Budget: cfg.Termination.CostBudget})
	}
	if cfg.Termination.AcquisitionThreshold > 0 {
		strategies = append(strategies, &AcquisitionThresholdStrategy{
			Threshold: cfg.Termination.AcquisitionThreshold,
			Patience:  cfg.Termination.Patience,
		})
	}

	return &Loop{
		cfg:     cfg,
		eval:    eval,
		kern:    k,
		obs:     NewObservationLog(),
		front:   pareto.NewFront(),
		term:    NewCombinedStrategy(strategies...),
		backoff: utils.NewBackoff(cfg.Evaluation.Backoff, time.Duration(cfg.Evaluation.BaseMs)*time.Millisecond),
		logger:  lg,
		state:   Bootstrapping,
	}, nil
}

// Resume seeds the loop from a previously saved observation log. The
// bootstrap phase is skipped; modeling resumes from the recorded data.
func (l *Loop) Resume(log *ObservationLog) error {
	if log.Len() == 0 {
		return fmt.Errorf("cannot resume from an empty log")
	}
	l.obs = log
	l.iteration = 0
	for _, o := range log.All() {
		if o.Iteration > l.iteration {
			l.iteration = o.Iteration
		}
	}
	l.state = Modeling
	l.logger.Info("resumed from observation log",
		"observations", log.Len(), "iteration", l.iteration, "cost", log.TotalCost())
	return nil
}

// Run executes the loop until a stopping rule fires. The returned result
// is also valid when ctx is cancelled mid-run, alongside the error.
func (l *Loop) Run(ctx context.Context) (*Result, error) {
	if l.obs.Len() == 0 {
		l.setState(Bootstrapping)
		if err := l.bootstrap(ctx); err != nil {
			return l.result(""), err
		}
	}

	for {
		if stop, reason := l.term.ShouldStop(l.status()); stop {
			l.setState(stopState(reason))
			l.logger.Info("run finished", "state", l.state.String(), "reason", reason)
			return l.result(reason), nil
		}

		l.setState(Modeling)
		if err := l.model(); err != nil {
			return l.result(""), err
		}

		l.setState(Acquiring)
		proposals, err := l.acquire(ctx)
		if err != nil {
			var infeasible *acqopt.NoFeasibleCandidateError
			if errors.As(err, &infeasible) {
				l.setState(Converged)
				reason := infeasible.Error()
				l.logger.Info("run finished", "state", l.state.String(), "reason", reason)
				return l.result(reason), nil
			}
			return l.result(""), err
		}

		l.setState(Evaluating)
		// Batch proposals are independent evaluator calls; run them
		// concurrently. A candidate whose evaluation exhausts its retries
		// is dropped from the iteration, not fatal to the run; the
		// iteration still counts against the budget.
		evaluated := make([]*Observation, len(proposals))
		var g errgroup.Group
		for i, p := range proposals {
			g.Go(func() error {
				fid, err := l.selectFidelity(p.X)
				if err != nil {
					return err
				}
				y, noise, err := l.evaluateWithRetry(ctx, p.X, fid)
				if err != nil {
					var failed *EvaluationFailedError
					if errors.As(err, &failed) {
						l.logger.Warn("candidate dropped after failed evaluation",
							"fidelity", failed.Fidelity, "attempts", failed.Attempts, "error", failed.Err)
						return nil
					}
					return err
				}
				evaluated[i] = &Observation{
					Iteration:    l.iteration + 1,
					X:            p.X,
					Fidelity:     fid,
					FidelityName: l.cfg.Fidelities[fid].Name,
					Objectives:   y,
					Noise:        noise,
					Cost:         l.cfg.Fidelities[fid].Cost,
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return l.result(""), err
		}

		l.setState(Assimilating)
		for _, o := range evaluated {
			if o == nil {
				continue
			}
			l.obs.Append(*o)
			if o.Fidelity == l.cfg.HighestFidelity() {
				l.front.Insert(o.Objectives, o.Iteration)
			}
		}
		l.iteration++
		l.scores = append(l.scores, proposals[0].Score)
		l.logger.Info("iteration complete",
			"iteration", l.iteration,
			"acquisition", proposals[0].Score,
			"front_size", l.front.Len(),
			"cost", l.obs.TotalCost())
	}
}

// State returns the current phase
func (l *Loop) State() State {
	return l.state
}

// Front returns a snapshot of the current Pareto front
func (l *Loop) Front() []pareto.Point {
	return l.front.Points()
}

// Log returns the observation log
func (l *Loop) Log() *ObservationLog {
	return l.obs
}

// bootstrap draws a nested space-filling design: the highest fidelity
// evaluates a subset of the points evaluated at lower fidelities, so the
// fusion always has co-located pairs to estimate its scale from.
func (l *Loop) bootstrap(ctx context.Context) error {
	counts := l.cfg.Bootstrap.SamplesPerFidelity
	points := utils.LatinHypercube(counts[0], l.cfg.BoundsSlice(), utils.NewRandSource(l.cfg.Seed))

	for level, n := range counts {
		for i := 0; i < n; i++ {
			y, noise, err := l.evaluateWithRetry(ctx, points[i], level)
			if err != nil {
				// A failed bootstrap point is skipped like any other;
				// modeling rejects the run if too few remain
				var failed *EvaluationFailedError
				if errors.As(err, &failed) {
					l.logger.Warn("bootstrap point dropped after failed evaluation",
						"fidelity", failed.Fidelity, "attempts", failed.Attempts, "error", failed.Err)
					continue
				}
				return err
			}
			o := Observation{
				Iteration:    0,
				X:            points[i],
				Fidelity:     level,
				FidelityName: l.cfg.Fidelities[level].Name,
				Objectives:   y,
				Noise:        noise,
				Cost:         l.cfg.Fidelities[level].Cost,
			}
			l.obs.Append(o)
			if level == l.cfg.HighestFidelity() {
				l.front.Insert(y, 0)
			}
		}
	}
	l.logger.Info("bootstrap complete", "observations", l.obs.Len(), "cost", l.obs.TotalCost())
	return nil
}

// model refits the per-objective posteriors, the correlation matrix and
// the front from the current log. Deterministic for a fixed log, so
// repeating it without new observations reproduces the same models.
func (l *Loop) model() error {
	high := l.cfg.HighestFidelity()
	highX, highY := l.obs.AtFidelity(high)
	lowX, lowY := l.obs.BelowFidelity(high)

	if len(highX) < minHighFidelitySamples {
		return &InsufficientBootstrapError{
			Fidelity: l.cfg.Fidelities[high].Name,
			Got:      len(highX),
			Need:     minHighFidelitySamples,
		}
	}

	// Per-objective fits are independent and read-only over the log
	// snapshot, so they run concurrently
	posteriors := make([]*fusion.FusedPosterior, l.cfg.Objectives)
	var g errgroup.Group
	for m := 0; m < l.cfg.Objectives; m++ {
		g.Go(func() error {
			p, err := l.fitObjective(m, lowX, lowY, highX, highY)
			if err != nil {
				return fmt.Errorf("modeling objective %d: %w", m, err)
			}
			posteriors[m] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	l.posteriors = posteriors

	predictors := make([]correlation.Predictor, len(posteriors))
	for i, p := range posteriors {
		predictors[i] = p
	}
	est := &correlation.Estimator{
		Method:  l.cfg.Acquisition.Correlation.Method,
		Samples: l.cfg.Acquisition.Correlation.Samples,
		Seed:    l.cfg.Seed + 7919,
	}
	corr, delta, err := est.Estimate(predictors, highX, highY, l.cfg.BoundsSlice())
	if err != nil {
		return fmt.Errorf("estimating objective correlation: %w", err)
	}
	if delta > 0 {
		l.logger.Debug("correlation estimate repaired", "frobenius_delta", delta)
	}
	l.corr = corr

	front := pareto.NewFront()
	for i, y := range highY {
		front.Insert(y, i)
	}
	l.front = front
	return nil
}

// fitObjective builds the fused posterior for one objective, degrading
// to a single-fidelity surrogate when fusion is impossible
func (l *Loop) fitObjective(m int, lowX, lowY, highX, highY [][]float64) (*fusion.FusedPosterior, error) {
	highTargets := column(highY, m)

	if len(lowX) < 2 {
		s := gp.New(l.fitConfig(m, 1))
		if err := s.Fit(highX, highTargets); err != nil {
			return nil, err
		}
		return fusion.NewSingleFidelity(s), nil
	}

	low := gp.New(l.fitConfig(m, 0))
	if err := low.Fit(lowX, column(lowY, m)); err != nil {
		return nil, err
	}

	fused, err := fusion.Fuse(low, highX, highTargets, fusion.Config{Delta: l.fitConfig(m, 1)})
	if err == nil {
		return fused, nil
	}

	var insufficient *fusion.InsufficientDataError
	if !errors.As(err, &insufficient) {
		return nil, err
	}
	l.logger.Warn("fusion degraded to single fidelity",
		"objective", m, "colocated", insufficient.Colocated)
	s := gp.New(l.fitConfig(m, 1))
	if err := s.Fit(highX, highTargets); err != nil {
		return nil, err
	}
	return fusion.NewSingleFidelity(s), nil
}

func (l *Loop) fitConfig(objective, role int) gp.FitConfig {
	cfg := gp.DefaultFitConfig(l.kern, l.cfg.Seed+int64(objective*100+role))
	cfg.LogHyperMin = l.cfg.Kernel.LogHyperMin
	cfg.LogHyperMax = l.cfg.Kernel.LogHyperMax
	if l.cfg.Kernel.Restarts > 0 {
		cfg.Restarts = l.cfg.Kernel.Restarts
	}
	return cfg
}

// acquire searches for the next candidate (or batch of candidates)
func (l *Loop) acquire(ctx context.Context) ([]acqopt.Proposal, error) {
	obj := &acqObjective{
		posteriors: l.posteriors,
		corr:       l.corr,
		front:      l.front,
		params: acquisition.Params{
			Samples:    l.cfg.Acquisition.MonteCarloSamples,
			EmptyFront: l.cfg.Acquisition.EmptyFront,
		},
		seed: l.cfg.Seed,
	}
	cfg := acqopt.Config{
		Bounds:        l.cfg.BoundsSlice(),
		Restarts:      l.cfg.Optimizer.Restarts,
		MaxIterations: l.cfg.Optimizer.MaxIterations,
		Epsilon:       l.cfg.Optimizer.Epsilon,
		Seed:          l.cfg.Seed + int64(l.iteration)*104729,
		BatchSize:     l.cfg.Optimizer.BatchSize,
	}

	if cfg.BatchSize > 1 {
		return acqopt.ProposeBatch(ctx, obj, cfg)
	}
	p, err := acqopt.Propose(ctx, obj, cfg)
	if err != nil {
		return nil, err
	}
	return []acqopt.Proposal{p}, nil
}

func (l *Loop) selectFidelity(x []float64) (int, error) {
	fids := make([]acqopt.Fidelity, len(l.cfg.Fidelities))
	for i, f := range l.cfg.Fidelities {
		fids[i] = acqopt.Fidelity{Name: f.Name, Cost: f.Cost, NoiseVar: f.NoiseVar}
	}
	obj := &acqObjective{
		posteriors: l.posteriors,
		corr:       l.corr,
		front:      l.front,
		params: acquisition.Params{
			Samples:    l.cfg.Acquisition.MonteCarloSamples,
			EmptyFront: l.cfg.Acquisition.EmptyFront,
		},
		seed: l.cfg.Seed,
	}
	return acqopt.SelectFidelity(x, obj, fids)
}

// evaluateWithRetry calls the evaluator, retrying transient failures with
// the configured backoff
func (l *Loop) evaluateWithRetry(ctx context.Context, x []float64, fidelity int) ([]float64, []float64, error) {
	attempts := l.cfg.Evaluation.Retries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := l.backoff.NextDelay(attempt - 1)
			l.logger.Warn("evaluation retry",
				"attempt", attempt, "delay_ms", delay.Milliseconds(), "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		y, noise, err := l.eval.Evaluate(ctx, x, fidelity)
		if err == nil {
			if len(y) != l.cfg.Objectives {
				return nil, nil, fmt.Errorf("evaluator returned %d objectives, expected %d", len(y), l.cfg.Objectives)
			}
			if noise != nil && len(noise) != l.cfg.Objectives {
				return nil, nil, fmt.Errorf("evaluator returned %d noise estimates, expected %d", len(noise), l.cfg.Objectives)
			}
			return y, noise, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, err
		}
		lastErr = err
	}
	return nil, nil, &EvaluationFailedError{
		X:        x,
		Fidelity: l.cfg.Fidelities[fidelity].Name,
		Attempts: attempts,
		Err:      lastErr,
	}
}

func (l *Loop) setState(s State) {
	if l.state != s {
		l.logger.Debug("state transition", "from", l.state.String(), "to", s.String())
		l.state = s
	}
}

func (l *Loop) status() Status {
	return Status{
		Iteration:         l.iteration,
		TotalCost:         l.obs.TotalCost(),
		AcquisitionScores: l.scores,
	}
}

func (l *Loop) result(reason string) *Result {
	return &Result{
		State:        l.state,
		Reason:       reason,
		Iterations:   l.iteration,
		TotalCost:    l.obs.TotalCost(),
		Observations: l.obs.Len(),
		Front:        l.front.Points(),
	}
}

// stopState maps a termination reason to its terminal state: model-driven
// stops count as convergence, budget-driven stops do not
func stopState(reason string) State {
	if strings.HasPrefix(reason, "acquisition_threshold") {
		return Converged
	}
	return BudgetExhausted
}

// column extracts one objective from row-major objective vectors
func column(rows [][]float64, m int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r[m]
	}
	return out
}

// acqObjective adapts the fitted posteriors into the acquisition surface
// the optimizer searches. Scores are deterministic per candidate because
// the Monte Carlo seed is derived from the point itself.
type acqObjective struct {
	posteriors []*fusion.FusedPosterior
	corr       *correlation.Matrix
	front      *pareto.Front
	params     acquisition.Params
	seed       int64
}

func (a *acqObjective) predict(x []float64) (means, variances []float64) {
	means = make([]float64, len(a.posteriors))
	variances = make([]float64, len(a.posteriors))
	for i, p := range a.posteriors {
		means[i], variances[i] = p.Predict(x)
	}
	return means, variances
}

func (a *acqObjective) Score(x []float64) (float64, error) {
	means, variances := a.predict(x)
	rng := utils.NewRandSource(utils.SeedForPoint(a.seed, x))
	return acquisition.CPoI(means, variances, a.corr, a.front, a.params, rng)
}

// ScoreAtNoise replaces every marginal variance with the fidelity noise
// floor, which is how the fidelity selection rule compares tiers
func (a *acqObjective) ScoreAtNoise(x []float64, noiseVar float64) (float64, error) {
	means, variances := a.predict(x)
	for i := range variances {
		variances[i] = noiseVar
	}
	rng := utils.NewRandSource(utils.SeedForPoint(a.seed, x))
	return acquisition.CPoI(means, variances, a.corr, a.front, a.params, rng)
}

// Fantasize returns a copy whose posteriors pretend x was observed at the
// posterior mean. The canonical log and front are never touched.
func (a *acqObjective) Fantasize(x []float64) (acqopt.Fantasizer, error) {
	posteriors := make([]*fusion.FusedPosterior, len(a.posteriors))
	for i, p := range a.posteriors {
		fp, err := p.WithFantasy(x)
		if err != nil {
			return nil, err
		}
		posteriors[i] = fp
	}
	return &acqObjective{
		posteriors: posteriors,
		corr:       a.corr,
		front:      a.front,
		params:     a.params,
		seed:       a.seed,
	}, nil
}
