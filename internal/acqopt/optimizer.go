// Package acqopt maximizes the acquisition function over the design
// domain with Latin hypercube seeded multi-start local search, and selects
// the evaluation fidelity for the winning candidate.
package acqopt

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/optimize"

	"github.com/ThoriDay/cpoi-mobo/pkg/utils"
)

// Objective is the acquisition surface being maximized. Scores must be
// deterministic functions of the candidate.
type Objective interface {
	// Score returns the acquisition value at x
	Score(x []float64) (float64, error)
	// ScoreAtNoise returns the acquisition value at x with every
	// marginal variance replaced by the given observation noise. Used
	// for fidelity selection.
	ScoreAtNoise(x []float64, noiseVar float64) (float64, error)
}

// Fantasizer extends an objective with hallucinated observations for
// greedy batch construction
type Fantasizer interface {
	Objective
	// Fantasize returns a new objective that behaves as if x had already
	// been evaluated at its posterior mean
	Fantasize(x []float64) (Fantasizer, error)
}

// Config controls the search
type Config struct {
	Bounds        [][2]float64
	Restarts      int
	MaxIterations int
	// Epsilon is the acquisition threshold; a best score at or below it
	// yields NoFeasibleCandidateError
	Epsilon float64
	Seed    int64
	// BatchSize is the number of proposals built by ProposeBatch
	BatchSize int
}

// Fidelity describes one evaluation tier for selection purposes
type Fidelity struct {
	Name     string
	Cost     float64
	NoiseVar float64
}

// Proposal is a candidate returned by the search
type Proposal struct {
	X     []float64
	Score float64
}

// Propose runs the multi-start search and returns the best candidate.
// Restarts run concurrently; the result is deterministic for a fixed seed
// because every restart is independent and the best is chosen by score
// with the restart index as tiebreak.
func Propose(ctx context.Context, obj Objective, cfg Config) (Proposal, error) {
	if len(cfg.Bounds) == 0 {
		return Proposal{}, fmt.Errorf("domain bounds are required")
	}
	if cfg.Restarts <= 0 {
		cfg.Restarts = 1
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 100
	}

	seeds := utils.LatinHypercube(cfg.Restarts, cfg.Bounds, utils.NewRandSource(cfg.Seed))

	results := make([]Proposal, cfg.Restarts)
	g, ctx := errgroup.WithContext(ctx)
	for i := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = localSearch(obj, seeds[i], cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Proposal{}, err
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.Score > best.Score {
			best = r
		}
	}
	if best.X == nil || best.Score <= cfg.Epsilon {
		return Proposal{}, &NoFeasibleCandidateError{BestScore: best.Score, Epsilon: cfg.Epsilon}
	}
	return best, nil
}

// ProposeBatch greedily builds a batch: after each proposal the objective
// is fantasized at the winner so later proposals spread out. The first
// failure to reach the threshold ends the batch early; at least one
// proposal is required.
func ProposeBatch(ctx context.Context, obj Fantasizer, cfg Config) ([]Proposal, error) {
	size := cfg.BatchSize
	if size <= 0 {
		size = 1
	}

	var batch []Proposal
	current := obj
	for k := 0; k < size; k++ {
		sub := cfg
		sub.Seed = cfg.Seed + int64(k)
		p, err := Propose(ctx, current, sub)
		if err != nil {
			var infeasible *NoFeasibleCandidateError
			if len(batch) > 0 && errors.As(err, &infeasible) {
				break
			}
			return nil, err
		}
		batch = append(batch, p)
		if k == size-1 {
			break
		}

		current, err = current.Fantasize(p.X)
		if err != nil {
			return nil, fmt.Errorf("fantasizing proposal %d: %w", k, err)
		}
	}
	return batch, nil
}

// SelectFidelity scores the winning candidate under each fidelity's noise
// floor, weights by cost and returns the index of the best tier. Ties go
// to the cheaper fidelity.
func SelectFidelity(x []float64, obj Objective, fidelities []Fidelity) (int, error) {
	if len(fidelities) == 0 {
		return 0, fmt.Errorf("no fidelities to select from")
	}

	bestIdx := -1
	bestValue := math.Inf(-1)
	for i, f := range fidelities {
		if f.Cost <= 0 {
			return 0, fmt.Errorf("fidelity %q has non-positive cost %g", f.Name, f.Cost)
		}
		score, err := obj.ScoreAtNoise(x, f.NoiseVar)
		if err != nil {
			return 0, fmt.Errorf("scoring fidelity %q: %w", f.Name, err)
		}
		value := score / f.Cost
		switch {
		case value > bestValue:
			bestIdx, bestValue = i, value
		case value == bestValue && bestIdx >= 0 && f.Cost < fidelities[bestIdx].Cost:
			bestIdx = i
		}
	}
	return bestIdx, nil
}

// localSearch runs one Nelder-Mead descent of the negated score from the
// given seed. Failures score negative infinity so other restarts win.
func localSearch(obj Objective, seed []float64, cfg Config) Proposal {
	neg := func(x []float64) float64 {
		clamped, penalty := clampToBounds(x, cfg.Bounds)
		score, err := obj.Score(clamped)
		if err != nil {
			return math.Inf(1)
		}
		return -score + penalty
	}

	best := seed
	bestScore := scoreAt(obj, seed, cfg.Bounds)

	problem := optimize.Problem{Func: neg}
	settings := &optimize.Settings{MajorIterations: cfg.MaxIterations}
	result, err := optimize.Minimize(problem, seed, settings, &optimize.NelderMead{})
	if err == nil || result != nil {
		clamped, _ := clampToBounds(result.X, cfg.Bounds)
		if s := scoreAt(obj, clamped, cfg.Bounds); s > bestScore {
			best, bestScore = clamped, s
		}
	}

	out := make([]float64, len(best))
	copy(out, best)
	return Proposal{X: out, Score: bestScore}
}

func scoreAt(obj Objective, x []float64, bounds [][2]float64) float64 {
	clamped, _ := clampToBounds(x, bounds)
	s, err := obj.Score(clamped)
	if err != nil {
		return math.Inf(-1)
	}
	return s
}

func clampToBounds(x []float64, bounds [][2]float64) (clamped []float64, penalty float64) {
	clamped = make([]float64, len(x))
	for i, v := range x {
		clamped[i] = utils.ClampFloat64(v, bounds[i][0], bounds[i][1])
	}
	penalty = 100 * utils.SquaredDistance(x, clamped)
	return clamped, penalty
}
