package gp

import "fmt"

// NumericalInstabilityError indicates that the Gram matrix could not be
// factorized even after exhausting jitter escalation
type NumericalInstabilityError struct {
	Size      int
	MaxJitter float64
}

func (e *NumericalInstabilityError) Error() string {
	return fmt.Sprintf("gram matrix of size %d not positive definite after jitter up to %g", e.Size, e.MaxJitter)
}

// OptimizationDivergedError indicates that no hyperparameter candidate
// reached a log marginal likelihood above the configured floor
type OptimizationDivergedError struct {
	Restarts          int
	BestLogLikelihood float64
	Floor             float64
}

func (e *OptimizationDivergedError) Error() string {
	return fmt.Sprintf("hyperparameter search diverged after %d restarts (best log likelihood %g, floor %g)",
		e.Restarts, e.BestLogLikelihood, e.Floor)
}
