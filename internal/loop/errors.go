package loop

import "fmt"

// EvaluationFailedError indicates that an evaluation kept failing after
// every retry
type EvaluationFailedError struct {
	X        []float64
	Fidelity string
	Attempts int
	Err      error
}

func (e *EvaluationFailedError) Error() string {
	return fmt.Sprintf("evaluation at fidelity %q failed after %d attempts: %v", e.Fidelity, e.Attempts, e.Err)
}

func (e *EvaluationFailedError) Unwrap() error {
	return e.Err
}

// InsufficientBootstrapError indicates that the bootstrap configuration
// cannot produce enough observations to fit the initial models
type InsufficientBootstrapError struct {
	Fidelity string
	Got      int
	Need     int
}

func (e *InsufficientBootstrapError) Error() string {
	return fmt.Sprintf("fidelity %q bootstraps %d samples, need at least %d", e.Fidelity, e.Got, e.Need)
}
