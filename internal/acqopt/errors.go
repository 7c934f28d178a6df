package acqopt

import "fmt"

// NoFeasibleCandidateError indicates that every restart finished at or
// below the acquisition threshold
type NoFeasibleCandidateError struct {
	BestScore float64
	Epsilon   float64
}

func (e *NoFeasibleCandidateError) Error() string {
	return fmt.Sprintf("no candidate scored above %g (best %g)", e.Epsilon, e.BestScore)
}
