package fusion

import "fmt"

// InsufficientDataError indicates that too few co-located observations
// exist to estimate the fidelity correlation coefficient
type InsufficientDataError struct {
	Colocated int
	Needed    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("fidelity fusion needs %d co-located observations, found %d", e.Needed, e.Colocated)
}
