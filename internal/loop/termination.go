package loop

import "fmt"

// Status is the snapshot a termination strategy inspects after each
// iteration
type Status struct {
	// Iteration is the number of completed acquisition iterations
	Iteration int
	// TotalCost is the summed evaluation cost including bootstrap
	TotalCost float64
	// AcquisitionScores holds the winning acquisition value of each
	// completed iteration in order
	AcquisitionScores []float64
}

// TerminationStrategy decides when the loop should stop
type TerminationStrategy interface {
	// ShouldStop reports whether to stop and why
	ShouldStop(s Status) (bool, string)
	// Name returns the strategy name
	Name() string
}

// MaxIterationsStrategy stops after a fixed number of iterations
type MaxIterationsStrategy struct {
	Max int
}

func (s *MaxIterationsStrategy) Name() string { return "max_iterations" }

func (s *MaxIterationsStrategy) ShouldStop(st Status) (bool, string) {
	if s.Max <= 0 {
		return false, ""
	}
	if st.Iteration >= s.Max {
		return true, fmt.Sprintf("reached %d iterations", s.Max)
	}
	return false, ""
}

// CostBudgetStrategy stops once the accumulated evaluation cost reaches
// the budget
type CostBudgetStrategy struct {
	Budget float64
}

func (s *CostBudgetStrategy) Name() string { return "cost_budget" }

func (s *CostBudgetStrategy) ShouldStop(st Status) (bool, string) {
	if s.Budget <= 0 {
		return false, ""
	}
	if st.TotalCost >= s.Budget {
		return true, fmt.Sprintf("cost %.2f reached budget %.2f", st.TotalCost, s.Budget)
	}
	return false, ""
}

// AcquisitionThresholdStrategy stops when the winning acquisition value
// has stayed at or below the threshold for a run of consecutive
// iterations
type AcquisitionThresholdStrategy struct {
	Threshold float64
	Patience  int
}

func (s *AcquisitionThresholdStrategy) Name() string { return "acquisition_threshold" }

func (s *AcquisitionThresholdStrategy) ShouldStop(st Status) (bool, string) {
	patience := s.Patience
	if patience <= 0 {
		patience = 1
	}
	if len(st.AcquisitionScores) < patience {
		return false, ""
	}
	recent := st.AcquisitionScores[len(st.AcquisitionScores)-patience:]
	for _, v := range recent {
		if v > s.Threshold {
			return false, ""
		}
	}
	return true, fmt.Sprintf("acquisition at or below %g for %d iterations", s.Threshold, patience)
}

// CombinedStrategy stops as soon as any member strategy stops
type CombinedStrategy struct {
	strategies []TerminationStrategy
}

// NewCombinedStrategy builds a combined strategy from its members
func NewCombinedStrategy(strategies ...TerminationStrategy) *CombinedStrategy {
	return &CombinedStrategy{strategies: strategies}
}

func (s *CombinedStrategy) Name() string { return "combined" }

func (s *CombinedStrategy) ShouldStop(st Status) (bool, string) {
	for _, strategy := range s.strategies {
		if stop, reason := strategy.ShouldStop(st); stop {
			return true, fmt.Sprintf("%s: %s", strategy.Name(), reason)
		}
	}
	return false, ""
}
