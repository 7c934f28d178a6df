package loop

// State is the phase the loop is in. Terminal states are Converged and
// BudgetExhausted.
type State int

const (
	// Bootstrapping collects the initial space-filling observations
	Bootstrapping State = iota
	// Modeling fits the surrogates, the fusion and the correlation matrix
	Modeling
	// Acquiring searches the domain for the next candidate
	Acquiring
	// Evaluating runs the external evaluator at the chosen fidelity
	Evaluating
	// Assimilating folds new observations into the log and the front
	Assimilating
	// Converged means a stopping rule based on model quality fired
	Converged
	// BudgetExhausted means the iteration or cost budget ran out
	BudgetExhausted
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Modeling:
		return "modeling"
	case Acquiring:
		return "acquiring"
	case Evaluating:
		return "evaluating"
	case Assimilating:
		return "assimilating"
	case Converged:
		return "converged"
	case BudgetExhausted:
		return "budget_exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the run
func (s State) Terminal() bool {
	return s == Converged || s == BudgetExhausted
}
