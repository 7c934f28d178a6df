package config

// Config is the root configuration for one optimization experiment
type Config struct {
	LogLevel    string       `yaml:"log_level"`
	Seed        int64        `yaml:"seed"`
	Objectives  int          `yaml:"objectives"`
	Domain      Domain       `yaml:"domain"`
	Fidelities  []Fidelity   `yaml:"fidelities"`
	Kernel      Kernel       `yaml:"kernel"`
	Acquisition Acquisition  `yaml:"acquisition"`
	Optimizer   Optimizer    `yaml:"optimizer"`
	Bootstrap   Bootstrap    `yaml:"bootstrap"`
	Termination Termination  `yaml:"termination"`
	Evaluation  Evaluation   `yaml:"evaluation"`
}

// Domain describes the bounded continuous design space
type Domain struct {
	Bounds []Bound `yaml:"bounds"`
}

// Bound is a closed interval for one decision variable
type Bound struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Fidelity describes one evaluation fidelity. Fidelities are listed in
// ascending order of accuracy; the last entry is the highest fidelity.
type Fidelity struct {
	Name string `yaml:"name"`
	// Cost is the relative cost weight charged per evaluation
	Cost float64 `yaml:"cost"`
	// NoiseVar is the observation noise variance expected at this fidelity,
	// used by the cost-aware fidelity selection rule
	NoiseVar float64 `yaml:"noise_var"`
}

// Kernel selects the covariance family and hyperparameter search settings
type Kernel struct {
	// Family is "squared_exponential" or "matern52"
	Family string `yaml:"family"`
	// LogHyperMin and LogHyperMax bound every log-hyperparameter
	// (length-scales, signal variance, noise variance) during fitting
	LogHyperMin float64 `yaml:"log_hyper_min"`
	LogHyperMax float64 `yaml:"log_hyper_max"`
	// Restarts is the multi-start budget for likelihood maximization
	Restarts int `yaml:"restarts"`
}

// Acquisition configures the cPoI estimator
type Acquisition struct {
	// MonteCarloSamples is the number of joint posterior draws per candidate
	MonteCarloSamples int `yaml:"monte_carlo_samples"`
	// EmptyFront selects the bootstrap-phase behavior before any
	// high-fidelity observation exists: "improve-everywhere" (cPoI is 1
	// everywhere) or "explore-variance" (maximize summed fused variance).
	// There is no default; the value must be set explicitly.
	EmptyFront string `yaml:"empty_front"`
	// Correlation configures the inter-objective correlation estimator
	Correlation Correlation `yaml:"correlation"`
}

// Correlation configures the inter-objective correlation estimator
type Correlation struct {
	// Method is "residual" or "sampled"
	Method string `yaml:"method"`
	// Samples is the joint draw count for the "sampled" method
	Samples int `yaml:"samples"`
}

// Optimizer configures the acquisition maximization loop
type Optimizer struct {
	Restarts int `yaml:"restarts"`
	// MaxIterations bounds each local Nelder-Mead search
	MaxIterations int `yaml:"max_iterations"`
	// Epsilon is the acquisition floor below which a candidate counts as
	// degenerate
	Epsilon float64 `yaml:"epsilon"`
	// BatchSize is the number of candidates proposed per iteration (1 = no
	// batching)
	BatchSize int `yaml:"batch_size"`
}

// Bootstrap configures the initial sampling plan
type Bootstrap struct {
	// SamplesPerFidelity is aligned index-for-index with Fidelities
	SamplesPerFidelity []int `yaml:"samples_per_fidelity"`
}

// Termination configures the loop's stopping rules. At least one of
// MaxIterations and CostBudget must be positive.
type Termination struct {
	MaxIterations int     `yaml:"max_iterations"`
	CostBudget    float64 `yaml:"cost_budget"`
	// AcquisitionThreshold triggers convergence when the best acquisition
	// value stays below it for Patience consecutive iterations
	AcquisitionThreshold float64 `yaml:"acquisition_threshold"`
	Patience             int     `yaml:"patience"`
}

// Evaluation configures retry handling for external evaluator faults
type Evaluation struct {
	Retries int `yaml:"retries"`
	// Backoff is "constant", "linear" or "exponential"
	Backoff string `yaml:"backoff"`
	BaseMs  int    `yaml:"base_ms"`
}

// Empty-front policy names recognized in Acquisition.EmptyFront
const (
	EmptyFrontImproveEverywhere = "improve-everywhere"
	EmptyFrontExploreVariance   = "explore-variance"
)

// Kernel family names recognized in Kernel.Family
const (
	KernelSquaredExponential = "squared_exponential"
	KernelMatern52           = "matern52"
)

// Correlation method names recognized in Correlation.Method
const (
	CorrelationResidual = "residual"
	CorrelationSampled  = "sampled"
)

// HighestFidelity returns the index of the highest fidelity level
func (c *Config) HighestFidelity() int {
	return len(c.Fidelities) - 1
}

// BoundsSlice returns the domain bounds as [][2]float64 for samplers
func (c *Config) BoundsSlice() [][2]float64 {
	out := make([][2]float64, len(c.Domain.Bounds))
	for i, b := range c.Domain.Bounds {
		out[i] = [2]float64{b.Min, b.Max}
	}
	return out
}

// DefaultConfig returns a configuration suitable for small synthetic
// problems. Domain bounds, objective count and the empty-front policy must
// still be filled in by the caller.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "info",
		Seed:       1,
		Objectives: 2,
		Fidelities: []Fidelity{
			{Name: "low", Cost: 1, NoiseVar: 0.1},
			{Name: "high", Cost: 10, NoiseVar: 1e-4},
		},
		Kernel: Kernel{
			Family:      KernelSquaredExponential,
			LogHyperMin: -5,
			LogHyperMax: 5,
			Restarts:    5,
		},
		Acquisition: Acquisition{
			MonteCarloSamples: 2000,
			Correlation: Correlation{
				Method:  CorrelationResidual,
				Samples: 1000,
			},
		},
		Optimizer: Optimizer{
			Restarts:      10,
			MaxIterations: 200,
			Epsilon:       1e-6,
			BatchSize:     1,
		},
		Bootstrap: Bootstrap{
			SamplesPerFidelity: []int{5, 2},
		},
		Termination: Termination{
			MaxIterations:        20,
			AcquisitionThreshold: 1e-4,
			Patience:             3,
		},
		Evaluation: Evaluation{
			Retries: 2,
			Backoff: "exponential",
			BaseMs:  100,
		},
	}
}
