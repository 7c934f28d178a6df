package config

import (
	"fmt"
	"os"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	// Validate objectives
	if cfg.Objectives < 1 {
		return fmt.Errorf("objectives must be at least 1, got %d", cfg.Objectives)
	}

	// Validate domain bounds
	if len(cfg.Domain.Bounds) == 0 {
		return fmt.Errorf("at least one domain bound must be defined")
	}
	for i, b := range cfg.Domain.Bounds {
		if b.Min >= b.Max {
			return fmt.Errorf("domain bound %d: min (%f) must be below max (%f)", i, b.Min, b.Max)
		}
	}

	// Validate fidelities
	if len(cfg.Fidelities) == 0 {
		return fmt.Errorf("at least one fidelity must be defined")
	}
	fidelityNames := make(map[string]bool)
	for i, f := range cfg.Fidelities {
		if f.Name == "" {
			return fmt.Errorf("fidelity %d: name cannot be empty", i)
		}
		if fidelityNames[f.Name] {
			return fmt.Errorf("duplicate fidelity name: %s", f.Name)
		}
		fidelityNames[f.Name] = true
		if f.Cost <= 0 {
			return fmt.Errorf("fidelity %s: cost must be positive", f.Name)
		}
		if f.NoiseVar < 0 {
			return fmt.Errorf("fidelity %s: noise_var cannot be negative", f.Name)
		}
	}

	// Validate kernel
	switch cfg.Kernel.Family {
	case KernelSquaredExponential, KernelMatern52:
	default:
		return fmt.Errorf("unknown kernel family: %s", cfg.Kernel.Family)
	}
	if cfg.Kernel.LogHyperMin >= cfg.Kernel.LogHyperMax {
		return fmt.Errorf("kernel log_hyper_min must be below log_hyper_max")
	}
	if cfg.Kernel.Restarts < 1 {
		return fmt.Errorf("kernel restarts must be at least 1")
	}

	// Validate acquisition
	if cfg.Acquisition.MonteCarloSamples < 1 {
		return fmt.Errorf("acquisition monte_carlo_samples must be positive")
	}
	switch cfg.Acquisition.EmptyFront {
	case EmptyFrontImproveEverywhere, EmptyFrontExploreVariance:
	case "":
		// The bootstrap-phase acquisition behavior is deliberately not
		// defaulted; it changes where the first real samples land.
		return fmt.Errorf("acquisition empty_front must be set to %q or %q",
			EmptyFrontImproveEverywhere, EmptyFrontExploreVariance)
	default:
		return fmt.Errorf("unknown acquisition empty_front policy: %s", cfg.Acquisition.EmptyFront)
	}
	switch cfg.Acquisition.Correlation.Method {
	case CorrelationResidual:
	case CorrelationSampled:
		if cfg.Acquisition.Correlation.Samples < 1 {
			return fmt.Errorf("correlation samples must be positive for the sampled method")
		}
	default:
		return fmt.Errorf("unknown correlation method: %s", cfg.Acquisition.Correlation.Method)
	}

	// Validate optimizer
	if cfg.Optimizer.Restarts < 1 {
		return fmt.Errorf("optimizer restarts must be at least 1")
	}
	if cfg.Optimizer.MaxIterations < 1 {
		return fmt.Errorf("optimizer max_iterations must be at least 1")
	}
	if cfg.Optimizer.Epsilon < 0 {
		return fmt.Errorf("optimizer epsilon cannot be negative")
	}
	if cfg.Optimizer.BatchSize < 1 {
		return fmt.Errorf("optimizer batch_size must be at least 1")
	}

	// Validate bootstrap plan
	if len(cfg.Bootstrap.SamplesPerFidelity) != len(cfg.Fidelities) {
		return fmt.Errorf("bootstrap samples_per_fidelity must have one entry per fidelity (%d != %d)",
			len(cfg.Bootstrap.SamplesPerFidelity), len(cfg.Fidelities))
	}
	for i, n := range cfg.Bootstrap.SamplesPerFidelity {
		if n < 1 {
			return fmt.Errorf("bootstrap samples for fidelity %s must be at least 1", cfg.Fidelities[i].Name)
		}
	}

	// Validate termination
	if cfg.Termination.MaxIterations <= 0 && cfg.Termination.CostBudget <= 0 {
		return fmt.Errorf("termination requires max_iterations or cost_budget to be positive")
	}
	if cfg.Termination.AcquisitionThreshold > 0 && cfg.Termination.Patience < 1 {
		return fmt.Errorf("termination patience must be at least 1 when acquisition_threshold is set")
	}

	// Validate evaluation retry policy
	if cfg.Evaluation.Retries < 0 {
		return fmt.Errorf("evaluation retries cannot be negative")
	}
	switch cfg.Evaluation.Backoff {
	case "", "constant", "linear", "exponential":
	default:
		return fmt.Errorf("unknown evaluation backoff: %s", cfg.Evaluation.Backoff)
	}

	return nil
}
