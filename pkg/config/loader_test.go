package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
log_level: info
seed: 42
objectives: 2
domain:
  bounds:
    - {min: 0.0, max: 1.0}
    - {min: 0.0, max: 1.0}
fidelities:
  - {name: low, cost: 1.0, noise_var: 0.1}
  - {name: high, cost: 10.0, noise_var: 0.0001}
kernel:
  family: squared_exponential
  log_hyper_min: -5.0
  log_hyper_max: 5.0
  restarts: 3
acquisition:
  monte_carlo_samples: 1000
  empty_front: explore-variance
  correlation:
    method: residual
optimizer:
  restarts: 8
  max_iterations: 100
  epsilon: 0.000001
  batch_size: 1
bootstrap:
  samples_per_fidelity: [5, 2]
termination:
  max_iterations: 10
  acquisition_threshold: 0.0001
  patience: 3
evaluation:
  retries: 2
  backoff: exponential
  base_ms: 50
`

func TestParseValidConfig(t *testing.T) {
	cfg, err := ParseConfigYAMLString(validYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Objectives != 2 {
		t.Fatalf("expected 2 objectives, got %d", cfg.Objectives)
	}
	if len(cfg.Fidelities) != 2 || cfg.Fidelities[1].Name != "high" {
		t.Fatalf("unexpected fidelities: %+v", cfg.Fidelities)
	}
	if cfg.HighestFidelity() != 1 {
		t.Fatalf("expected highest fidelity index 1")
	}
	bounds := cfg.BoundsSlice()
	if len(bounds) != 2 || bounds[0][1] != 1.0 {
		t.Fatalf("unexpected bounds: %v", bounds)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Seed != 42 {
		t.Fatalf("expected seed 42, got %d", cfg.Seed)
	}
}

func TestEmptyFrontPolicyRequired(t *testing.T) {
	yaml := strings.Replace(validYAML, "  empty_front: explore-variance\n", "", 1)
	_, err := ParseConfigYAMLString(yaml)
	if err == nil {
		t.Fatalf("expected error for missing empty_front policy")
	}
	if !strings.Contains(err.Error(), "empty_front") {
		t.Fatalf("error should mention empty_front, got: %v", err)
	}
}

func TestInvalidConfigs(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "bad kernel family",
			mutate:  func(s string) string { return strings.Replace(s, "squared_exponential", "periodic", 1) },
			wantErr: "kernel family",
		},
		{
			name:    "bootstrap mismatch",
			mutate:  func(s string) string { return strings.Replace(s, "[5, 2]", "[5]", 1) },
			wantErr: "samples_per_fidelity",
		},
		{
			name:    "zero cost fidelity",
			mutate:  func(s string) string { return strings.Replace(s, "cost: 10.0", "cost: 0.0", 1) },
			wantErr: "cost must be positive",
		},
		{
			name:    "inverted bound",
			mutate:  func(s string) string { return strings.Replace(s, "{min: 0.0, max: 1.0}\n    - {min: 0.0, max: 1.0}", "{min: 1.0, max: 0.0}\n    - {min: 0.0, max: 1.0}", 1) },
			wantErr: "min",
		},
		{
			name: "no termination budget",
			mutate: func(s string) string {
				return strings.Replace(s, "termination:\n  max_iterations: 10", "termination:\n  max_iterations: 0", 1)
			},
			wantErr: "termination",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfigYAMLString(tc.mutate(validYAML))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got: %v", tc.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValidatesWithDomain(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Domain.Bounds = []Bound{{Min: 0, Max: 1}}
	cfg.Acquisition.EmptyFront = EmptyFrontExploreVariance
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config with domain should validate: %v", err)
	}
}
