package loop

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Observation is one completed evaluation. The log holds real
// evaluations only; fantasized observations used during batch
// construction never enter it.
type Observation struct {
	Iteration    int       `json:"iteration"`
	X            []float64 `json:"x"`
	Fidelity     int       `json:"fidelity"`
	FidelityName string    `json:"fidelity_name"`
	Objectives   []float64 `json:"objectives"`
	// Noise holds the evaluator's per-objective noise variance estimate
	// when it reported one
	Noise           []float64 `json:"noise,omitempty"`
	Cost            float64   `json:"cost"`
	CreatedAtUnixMs int64     `json:"created_at_unix_ms"`
}

// ObservationLog is the append-only record of every evaluation. A run can
// be replayed from its log alone.
type ObservationLog struct {
	mu  sync.RWMutex
	obs []Observation
}

// NewObservationLog creates an empty log
func NewObservationLog() *ObservationLog {
	return &ObservationLog{}
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

// Append records an observation. The stored copy owns its slices.
func (l *ObservationLog) Append(o Observation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	x := make([]float64, len(o.X))
	copy(x, o.X)
	y := make([]float64, len(o.Objectives))
	copy(y, o.Objectives)
	o.X = x
	o.Objectives = y
	if o.Noise != nil {
		n := make([]float64, len(o.Noise))
		copy(n, o.Noise)
		o.Noise = n
	}
	if o.CreatedAtUnixMs == 0 {
		o.CreatedAtUnixMs = nowUnixMs()
	}
	l.obs = append(l.obs, o)
}

// Len returns the number of observations
func (l *ObservationLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.obs)
}

// All returns a copy of every observation in append order
func (l *ObservationLog) All() []Observation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Observation, len(l.obs))
	copy(out, l.obs)
	return out
}

// TotalCost returns the summed evaluation cost
func (l *ObservationLog) TotalCost() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := 0.0
	for _, o := range l.obs {
		total += o.Cost
	}
	return total
}

// AtFidelity returns the inputs and objective rows recorded at the given
// fidelity level
func (l *ObservationLog) AtFidelity(level int) (X [][]float64, Y [][]float64) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, o := range l.obs {
		if o.Fidelity != level {
			continue
		}
		X = append(X, o.X)
		Y = append(Y, o.Objectives)
	}
	return X, Y
}

// BelowFidelity returns the inputs and objective rows recorded below the
// given fidelity level
func (l *ObservationLog) BelowFidelity(level int) (X [][]float64, Y [][]float64) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, o := range l.obs {
		if o.Fidelity >= level {
			continue
		}
		X = append(X, o.X)
		Y = append(Y, o.Objectives)
	}
	return X, Y
}

// Save writes the log as JSON to the given path
func (l *ObservationLog) Save(path string) error {
	l.mu.RLock()
	data, err := json.MarshalIndent(l.obs, "", "  ")
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding observation log: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing observation log: %w", err)
	}
	return nil
}

// LoadObservationLog reads a log saved with Save
func LoadObservationLog(path string) (*ObservationLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading observation log: %w", err)
	}
	var obs []Observation
	if err := json.Unmarshal(data, &obs); err != nil {
		return nil, fmt.Errorf("decoding observation log: %w", err)
	}
	return &ObservationLog{obs: obs}, nil
}
