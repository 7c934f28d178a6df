package momf

import (
	"context"
	"math"
	"testing"

	"github.com/ThoriDay/cpoi-mobo/pkg/utils"
)

func TestByName(t *testing.T) {
	for _, name := range []string{"four-bar-truss", "vehicle-crash", "bi-sphere"} {
		p, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q) failed: %v", name, err)
		}
		if p.Name() != name {
			t.Fatalf("problem reports name %q, want %q", p.Name(), name)
		}
		if p.Dim() != len(p.Bounds()) {
			t.Fatalf("%q: bounds length %d does not match dimension %d", name, len(p.Bounds()), p.Dim())
		}
	}
	if _, err := ByName("nope"); err == nil {
		t.Fatalf("unknown problem must be rejected")
	}
}

func TestFourBarTrussValues(t *testing.T) {
	p := FourBarTruss{}
	x := []float64{1, math.Sqrt2, math.Sqrt2, 1}
	y := p.Eval(x)

	wantF1 := 200 * (2 + math.Pow(2, 0.75) + math.Pow(2, 0.25) + 1)
	if math.Abs(y[0]-wantF1) > 1e-9 {
		t.Fatalf("volume objective: got %f, want %f", y[0], wantF1)
	}
	// The displacement terms from the diagonal members cancel at equal
	// areas, leaving the two straight members
	wantF2 := 10.0 * 200 / 2e5 * 4
	if math.Abs(y[1]-wantF2) > 1e-9 {
		t.Fatalf("displacement objective: got %f, want %f", y[1], wantF2)
	}
}

func TestBiSphereKnownPoints(t *testing.T) {
	p := BiSphere{}
	cases := []struct {
		x    []float64
		want []float64
	}{
		{[]float64{0, 0}, []float64{0, 1}},
		{[]float64{1, 0}, []float64{1, 0}},
		{[]float64{0.5, 0}, []float64{0.25, 0.25}},
	}
	for _, tc := range cases {
		y := p.Eval(tc.x)
		for i := range y {
			if math.Abs(y[i]-tc.want[i]) > 1e-12 {
				t.Fatalf("Eval(%v) = %v, want %v", tc.x, y, tc.want)
			}
		}
	}
}

func TestVehicleCrashMassIncreasesWithThickness(t *testing.T) {
	p := VehicleCrash{}
	thin := p.Eval([]float64{1, 1, 1, 1, 1})
	thick := p.Eval([]float64{3, 3, 3, 3, 3})
	if thick[0] <= thin[0] {
		t.Fatalf("mass must grow with panel thickness: %f vs %f", thin[0], thick[0])
	}
}

func TestResolutionErrorVanishesAtMax(t *testing.T) {
	bounds := [][2]float64{{-2, 2}, {-2, 2}}
	e := ResolutionError(ErrLinear, []float64{0.3, -1.1}, bounds, MaxResolution)
	if e != 0 {
		t.Fatalf("linear variant must vanish at full resolution, got %g", e)
	}

	e = ResolutionError(ErrExponential, []float64{0.3, -1.1}, bounds, MaxResolution)
	if e == 0 {
		t.Fatalf("exponential variant never reaches exactly zero")
	}
}

func TestResolutionErrorBoundedByTheta(t *testing.T) {
	bounds := [][2]float64{{-2, 2}, {-2, 2}}
	points := utils.UniformSample(25, bounds, utils.NewRandSource(1))
	for _, phi := range []float64{0, 2500, 5000, 9000} {
		limit := 2 * (1 - 1e-4*phi)
		for _, x := range points {
			e := ResolutionError(ErrLinear, x, bounds, phi)
			if math.Abs(e) > limit+1e-12 {
				t.Fatalf("error %g exceeds amplitude bound %g at phi %g", e, limit, phi)
			}
		}
	}
}

func TestEvaluatorFidelityMapping(t *testing.T) {
	ev, err := NewEvaluator(BiSphere{}, []float64{1000, MaxResolution}, ErrLinear)
	if err != nil {
		t.Fatalf("NewEvaluator failed: %v", err)
	}

	x := []float64{0.5, 0.5}
	exact := BiSphere{}.Eval(x)

	high, highNoise, err := ev.Evaluate(context.Background(), x, 1)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	for i := range high {
		if high[i] != exact[i] {
			t.Fatalf("full resolution must match the exact objectives: %v vs %v", high, exact)
		}
	}
	if highNoise != nil {
		t.Fatalf("full resolution must not report noise, got %v", highNoise)
	}

	low, lowNoise, err := ev.Evaluate(context.Background(), x, 0)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if low[0] == exact[0] && low[1] == exact[1] {
		t.Fatalf("low resolution should perturb the objectives")
	}
	// The same perturbation is applied to every objective
	if math.Abs((low[0]-exact[0])-(low[1]-exact[1])) > 1e-12 {
		t.Fatalf("perturbation must be shared across objectives")
	}
	if len(lowNoise) != 2 || lowNoise[0] <= 0 || lowNoise[0] != lowNoise[1] {
		t.Fatalf("low resolution must report the same positive noise estimate per objective, got %v", lowNoise)
	}
	// Two dimensions, theta = 1 - 1e-4 * 1000
	want := 2 * 0.9 * 0.9 / 2
	if math.Abs(lowNoise[0]-want) > 1e-12 {
		t.Fatalf("noise estimate %g, want %g", lowNoise[0], want)
	}
}

func TestEvaluatorRejectsBadInput(t *testing.T) {
	ev, err := NewEvaluator(BiSphere{}, []float64{1000, MaxResolution}, ErrLinear)
	if err != nil {
		t.Fatalf("NewEvaluator failed: %v", err)
	}

	if _, _, err := ev.Evaluate(context.Background(), []float64{0, 0}, 5); err == nil {
		t.Fatalf("out-of-range fidelity must be rejected")
	}
	if _, _, err := ev.Evaluate(context.Background(), []float64{0}, 0); err == nil {
		t.Fatalf("dimension mismatch must be rejected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := ev.Evaluate(ctx, []float64{0, 0}, 0); err == nil {
		t.Fatalf("cancelled context must abort the evaluation")
	}

	if _, err := NewEvaluator(BiSphere{}, nil, ErrLinear); err == nil {
		t.Fatalf("empty resolution list must be rejected")
	}
	if _, err := NewEvaluator(BiSphere{}, []float64{-1}, ErrLinear); err == nil {
		t.Fatalf("negative resolution must be rejected")
	}
}
