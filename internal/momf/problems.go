// Package momf provides multi-objective benchmark problems with tunable
// evaluation resolution, used to exercise the optimization loop end to
// end.
package momf

import (
	"fmt"
	"math"
)

// Problem is a deterministic multi-objective benchmark. Eval returns the
// exact objective vector; resolution-dependent error is layered on by the
// evaluator.
type Problem interface {
	Name() string
	Dim() int
	Objectives() int
	Bounds() [][2]float64
	Eval(x []float64) []float64
}

// ByName returns the named benchmark problem
func ByName(name string) (Problem, error) {
	switch name {
	case "four-bar-truss":
		return FourBarTruss{}, nil
	case "vehicle-crash":
		return VehicleCrash{}, nil
	case "bi-sphere":
		return BiSphere{}, nil
	default:
		return nil, fmt.Errorf("unknown problem %q", name)
	}
}

// FourBarTruss is the four bar truss sizing problem: structural volume
// against joint displacement, four cross-section areas.
type FourBarTruss struct{}

// Truss constants: load, Young's modulus, member length, stress limit
const (
	trussF     = 10.0
	trussE     = 2e5
	trussL     = 200.0
	trussSigma = 10.0
)

func (FourBarTruss) Name() string    { return "four-bar-truss" }
func (FourBarTruss) Dim() int        { return 4 }
func (FourBarTruss) Objectives() int { return 2 }

func (FourBarTruss) Bounds() [][2]float64 {
	a := trussF / trussSigma
	return [][2]float64{
		{a, 3 * a},
		{math.Sqrt(2 * a), 3 * a},
		{math.Sqrt(2 * a), 3 * a},
		{a, 3 * a},
	}
}

func (FourBarTruss) Eval(x []float64) []float64 {
	f1 := trussL * (2*x[0] + math.Sqrt(2*x[1]) + math.Sqrt(x[2]) + x[3])
	f2 := trussF * trussL / trussE * (2/x[0] + 2*math.Sqrt2/x[1] - 2*math.Sqrt2/x[2] + 2/x[3])
	return []float64{f1, f2}
}

// VehicleCrash is the vehicle crashworthiness design problem: mass,
// acceleration and toe-board intrusion as polynomial response surfaces
// over five panel thicknesses.
type VehicleCrash struct{}

func (VehicleCrash) Name() string    { return "vehicle-crash" }
func (VehicleCrash) Dim() int        { return 5 }
func (VehicleCrash) Objectives() int { return 3 }

func (VehicleCrash) Bounds() [][2]float64 {
	b := make([][2]float64, 5)
	for i := range b {
		b[i] = [2]float64{1, 3}
	}
	return b
}

func (VehicleCrash) Eval(x []float64) []float64 {
	x1, x2, x3, x4, x5 := x[0], x[1], x[2], x[3], x[4]

	f1 := 1640.2823 + 2.3573285*x1 + 2.3220035*x2 + 4.5688768*x3 +
		7.7213633*x4 + 4.4559504*x5
	f2 := 6.5856 + 1.15*x1 - 1.0427*x2 + 0.9738*x3 + 0.8364*x4 -
		0.3695*x1*x4 + 0.0961*x1*x5 + 0.3628*x2*x4 -
		0.1106*x1*x1 - 0.3437*x3*x3 + 0.1764*x4*x4
	f3 := -0.0551 + 0.0181*x1 + 0.1024*x2 + 0.0421*x3 -
		0.0073*x1*x2 + 0.024*x2*x3 - 0.0118*x2*x4 -
		0.0204*x3*x4 - 0.008*x3*x5 - 0.0241*x2*x2 + 0.0109*x4*x4
	return []float64{f1, f2, f3}
}

// BiSphere is a smooth two-objective test problem with a known Pareto
// set: the segment between the two sphere centers
type BiSphere struct{}

func (BiSphere) Name() string    { return "bi-sphere" }
func (BiSphere) Dim() int        { return 2 }
func (BiSphere) Objectives() int { return 2 }

func (BiSphere) Bounds() [][2]float64 {
	return [][2]float64{{-2, 2}, {-2, 2}}
}

func (BiSphere) Eval(x []float64) []float64 {
	f1 := 0.0
	for _, v := range x {
		f1 += v * v
	}
	f2 := (x[0] - 1) * (x[0] - 1)
	for _, v := range x[1:] {
		f2 += v * v
	}
	return []float64{f1, f2}
}
