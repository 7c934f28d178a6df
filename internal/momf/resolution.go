package momf

import "math"

// Resolution error functions after Wang et al.: a low-resolution
// evaluation perturbs the exact objectives with a smooth oscillation whose
// amplitude and frequency shrink as the resolution parameter phi
// approaches its maximum of 10000.

// MaxResolution is the resolution at which the error vanishes (e_r1) or
// is smallest (e_r2)
const MaxResolution = 10000.0

// ErrorVariant selects how the oscillation amplitude decays with
// resolution
type ErrorVariant string

const (
	// ErrLinear decays linearly in phi and reaches exactly zero at
	// MaxResolution
	ErrLinear ErrorVariant = "linear"
	// ErrExponential decays exponentially and never quite vanishes
	ErrExponential ErrorVariant = "exponential"
)

// theta maps the resolution to the oscillation scale in [0, 1]
func theta(variant ErrorVariant, phi float64) float64 {
	switch variant {
	case ErrExponential:
		return math.Exp(-2.5e-4 * phi)
	default:
		return 1 - 1e-4*phi
	}
}

// ResolutionError returns the perturbation added to every objective at
// the given input and resolution. The input is rescaled per dimension
// into [-1, 1] before the oscillation is applied.
func ResolutionError(variant ErrorVariant, x []float64, bounds [][2]float64, phi float64) float64 {
	t := theta(variant, phi)
	a := t
	w := 10 * math.Pi * t
	b := 0.5 * math.Pi * t

	e := 0.0
	for d, v := range x {
		lo, hi := bounds[d][0], bounds[d][1]
		scaled := v
		if hi > lo {
			scaled = 2*(v-lo)/(hi-lo) - 1
		}
		e += a * math.Cos(w*scaled+b+math.Pi)
	}
	return e
}
