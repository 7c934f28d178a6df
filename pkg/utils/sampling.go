package utils

// LatinHypercube generates n points inside the given [min, max] bounds
// using Latin hypercube sampling: each dimension is divided into n equal
// strata and every stratum is hit exactly once, in a random order per
// dimension. This gives a space-filling design for bootstrap sampling and
// optimizer restart seeding.
func LatinHypercube(n int, bounds [][2]float64, r *RandSource) [][]float64 {
	if n <= 0 || len(bounds) == 0 {
		return nil
	}

	d := len(bounds)
	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, d)
	}

	for j := 0; j < d; j++ {
		perm := r.Perm(n)
		width := (bounds[j][1] - bounds[j][0]) / float64(n)
		for i := 0; i < n; i++ {
			// Uniform draw within the assigned stratum
			lo := bounds[j][0] + float64(perm[i])*width
			points[i][j] = lo + r.Float64()*width
		}
	}

	return points
}

// UniformSample generates n points uniformly at random within the bounds
func UniformSample(n int, bounds [][2]float64, r *RandSource) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		p := make([]float64, len(bounds))
		for j, b := range bounds {
			p[j] = r.UniformFloat64(b[0], b[1])
		}
		points[i] = p
	}
	return points
}
