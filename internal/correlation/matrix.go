// Package correlation estimates the correlation structure between
// objectives from the fitted surrogates and repairs the estimate into a
// valid correlation matrix.
package correlation

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a symmetric correlation matrix with unit diagonal
type Matrix struct {
	m *mat.SymDense
}

// Identity returns the n-by-n identity correlation matrix
func Identity(n int) *Matrix {
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		m.SetSym(i, i, 1)
	}
	return &Matrix{m: m}
}

// Dim returns the number of objectives
func (c *Matrix) Dim() int {
	return c.m.SymmetricDim()
}

// At returns the correlation between objectives i and j
func (c *Matrix) At(i, j int) float64 {
	return c.m.At(i, j)
}

// Sym returns a copy of the underlying symmetric matrix
func (c *Matrix) Sym() *mat.SymDense {
	n := c.m.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	out.CopySym(c.m)
	return out
}

// NearestCorrelation projects a symmetric matrix onto the set of valid
// correlation matrices: negative eigenvalues are clipped at zero, the
// result is rescaled to a unit diagonal. Returns the repaired matrix and
// the Frobenius norm of the adjustment.
func NearestCorrelation(a *mat.SymDense) (*Matrix, float64) {
	n := a.SymmetricDim()

	var eig mat.EigenSym
	if !eig.Factorize(a, true) {
		// Eigendecomposition of a small symmetric matrix should not fail;
		// fall back to the identity if it does
		ident := Identity(n)
		var diff mat.Dense
		diff.Sub(a, ident.m)
		return ident, mat.Norm(&diff, 2)
	}

	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	clipped := false
	for i, v := range values {
		if v < 0 {
			values[i] = 0
			clipped = true
		}
	}

	repaired := mat.NewSymDense(n, nil)
	if clipped {
		// Reconstruct V diag(values) V^T
		scaled := mat.NewDense(n, n, nil)
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				scaled.Set(i, j, vectors.At(i, j)*values[j])
			}
		}
		var rec mat.Dense
		rec.Mul(scaled, vectors.T())
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				repaired.SetSym(i, j, 0.5*(rec.At(i, j)+rec.At(j, i)))
			}
		}
	} else {
		repaired.CopySym(a)
	}

	// Rescale to a unit diagonal
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			d := repaired.At(i, i) * repaired.At(j, j)
			if d <= 0 {
				out.SetSym(i, j, 0)
				continue
			}
			v := repaired.At(i, j) / math.Sqrt(d)
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			out.SetSym(i, j, v)
		}
	}

	var diff mat.Dense
	diff.Sub(a, out)
	return &Matrix{m: out}, mat.Norm(&diff, 2)
}
