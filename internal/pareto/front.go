// Package pareto maintains the set of non-dominated objective vectors
// discovered so far. All objectives are minimized.
package pareto

import (
	"fmt"
	"sort"
)

// Dominates reports whether a dominates b under minimization: a is at most
// b in every objective and strictly below in at least one
func Dominates(a, b []float64) bool {
	if len(a) != len(b) {
		panic(fmt.Sprintf("pareto: objective count mismatch %d vs %d", len(a), len(b)))
	}
	strict := false
	for i := range a {
		if a[i] > b[i] {
			return false
		}
		if a[i] < b[i] {
			strict = true
		}
	}
	return strict
}

// Point is one member of the front. Tag identifies the originating
// observation (iteration index) for reporting.
type Point struct {
	Objectives []float64
	Tag        int
}

// Front is the current non-dominated set
type Front struct {
	points []Point
}

// NewFront creates an empty front
func NewFront() *Front {
	return &Front{}
}

// Len returns the number of front members
func (f *Front) Len() int {
	return len(f.points)
}

// Points returns a copy of the front members
func (f *Front) Points() []Point {
	out := make([]Point, len(f.points))
	for i, p := range f.points {
		objs := make([]float64, len(p.Objectives))
		copy(objs, p.Objectives)
		out[i] = Point{Objectives: objs, Tag: p.Tag}
	}
	return out
}

// Insert adds an objective vector to the front if it is not dominated,
// evicting any members it dominates. Returns true if the vector joined the
// front.
func (f *Front) Insert(objs []float64, tag int) bool {
	for _, p := range f.points {
		if Dominates(p.Objectives, objs) {
			return false
		}
	}

	kept := f.points[:0]
	for _, p := range f.points {
		if !Dominates(objs, p.Objectives) {
			kept = append(kept, p)
		}
	}
	f.points = kept

	v := make([]float64, len(objs))
	copy(v, objs)
	f.points = append(f.points, Point{Objectives: v, Tag: tag})
	return true
}

// ImprovedBy reports whether the vector improves the front: no member
// dominates it. An empty front is improved by any vector.
func (f *Front) ImprovedBy(objs []float64) bool {
	for _, p := range f.points {
		if Dominates(p.Objectives, objs) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the front
func (f *Front) Clone() *Front {
	return &Front{points: f.Points()}
}

// Hypervolume2D computes the hypervolume of a two-objective front with
// respect to a reference point that every member must dominate. Members
// outside the reference box contribute nothing.
func (f *Front) Hypervolume2D(ref []float64) float64 {
	if len(ref) != 2 {
		panic("pareto: Hypervolume2D requires a 2-dimensional reference point")
	}

	// Keep members strictly inside the reference box
	inside := make([]Point, 0, len(f.points))
	for _, p := range f.points {
		if len(p.Objectives) != 2 {
			panic("pareto: Hypervolume2D requires 2-objective points")
		}
		if p.Objectives[0] < ref[0] && p.Objectives[1] < ref[1] {
			inside = append(inside, p)
		}
	}
	if len(inside) == 0 {
		return 0
	}

	sort.Slice(inside, func(i, j int) bool {
		return inside[i].Objectives[0] < inside[j].Objectives[0]
	})

	// Sweep in f1; each member contributes a rectangle down to the next
	// member's f2 level
	volume := 0.0
	prevF2 := ref[1]
	for _, p := range inside {
		width := ref[0] - p.Objectives[0]
		height := prevF2 - p.Objectives[1]
		if height > 0 {
			volume += width * height
			prevF2 = p.Objectives[1]
		}
	}
	return volume
}
