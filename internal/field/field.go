// Package field holds the density state of the spatial SIR models.
package field

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/epifield/internal/grid"
)

// ErrInvalidInitializer indicates an initializer function produced a
// non-finite value.
var ErrInvalidInitializer = errors.New("field: invalid initializer")

// InitFunc1D returns the initial (S, I, R) densities at coordinate x.
type InitFunc1D func(x float64) (s, i, r float64)

// InitFunc2D returns the initial (S, I, R) densities at (x, y).
type InitFunc2D func(x, y float64) (s, i, r float64)

// State1D is the density state of a 1D spatial SIR model: one value per
// grid point for each of S, I and R. A solver owns it exclusively and
// mutates it in place.
type State1D struct {
	Grid    *grid.Uniform1D
	S, I, R []float64
	Time    float64
}

// NewState1D evaluates initfunc at every grid point. All returned values
// must be finite.
func NewState1D(g *grid.Uniform1D, initfunc InitFunc1D) (*State1D, error) {
	st := &State1D{
		Grid: g,
		S:    make([]float64, g.Len()),
		I:    make([]float64, g.Len()),
		R:    make([]float64, g.Len()),
	}
	for i := 0; i < g.Len(); i++ {
		x := g.Coord(i)
		s, inf, r := initfunc(x)
		if !finite(s) || !finite(inf) || !finite(r) {
			return nil, fmt.Errorf("%w: non-finite value at x=%g", ErrInvalidInitializer, x)
		}
		st.S[i], st.I[i], st.R[i] = s, inf, r
	}
	return st, nil
}

// TotalMass returns the grid-cell-weighted sum over all three fields.
func (st *State1D) TotalMass() float64 {
	dx := st.Grid.Spacing()
	return (floats.Sum(st.S) + floats.Sum(st.I) + floats.Sum(st.R)) * dx
}

// State2D is the density state of a 2D spatial SIR model. Fields are
// flat, row-major with y as the row index (flat index iy*N + ix).
type State2D struct {
	Grid    *grid.Uniform2D
	S, I, R []float64
	Time    float64
}

// NewState2D evaluates initfunc at every grid point. All returned values
// must be finite.
func NewState2D(g *grid.Uniform2D, initfunc InitFunc2D) (*State2D, error) {
	st := &State2D{
		Grid: g,
		S:    make([]float64, g.Len()),
		I:    make([]float64, g.Len()),
		R:    make([]float64, g.Len()),
	}
	for iy := 0; iy < g.N; iy++ {
		for ix := 0; ix < g.N; ix++ {
			x, y := g.Coord(ix), g.Coord(iy)
			s, inf, r := initfunc(x, y)
			if !finite(s) || !finite(inf) || !finite(r) {
				return nil, fmt.Errorf("%w: non-finite value at (%g, %g)", ErrInvalidInitializer, x, y)
			}
			idx := g.Index(ix, iy)
			st.S[idx], st.I[idx], st.R[idx] = s, inf, r
		}
	}
	return st, nil
}

// TotalMass returns the grid-cell-weighted sum over all three fields.
func (st *State2D) TotalMass() float64 {
	dx := st.Grid.Spacing()
	return (floats.Sum(st.S) + floats.Sum(st.I) + floats.Sum(st.R)) * dx * dx
}

// Lumped is the state of the spatially homogeneous SIR model.
type Lumped struct {
	S, I, R float64
	Time    float64
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
