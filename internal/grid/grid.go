// Package grid provides equidistant spatial grids for field solvers.
package grid

import (
	"errors"
	"fmt"
)

// ErrInvalidGrid indicates malformed domain bounds or point count.
var ErrInvalidGrid = errors.New("grid: invalid grid")

// Uniform1D is an equidistant grid over [Lo, Hi] with N points.
// Immutable after construction.
type Uniform1D struct {
	Lo, Hi float64
	N      int
}

// NewUniform1D validates and builds a 1D equidistant grid.
func NewUniform1D(lo, hi float64, n int) (*Uniform1D, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidGrid, n)
	}
	if hi <= lo {
		return nil, fmt.Errorf("%w: upper bound %g not above lower bound %g", ErrInvalidGrid, hi, lo)
	}
	return &Uniform1D{Lo: lo, Hi: hi, N: n}, nil
}

// Spacing returns the distance between adjacent grid points.
func (g *Uniform1D) Spacing() float64 {
	return (g.Hi - g.Lo) / float64(g.N-1)
}

// Coord returns the coordinate of point i.
func (g *Uniform1D) Coord(i int) float64 {
	return g.Lo + g.Spacing()*float64(i)
}

// Coords returns all point coordinates in order.
func (g *Uniform1D) Coords() []float64 {
	xs := make([]float64, g.N)
	for i := range xs {
		xs[i] = g.Coord(i)
	}
	return xs
}

// Len returns the total number of grid points.
func (g *Uniform1D) Len() int { return g.N }

// Uniform2D is a square equidistant grid: N x N points over [Lo, Hi]
// on both axes. Fields are stored row-major with y as the row index,
// so the flat index of (ix, iy) is iy*N + ix.
type Uniform2D struct {
	Lo, Hi float64
	N      int
}

// NewUniform2D validates and builds a square 2D equidistant grid.
func NewUniform2D(lo, hi float64, n int) (*Uniform2D, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points per axis, got %d", ErrInvalidGrid, n)
	}
	if hi <= lo {
		return nil, fmt.Errorf("%w: upper bound %g not above lower bound %g", ErrInvalidGrid, hi, lo)
	}
	return &Uniform2D{Lo: lo, Hi: hi, N: n}, nil
}

// Spacing returns the distance between adjacent points, equal on both axes.
func (g *Uniform2D) Spacing() float64 {
	return (g.Hi - g.Lo) / float64(g.N-1)
}

// Coord returns the coordinate of index i along either axis.
func (g *Uniform2D) Coord(i int) float64 {
	return g.Lo + g.Spacing()*float64(i)
}

// Coords returns the per-axis coordinates (identical for x and y).
func (g *Uniform2D) Coords() []float64 {
	xs := make([]float64, g.N)
	for i := range xs {
		xs[i] = g.Coord(i)
	}
	return xs
}

// Len returns the total number of grid points (N*N).
func (g *Uniform2D) Len() int { return g.N * g.N }

// Index returns the flat row-major index of (ix, iy).
func (g *Uniform2D) Index(ix, iy int) int { return iy*g.N + ix }
