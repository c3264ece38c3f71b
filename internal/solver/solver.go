// Package solver contains the time-integration engines for the lumped,
// diffusive and DDFT variants of the SIR model.
//
// All solvers share the same protocol: AddTime accumulates a target
// time, Integrate advances the owned state to that target in internally
// chosen stable sub-steps, and Result returns a snapshot. A solver
// instance is single-threaded from the caller's perspective; Integrate
// may parallelize per-grid-point work across a worker pool sized by
// Options.Threads. Distinct solver instances are fully independent.
package solver

import (
	"errors"
	"math"
)

// Domain errors for solver operations.
var (
	// ErrUnstable indicates the integration blew up (non-finite field
	// values) or could not reach the target within its sub-step budget.
	ErrUnstable = errors.New("solver: numerical instability")

	// ErrNegativeTime indicates AddTime was called with a negative increment.
	ErrNegativeTime = errors.New("solver: time increment must be non-negative")

	// ErrGridTooSmall indicates a grid with too few points for the
	// finite-difference stencils.
	ErrGridTooSmall = errors.New("solver: spatial solvers need at least 3 grid points per axis")
)

// Frame is an immutable snapshot of a solver's state. The slices are
// deep copies and remain valid across later Integrate calls. For 2D
// solvers the slices are flat row-major with y as the row index; for
// the lumped solver they have length 1.
type Frame struct {
	Time    float64
	S, I, R []float64
}

// Solver is the common capability surface of all model variants.
type Solver interface {
	// AddTime raises the internal target time by dt. dt must be >= 0.
	AddTime(dt float64) error
	// Integrate advances the state to the target time. It blocks until
	// done and reports ErrUnstable if the fields become non-finite.
	Integrate() error
	// Result returns a snapshot of the current state.
	Result() Frame
}

// Options tune solver internals. The zero value is usable.
type Options struct {
	// Threads bounds the worker pool for per-sub-step data parallelism.
	// Values < 1 mean a single worker.
	Threads int
	// MaxSubSteps caps the number of sub-steps per Integrate call. When
	// the stability bounds demand more, Integrate gives up with
	// ErrUnstable rather than running unbounded or handing back a
	// corrupted snapshot. Values < 1 select DefaultMaxSubSteps.
	MaxSubSteps int
}

// DefaultMaxSubSteps is the per-Integrate sub-step budget.
const DefaultMaxSubSteps = 200000

// safety is the margin kept to the explicit stability bounds.
const safety = 0.8

func (o Options) withDefaults() Options {
	if o.Threads < 1 {
		o.Threads = 1
	}
	if o.MaxSubSteps < 1 {
		o.MaxSubSteps = DefaultMaxSubSteps
	}
	return o
}

// timeEps is the relative slack used when comparing simulation times.
const timeEps = 1e-12

func reached(t, target float64) bool {
	return t >= target || target-t <= timeEps*math.Max(1, math.Abs(target))
}

func allFinite(vs ...[]float64) bool {
	for _, v := range vs {
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return false
			}
		}
	}
	return true
}

func maxAbs(vs ...[]float64) float64 {
	m := 0.0
	for _, v := range vs {
		for _, x := range v {
			if a := math.Abs(x); a > m {
				m = a
			}
		}
	}
	return m
}

func cloned(v []float64) []float64 {
	c := make([]float64, len(v))
	copy(c, v)
	return c
}
