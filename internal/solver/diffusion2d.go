package solver

import (
	"fmt"
	"math"

	"github.com/san-kum/epifield/internal/field"
	"github.com/san-kum/epifield/internal/sir"
)

// Diffusion2D integrates the 2D spatial SIR model with per-species
// linear diffusion on a square grid (5-point stencil in flux form,
// no-flux boundaries on all four edges).
type Diffusion2D struct {
	kin   sir.Kinetics
	diff  sir.Diffusion
	state *field.State2D
	opts  Options

	target float64

	dS, dI, dR []float64
}

// NewDiffusion2D validates the parameters and takes ownership of state.
func NewDiffusion2D(kin sir.Kinetics, diff sir.Diffusion, state *field.State2D, opts Options) (*Diffusion2D, error) {
	if err := kin.Validate(); err != nil {
		return nil, err
	}
	if err := diff.Validate(); err != nil {
		return nil, err
	}
	if state.Grid.N < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrGridTooSmall, state.Grid.N)
	}
	n := state.Grid.Len()
	return &Diffusion2D{
		kin:   kin,
		diff:  diff,
		state: state,
		opts:  opts.withDefaults(),
		target: state.Time,
		dS:    make([]float64, n),
		dI:    make([]float64, n),
		dR:    make([]float64, n),
	}, nil
}

// AddTime raises the target time by dt.
func (s *Diffusion2D) AddTime(dt float64) error {
	if dt < 0 {
		return fmt.Errorf("%w: got %g", ErrNegativeTime, dt)
	}
	s.target += dt
	return nil
}

// Integrate advances the state to the target time in stable sub-steps.
func (s *Diffusion2D) Integrate() error {
	st := s.state
	if reached(st.Time, s.target) {
		return nil
	}
	dtDiff := diffusionBound(st.Grid.Spacing(), 2, s.diff.Max())

	steps := 0
	for !reached(st.Time, s.target) {
		remaining := s.target - st.Time
		dt := math.Min(remaining, dtDiff)
		dt = math.Min(dt, reactionBound(s.kin, maxAbs(st.S, st.I)))
		if steps++; steps > s.opts.MaxSubSteps {
			return fmt.Errorf("%w: sub-step budget %d exhausted at t=%g", ErrUnstable, s.opts.MaxSubSteps, st.Time)
		}
		s.step(dt)
		st.Time += dt
		if !allFinite(st.S, st.I, st.R) {
			return fmt.Errorf("%w: at t=%g", ErrUnstable, st.Time)
		}
	}
	st.Time = s.target
	return nil
}

// Result returns a snapshot; the slices do not alias solver memory.
func (s *Diffusion2D) Result() Frame {
	st := s.state
	return Frame{Time: st.Time, S: cloned(st.S), I: cloned(st.I), R: cloned(st.R)}
}

func (s *Diffusion2D) step(dt float64) {
	st := s.state
	n := st.Grid.N
	invdx := 1 / st.Grid.Spacing()
	c, w, m := s.kin.Infectivity, s.kin.RecoveryRate, s.kin.MortalityRate

	parallelFor(s.opts.Threads, n, 1, func(rowStart, rowEnd int) {
		for iy := rowStart; iy < rowEnd; iy++ {
			for ix := 0; ix < n; ix++ {
				i := iy*n + ix
				inf := c * st.S[i] * st.I[i]
				s.dS[i] = fluxDiv2D(st.S, ix, iy, n, s.diff.S, invdx) - inf
				s.dI[i] = fluxDiv2D(st.I, ix, iy, n, s.diff.I, invdx) + inf - (w+m)*st.I[i]
				s.dR[i] = fluxDiv2D(st.R, ix, iy, n, s.diff.R, invdx) + w*st.I[i]
			}
		}
	})
	total := n * n
	parallelFor(s.opts.Threads, total, 1024, func(start, end int) {
		for i := start; i < end; i++ {
			st.S[i] += dt * s.dS[i]
			st.I[i] += dt * s.dI[i]
			st.R[i] += dt * s.dR[i]
		}
	})
}

// fluxDiv2D is the divergence of the diffusive flux with zero-flux
// boundary faces; c is flat row-major with y as the row index.
func fluxDiv2D(c []float64, ix, iy, n int, d, invdx float64) float64 {
	i := iy*n + ix
	var jl, jr, jd, ju float64
	if ix > 0 {
		jl = d * (c[i] - c[i-1]) * invdx
	}
	if ix < n-1 {
		jr = d * (c[i+1] - c[i]) * invdx
	}
	if iy > 0 {
		jd = d * (c[i] - c[i-n]) * invdx
	}
	if iy < n-1 {
		ju = d * (c[i+n] - c[i]) * invdx
	}
	return (jr - jl + ju - jd) * invdx
}
