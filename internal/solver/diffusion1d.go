package solver

import (
	"fmt"
	"math"

	"github.com/san-kum/epifield/internal/field"
	"github.com/san-kum/epifield/internal/sir"
)

// Diffusion1D integrates the 1D spatial SIR model with per-species
// linear diffusion. The scheme is explicit and in flux form with
// no-flux boundaries, so the total population mass telescopes exactly.
type Diffusion1D struct {
	kin   sir.Kinetics
	diff  sir.Diffusion
	state *field.State1D
	opts  Options

	target float64

	dS, dI, dR []float64
}

// NewDiffusion1D validates the parameters and takes ownership of state.
func NewDiffusion1D(kin sir.Kinetics, diff sir.Diffusion, state *field.State1D, opts Options) (*Diffusion1D, error) {
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
	return &Diffusion1D{
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
func (s *Diffusion1D) AddTime(dt float64) error {
	if dt < 0 {
		return fmt.Errorf("%w: got %g", ErrNegativeTime, dt)
	}
	s.target += dt
	return nil
}

// Integrate advances the state to the target time in stable sub-steps.
func (s *Diffusion1D) Integrate() error {
	st := s.state
	if reached(st.Time, s.target) {
		return nil
	}
	dtDiff := diffusionBound(st.Grid.Spacing(), 1, s.diff.Max())

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
func (s *Diffusion1D) Result() Frame {
	st := s.state
	return Frame{Time: st.Time, S: cloned(st.S), I: cloned(st.I), R: cloned(st.R)}
}

func (s *Diffusion1D) step(dt float64) {
	st := s.state
	n := st.Grid.N
	invdx := 1 / st.Grid.Spacing()
	c, w, m := s.kin.Infectivity, s.kin.RecoveryRate, s.kin.MortalityRate

	parallelFor(s.opts.Threads, n, 256, func(start, end int) {
		for i := start; i < end; i++ {
			inf := c * st.S[i] * st.I[i]
			s.dS[i] = fluxDiv1D(st.S, i, n, s.diff.S, invdx) - inf
			s.dI[i] = fluxDiv1D(st.I, i, n, s.diff.I, invdx) + inf - (w+m)*st.I[i]
			s.dR[i] = fluxDiv1D(st.R, i, n, s.diff.R, invdx) + w*st.I[i]
		}
	})
	parallelFor(s.opts.Threads, n, 256, func(start, end int) {
		for i := start; i < end; i++ {
			st.S[i] += dt * s.dS[i]
			st.I[i] += dt * s.dI[i]
			st.R[i] += dt * s.dR[i]
		}
	})
}

// fluxDiv1D is the divergence of the diffusive flux d*dC/dx evaluated
// with face fluxes; boundary faces carry zero flux.
func fluxDiv1D(c []float64, i, n int, d, invdx float64) float64 {
	var jl, jr float64
	if i > 0 {
		jl = d * (c[i] - c[i-1]) * invdx
	}
	if i < n-1 {
		jr = d * (c[i+1] - c[i]) * invdx
	}
	return (jr - jl) * invdx
}

// diffusionBound is the explicit-scheme stability bound
// dx^2 / (2*dim*D), with the safety margin applied.
func diffusionBound(dx float64, dim int, dmax float64) float64 {
	if dmax <= 0 {
		return math.Inf(1)
	}
	return safety * dx * dx / (2 * float64(dim) * dmax)
}

// reactionBound limits the sub-step by the fastest local reaction rate.
func reactionBound(kin sir.Kinetics, peak float64) float64 {
	rate := kin.Infectivity*peak + kin.RecoveryRate + kin.MortalityRate
	if rate <= 0 {
		return math.Inf(1)
	}
	return safety / rate
}
