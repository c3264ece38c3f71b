package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/epifield/internal/field"
	"github.com/san-kum/epifield/internal/sir"
	"github.com/san-kum/epifield/internal/spectral"
)

// DDFT1D integrates the 1D SIR-DDFT model: diffusion and reactions as
// in Diffusion1D plus non-local drift terms derived from the
// interaction kernels,
//
//	dS/dt -= mobS * div(S * grad(Ksd * I))
//	dI/dt -= mobI * div(I * grad(Ksd * S + Ksi * I))
//
// with R unaffected by the non-local terms. Negative kernel amplitudes
// are repulsive under this sign convention. Convolutions are evaluated
// spectrally; kernel transforms are built lazily on first Integrate and
// cached for the solver's lifetime (grid and parameters are immutable).
type DDFT1D struct {
	kin   sir.Kinetics
	diff  sir.Diffusion
	ddft  sir.DDFT
	state *field.State1D
	opts  Options

	target float64

	convSD, convSI *spectral.Conv1D

	phiS, phiI, scratch []float64
	dS, dI, dR          []float64
}

// NewDDFT1D validates the parameters and takes ownership of state.
func NewDDFT1D(kin sir.Kinetics, diff sir.Diffusion, ddft sir.DDFT, state *field.State1D, opts Options) (*DDFT1D, error) {
	if err := kin.Validate(); err != nil {
		return nil, err
	}
	if err := diff.Validate(); err != nil {
		return nil, err
	}
	if err := ddft.Validate(); err != nil {
		return nil, err
	}
	if state.Grid.N < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrGridTooSmall, state.Grid.N)
	}
	n := state.Grid.Len()
	return &DDFT1D{
		kin:     kin,
		diff:    diff,
		ddft:    ddft,
		state:   state,
		opts:    opts.withDefaults(),
		target:  state.Time,
		phiS:    make([]float64, n),
		phiI:    make([]float64, n),
		scratch: make([]float64, n),
		dS:      make([]float64, n),
		dI:      make([]float64, n),
		dR:      make([]float64, n),
	}, nil
}

// AddTime raises the target time by dt.
func (s *DDFT1D) AddTime(dt float64) error {
	if dt < 0 {
		return fmt.Errorf("%w: got %g", ErrNegativeTime, dt)
	}
	s.target += dt
	return nil
}

// Integrate advances the state to the target time. Sub-steps respect
// the diffusion bound and the advective CFL bound re-evaluated from the
// current interaction forces.
func (s *DDFT1D) Integrate() error {
	st := s.state
	if reached(st.Time, s.target) {
		return nil
	}
	if s.convSD == nil {
		s.convSD = spectral.NewConv1D(st.Grid, s.ddft.SocialDistancing)
		s.convSI = spectral.NewConv1D(st.Grid, s.ddft.SelfIsolation)
	}
	dx := st.Grid.Spacing()
	dtDiff := diffusionBound(dx, 1, s.diff.Max())

	steps := 0
	for !reached(st.Time, s.target) {
		s.forces()
		remaining := s.target - st.Time
		dt := math.Min(remaining, dtDiff)
		dt = math.Min(dt, reactionBound(s.kin, maxAbs(st.S, st.I)))
		dt = math.Min(dt, s.advectionBound(dx))
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
func (s *DDFT1D) Result() Frame {
	st := s.state
	return Frame{Time: st.Time, S: cloned(st.S), I: cloned(st.I), R: cloned(st.R)}
}

// forces evaluates the interaction potentials felt by S and I.
func (s *DDFT1D) forces() {
	st := s.state
	s.convSD.Convolve(s.phiS, st.I)
	s.convSD.Convolve(s.phiI, st.S)
	s.convSI.Convolve(s.scratch, st.I)
	floats.Add(s.phiI, s.scratch)
}

// advectionBound is the CFL bound dx / max|mobility * grad(phi)|.
func (s *DDFT1D) advectionBound(dx float64) float64 {
	invdx := 1 / dx
	v := s.ddft.MobilityS * maxFaceGrad(s.phiS, invdx)
	if vi := s.ddft.MobilityI * maxFaceGrad(s.phiI, invdx); vi > v {
		v = vi
	}
	if v <= 0 {
		return math.Inf(1)
	}
	return safety * dx / v
}

func maxFaceGrad(phi []float64, invdx float64) float64 {
	m := 0.0
	for i := 1; i < len(phi); i++ {
		if g := math.Abs(phi[i]-phi[i-1]) * invdx; g > m {
			m = g
		}
	}
	return m
}

func (s *DDFT1D) step(dt float64) {
	st := s.state
	n := st.Grid.N
	invdx := 1 / st.Grid.Spacing()
	c, w, m := s.kin.Infectivity, s.kin.RecoveryRate, s.kin.MortalityRate

	parallelFor(s.opts.Threads, n, 256, func(start, end int) {
		for i := start; i < end; i++ {
			inf := c * st.S[i] * st.I[i]
			s.dS[i] = driftFluxDiv1D(st.S, s.phiS, i, n, s.diff.S, s.ddft.MobilityS, invdx) - inf
			s.dI[i] = driftFluxDiv1D(st.I, s.phiI, i, n, s.diff.I, s.ddft.MobilityI, invdx) + inf - (w+m)*st.I[i]
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

// driftFluxDiv1D is the divergence of the combined diffusive and
// advective flux d*dC/dx - mob*C*dPhi/dx with zero-flux boundary faces;
// C at a face is the mean of its two cells.
func driftFluxDiv1D(c, phi []float64, i, n int, d, mob, invdx float64) float64 {
	var jl, jr float64
	if i > 0 {
		jl = d*(c[i]-c[i-1])*invdx - mob*0.5*(c[i]+c[i-1])*(phi[i]-phi[i-1])*invdx
	}
	if i < n-1 {
		jr = d*(c[i+1]-c[i])*invdx - mob*0.5*(c[i+1]+c[i])*(phi[i+1]-phi[i])*invdx
	}
	return (jr - jl) * invdx
}
