package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/epifield/internal/field"
	"github.com/san-kum/epifield/internal/sir"
	"github.com/san-kum/epifield/internal/spectral"
)

// DDFT2D integrates the 2D SIR-DDFT model on a square grid; the model
// terms mirror DDFT1D with gradients and divergences on both axes.
type DDFT2D struct {
	kin   sir.Kinetics
	diff  sir.Diffusion
	ddft  sir.DDFT
	state *field.State2D
	opts  Options

	target float64

	convSD, convSI *spectral.Conv2D

	phiS, phiI, scratch []float64
	dS, dI, dR          []float64
}

// NewDDFT2D validates the parameters and takes ownership of state.
func NewDDFT2D(kin sir.Kinetics, diff sir.Diffusion, ddft sir.DDFT, state *field.State2D, opts Options) (*DDFT2D, error) {
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
	return &DDFT2D{
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
func (s *DDFT2D) AddTime(dt float64) error {
	if dt < 0 {
		return fmt.Errorf("%w: got %g", ErrNegativeTime, dt)
	}
	s.target += dt
	return nil
}

// Integrate advances the state to the target time. Sub-steps respect
// the diffusion bound and the advective CFL bound re-evaluated from the
// current interaction forces.
func (s *DDFT2D) Integrate() error {
	st := s.state
	if reached(st.Time, s.target) {
		return nil
	}
	if s.convSD == nil {
		s.convSD = spectral.NewConv2D(st.Grid, s.ddft.SocialDistancing)
		s.convSI = spectral.NewConv2D(st.Grid, s.ddft.SelfIsolation)
	}
	dx := st.Grid.Spacing()
	dtDiff := diffusionBound(dx, 2, s.diff.Max())

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
// Fields are flat row-major with y as the row index.
func (s *DDFT2D) Result() Frame {
	st := s.state
	return Frame{Time: st.Time, S: cloned(st.S), I: cloned(st.I), R: cloned(st.R)}
}

// forces evaluates the interaction potentials felt by S and I.
func (s *DDFT2D) forces() {
	st := s.state
	s.convSD.Convolve(s.phiS, st.I)
	s.convSD.Convolve(s.phiI, st.S)
	s.convSI.Convolve(s.scratch, st.I)
	floats.Add(s.phiI, s.scratch)
}

// advectionBound is the CFL bound dx / (2 * max|mobility * grad(phi)|),
// with the factor 2 accounting for both axes.
func (s *DDFT2D) advectionBound(dx float64) float64 {
	n := s.state.Grid.N
	invdx := 1 / dx
	v := s.ddft.MobilityS * maxFaceGrad2D(s.phiS, n, invdx)
	if vi := s.ddft.MobilityI * maxFaceGrad2D(s.phiI, n, invdx); vi > v {
		v = vi
	}
	if v <= 0 {
		return math.Inf(1)
	}
	return safety * dx / (2 * v)
}

func maxFaceGrad2D(phi []float64, n int, invdx float64) float64 {
	m := 0.0
	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			i := iy*n + ix
			if ix < n-1 {
				if g := math.Abs(phi[i+1]-phi[i]) * invdx; g > m {
					m = g
				}
			}
			if iy < n-1 {
				if g := math.Abs(phi[i+n]-phi[i]) * invdx; g > m {
					m = g
				}
			}
		}
	}
	return m
}

func (s *DDFT2D) step(dt float64) {
	st := s.state
	n := st.Grid.N
	invdx := 1 / st.Grid.Spacing()
	c, w, m := s.kin.Infectivity, s.kin.RecoveryRate, s.kin.MortalityRate

	parallelFor(s.opts.Threads, n, 1, func(rowStart, rowEnd int) {
		for iy := rowStart; iy < rowEnd; iy++ {
			for ix := 0; ix < n; ix++ {
				i := iy*n + ix
				inf := c * st.S[i] * st.I[i]
				s.dS[i] = driftFluxDiv2D(st.S, s.phiS, ix, iy, n, s.diff.S, s.ddft.MobilityS, invdx) - inf
				s.dI[i] = driftFluxDiv2D(st.I, s.phiI, ix, iy, n, s.diff.I, s.ddft.MobilityI, invdx) + inf - (w+m)*st.I[i]
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

// driftFluxDiv2D is the divergence of the combined diffusive and
// advective flux on both axes with zero-flux boundary faces.
func driftFluxDiv2D(c, phi []float64, ix, iy, n int, d, mob, invdx float64) float64 {
	i := iy*n + ix
	var jl, jr, jd, ju float64
	if ix > 0 {
		jl = d*(c[i]-c[i-1])*invdx - mob*0.5*(c[i]+c[i-1])*(phi[i]-phi[i-1])*invdx
	}
	if ix < n-1 {
		jr = d*(c[i+1]-c[i])*invdx - mob*0.5*(c[i+1]+c[i])*(phi[i+1]-phi[i])*invdx
	}
	if iy > 0 {
		jd = d*(c[i]-c[i-n])*invdx - mob*0.5*(c[i]+c[i-n])*(phi[i]-phi[i-n])*invdx
	}
	if iy < n-1 {
		ju = d*(c[i+n]-c[i])*invdx - mob*0.5*(c[i+n]+c[i])*(phi[i+n]-phi[i])*invdx
	}
	return (jr - jl + ju - jd) * invdx
}
