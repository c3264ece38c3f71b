package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/epifield/internal/field"
	"github.com/san-kum/epifield/internal/grid"
	"github.com/san-kum/epifield/internal/sir"
)

func bump1D(x float64) (float64, float64, float64) {
	s := math.Exp(-(x - 0.5) * (x - 0.5) / (2 * 0.05 * 0.05)) / (0.05 * math.Sqrt(2*math.Pi))
	i := 0.001 * s
	return s - i, i, 0
}

// With all mobilities zero the drift terms vanish identically, so the
// DDFT solver must reproduce the plain diffusion solver step for step.
func TestDDFT1DZeroMobilityMatchesDiffusion(t *testing.T) {
	g, _ := grid.NewUniform1D(0, 1, 33)
	init := func(x float64) (float64, float64, float64) {
		s := math.Exp(-(x - 0.4) * (x - 0.4) / 0.01)
		return s, 0.1 * s, 0
	}
	stRef, _ := field.NewState1D(g, init)
	stDDFT, _ := field.NewState1D(g, init)

	kin := sir.Kinetics{Infectivity: 0.8, RecoveryRate: 0.1}
	diff := sir.Diffusion{S: 0.01, I: 0.005, R: 0.002}
	ddft := sir.DDFT{
		SocialDistancing: sir.Kernel{Amplitude: -1, Range: 0.1},
		SelfIsolation:    sir.Kernel{Amplitude: -2, Range: 0.1},
	}

	ref, err := NewDiffusion1D(kin, diff, stRef, Options{})
	if err != nil {
		t.Fatalf("diffusion solver: %v", err)
	}
	dd, err := NewDDFT1D(kin, diff, ddft, stDDFT, Options{})
	if err != nil {
		t.Fatalf("ddft solver: %v", err)
	}

	for _, dt := range []float64{0.2, 0.15} {
		ref.AddTime(dt)
		dd.AddTime(dt)
		if err := ref.Integrate(); err != nil {
			t.Fatalf("diffusion Integrate: %v", err)
		}
		if err := dd.Integrate(); err != nil {
			t.Fatalf("ddft Integrate: %v", err)
		}

		fr, fd := ref.Result(), dd.Result()
		for i := range fr.S {
			if fr.S[i] != fd.S[i] || fr.I[i] != fd.I[i] || fr.R[i] != fd.R[i] {
				t.Fatalf("t=%g point %d: diffusion (%g,%g,%g) vs ddft (%g,%g,%g)",
					fr.Time, i, fr.S[i], fr.I[i], fr.R[i], fd.S[i], fd.I[i], fd.R[i])
			}
		}
	}
}

func TestDDFT2DZeroMobilityMatchesDiffusion(t *testing.T) {
	g, _ := grid.NewUniform2D(0, 1, 9)
	init := func(x, y float64) (float64, float64, float64) {
		s := math.Exp(-((x-0.5)*(x-0.5) + (y-0.5)*(y-0.5)) / 0.02)
		return s, 0.05 * s, 0
	}
	stRef, _ := field.NewState2D(g, init)
	stDDFT, _ := field.NewState2D(g, init)

	kin := sir.Kinetics{Infectivity: 1, RecoveryRate: 0.1}
	diff := sir.Diffusion{S: 0.01, I: 0.01, R: 0.01}
	ddft := sir.DDFT{
		SocialDistancing: sir.Kernel{Amplitude: -3, Range: 0.1},
		SelfIsolation:    sir.Kernel{Amplitude: -6, Range: 0.1},
	}

	ref, _ := NewDiffusion2D(kin, diff, stRef, Options{})
	dd, err := NewDDFT2D(kin, diff, ddft, stDDFT, Options{})
	if err != nil {
		t.Fatalf("ddft solver: %v", err)
	}

	ref.AddTime(0.1)
	dd.AddTime(0.1)
	if err := ref.Integrate(); err != nil {
		t.Fatalf("diffusion Integrate: %v", err)
	}
	if err := dd.Integrate(); err != nil {
		t.Fatalf("ddft Integrate: %v", err)
	}

	fr, fd := ref.Result(), dd.Result()
	for i := range fr.S {
		if fr.S[i] != fd.S[i] || fr.I[i] != fd.I[i] || fr.R[i] != fd.R[i] {
			t.Fatalf("point %d: diffusion (%g,%g,%g) vs ddft (%g,%g,%g)",
				i, fr.S[i], fr.I[i], fr.R[i], fd.S[i], fd.I[i], fd.R[i])
		}
	}
}

func TestDDFT1DConservation(t *testing.T) {
	g, _ := grid.NewUniform1D(0, 1, 64)
	st, err := field.NewState1D(g, bump1D)
	if err != nil {
		t.Fatalf("state: %v", err)
	}

	kin := sir.Kinetics{Infectivity: 1, RecoveryRate: 0.1}
	diff := sir.Diffusion{S: 0.01, I: 0.01, R: 0.01}
	ddft := sir.DDFT{
		MobilityS:        1,
		MobilityI:        1,
		MobilityR:        1,
		SocialDistancing: sir.Kernel{Amplitude: -5, Range: 0.07},
		SelfIsolation:    sir.Kernel{Amplitude: -10, Range: 0.07},
	}
	s, err := NewDDFT1D(kin, diff, ddft, st, Options{Threads: 2})
	if err != nil {
		t.Fatalf("solver: %v", err)
	}

	before := frameMass(s.Result())
	s.AddTime(0.1)
	if err := s.Integrate(); err != nil {
		t.Fatalf("Integrate: %v", err)
	}

	f := s.Result()
	if math.Abs(f.Time-0.1) > 1e-12 {
		t.Errorf("time: got %g, expected 0.1", f.Time)
	}
	if after := frameMass(f); math.Abs(after-before)/before > 1e-10 {
		t.Errorf("mass drifted: %.15g -> %.15g", before, after)
	}
	if !allFinite(f.S, f.I, f.R) {
		t.Error("non-finite values after integration")
	}
}

func TestDDFT2DConservation(t *testing.T) {
	g, _ := grid.NewUniform2D(0, 1, 24)
	st, err := field.NewState2D(g, func(x, y float64) (float64, float64, float64) {
		r2 := (x-0.5)*(x-0.5) + (y-0.5)*(y-0.5)
		s := math.Exp(-r2 / (2 * 0.1 * 0.1)) / (2 * math.Pi * 0.1 * 0.1)
		i := 0.01 * s
		return s - i, i, 0
	})
	if err != nil {
		t.Fatalf("state: %v", err)
	}

	kin := sir.Kinetics{Infectivity: 1, RecoveryRate: 0.1}
	diff := sir.Diffusion{S: 0.01, I: 0.01, R: 0.01}
	ddft := sir.DDFT{
		MobilityS:        0.5,
		MobilityI:        0.5,
		MobilityR:        0.5,
		SocialDistancing: sir.Kernel{Amplitude: -2, Range: 0.1},
		SelfIsolation:    sir.Kernel{Amplitude: -4, Range: 0.1},
	}
	s, err := NewDDFT2D(kin, diff, ddft, st, Options{Threads: 2})
	if err != nil {
		t.Fatalf("solver: %v", err)
	}

	before := frameMass(s.Result())
	s.AddTime(0.05)
	if err := s.Integrate(); err != nil {
		t.Fatalf("Integrate: %v", err)
	}

	f := s.Result()
	if after := frameMass(f); math.Abs(after-before)/before > 1e-10 {
		t.Errorf("mass drifted: %.15g -> %.15g", before, after)
	}
	if !allFinite(f.S, f.I, f.R) {
		t.Error("non-finite values after integration")
	}
}

// A repulsive susceptible-infected interaction should push susceptibles
// away from the infection site relative to a run without interactions.
func TestDDFT1DRepulsionMovesSusceptibles(t *testing.T) {
	g, _ := grid.NewUniform1D(0, 1, 64)
	init := func(x float64) (float64, float64, float64) {
		i := math.Exp(-(x - 0.5) * (x - 0.5) / (2 * 0.05 * 0.05))
		return 1, i, 0
	}
	stRef, _ := field.NewState1D(g, init)
	stDDFT, _ := field.NewState1D(g, init)

	kin := sir.Kinetics{}
	diff := sir.Diffusion{S: 0.01, I: 0.01, R: 0.01}
	ddft := sir.DDFT{
		MobilityS:        1,
		SocialDistancing: sir.Kernel{Amplitude: -5, Range: 0.07},
		SelfIsolation:    sir.Kernel{Amplitude: -5, Range: 0.07},
	}

	ref, _ := NewDiffusion1D(kin, diff, stRef, Options{})
	dd, _ := NewDDFT1D(kin, diff, ddft, stDDFT, Options{})

	ref.AddTime(0.05)
	dd.AddTime(0.05)
	if err := ref.Integrate(); err != nil {
		t.Fatalf("diffusion Integrate: %v", err)
	}
	if err := dd.Integrate(); err != nil {
		t.Fatalf("ddft Integrate: %v", err)
	}

	center := 32
	if dd.Result().S[center] >= ref.Result().S[center] {
		t.Errorf("repulsion did not deplete S at the infection center: ddft %g vs diffusion %g",
			dd.Result().S[center], ref.Result().S[center])
	}
}

func TestDDFT1DRejectsInvalidKernel(t *testing.T) {
	g, _ := grid.NewUniform1D(0, 1, 16)
	st, _ := field.NewState1D(g, bump1D)
	ddft := sir.DDFT{
		SocialDistancing: sir.Kernel{Amplitude: -5, Range: 0},
		SelfIsolation:    sir.Kernel{Amplitude: -10, Range: 0.1},
	}
	_, err := NewDDFT1D(sir.Kinetics{}, sir.Diffusion{}, ddft, st, Options{})
	if !errors.Is(err, sir.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}
