package sir

import (
	"errors"
	"testing"
)

func TestKineticsValidate(t *testing.T) {
	if err := (Kinetics{Infectivity: 0.5, RecoveryRate: 0.1}).Validate(); err != nil {
		t.Errorf("valid kinetics rejected: %v", err)
	}
	if err := (Kinetics{Infectivity: -1}).Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative infectivity: expected ErrInvalidParameter, got %v", err)
	}
	if err := (Kinetics{RecoveryRate: -0.1}).Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative recovery rate: expected ErrInvalidParameter, got %v", err)
	}
	if err := (Kinetics{MortalityRate: -0.1}).Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative mortality rate: expected ErrInvalidParameter, got %v", err)
	}
}

func TestDiffusionValidate(t *testing.T) {
	if err := (Diffusion{S: 0.01, I: 0.01, R: 0.01}).Validate(); err != nil {
		t.Errorf("valid diffusion rejected: %v", err)
	}
	if err := (Diffusion{I: -0.01}).Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative diffusivity: expected ErrInvalidParameter, got %v", err)
	}
	if got := (Diffusion{S: 1, I: 3, R: 2}).Max(); got != 3 {
		t.Errorf("max diffusivity: got %g, expected 3", got)
	}
}

func TestDDFTValidate(t *testing.T) {
	valid := DDFT{
		MobilityS:        1,
		MobilityI:        1,
		MobilityR:        1,
		SocialDistancing: Kernel{Amplitude: -5, Range: 0.1},
		SelfIsolation:    Kernel{Amplitude: -10, Range: 0.1},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid ddft params rejected: %v", err)
	}

	p := valid
	p.MobilityI = -1
	if err := p.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative mobility: expected ErrInvalidParameter, got %v", err)
	}

	p = valid
	p.SelfIsolation.Range = 0
	if err := p.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("zero kernel range: expected ErrInvalidParameter, got %v", err)
	}

	// Negative amplitude (repulsion) is a valid modeling choice.
	p = valid
	p.SocialDistancing.Amplitude = -100
	if err := p.Validate(); err != nil {
		t.Errorf("repulsive amplitude rejected: %v", err)
	}
}
