// Package sir defines the parameter sets shared by the SIR model variants.
package sir

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter indicates a parameter outside its valid range.
var ErrInvalidParameter = errors.New("sir: invalid parameter")

// Kinetics holds the reaction rates shared by all model variants.
//
// In the lumped model Infectivity is the effective contact rate; in the
// spatial models it carries an extra dimension of length (1D) or area (2D)
// per time. MortalityRate removes infected without a transition to the
// recovered population and defaults to zero.
type Kinetics struct {
	Infectivity   float64
	RecoveryRate  float64
	MortalityRate float64
}

func (k Kinetics) Validate() error {
	if k.Infectivity < 0 {
		return fmt.Errorf("%w: infectivity %g < 0", ErrInvalidParameter, k.Infectivity)
	}
	if k.RecoveryRate < 0 {
		return fmt.Errorf("%w: recovery rate %g < 0", ErrInvalidParameter, k.RecoveryRate)
	}
	if k.MortalityRate < 0 {
		return fmt.Errorf("%w: mortality rate %g < 0", ErrInvalidParameter, k.MortalityRate)
	}
	return nil
}

// Diffusion holds per-species diffusion coefficients.
type Diffusion struct {
	S, I, R float64
}

func (d Diffusion) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{{"S", d.S}, {"I", d.I}, {"R", d.R}} {
		if v.val < 0 {
			return fmt.Errorf("%w: diffusivity %s %g < 0", ErrInvalidParameter, v.name, v.val)
		}
	}
	return nil
}

// Max returns the largest diffusivity, used for the stability bound.
func (d Diffusion) Max() float64 {
	m := d.S
	if d.I > m {
		m = d.I
	}
	if d.R > m {
		m = d.R
	}
	return m
}

// Kernel parameterizes a Gaussian interaction kernel
//
//	K(d) = Amplitude * exp(-d^2 / (2*Range^2))
//
// Positive amplitude is attractive, negative repulsive.
type Kernel struct {
	Amplitude float64
	Range     float64
}

func (k Kernel) Validate() error {
	if k.Range <= 0 {
		return fmt.Errorf("%w: kernel range %g must be positive", ErrInvalidParameter, k.Range)
	}
	return nil
}

// DDFT holds mobility coefficients and the two interaction kernels of
// the SIR-DDFT model: SocialDistancing acts between the S and I fields,
// SelfIsolation within the I field.
type DDFT struct {
	MobilityS, MobilityI, MobilityR float64

	SocialDistancing Kernel
	SelfIsolation    Kernel
}

func (p DDFT) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{{"S", p.MobilityS}, {"I", p.MobilityI}, {"R", p.MobilityR}} {
		if v.val < 0 {
			return fmt.Errorf("%w: mobility %s %g < 0", ErrInvalidParameter, v.name, v.val)
		}
	}
	if err := p.SocialDistancing.Validate(); err != nil {
		return fmt.Errorf("social distancing: %w", err)
	}
	if err := p.SelfIsolation.Validate(); err != nil {
		return fmt.Errorf("self isolation: %w", err)
	}
	return nil
}
