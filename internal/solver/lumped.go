package solver

import (
	"fmt"

	"github.com/san-kum/epifield/internal/field"
	"github.com/san-kum/epifield/internal/sir"
)

// lumpedStep is the fixed RK4 sub-step of the lumped solver; the SIR
// ODE is smooth and non-stiff for epidemiological parameter ranges, so
// a modest fixed step conserves S+I+R to machine precision.
const lumpedStep = 0.01

// Lumped integrates the spatially homogeneous SIR model
//
//	dS/dt = -c*S*I
//	dI/dt =  c*S*I - w*I - m*I
//	dR/dt =  w*I
//
// with a classical 4th-order Runge-Kutta scheme.
type Lumped struct {
	kin    sir.Kinetics
	state  field.Lumped
	target float64
}

// NewLumped validates the parameters and builds a lumped solver around
// the given initial state.
func NewLumped(kin sir.Kinetics, state field.Lumped) (*Lumped, error) {
	if err := kin.Validate(); err != nil {
		return nil, err
	}
	return &Lumped{kin: kin, state: state, target: state.Time}, nil
}

// AddTime raises the target time by dt.
func (l *Lumped) AddTime(dt float64) error {
	if dt < 0 {
		return fmt.Errorf("%w: got %g", ErrNegativeTime, dt)
	}
	l.target += dt
	return nil
}

// Integrate advances the state to the target time.
func (l *Lumped) Integrate() error {
	for !reached(l.state.Time, l.target) {
		dt := l.target - l.state.Time
		if dt > lumpedStep {
			dt = lumpedStep
		}
		l.rk4(dt)
		l.state.Time += dt
	}
	if !allFinite([]float64{l.state.S, l.state.I, l.state.R}) {
		return fmt.Errorf("%w: at t=%g", ErrUnstable, l.state.Time)
	}
	return nil
}

// Result returns the current scalar state as length-1 fields.
func (l *Lumped) Result() Frame {
	return Frame{
		Time: l.state.Time,
		S:    []float64{l.state.S},
		I:    []float64{l.state.I},
		R:    []float64{l.state.R},
	}
}

func (l *Lumped) rhs(s, i float64) (ds, di, dr float64) {
	c, w, m := l.kin.Infectivity, l.kin.RecoveryRate, l.kin.MortalityRate
	inf := c * s * i
	return -inf, inf - w*i - m*i, w * i
}

func (l *Lumped) rk4(dt float64) {
	s, i, r := l.state.S, l.state.I, l.state.R

	k1s, k1i, k1r := l.rhs(s, i)
	k2s, k2i, k2r := l.rhs(s+0.5*dt*k1s, i+0.5*dt*k1i)
	k3s, k3i, k3r := l.rhs(s+0.5*dt*k2s, i+0.5*dt*k2i)
	k4s, k4i, k4r := l.rhs(s+dt*k3s, i+dt*k3i)

	dt6 := dt / 6.0
	l.state.S = s + dt6*(k1s+2*k2s+2*k3s+k4s)
	l.state.I = i + dt6*(k1i+2*k2i+2*k3i+k4i)
	l.state.R = r + dt6*(k1r+2*k2r+2*k3r+k4r)
}
