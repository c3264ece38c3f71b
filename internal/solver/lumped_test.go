package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/epifield/internal/field"
	"github.com/san-kum/epifield/internal/sir"
)

func TestLumpedConservesPopulation(t *testing.T) {
	kin := sir.Kinetics{Infectivity: 1, RecoveryRate: 0.1}
	l, err := NewLumped(kin, field.Lumped{S: 0.99, I: 0.01})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := l.AddTime(20); err != nil {
		t.Fatalf("AddTime: %v", err)
	}
	if err := l.Integrate(); err != nil {
		t.Fatalf("Integrate: %v", err)
	}

	f := l.Result()
	if math.Abs(f.Time-20) > 1e-9 {
		t.Errorf("time: got %g, expected 20", f.Time)
	}
	total := f.S[0] + f.I[0] + f.R[0]
	if math.Abs(total-1) > 1e-12 {
		t.Errorf("S+I+R drifted: got %.15g", total)
	}
	if f.S[0] >= 0.99 {
		t.Errorf("S did not decrease: %g", f.S[0])
	}
	if f.R[0] <= 0 {
		t.Errorf("R did not increase: %g", f.R[0])
	}
}

func TestLumpedOutbreakGrows(t *testing.T) {
	// c*S0 > w, so the infected compartment grows at first.
	kin := sir.Kinetics{Infectivity: 2, RecoveryRate: 0.5}
	l, _ := NewLumped(kin, field.Lumped{S: 0.99, I: 0.01})

	l.AddTime(0.5)
	if err := l.Integrate(); err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	if got := l.Result().I[0]; got <= 0.01 {
		t.Errorf("infected did not grow: got %g", got)
	}
}

func TestLumpedMortalityRemovesMass(t *testing.T) {
	kin := sir.Kinetics{Infectivity: 1, RecoveryRate: 0.1, MortalityRate: 0.5}
	l, _ := NewLumped(kin, field.Lumped{S: 0.9, I: 0.1})

	l.AddTime(5)
	if err := l.Integrate(); err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	f := l.Result()
	if total := f.S[0] + f.I[0] + f.R[0]; total >= 1 {
		t.Errorf("mortality should shrink the population: got %g", total)
	}
}

func TestLumpedNegativeAddTime(t *testing.T) {
	l, _ := NewLumped(sir.Kinetics{Infectivity: 1, RecoveryRate: 0.1}, field.Lumped{S: 1})
	if err := l.AddTime(-0.1); !errors.Is(err, ErrNegativeTime) {
		t.Errorf("expected ErrNegativeTime, got %v", err)
	}
}

func TestLumpedRejectsInvalidKinetics(t *testing.T) {
	_, err := NewLumped(sir.Kinetics{Infectivity: -1}, field.Lumped{S: 1})
	if !errors.Is(err, sir.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}
