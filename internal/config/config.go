// Package config loads simulation configurations and assembles runnable
// solvers from them.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/epifield/internal/field"
	"github.com/san-kum/epifield/internal/grid"
	"github.com/san-kum/epifield/internal/sir"
	"github.com/san-kum/epifield/internal/solver"
)

// Default parameter values, matching the reference article's setup.
const (
	DefaultInfectivity  = 1.0
	DefaultRecoveryRate = 0.1
	DefaultDiffusivity  = 0.01
	DefaultMobility     = 1.0
	DefaultDomainSize   = 1.0
	DefaultGridPoints   = 256
)

type GridConfig struct {
	Lo float64 `yaml:"lo"`
	Hi float64 `yaml:"hi"`
	N  int     `yaml:"n"`
}

type KineticsConfig struct {
	Infectivity   float64 `yaml:"infectivity"`
	RecoveryRate  float64 `yaml:"recovery_rate"`
	MortalityRate float64 `yaml:"mortality_rate"`
}

type DiffusionConfig struct {
	S float64 `yaml:"s"`
	I float64 `yaml:"i"`
	R float64 `yaml:"r"`
}

type KernelConfig struct {
	Amplitude float64 `yaml:"amplitude"`
	Range     float64 `yaml:"range"`
}

type DDFTConfig struct {
	MobilityS        float64      `yaml:"mobility_s"`
	MobilityI        float64      `yaml:"mobility_i"`
	MobilityR        float64      `yaml:"mobility_r"`
	SocialDistancing KernelConfig `yaml:"social_distancing"`
	SelfIsolation    KernelConfig `yaml:"self_isolation"`
}

// InitConfig describes the initial state. Lumped runs use S0/I0/R0.
// Spatial runs start from a normalized Gaussian susceptible bump of the
// given width centered in the domain, with InfectedFraction of it
// seeded as infected.
type InitConfig struct {
	S0               float64 `yaml:"s0"`
	I0               float64 `yaml:"i0"`
	R0               float64 `yaml:"r0"`
	Width            float64 `yaml:"width"`
	InfectedFraction float64 `yaml:"infected_fraction"`
}

type Config struct {
	Model       string          `yaml:"model"`
	Grid        GridConfig      `yaml:"grid"`
	Kinetics    KineticsConfig  `yaml:"kinetics"`
	Diffusion   DiffusionConfig `yaml:"diffusion"`
	DDFT        DDFTConfig      `yaml:"ddft"`
	Init        InitConfig      `yaml:"init"`
	Threads     int             `yaml:"threads"`
	MaxSubSteps int             `yaml:"max_sub_steps"`
}

func DefaultConfig() *Config {
	return &Config{
		Model: "ddft1d",
		Grid:  GridConfig{Lo: 0, Hi: DefaultDomainSize, N: DefaultGridPoints},
		Kinetics: KineticsConfig{
			Infectivity:  DefaultInfectivity,
			RecoveryRate: DefaultRecoveryRate,
		},
		Diffusion: DiffusionConfig{S: DefaultDiffusivity, I: DefaultDiffusivity, R: DefaultDiffusivity},
		DDFT: DDFTConfig{
			MobilityS:        DefaultMobility,
			MobilityI:        DefaultMobility,
			MobilityR:        DefaultMobility,
			SocialDistancing: KernelConfig{Amplitude: -5, Range: 0.07},
			SelfIsolation:    KernelConfig{Amplitude: -10, Range: 0.07},
		},
		Init: InitConfig{
			S0:               0.998,
			I0:               0.002,
			Width:            DefaultDomainSize / 50,
			InfectedFraction: 0.001,
		},
		Threads: 1,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Simulation is a ready-to-run solver plus the grid coordinates of its
// snapshots (nil for lumped runs, Y nil for 1D runs).
type Simulation struct {
	Model  string
	Solver solver.Solver
	X, Y   []float64
}

// Build assembles a solver from the configuration.
func (c *Config) Build() (*Simulation, error) {
	kin := sir.Kinetics{
		Infectivity:   c.Kinetics.Infectivity,
		RecoveryRate:  c.Kinetics.RecoveryRate,
		MortalityRate: c.Kinetics.MortalityRate,
	}
	diff := sir.Diffusion{S: c.Diffusion.S, I: c.Diffusion.I, R: c.Diffusion.R}
	ddft := sir.DDFT{
		MobilityS:        c.DDFT.MobilityS,
		MobilityI:        c.DDFT.MobilityI,
		MobilityR:        c.DDFT.MobilityR,
		SocialDistancing: sir.Kernel(c.DDFT.SocialDistancing),
		SelfIsolation:    sir.Kernel(c.DDFT.SelfIsolation),
	}
	opts := solver.Options{Threads: c.Threads, MaxSubSteps: c.MaxSubSteps}

	switch c.Model {
	case "lumped":
		s, err := solver.NewLumped(kin, field.Lumped{S: c.Init.S0, I: c.Init.I0, R: c.Init.R0})
		if err != nil {
			return nil, err
		}
		return &Simulation{Model: c.Model, Solver: s}, nil

	case "diffusion1d", "ddft1d":
		g, err := grid.NewUniform1D(c.Grid.Lo, c.Grid.Hi, c.Grid.N)
		if err != nil {
			return nil, err
		}
		st, err := field.NewState1D(g, c.initFunc1D())
		if err != nil {
			return nil, err
		}
		var s solver.Solver
		if c.Model == "ddft1d" {
			s, err = solver.NewDDFT1D(kin, diff, ddft, st, opts)
		} else {
			s, err = solver.NewDiffusion1D(kin, diff, st, opts)
		}
		if err != nil {
			return nil, err
		}
		return &Simulation{Model: c.Model, Solver: s, X: g.Coords()}, nil

	case "diffusion2d", "ddft2d":
		g, err := grid.NewUniform2D(c.Grid.Lo, c.Grid.Hi, c.Grid.N)
		if err != nil {
			return nil, err
		}
		st, err := field.NewState2D(g, c.initFunc2D())
		if err != nil {
			return nil, err
		}
		var s solver.Solver
		if c.Model == "ddft2d" {
			s, err = solver.NewDDFT2D(kin, diff, ddft, st, opts)
		} else {
			s, err = solver.NewDiffusion2D(kin, diff, st, opts)
		}
		if err != nil {
			return nil, err
		}
		return &Simulation{Model: c.Model, Solver: s, X: g.Coords(), Y: g.Coords()}, nil

	default:
		return nil, fmt.Errorf("config: unknown model %q", c.Model)
	}
}

func (c *Config) initFunc1D() field.InitFunc1D {
	mid := 0.5 * (c.Grid.Lo + c.Grid.Hi)
	w := c.Init.Width
	frac := c.Init.InfectedFraction
	return func(x float64) (float64, float64, float64) {
		s := math.Exp(-(x-mid)*(x-mid)/(2*w*w)) / (w * math.Sqrt(2*math.Pi))
		i := frac * s
		return s - i, i, 0
	}
}

func (c *Config) initFunc2D() field.InitFunc2D {
	mid := 0.5 * (c.Grid.Lo + c.Grid.Hi)
	w := c.Init.Width
	frac := c.Init.InfectedFraction
	return func(x, y float64) (float64, float64, float64) {
		r2 := (x-mid)*(x-mid) + (y-mid)*(y-mid)
		s := math.Exp(-r2/(2*w*w)) / (2 * math.Pi * w * w)
		i := frac * s
		return s - i, i, 0
	}
}
