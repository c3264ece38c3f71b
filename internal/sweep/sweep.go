// Package sweep runs many independent simulations over a parameter grid.
//
// Each job owns its solver, state and kernel caches, so jobs share
// nothing and can run concurrently. The runner admission-controls how
// many jobs run at once and how many threads each job may use; the
// caller is responsible for picking knobs that do not oversubscribe the
// machine.
package sweep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/epifield/internal/config"
	"github.com/san-kum/epifield/internal/store"
)

// Job is one parameter combination to simulate.
type Job struct {
	Name   string        `yaml:"name"`
	Config config.Config `yaml:"config"`
}

// Outcome reports one finished job. Err is set when the job failed;
// a failed job never aborts the others.
type Outcome struct {
	Name string
	Path string
	Err  error
}

// Runner executes a job list with bounded concurrency.
type Runner struct {
	// OutDir receives one JSON trajectory per job.
	OutDir string
	// MaxConcurrent bounds how many jobs run at the same time (< 1: 1).
	MaxConcurrent int
	// ThreadsPerJob is the worker-pool budget handed to each solver.
	ThreadsPerJob int
	// Frames and FrameTime control the snapshot cadence per job.
	Frames    int
	FrameTime float64
}

// Run executes all jobs and returns one outcome per job, in job order.
// It returns early only when ctx is canceled.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	if err := os.MkdirAll(r.OutDir, 0755); err != nil {
		return nil, err
	}
	limit := r.MaxConcurrent
	if limit < 1 {
		limit = 1
	}

	outcomes := make([]Outcome, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for idx, job := range jobs {
		idx, job := idx, job
		g.Go(func() error {
			outcomes[idx] = r.runJob(ctx, job)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (r *Runner) runJob(ctx context.Context, job Job) Outcome {
	cfg := job.Config
	cfg.Threads = r.ThreadsPerJob

	sim, err := cfg.Build()
	if err != nil {
		return Outcome{Name: job.Name, Err: err}
	}

	tr := store.NewTrajectory(sim.Model, sim.X, sim.Y)
	tr.Append(sim.Solver.Result())
	for f := 0; f < r.Frames; f++ {
		// Cancellation is cooperative at whole-integrate granularity.
		if err := ctx.Err(); err != nil {
			return Outcome{Name: job.Name, Err: err}
		}
		if err := sim.Solver.AddTime(r.FrameTime); err != nil {
			return Outcome{Name: job.Name, Err: err}
		}
		if err := sim.Solver.Integrate(); err != nil {
			return Outcome{Name: job.Name, Err: fmt.Errorf("job %s: %w", job.Name, err)}
		}
		tr.Append(sim.Solver.Result())
	}

	path := filepath.Join(r.OutDir, job.Name+".json")
	if err := store.ExportJSON(path, tr); err != nil {
		return Outcome{Name: job.Name, Err: err}
	}
	return Outcome{Name: job.Name, Path: path}
}

// Axis is one swept parameter.
type Axis struct {
	Name   string    `yaml:"name"`
	Values []float64 `yaml:"values"`
}

// Expand builds the cartesian product of the axes over a base
// configuration, one job per combination.
func Expand(base config.Config, axes []Axis) ([]Job, error) {
	jobs := []Job{{Name: "base", Config: base}}
	for _, ax := range axes {
		next := make([]Job, 0, len(jobs)*len(ax.Values))
		for _, j := range jobs {
			for _, v := range ax.Values {
				cfg := j.Config
				if err := setParam(&cfg, ax.Name, v); err != nil {
					return nil, err
				}
				next = append(next, Job{
					Name:   fmt.Sprintf("%s_%s=%g", j.Name, ax.Name, v),
					Config: cfg,
				})
			}
		}
		jobs = next
	}
	return jobs, nil
}

func setParam(cfg *config.Config, name string, v float64) error {
	switch name {
	case "infectivity":
		cfg.Kinetics.Infectivity = v
	case "recovery_rate":
		cfg.Kinetics.RecoveryRate = v
	case "mortality_rate":
		cfg.Kinetics.MortalityRate = v
	case "diffusivity_s":
		cfg.Diffusion.S = v
	case "diffusivity_i":
		cfg.Diffusion.I = v
	case "diffusivity_r":
		cfg.Diffusion.R = v
	case "mobility_s":
		cfg.DDFT.MobilityS = v
	case "mobility_i":
		cfg.DDFT.MobilityI = v
	case "mobility_r":
		cfg.DDFT.MobilityR = v
	case "social_distancing_amplitude":
		cfg.DDFT.SocialDistancing.Amplitude = v
	case "social_distancing_range":
		cfg.DDFT.SocialDistancing.Range = v
	case "self_isolation_amplitude":
		cfg.DDFT.SelfIsolation.Amplitude = v
	case "self_isolation_range":
		cfg.DDFT.SelfIsolation.Range = v
	default:
		return fmt.Errorf("sweep: unknown parameter %q", name)
	}
	return nil
}
