package main

import (
	"context"
	"fmt"
	"os"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/epifield/internal/config"
	"github.com/san-kum/epifield/internal/solver"
	"github.com/san-kum/epifield/internal/store"
	"github.com/san-kum/epifield/internal/sweep"
)

var (
	configFile string
	model      string
	frames     int
	frameTime  float64
	threads    int
	outFile    string
	// Sweep flags
	jobsFile      string
	outDir        string
	maxConcurrent int
	threadsPerJob int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "epifield",
		Short: "SIR, SIR-diffusion and SIR-DDFT epidemic field simulations",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a single simulation",
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&model, "model", "", "model override (lumped|diffusion1d|diffusion2d|ddft1d|ddft2d)")
	runCmd.Flags().IntVar(&frames, "frames", 100, "number of output frames")
	runCmd.Flags().Float64Var(&frameTime, "frame-time", 0.5, "simulated time per frame")
	runCmd.Flags().IntVar(&threads, "threads", 1, "worker threads for the solver")
	runCmd.Flags().StringVar(&outFile, "out", "", "write trajectory JSON to this path")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a parameter sweep from a job file",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&outDir, "out", "sweep-out", "output directory")
	sweepCmd.Flags().IntVar(&maxConcurrent, "jobs", 2, "concurrently running simulation jobs")
	sweepCmd.Flags().IntVar(&threadsPerJob, "threads-per-job", 1, "worker threads per job")
	sweepCmd.Flags().IntVar(&frames, "frames", 100, "number of output frames per job")
	sweepCmd.Flags().Float64Var(&frameTime, "frame-time", 0.5, "simulated time per frame")

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], config.DefaultConfig())
		},
	}

	rootCmd.AddCommand(runCmd, sweepCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if model != "" {
		cfg.Model = model
	}
	cfg.Threads = threads
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sim, err := cfg.Build()
	if err != nil {
		return err
	}

	tr := store.NewTrajectory(sim.Model, sim.X, sim.Y)
	tr.Append(sim.Solver.Result())
	infected := []float64{totalInfected(sim, sim.Solver.Result())}

	for f := 0; f < frames; f++ {
		if err := sim.Solver.AddTime(frameTime); err != nil {
			return err
		}
		if err := sim.Solver.Integrate(); err != nil {
			return err
		}
		frame := sim.Solver.Result()
		tr.Append(frame)
		infected = append(infected, totalInfected(sim, frame))
	}

	graph := asciigraph.Plot(infected,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("total infected, %s, t=0..%.2f", sim.Model, float64(frames)*frameTime)),
	)
	fmt.Println(graph)

	if outFile != "" {
		if err := store.ExportJSON(outFile, tr); err != nil {
			return err
		}
		fmt.Println("trajectory written to", outFile)
	}
	return nil
}

// totalInfected integrates the infected field over the domain.
func totalInfected(sim *config.Simulation, f solver.Frame) float64 {
	vol := 1.0
	if len(sim.X) > 1 {
		dx := sim.X[1] - sim.X[0]
		vol = dx
		if sim.Y != nil {
			vol = dx * dx
		}
	}
	return floats.Sum(f.I) * vol
}

// jobFile is the yaml layout of a sweep description: either an explicit
// job list, or a base config with swept axes expanded to their
// cartesian product.
type jobFile struct {
	Base *config.Config `yaml:"base"`
	Axes []sweep.Axis   `yaml:"axes"`
	Jobs []sweep.Job    `yaml:"jobs"`
}

func runSweep(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var jf jobFile
	if err := yaml.Unmarshal(data, &jf); err != nil {
		return err
	}

	jobs := jf.Jobs
	if len(jobs) == 0 {
		if jf.Base == nil {
			return fmt.Errorf("job file has neither jobs nor a base config")
		}
		jobs, err = sweep.Expand(*jf.Base, jf.Axes)
		if err != nil {
			return err
		}
	}

	runner := &sweep.Runner{
		OutDir:        outDir,
		MaxConcurrent: maxConcurrent,
		ThreadsPerJob: threadsPerJob,
		Frames:        frames,
		FrameTime:     frameTime,
	}
	outcomes, err := runner.Run(context.Background(), jobs)
	if err != nil {
		return err
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", o.Name, o.Err)
			continue
		}
		fmt.Printf("ok   %s -> %s\n", o.Name, o.Path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(outcomes))
	}
	return nil
}
