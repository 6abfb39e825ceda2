package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"rpirecon/internal/dataset"
	"rpirecon/pkg/config"
	"rpirecon/pkg/field"
	"rpirecon/pkg/reconstruction"
	"rpirecon/pkg/simulate"
	"rpirecon/pkg/visualization"
)

// problem bundles the inputs of a reconstruction run, whether loaded from a
// dataset file or freshly simulated.
type problem struct {
	probe     *field.Grid
	patterns  *field.RealStack
	mask      *field.Mask
	truth     *field.Stack
	initial   *field.Stack
	simulated bool
}

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file to -config and exit")
	datasetPath := flag.String("dataset", "", "Load the problem from a dataset file instead of simulating")
	outDir := flag.String("out", "output", "Directory for images, plots, and datasets")
	iters := flag.Int("iters", 100, "Number of conjugate-gradient iterations per object")
	clearEvery := flag.Int("clear-every", 10, "Steepest-descent reset period")
	workers := flag.Int("workers", 0, "Number of parallel workers (0 = all cores)")
	batch := flag.Int("batch", 10, "Number of simulated objects to reconstruct")
	probeSize := flag.Int("probe-size", 512, "Simulated probe grid size (square)")
	objectSize := flag.Int("object-size", 256, "Simulated object grid size (square)")
	eps := flag.Float64("eps", 0.1, "Perturbation strength of simulated objects")
	seed := flag.Int64("seed", 42, "Random seed for the simulated problem")
	probeKind := flag.String("probe-kind", "speckle", "Simulated probe: speckle or flat")
	saveDataset := flag.Bool("save-dataset", false, "Write the simulated problem to the output directory")
	quiet := flag.Bool("quiet", false, "Suppress progress and parameter output")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags set on the command line override the configuration file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "iters":
			cfg.Solver.Iterations = *iters
		case "clear-every":
			cfg.Solver.ClearEvery = *clearEvery
		case "workers":
			cfg.Solver.Workers = *workers
		case "batch":
			cfg.Simulation.Batch = *batch
		case "probe-size":
			cfg.Simulation.ProbeRows = *probeSize
			cfg.Simulation.ProbeCols = *probeSize
		case "object-size":
			cfg.Simulation.ObjectRows = *objectSize
			cfg.Simulation.ObjectCols = *objectSize
		case "eps":
			cfg.Simulation.Epsilon = *eps
		case "seed":
			cfg.Simulation.Seed = *seed
		case "probe-kind":
			cfg.Simulation.ProbeKind = *probeKind
		case "out":
			cfg.Output.Dir = *outDir
		case "save-dataset":
			cfg.Output.SaveDataset = *saveDataset
		case "quiet":
			cfg.Output.Verbose = !*quiet
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.Output.Verbose {
		fmt.Println("================================")
		fmt.Println("RPI PHASE RETRIEVAL BY CONJUGATE-GRADIENT OPTIMIZATION")
		fmt.Println("================================")
	}

	prob, err := buildProblem(cfg, *datasetPath)
	if err != nil {
		log.Fatalf("Failed to prepare the problem: %v", err)
	}

	resolvedWorkers := cfg.Solver.Workers
	if resolvedWorkers < 1 {
		resolvedWorkers = runtime.NumCPU()
	}
	if cfg.Output.Verbose {
		pr, pc := prob.probe.Shape()
		fmt.Printf("Objects:    %d of %dx%d\n", prob.patterns.N, prob.initial.Rows, prob.initial.Cols)
		fmt.Printf("Detector:   %dx%d\n", pr, pc)
		fmt.Printf("Iterations: %d (reset every %d)\n", cfg.Solver.Iterations, cfg.Solver.ClearEvery)
		fmt.Printf("Workers:    %d\n", resolvedWorkers)
	}

	// Run the reconstruction
	rec := reconstruction.NewReconstructor(&reconstruction.Params{
		Iterations: cfg.Solver.Iterations,
		ClearEvery: cfg.Solver.ClearEvery,
		Workers:    cfg.Solver.Workers,
	})
	if cfg.Output.Verbose {
		rec.SetProgressCallback(func(completed, total int, message string) {
			if message != "" {
				fmt.Printf("\n%s\n", message)
				return
			}
			fmt.Printf("\rReconstructing: %3.0f%%", 100*float64(completed)/float64(total))
			if completed == total {
				fmt.Println()
			}
		})
	}

	startTime := time.Now()
	result, err := rec.Reconstruct(prob.initial, prob.probe, prob.patterns, prob.mask)
	if err != nil {
		log.Fatalf("Reconstruction failed: %v", err)
	}
	elapsed := time.Since(startTime)

	if cfg.Output.Verbose {
		fmt.Printf("\nReconstruction completed in %.2f seconds (%d workers)\n",
			elapsed.Seconds(), resolvedWorkers)
	}

	// Compare against the ground truth when it is known
	if prob.truth != nil {
		metrics, err := reconstruction.Evaluate(result, prob.truth)
		if err != nil {
			log.Fatalf("Evaluation failed: %v", err)
		}
		fmt.Printf("\nValidation Metrics:\n")
		fmt.Printf("===================\n")
		fmt.Printf("Relative RMSE vs ground truth: %.6f\n", metrics.RelativeRMSE)
		fmt.Printf("Magnitude correlation: %.4f\n", metrics.MagnitudeCorrelation)
		fmt.Printf("Mean global phase offset: %.4f rad\n", metrics.MeanPhaseOffset)
		if cfg.Output.Verbose {
			for i, rmse := range metrics.PerElementRMSE {
				fmt.Printf("  object %03d: %.6f\n", i, rmse)
			}
		}
	}

	if err := writeOutputs(cfg, prob, result, rec.ErrorHistory()); err != nil {
		log.Fatalf("Failed to write outputs: %v", err)
	}
	if cfg.Output.Verbose {
		fmt.Printf("\nResults saved to: %s\n", cfg.Output.Dir)
	}
}

// buildProblem loads the problem from a dataset file when one is given and
// simulates one from the configuration otherwise.
func buildProblem(cfg *config.Config, datasetPath string) (*problem, error) {
	if datasetPath != "" {
		ds, err := dataset.Load(datasetPath)
		if err != nil {
			return nil, err
		}

		objRows, objCols := cfg.Simulation.ObjectRows, cfg.Simulation.ObjectCols
		if ds.Truth != nil {
			objRows, objCols = ds.Truth.Rows, ds.Truth.Cols
		}
		return &problem{
			probe:    ds.Probe,
			patterns: ds.Patterns,
			mask:     ds.Mask,
			truth:    ds.Truth,
			initial:  simulate.FlatObjects(ds.Patterns.N, objRows, objCols),
		}, nil
	}

	sim := &cfg.Simulation
	var probe *field.Grid
	switch sim.ProbeKind {
	case "flat":
		probe = simulate.FlatProbe(sim.ProbeRows, sim.ProbeCols)
	case "speckle":
		probe = simulate.SpeckleProbe(sim.ProbeRows, sim.ProbeCols, sim.SpeckleCutoff, sim.Seed)
	default:
		return nil, fmt.Errorf("unknown probe kind %q", sim.ProbeKind)
	}

	// Distinct seed streams keep the probe and the objects independent
	truth := simulate.PerturbedObjects(sim.Batch, sim.ObjectRows, sim.ObjectCols, sim.Epsilon, sim.Seed+1)
	patterns, err := simulate.Patterns(probe, truth)
	if err != nil {
		return nil, err
	}

	return &problem{
		probe:     probe,
		patterns:  patterns,
		truth:     truth,
		initial:   simulate.FlatObjects(sim.Batch, sim.ObjectRows, sim.ObjectCols),
		simulated: true,
	}, nil
}

// writeOutputs exports images, the convergence plot, and optionally the
// simulated dataset. Export failures other than directory creation are
// warnings, not fatal errors.
func writeOutputs(cfg *config.Config, prob *problem, result *field.Stack, history [][]float64) error {
	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return err
	}

	if cfg.Output.SaveImages {
		if err := visualization.SaveObjectImages(result, cfg.Output.Dir, "object"); err != nil {
			log.Printf("Warning: failed to save object images: %v", err)
		}
		if prob.truth != nil {
			if err := visualization.SaveObjectImages(prob.truth, cfg.Output.Dir, "truth"); err != nil {
				log.Printf("Warning: failed to save ground-truth images: %v", err)
			}
		}

		path := filepath.Join(cfg.Output.Dir, "probe_magnitude.png")
		if err := visualization.SaveMagnitudePNG(prob.probe, path); err != nil {
			log.Printf("Warning: failed to save probe magnitude: %v", err)
		}
		path = filepath.Join(cfg.Output.Dir, "probe_phase.png")
		if err := visualization.SavePhasePNG(prob.probe, path); err != nil {
			log.Printf("Warning: failed to save probe phase: %v", err)
		}

		for i := 0; i < prob.patterns.N; i++ {
			path = filepath.Join(cfg.Output.Dir, fmt.Sprintf("pattern_%03d.png", i))
			err := visualization.SaveIntensityPNG(prob.patterns.Plane(i),
				prob.patterns.Rows, prob.patterns.Cols, path)
			if err != nil {
				log.Printf("Warning: failed to save pattern %d: %v", i, err)
				break
			}
		}
	}

	if cfg.Output.SavePlots && len(history) > 0 {
		path := filepath.Join(cfg.Output.Dir, "convergence.png")
		if err := visualization.SaveConvergencePlot(history, path); err != nil {
			log.Printf("Warning: failed to save convergence plot: %v", err)
		}
	}

	if cfg.Output.SaveDataset && prob.simulated {
		path := filepath.Join(cfg.Output.Dir, "problem.rpid")
		ds := &dataset.Dataset{
			Probe:    prob.probe,
			Patterns: prob.patterns,
			Mask:     prob.mask,
			Truth:    prob.truth,
		}
		if err := dataset.Save(path, ds); err != nil {
			log.Printf("Warning: failed to save dataset: %v", err)
		}
	}

	return nil
}
