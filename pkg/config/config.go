// Package config provides configuration loading and management for rpirecon.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Solver parameters
	Solver struct {
		// Iterations is the number of conjugate-gradient iterations per object
		Iterations int `yaml:"iterations"`

		// ClearEvery is the steepest-descent reset period
		ClearEvery int `yaml:"clearEvery"`

		// Workers specifies how many goroutines to run across the batch;
		// 0 selects all available cores
		Workers int `yaml:"workers"`
	} `yaml:"solver"`

	// Simulation parameters for synthetic problems
	Simulation struct {
		// Batch is the number of independent objects to reconstruct
		Batch int `yaml:"batch"`

		// ProbeRows and ProbeCols set the detector-plane grid
		ProbeRows int `yaml:"probeRows"`
		ProbeCols int `yaml:"probeCols"`

		// ObjectRows and ObjectCols set the object-plane grid; both must not
		// exceed the probe grid
		ObjectRows int `yaml:"objectRows"`
		ObjectCols int `yaml:"objectCols"`

		// Epsilon scales the random perturbation of the true objects around
		// unit transmission
		Epsilon float64 `yaml:"epsilon"`

		// Seed makes the simulated problem reproducible
		Seed int64 `yaml:"seed"`

		// ProbeKind selects the illumination: "speckle" or "flat"
		ProbeKind string `yaml:"probeKind"`

		// SpeckleCutoff is the retained spectral radius of the speckle probe
		// as a fraction of the Nyquist radius
		SpeckleCutoff float64 `yaml:"speckleCutoff"`
	} `yaml:"simulation"`

	// Output parameters
	Output struct {
		// Dir is the directory for images, plots, and datasets
		Dir string `yaml:"dir"`

		// SaveImages controls magnitude/phase/pattern PNG export
		SaveImages bool `yaml:"saveImages"`

		// SavePlots controls convergence plot export
		SavePlots bool `yaml:"savePlots"`

		// SaveDataset controls whether simulated problems are written to disk
		// so later runs can reload them
		SaveDataset bool `yaml:"saveDataset"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default solver parameters
	cfg.Solver.Iterations = 100
	cfg.Solver.ClearEvery = 10
	cfg.Solver.Workers = runtime.NumCPU() // Use all available cores by default

	// Set default simulation parameters: a batch of ten objects upsampled
	// 2x on each axis under a speckle probe
	cfg.Simulation.Batch = 10
	cfg.Simulation.ProbeRows = 512
	cfg.Simulation.ProbeCols = 512
	cfg.Simulation.ObjectRows = 256
	cfg.Simulation.ObjectCols = 256
	cfg.Simulation.Epsilon = 0.1
	cfg.Simulation.Seed = 42
	cfg.Simulation.ProbeKind = "speckle"
	cfg.Simulation.SpeckleCutoff = 0.5

	// Set default output parameters
	cfg.Output.Dir = "output"
	cfg.Output.SaveImages = true
	cfg.Output.SavePlots = true
	cfg.Output.SaveDataset = false
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Solver.Iterations < 0 {
		return fmt.Errorf("solver.iterations must not be negative, got %d", c.Solver.Iterations)
	}
	if c.Solver.ClearEvery < 1 {
		return fmt.Errorf("solver.clearEvery must be at least 1, got %d", c.Solver.ClearEvery)
	}
	if c.Solver.Workers < 0 {
		return fmt.Errorf("solver.workers must not be negative, got %d", c.Solver.Workers)
	}

	sim := &c.Simulation
	if sim.Batch < 1 {
		return fmt.Errorf("simulation.batch must be at least 1, got %d", sim.Batch)
	}
	if sim.ProbeRows < 1 || sim.ProbeCols < 1 {
		return fmt.Errorf("simulation probe shape %dx%d is not positive", sim.ProbeRows, sim.ProbeCols)
	}
	if sim.ObjectRows < 1 || sim.ObjectCols < 1 {
		return fmt.Errorf("simulation object shape %dx%d is not positive", sim.ObjectRows, sim.ObjectCols)
	}
	if sim.ProbeRows < sim.ObjectRows || sim.ProbeCols < sim.ObjectCols {
		return fmt.Errorf("simulation probe %dx%d is smaller than object %dx%d",
			sim.ProbeRows, sim.ProbeCols, sim.ObjectRows, sim.ObjectCols)
	}
	if sim.Epsilon < 0 {
		return fmt.Errorf("simulation.epsilon must not be negative, got %g", sim.Epsilon)
	}
	switch sim.ProbeKind {
	case "flat":
	case "speckle":
		if sim.SpeckleCutoff <= 0 || sim.SpeckleCutoff > 1 {
			return fmt.Errorf("simulation.speckleCutoff must be in (0, 1], got %g", sim.SpeckleCutoff)
		}
	default:
		return fmt.Errorf("simulation.probeKind must be \"flat\" or \"speckle\", got %q", sim.ProbeKind)
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	return nil
}
