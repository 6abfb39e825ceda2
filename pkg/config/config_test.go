package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Solver.Iterations != 100 {
		t.Errorf("default iterations = %d, want 100", cfg.Solver.Iterations)
	}
	if cfg.Solver.ClearEvery != 10 {
		t.Errorf("default clearEvery = %d, want 10", cfg.Solver.ClearEvery)
	}
	if cfg.Solver.Workers < 1 {
		t.Errorf("default workers = %d, want at least 1", cfg.Solver.Workers)
	}
	if cfg.Simulation.ProbeRows != 2*cfg.Simulation.ObjectRows ||
		cfg.Simulation.ProbeCols != 2*cfg.Simulation.ObjectCols {
		t.Errorf("default probe %dx%d is not double the object %dx%d",
			cfg.Simulation.ProbeRows, cfg.Simulation.ProbeCols,
			cfg.Simulation.ObjectRows, cfg.Simulation.ObjectCols)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig returned error for missing file: %v", err)
	}
	want := DefaultConfig()
	if cfg.Solver.Iterations != want.Solver.Iterations ||
		cfg.Simulation.Batch != want.Simulation.Batch ||
		cfg.Output.Dir != want.Output.Dir {
		t.Errorf("missing file did not yield defaults: got %+v", cfg)
	}
}

func TestSaveAndLoadConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Solver.Iterations = 25
	cfg.Solver.Workers = 3
	cfg.Simulation.Batch = 4
	cfg.Simulation.ProbeKind = "flat"
	cfg.Output.Dir = "results"
	cfg.Output.SavePlots = false

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Solver.Iterations != 25 {
		t.Errorf("iterations = %d, want 25", loaded.Solver.Iterations)
	}
	if loaded.Solver.Workers != 3 {
		t.Errorf("workers = %d, want 3", loaded.Solver.Workers)
	}
	if loaded.Simulation.Batch != 4 {
		t.Errorf("batch = %d, want 4", loaded.Simulation.Batch)
	}
	if loaded.Simulation.ProbeKind != "flat" {
		t.Errorf("probeKind = %q, want \"flat\"", loaded.Simulation.ProbeKind)
	}
	if loaded.Output.Dir != "results" {
		t.Errorf("output dir = %q, want \"results\"", loaded.Output.Dir)
	}
	if loaded.Output.SavePlots {
		t.Error("savePlots survived as true, want false")
	}
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	partial := "solver:\n  iterations: 7\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatalf("writing partial config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Solver.Iterations != 7 {
		t.Errorf("iterations = %d, want 7", cfg.Solver.Iterations)
	}
	if cfg.Simulation.Batch != DefaultConfig().Simulation.Batch {
		t.Errorf("batch = %d, want default %d", cfg.Simulation.Batch, DefaultConfig().Simulation.Batch)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("solver: [not a mapping"), 0644); err != nil {
		t.Fatalf("writing broken config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for malformed YAML, got nil")
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file was not created: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Solver.Iterations != DefaultConfig().Solver.Iterations {
		t.Errorf("iterations = %d, want default %d",
			loaded.Solver.Iterations, DefaultConfig().Solver.Iterations)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative iterations", func(c *Config) { c.Solver.Iterations = -1 }},
		{"zero clearEvery", func(c *Config) { c.Solver.ClearEvery = 0 }},
		{"negative workers", func(c *Config) { c.Solver.Workers = -2 }},
		{"zero batch", func(c *Config) { c.Simulation.Batch = 0 }},
		{"zero probe rows", func(c *Config) { c.Simulation.ProbeRows = 0 }},
		{"zero object cols", func(c *Config) { c.Simulation.ObjectCols = 0 }},
		{"probe smaller than object", func(c *Config) { c.Simulation.ProbeRows = c.Simulation.ObjectRows / 2 }},
		{"negative epsilon", func(c *Config) { c.Simulation.Epsilon = -0.1 }},
		{"unknown probe kind", func(c *Config) { c.Simulation.ProbeKind = "gaussian" }},
		{"cutoff above one", func(c *Config) { c.Simulation.SpeckleCutoff = 1.5 }},
		{"zero cutoff", func(c *Config) { c.Simulation.SpeckleCutoff = 0 }},
		{"empty output dir", func(c *Config) { c.Output.Dir = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate accepted %s", tc.name)
			}
		})
	}
}

func TestValidateAcceptsFlatProbeWithAnyCutoff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulation.ProbeKind = "flat"
	cfg.Simulation.SpeckleCutoff = 0 // ignored for flat probes
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate rejected flat probe config: %v", err)
	}
}
