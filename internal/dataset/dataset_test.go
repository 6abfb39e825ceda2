package dataset

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"rpirecon/pkg/field"
)

func sampleDataset(withMask, withTruth bool) *Dataset {
	rng := rand.New(rand.NewSource(7))

	probe := field.NewGrid(6, 4)
	for i := range probe.Data {
		probe.Data[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}

	patterns := field.NewRealStack(3, 6, 4)
	for i := range patterns.Data {
		patterns.Data[i] = rng.Float64()
	}

	ds := &Dataset{Probe: probe, Patterns: patterns}
	if withMask {
		ds.Mask = field.NewMask(6, 4)
		ds.Mask.Set(2, 3, false)
		ds.Mask.Set(5, 0, false)
	}
	if withTruth {
		ds.Truth = field.NewStack(3, 3, 2)
		for i := range ds.Truth.Data {
			ds.Truth.Data[i] = complex(rng.NormFloat64(), rng.NormFloat64())
		}
	}
	return ds
}

func gridsEqual(a, b *field.Grid) bool {
	if a.Rows != b.Rows || a.Cols != b.Cols {
		return false
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			return false
		}
	}
	return true
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "problems", "sim.rpid")
	ds := sampleDataset(true, true)

	if err := Save(path, ds); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !gridsEqual(loaded.Probe, ds.Probe) {
		t.Error("probe did not survive the round trip")
	}
	if loaded.Patterns.N != 3 || loaded.Patterns.Rows != 6 || loaded.Patterns.Cols != 4 {
		t.Fatalf("patterns came back as %dx%dx%d, want 3x6x4",
			loaded.Patterns.N, loaded.Patterns.Rows, loaded.Patterns.Cols)
	}
	for i := range ds.Patterns.Data {
		if loaded.Patterns.Data[i] != ds.Patterns.Data[i] {
			t.Fatalf("pattern value %d changed: got %g, want %g",
				i, loaded.Patterns.Data[i], ds.Patterns.Data[i])
		}
	}
	if loaded.Mask == nil {
		t.Fatal("mask was dropped")
	}
	for i := range ds.Mask.Data {
		if loaded.Mask.Data[i] != ds.Mask.Data[i] {
			t.Fatalf("mask bit %d changed", i)
		}
	}
	if loaded.Truth == nil {
		t.Fatal("truth was dropped")
	}
	if loaded.Truth.N != 3 || loaded.Truth.Rows != 3 || loaded.Truth.Cols != 2 {
		t.Fatalf("truth came back as %dx%dx%d, want 3x3x2",
			loaded.Truth.N, loaded.Truth.Rows, loaded.Truth.Cols)
	}
	for i := range ds.Truth.Data {
		if loaded.Truth.Data[i] != ds.Truth.Data[i] {
			t.Fatalf("truth value %d changed", i)
		}
	}
}

func TestSaveLoadWithoutOptionalSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.rpid")
	if err := Save(path, sampleDataset(false, false)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Mask != nil {
		t.Error("mask should be nil when absent from the file")
	}
	if loaded.Truth != nil {
		t.Error("truth should be nil when absent from the file")
	}
}

func TestSaveRejectsInconsistentDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.rpid")

	cases := []struct {
		name   string
		mutate func(*Dataset)
	}{
		{"nil probe", func(ds *Dataset) { ds.Probe = nil }},
		{"nil patterns", func(ds *Dataset) { ds.Patterns = nil }},
		{"pattern shape mismatch", func(ds *Dataset) { ds.Patterns = field.NewRealStack(3, 5, 4) }},
		{"mask shape mismatch", func(ds *Dataset) { ds.Mask = field.NewMask(4, 6) }},
		{"truth count mismatch", func(ds *Dataset) { ds.Truth = field.NewStack(2, 3, 2) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ds := sampleDataset(true, true)
			tc.mutate(ds)
			if err := Save(path, ds); err == nil {
				t.Errorf("Save accepted dataset with %s", tc.name)
			}
		})
	}
}

func TestLoadRejectsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.rpid")
	if err := Save(good, sampleDataset(true, true)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	raw, err := os.ReadFile(good)
	if err != nil {
		t.Fatalf("reading dataset back: %v", err)
	}

	cases := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"unsupported version", func(b []byte) []byte { b[4] = 99; return b }},
		{"unknown flags", func(b []byte) []byte { b[6] |= 0x80; return b }},
		{"truncated payload", func(b []byte) []byte { return b[:len(b)-8] }},
		{"truncated header", func(b []byte) []byte { return b[:10] }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mutated := tc.mutate(append([]byte(nil), raw...))
			path := filepath.Join(dir, "corrupt.rpid")
			if err := os.WriteFile(path, mutated, 0644); err != nil {
				t.Fatalf("writing corrupt file: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Errorf("Load accepted file with %s", tc.name)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.rpid")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}
