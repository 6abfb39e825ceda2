// Package dataset persists reconstruction problems as a small binary
// container so simulated runs can be replayed and externally produced
// data can be ingested.
package dataset

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"rpirecon/pkg/field"
)

// Dataset bundles everything a reconstruction run consumes
type Dataset struct {
	// Probe is the illumination on the detector-plane grid
	Probe *field.Grid

	// Patterns holds one centered diffraction intensity per batch element,
	// on the probe grid
	Patterns *field.RealStack

	// Mask marks valid detector pixels; nil means all pixels are valid
	Mask *field.Mask

	// Truth holds the ground-truth objects when the problem is simulated;
	// nil for measured data
	Truth *field.Stack
}

// File layout, little-endian:
//
//	magic    [4]byte "RPID"
//	version  uint16
//	flags    uint16  (bit 0: mask present, bit 1: truth present)
//	batch    uint32
//	probe    rows, cols uint32
//	object   rows, cols uint32 (zero unless truth present)
//	payloads probe complex128s, pattern float64s, mask bytes, truth complex128s
const (
	formatVersion = 1

	flagMask  = 1 << 0
	flagTruth = 1 << 1

	// Extent guards reject allocating from a corrupt header
	maxExtent = 1 << 16
	maxBatch  = 1 << 20
)

var magic = [4]byte{'R', 'P', 'I', 'D'}

// Save writes the dataset to path, creating parent directories as needed.
//
// Parameters:
//   - path: destination file
//   - ds: dataset to persist; Probe and Patterns are required
//
// Returns:
//   - Error if the dataset is inconsistent or the file cannot be written
func Save(path string, ds *Dataset) error {
	if err := validate(ds); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating dataset directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating dataset file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := write(w, ds); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("error writing dataset file: %w", err)
	}
	return nil
}

// Load reads a dataset previously written by Save.
//
// Parameters:
//   - path: source file
//
// Returns:
//   - The dataset, or an error naming the corrupt or unsupported field
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening dataset file: %w", err)
	}
	defer f.Close()

	return read(bufio.NewReader(f))
}

func validate(ds *Dataset) error {
	if ds == nil || ds.Probe == nil {
		return fmt.Errorf("dataset probe is nil")
	}
	if ds.Patterns == nil || ds.Patterns.N == 0 {
		return fmt.Errorf("dataset holds no patterns")
	}
	pr, pc := ds.Probe.Shape()
	if ds.Patterns.Rows != pr || ds.Patterns.Cols != pc {
		return fmt.Errorf("dataset patterns shape %dx%d does not match probe shape %dx%d",
			ds.Patterns.Rows, ds.Patterns.Cols, pr, pc)
	}
	if ds.Mask != nil && (ds.Mask.Rows != pr || ds.Mask.Cols != pc) {
		return fmt.Errorf("dataset mask shape %dx%d does not match probe shape %dx%d",
			ds.Mask.Rows, ds.Mask.Cols, pr, pc)
	}
	if ds.Truth != nil && ds.Truth.N != ds.Patterns.N {
		return fmt.Errorf("dataset truth holds %d elements for %d patterns",
			ds.Truth.N, ds.Patterns.N)
	}
	return nil
}

func write(w *bufio.Writer, ds *Dataset) error {
	var flags uint16
	if ds.Mask != nil {
		flags |= flagMask
	}
	if ds.Truth != nil {
		flags |= flagTruth
	}

	pr, pc := ds.Probe.Shape()
	var or, oc int
	if ds.Truth != nil {
		or, oc = ds.Truth.Rows, ds.Truth.Cols
	}

	header := []any{
		magic,
		uint16(formatVersion),
		flags,
		uint32(ds.Patterns.N),
		uint32(pr), uint32(pc),
		uint32(or), uint32(oc),
	}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("error writing dataset header: %w", err)
		}
	}

	if err := binary.Write(w, binary.LittleEndian, ds.Probe.Data); err != nil {
		return fmt.Errorf("error writing probe data: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, ds.Patterns.Data); err != nil {
		return fmt.Errorf("error writing pattern data: %w", err)
	}
	if ds.Mask != nil {
		packed := make([]uint8, len(ds.Mask.Data))
		for i, ok := range ds.Mask.Data {
			if ok {
				packed[i] = 1
			}
		}
		if err := binary.Write(w, binary.LittleEndian, packed); err != nil {
			return fmt.Errorf("error writing mask data: %w", err)
		}
	}
	if ds.Truth != nil {
		if err := binary.Write(w, binary.LittleEndian, ds.Truth.Data); err != nil {
			return fmt.Errorf("error writing truth data: %w", err)
		}
	}
	return nil
}

func read(r *bufio.Reader) (*Dataset, error) {
	var gotMagic [4]byte
	if err := binary.Read(r, binary.LittleEndian, &gotMagic); err != nil {
		return nil, fmt.Errorf("error reading dataset magic: %w", err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("not a dataset file: bad magic %q", gotMagic[:])
	}

	var version, flags uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("error reading dataset version: %w", err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported dataset version %d", version)
	}
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return nil, fmt.Errorf("error reading dataset flags: %w", err)
	}
	if flags&^(flagMask|flagTruth) != 0 {
		return nil, fmt.Errorf("unsupported dataset flags %#x", flags)
	}

	var batch, pr, pc, or, oc uint32
	for _, v := range []*uint32{&batch, &pr, &pc, &or, &oc} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("error reading dataset header: %w", err)
		}
	}
	if batch == 0 || batch > maxBatch {
		return nil, fmt.Errorf("dataset batch size %d is out of range", batch)
	}
	if pr == 0 || pc == 0 || pr > maxExtent || pc > maxExtent {
		return nil, fmt.Errorf("dataset probe shape %dx%d is out of range", pr, pc)
	}
	hasTruth := flags&flagTruth != 0
	if hasTruth && (or == 0 || oc == 0 || or > maxExtent || oc > maxExtent) {
		return nil, fmt.Errorf("dataset object shape %dx%d is out of range", or, oc)
	}

	ds := &Dataset{
		Probe:    field.NewGrid(int(pr), int(pc)),
		Patterns: field.NewRealStack(int(batch), int(pr), int(pc)),
	}
	if err := binary.Read(r, binary.LittleEndian, ds.Probe.Data); err != nil {
		return nil, fmt.Errorf("error reading probe data: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, ds.Patterns.Data); err != nil {
		return nil, fmt.Errorf("error reading pattern data: %w", err)
	}
	if flags&flagMask != 0 {
		packed := make([]uint8, int(pr)*int(pc))
		if err := binary.Read(r, binary.LittleEndian, packed); err != nil {
			return nil, fmt.Errorf("error reading mask data: %w", err)
		}
		ds.Mask = field.NewMask(int(pr), int(pc))
		for i, v := range packed {
			ds.Mask.Data[i] = v != 0
		}
	}
	if hasTruth {
		ds.Truth = field.NewStack(int(batch), int(or), int(oc))
		if err := binary.Read(r, binary.LittleEndian, ds.Truth.Data); err != nil {
			return nil, fmt.Errorf("error reading truth data: %w", err)
		}
	}
	return ds, nil
}
