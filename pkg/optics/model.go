// Package optics implements the physical imaging model: how a low-resolution
// object estimate interacts with a known high-resolution probe to produce a
// wavefield at the detector plane, and the exact adjoint of that map.
//
// The interaction upsamples the object onto the probe grid by Fourier-domain
// zero-padding (sinc interpolation), multiplies by the probe to form the exit
// wave, and propagates to the far field with a unitary FFT. The detector
// wavefield stays in FFT-native layout (zero frequency at the corner);
// measured patterns are de-centered once by the caller instead of re-centering
// every simulated field.
package optics

import (
	"fmt"

	"rpirecon/pkg/field"
)

// Model describes one reconstruction geometry: a fixed complex probe and the
// shape of the object estimates it interacts with. A Model is immutable after
// construction and safe for concurrent use; all mutable scratch lives in
// Workspace values, one per goroutine.
type Model struct {
	probe   *field.Grid
	objRows int
	objCols int
}

// NewModel validates the geometry and returns a model that owns a private
// copy of the probe.
//
// The probe must be at least as large as the object in both dimensions:
// the interaction upsamples the object onto the probe grid, never the
// reverse.
func NewModel(probe *field.Grid, objRows, objCols int) (*Model, error) {
	if probe == nil {
		return nil, fmt.Errorf("probe must not be nil")
	}
	if objRows < 1 || objCols < 1 {
		return nil, fmt.Errorf("object shape %dx%d is not positive", objRows, objCols)
	}
	if probe.Rows < objRows || probe.Cols < objCols {
		return nil, fmt.Errorf("probe shape %dx%d is smaller than object shape %dx%d",
			probe.Rows, probe.Cols, objRows, objCols)
	}
	return &Model{
		probe:   probe.Clone(),
		objRows: objRows,
		objCols: objCols,
	}, nil
}

// ProbeShape returns the detector-plane grid extents.
func (m *Model) ProbeShape() (rows, cols int) {
	return m.probe.Rows, m.probe.Cols
}

// ObjectShape returns the object-plane grid extents.
func (m *Model) ObjectShape() (rows, cols int) {
	return m.objRows, m.objCols
}

// Workspace holds the per-goroutine FFT plans and scratch grids the model
// operations run on. Operations never allocate once a workspace exists.
// A workspace must not be shared between goroutines.
type Workspace struct {
	fftObj   *field.FFT2
	fftProbe *field.FFT2

	objA *field.Grid
	objB *field.Grid

	probeA *field.Grid
	probeB *field.Grid
	probeC *field.Grid
}

// NewWorkspace allocates plans and scratch for this model's two grid shapes.
func (m *Model) NewWorkspace() *Workspace {
	return &Workspace{
		fftObj:   field.NewFFT2(m.objRows, m.objCols),
		fftProbe: field.NewFFT2(m.probe.Rows, m.probe.Cols),
		objA:     field.NewGrid(m.objRows, m.objCols),
		objB:     field.NewGrid(m.objRows, m.objCols),
		probeA:   field.NewGrid(m.probe.Rows, m.probe.Cols),
		probeB:   field.NewGrid(m.probe.Rows, m.probe.Cols),
		probeC:   field.NewGrid(m.probe.Rows, m.probe.Cols),
	}
}

func (m *Model) checkObjectShape(g *field.Grid) {
	if g.Rows != m.objRows || g.Cols != m.objCols {
		panic(fmt.Sprintf("optics: grid %dx%d is not object-shaped %dx%d",
			g.Rows, g.Cols, m.objRows, m.objCols))
	}
}

func (m *Model) checkProbeShape(g *field.Grid) {
	if g.Rows != m.probe.Rows || g.Cols != m.probe.Cols {
		panic(fmt.Sprintf("optics: grid %dx%d is not probe-shaped %dx%d",
			g.Rows, g.Cols, m.probe.Rows, m.probe.Cols))
	}
}
