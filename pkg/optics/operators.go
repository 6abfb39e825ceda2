package optics

import "rpirecon/pkg/field"

// Upsample interpolates an object-shaped grid onto the probe grid by
// zero-padding its centered spectrum: forward FFT, shift the zero frequency
// to the center, embed in a probe-shaped grid, shift back, inverse FFT.
// With unitary transforms the total energy is preserved exactly; for equal
// shapes the operation is the identity to roundoff.
//
// dst must be probe-shaped and must not alias workspace scratch.
func (m *Model) Upsample(dst, obj *field.Grid, ws *Workspace) {
	m.checkObjectShape(obj)
	m.checkProbeShape(dst)

	ws.fftObj.Forward(ws.objA, obj)
	field.FFTShift(ws.objB, ws.objA)
	field.PadCentered(ws.probeA, ws.objB)
	field.IFFTShift(ws.probeB, ws.probeA)
	ws.fftProbe.Inverse(dst, ws.probeB)
}

// ExitWave computes the wavefield leaving the sample: the upsampled object
// multiplied pointwise by the probe.
func (m *Model) ExitWave(dst, obj *field.Grid, ws *Workspace) {
	m.Upsample(dst, obj, ws)
	field.Mul(dst, dst, m.probe)
}

// Propagate maps an exit wave to the detector-plane wavefield with a single
// unitary forward FFT. No quadrant shift is applied; the result is in
// FFT-native layout. dst may alias exit.
func (m *Model) Propagate(dst, exit *field.Grid, ws *Workspace) {
	m.checkProbeShape(exit)
	m.checkProbeShape(dst)
	ws.fftProbe.Forward(dst, exit)
}

// Forward composes ExitWave and Propagate: the full map from an object
// estimate to the detector-plane wavefield. The map is linear in the object,
// so Forward applied to a search direction is the exact directional
// derivative of the wavefield.
func (m *Model) Forward(dst, obj *field.Grid, ws *Workspace) {
	m.ExitWave(dst, obj, ws)
	m.Propagate(dst, dst, ws)
}

// Adjoint applies the conjugate transpose of Forward to a detector-plane
// signal, mapping it back to an object-shaped grid. Stage by stage it
// reverses Forward: inverse FFT to the exit plane, multiply by the probe's
// conjugate, then the adjoint of Upsample (forward FFT, center, crop the
// embedded window at the same offsets the pad used, de-center, inverse FFT).
//
// Together the pair satisfies <Forward(x), y> == <x, Adjoint(y)>.
func (m *Model) Adjoint(dst, g *field.Grid, ws *Workspace) {
	m.checkProbeShape(g)
	m.checkObjectShape(dst)

	ws.fftProbe.Inverse(ws.probeA, g)
	field.MulConj(ws.probeA, ws.probeA, m.probe)

	ws.fftProbe.Forward(ws.probeB, ws.probeA)
	field.FFTShift(ws.probeC, ws.probeB)
	field.CropCentered(ws.objA, ws.probeC)
	field.IFFTShift(ws.objB, ws.objA)
	ws.fftObj.Inverse(dst, ws.objB)
}
