// Package simulate generates synthetic phase-retrieval problems: probes,
// weakly perturbed objects, and the noiseless diffraction patterns they
// produce. It exists so demos and tests can build self-contained,
// reproducible scenarios without measured data.
package simulate

import (
	"math"
	"math/rand"

	"rpirecon/pkg/field"
	"rpirecon/pkg/optics"
)

// FlatProbe returns a unit-amplitude, zero-phase probe. Useful as a
// degenerate baseline; flat illumination makes the single-shot inverse
// problem badly conditioned, so reconstructions against it converge slowly.
func FlatProbe(rows, cols int) *field.Grid {
	g := field.NewGrid(rows, cols)
	for i := range g.Data {
		g.Data[i] = 1
	}
	return g
}

// SpeckleProbe returns a randomized probe: a complex Gaussian field
// band-limited to the given fraction of the Nyquist radius and normalized to
// unit RMS amplitude. Randomized structured illumination is what makes
// single-shot phase retrieval well-posed.
//
// cutoff is the retained spectral radius as a fraction of min(rows, cols)/2;
// values at or above 1 keep the full spectrum. The generator is seeded, so
// equal arguments produce identical probes.
func SpeckleProbe(rows, cols int, cutoff float64, seed int64) *field.Grid {
	rng := rand.New(rand.NewSource(seed))

	g := field.NewGrid(rows, cols)
	for i := range g.Data {
		g.Data[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}

	fft := field.NewFFT2(rows, cols)
	fft.Forward(g, g)

	centered := field.NewGrid(rows, cols)
	field.FFTShift(centered, g)

	maxRadius := cutoff * float64(min(rows, cols)) / 2
	cr, cc := rows/2, cols/2
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dr := float64(r - cr)
			dc := float64(c - cc)
			if math.Hypot(dr, dc) > maxRadius {
				centered.Set(r, c, 0)
			}
		}
	}

	field.IFFTShift(g, centered)
	fft.Inverse(g, g)

	rms := math.Sqrt(field.Norm2(g) / float64(rows*cols))
	if rms > 0 {
		field.Scale(g, complex(1/rms, 0))
	}
	return g
}

// PerturbedObjects returns n objects of the form
// 1 + eps/sqrt(2) * (g1 + i*g2) with g1, g2 standard normal per pixel:
// weak random perturbations around unit transmission, the regime the
// linearized step size handles well.
func PerturbedObjects(n, rows, cols int, eps float64, seed int64) *field.Stack {
	rng := rand.New(rand.NewSource(seed))
	amp := eps / math.Sqrt2

	s := field.NewStack(n, rows, cols)
	for i := range s.Data {
		s.Data[i] = complex(1+amp*rng.NormFloat64(), amp*rng.NormFloat64())
	}
	return s
}

// FlatObjects returns n all-ones objects, the conventional initial guess for
// weakly perturbed samples.
func FlatObjects(n, rows, cols int) *field.Stack {
	s := field.NewStack(n, rows, cols)
	for i := range s.Data {
		s.Data[i] = 1
	}
	return s
}

// Patterns simulates the noiseless diffraction patterns of the given objects
// under the probe: |Forward(obj)|^2 per element, re-centered into the
// conventional centered detector layout that Reconstruct expects to ingest.
func Patterns(probe *field.Grid, objects *field.Stack) (*field.RealStack, error) {
	model, err := optics.NewModel(probe, objects.Rows, objects.Cols)
	if err != nil {
		return nil, err
	}
	ws := model.NewWorkspace()

	out := field.NewRealStack(objects.N, probe.Rows, probe.Cols)
	diff := field.NewGrid(probe.Rows, probe.Cols)
	intensity := make([]float64, probe.Rows*probe.Cols)

	for i := 0; i < objects.N; i++ {
		model.Forward(diff, objects.Grid(i), ws)
		field.AbsSq(intensity, diff)
		field.FFTShiftReal(out.Plane(i), intensity, probe.Rows, probe.Cols)
	}
	return out, nil
}
