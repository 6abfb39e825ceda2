// Package reconstruction implements batched conjugate-gradient phase
// retrieval: given a known probe, measured far-field intensity patterns, and
// initial object guesses, it recovers the complex objects that reproduce the
// measured magnitudes.
//
// The solver is Fletcher-Reeves nonlinear CG with periodic steepest-descent
// resets and an analytic step size. Gradients come from the exact adjoint of
// the forward model rather than numeric or automatic differentiation, so one
// iteration costs two forward applications and one adjoint. Batch elements
// are mathematically independent and are solved on a bounded pool of worker
// goroutines.
package reconstruction

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"rpirecon/pkg/field"
	"rpirecon/pkg/optics"
)

// DefaultClearEvery is the steepest-descent reset period used when Params
// leaves ClearEvery unset.
const DefaultClearEvery = 10

// ProgressCallback is a function that reports progress during reconstruction.
// It receives the number of completed element-iterations, the total number,
// and a message string. If the message is empty the callback should update a
// progress indicator; otherwise it should display the message.
type ProgressCallback func(completed, total int, message string)

// Params holds the solver configuration.
type Params struct {
	// Iterations is the number of conjugate-gradient iterations to run per
	// batch element. Zero returns the initial guesses unchanged.
	Iterations int

	// ClearEvery is the reset period: every ClearEvery-th iteration discards
	// the accumulated direction and restarts from steepest descent, which
	// keeps stale curvature information from derailing the search.
	// Values below 1 select DefaultClearEvery.
	ClearEvery int

	// Workers is the number of goroutines used across the batch.
	// Values below 1 select runtime.NumCPU(). Results are identical for any
	// worker count because batch elements never interact.
	Workers int
}

// Reconstructor runs batched reconstructions with a fixed configuration.
// It is not safe for concurrent use; create one per concurrent run.
type Reconstructor struct {
	params           Params
	progressCallback ProgressCallback
	history          [][]float64
}

// NewReconstructor creates a reconstructor with the provided parameters,
// filling defaults for unset fields. A nil params selects all defaults.
func NewReconstructor(params *Params) *Reconstructor {
	var p Params
	if params != nil {
		p = *params
	}
	if p.Iterations < 0 {
		p.Iterations = 0
	}
	if p.ClearEvery < 1 {
		p.ClearEvery = DefaultClearEvery
	}
	if p.Workers < 1 {
		p.Workers = runtime.NumCPU()
	}
	return &Reconstructor{params: p}
}

// SetProgressCallback sets an optional callback for progress reporting.
// The callback may be invoked concurrently from worker goroutines.
func (r *Reconstructor) SetProgressCallback(callback ProgressCallback) {
	r.progressCallback = callback
}

func (r *Reconstructor) reportProgress(completed, total int, message string) {
	if r.progressCallback != nil {
		r.progressCallback(completed, total, message)
	}
}

// Reconstruct recovers the batch of complex objects whose simulated
// diffraction magnitudes best match the measured patterns.
//
// Parameters:
//   - initial: N initial object guesses; the solver starts from these and
//     never mutates them
//   - probe: the known complex illumination on the detector-sized grid
//   - patterns: N measured intensity patterns in centered layout, one per
//     object; they are de-centered and square-rooted once before iterating
//   - mask: detector pixels to trust; nil means every pixel is valid
//
// Returns:
//   - a freshly allocated stack with the reconstructed objects
//   - an error if any shape is inconsistent or any pattern value is negative
//     or non-finite
func (r *Reconstructor) Reconstruct(initial *field.Stack, probe *field.Grid, patterns *field.RealStack, mask *field.Mask) (*field.Stack, error) {
	if initial == nil || probe == nil || patterns == nil {
		return nil, fmt.Errorf("initial objects, probe, and patterns must all be provided")
	}

	model, err := optics.NewModel(probe, initial.Rows, initial.Cols)
	if err != nil {
		return nil, err
	}
	if patterns.N != initial.N {
		return nil, fmt.Errorf("got %d patterns for %d initial objects", patterns.N, initial.N)
	}
	if patterns.Rows != probe.Rows || patterns.Cols != probe.Cols {
		return nil, fmt.Errorf("pattern shape %dx%d does not match probe shape %dx%d",
			patterns.Rows, patterns.Cols, probe.Rows, probe.Cols)
	}
	if mask != nil && (mask.Rows != probe.Rows || mask.Cols != probe.Cols) {
		return nil, fmt.Errorf("mask shape %dx%d does not match probe shape %dx%d",
			mask.Rows, mask.Cols, probe.Rows, probe.Cols)
	}

	targets, err := prepareTargets(patterns)
	if err != nil {
		return nil, err
	}

	result := initial.Clone()

	iters := r.params.Iterations
	r.history = make([][]float64, iters)
	for i := range r.history {
		r.history[i] = make([]float64, initial.N)
	}
	if iters == 0 {
		return result, nil
	}

	workers := r.params.Workers
	if workers > initial.N {
		workers = initial.N
	}
	perWorker := (initial.N + workers - 1) / workers

	total := initial.N * iters
	var completed int64

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := start + perWorker
		if end > initial.N {
			end = initial.N
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			s := newSolver(model, mask)
			tick := func() {
				n := atomic.AddInt64(&completed, 1)
				r.reportProgress(int(n), total, "")
			}
			for i := start; i < end; i++ {
				s.run(result.Grid(i), targets.Plane(i), iters, r.params.ClearEvery, r.history, i, tick)
			}
		}(start, end)
	}
	wg.Wait()

	return result, nil
}

// ErrorHistory returns the squared magnitude error recorded during the most
// recent Reconstruct call, indexed as [iteration][batch element]. The error
// for an iteration is measured before that iteration's update. The returned
// slices are owned by the reconstructor.
func (r *Reconstructor) ErrorHistory() [][]float64 {
	return r.history
}

// prepareTargets converts measured intensities into the amplitude targets the
// iteration compares against: each plane is de-centered from the
// human-friendly centered layout into FFT-native layout, then square-rooted.
// Both happen once per run, never inside the iteration loop.
func prepareTargets(patterns *field.RealStack) (*field.RealStack, error) {
	targets := field.NewRealStack(patterns.N, patterns.Rows, patterns.Cols)
	for i := 0; i < patterns.N; i++ {
		src := patterns.Plane(i)
		for p, v := range src {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("pattern %d contains a non-finite value at pixel %d", i, p)
			}
			if v < 0 {
				return nil, fmt.Errorf("pattern %d contains a negative intensity at pixel %d", i, p)
			}
		}
		dst := targets.Plane(i)
		field.IFFTShiftReal(dst, src, patterns.Rows, patterns.Cols)
		for p := range dst {
			dst[p] = math.Sqrt(dst[p])
		}
	}
	return targets, nil
}
