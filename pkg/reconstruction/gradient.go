package reconstruction

import (
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"rpirecon/pkg/field"
	"rpirecon/pkg/optics"
)

// solver holds the per-worker state for iterating one batch element at a
// time: the model workspace, detector- and object-plane scratch, and the
// conjugate-gradient memory (previous gradient and direction). The CG memory
// is only ever read after a same-element iteration has written it; iteration
// zero always resets, so nothing leaks between batch elements.
type solver struct {
	model *optics.Model
	ws    *optics.Workspace

	// maskf is the mask as 0/1 weights, nil when every pixel is valid.
	maskf []float64

	// diff holds the simulated detector wavefield; work holds first the
	// injected gradient signal and later the linearized wavefield along the
	// search direction. Both are probe-shaped.
	diff *field.Grid
	work *field.Grid

	// mag, resid, and bvec are detector-plane scratch: |diff|, the masked
	// magnitude residual, and the step-size denominator terms.
	mag   []float64
	resid []float64
	bvec  []float64

	// grad/dir are this iteration's gradient and direction; lastGrad/lastDir
	// are the previous iteration's. The pairs swap after every step.
	grad     *field.Grid
	dir      *field.Grid
	lastGrad *field.Grid
	lastDir  *field.Grid
}

func newSolver(model *optics.Model, mask *field.Mask) *solver {
	probeRows, probeCols := model.ProbeShape()
	objRows, objCols := model.ObjectShape()

	var maskf []float64
	if mask != nil {
		maskf = make([]float64, probeRows*probeCols)
		for i, valid := range mask.Data {
			if valid {
				maskf[i] = 1
			}
		}
	}

	return &solver{
		model:    model,
		ws:       model.NewWorkspace(),
		maskf:    maskf,
		diff:     field.NewGrid(probeRows, probeCols),
		work:     field.NewGrid(probeRows, probeCols),
		mag:      make([]float64, probeRows*probeCols),
		resid:    make([]float64, probeRows*probeCols),
		bvec:     make([]float64, probeRows*probeCols),
		grad:     field.NewGrid(objRows, objCols),
		dir:      field.NewGrid(objRows, objCols),
		lastGrad: field.NewGrid(objRows, objCols),
		lastDir:  field.NewGrid(objRows, objCols),
	}
}

// run executes iters conjugate-gradient iterations on obj against the
// amplitude target, recording the per-iteration error into hist[it][elem]
// and invoking tick after each iteration.
func (s *solver) run(obj *field.Grid, target []float64, iters, clearEvery int, hist [][]float64, elem int, tick func()) {
	for it := 0; it < iters; it++ {
		hist[it][elem] = s.step(obj, target, it, clearEvery)
		if tick != nil {
			tick()
		}
	}
}

// step performs one full iteration on obj and returns the squared magnitude
// error measured before the update.
func (s *solver) step(obj *field.Grid, target []float64, it, clearEvery int) float64 {
	s.model.Forward(s.diff, obj, s.ws)
	errVal := s.residual(target)

	s.inject()
	s.model.Adjoint(s.grad, s.work, s.ws)
	s.direction(it, clearEvery)

	// The forward map is linear in the object, so this is the exact
	// derivative of the wavefield along the search direction.
	s.model.Forward(s.work, s.dir, s.ws)

	if alpha := s.stepSize(); alpha != 0 {
		field.AddScaled(obj, complex(alpha, 0), s.dir)
	}

	s.grad, s.lastGrad = s.lastGrad, s.grad
	s.dir, s.lastDir = s.lastDir, s.dir
	return errVal
}

// residual fills mag and the masked magnitude residual for the current diff
// and returns the squared error sum.
func (s *solver) residual(target []float64) float64 {
	for p, d := range s.diff.Data {
		a := cmplx.Abs(d)
		s.mag[p] = a
		rv := a - target[p]
		if s.maskf != nil {
			rv *= s.maskf[p]
		}
		s.resid[p] = rv
	}
	return floats.Dot(s.resid, s.resid)
}

// inject writes the detector-plane gradient signal into work:
// 2 * resid * diff/|diff| per pixel, and zero wherever |diff| is zero, where
// the phase is undefined and the magnitude error has no usable derivative.
func (s *solver) inject() {
	for p, d := range s.diff.Data {
		a := s.mag[p]
		if a == 0 {
			s.work.Data[p] = 0
			continue
		}
		s.work.Data[p] = complex(2*s.resid[p]/a, 0) * d
	}
}

// direction computes the new search direction. Reset iterations (and a
// degenerate vanished previous gradient) take the steepest-descent direction;
// otherwise Fletcher-Reeves: dir = grad + beta*lastDir with
// beta = |grad|^2 / |lastGrad|^2.
func (s *solver) direction(it, clearEvery int) {
	if it%clearEvery == 0 {
		s.dir.CopyFrom(s.grad)
		return
	}
	lastNorm := field.Norm2(s.lastGrad)
	if lastNorm == 0 {
		s.dir.CopyFrom(s.grad)
		return
	}
	beta := field.Norm2(s.grad) / lastNorm
	s.dir.CopyFrom(s.grad)
	field.AddScaled(s.dir, complex(beta, 0), s.lastDir)
}

// stepSize returns the analytic minimizer of the linearized error along the
// current direction: with A the residual and B the magnitude derivative
// terms, alpha = -sum(A*B)/sum(B*B). A zero denominator means the direction
// does not change any measured magnitude to first order; the step is zero
// and the object stays put.
//
// work must hold the forward-propagated direction when this is called.
func (s *solver) stepSize() float64 {
	for p, d := range s.diff.Data {
		a := s.mag[p]
		if a == 0 {
			s.bvec[p] = 0
			continue
		}
		b := real(cmplx.Conj(d)*s.work.Data[p]) / a
		if s.maskf != nil {
			b *= s.maskf[p]
		}
		s.bvec[p] = b
	}

	den := floats.Dot(s.bvec, s.bvec)
	if den == 0 {
		return 0
	}
	return -floats.Dot(s.resid, s.bvec) / den
}
