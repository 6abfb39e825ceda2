package field

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT2 computes unitary 2D Fourier transforms of grids with a fixed shape.
// It composes Gonum's 1D complex transforms row-wise and then column-wise.
//
// Gonum transforms are unnormalized: a forward pass followed by an inverse
// pass multiplies the input by rows*cols. FFT2 instead scales each direction
// by 1/sqrt(rows*cols), so Forward and Inverse are exact inverses of each
// other and both preserve the l2 norm.
//
// A plan holds scratch state and is NOT safe for concurrent use. Every
// goroutine needs its own FFT2.
type FFT2 struct {
	rows, cols int
	row        *fourier.CmplxFFT
	col        *fourier.CmplxFFT
	buf        []complex128
	scale      complex128
}

// NewFFT2 builds reusable transform plans for grids of the given shape.
func NewFFT2(rows, cols int) *FFT2 {
	if rows < 1 || cols < 1 {
		panic("field: fft extents must be positive")
	}
	return &FFT2{
		rows:  rows,
		cols:  cols,
		row:   fourier.NewCmplxFFT(cols),
		col:   fourier.NewCmplxFFT(rows),
		buf:   make([]complex128, rows),
		scale: complex(1/math.Sqrt(float64(rows)*float64(cols)), 0),
	}
}

// Forward computes the unitary 2D DFT of src into dst. dst may alias src.
func (f *FFT2) Forward(dst, src *Grid) {
	f.transform(dst, src, true)
}

// Inverse computes the unitary 2D inverse DFT of src into dst.
// dst may alias src.
func (f *FFT2) Inverse(dst, src *Grid) {
	f.transform(dst, src, false)
}

func (f *FFT2) transform(dst, src *Grid, forward bool) {
	if src.Rows != f.rows || src.Cols != f.cols {
		panic("field: fft source shape does not match plan")
	}
	if dst.Rows != f.rows || dst.Cols != f.cols {
		panic("field: fft destination shape does not match plan")
	}
	if dst != src {
		copy(dst.Data, src.Data)
	}

	// Rows in place. Gonum allows dst and seq to be the same slice.
	for r := 0; r < f.rows; r++ {
		row := dst.Data[r*f.cols : (r+1)*f.cols]
		if forward {
			f.row.Coefficients(row, row)
		} else {
			f.row.Sequence(row, row)
		}
	}

	// Columns through the gather/scatter buffer.
	for c := 0; c < f.cols; c++ {
		for r := 0; r < f.rows; r++ {
			f.buf[r] = dst.Data[r*f.cols+c]
		}
		if forward {
			f.col.Coefficients(f.buf, f.buf)
		} else {
			f.col.Sequence(f.buf, f.buf)
		}
		for r := 0; r < f.rows; r++ {
			dst.Data[r*f.cols+c] = f.buf[r]
		}
	}

	for i := range dst.Data {
		dst.Data[i] *= f.scale
	}
}
