package field

// Elementwise operations on grids. All of them require matching shapes and
// panic otherwise; dst may alias an input unless noted.

import "math/cmplx"

func checkSameShape(a, b *Grid) {
	if a.Rows != b.Rows || a.Cols != b.Cols {
		panic("field: grids have different shapes")
	}
}

// Mul sets dst[i] = a[i] * b[i].
func Mul(dst, a, b *Grid) {
	checkSameShape(dst, a)
	checkSameShape(dst, b)
	for i := range dst.Data {
		dst.Data[i] = a.Data[i] * b.Data[i]
	}
}

// MulConj sets dst[i] = a[i] * conj(b[i]).
func MulConj(dst, a, b *Grid) {
	checkSameShape(dst, a)
	checkSameShape(dst, b)
	for i := range dst.Data {
		dst.Data[i] = a.Data[i] * cmplx.Conj(b.Data[i])
	}
}

// AddScaled sets dst[i] += alpha * x[i].
func AddScaled(dst *Grid, alpha complex128, x *Grid) {
	checkSameShape(dst, x)
	for i := range dst.Data {
		dst.Data[i] += alpha * x.Data[i]
	}
}

// Scale multiplies every element of g by alpha.
func Scale(g *Grid, alpha complex128) {
	for i := range g.Data {
		g.Data[i] *= alpha
	}
}

// Norm2 returns the squared l2 norm of g, the sum of |g[i]|^2.
func Norm2(g *Grid) float64 {
	var sum float64
	for _, v := range g.Data {
		re, im := real(v), imag(v)
		sum += re*re + im*im
	}
	return sum
}

// AbsSq writes |src[i]|^2 into dst, which must have length Rows*Cols.
func AbsSq(dst []float64, src *Grid) {
	if len(dst) != len(src.Data) {
		panic("field: destination length does not match grid size")
	}
	for i, v := range src.Data {
		re, im := real(v), imag(v)
		dst[i] = re*re + im*im
	}
}
