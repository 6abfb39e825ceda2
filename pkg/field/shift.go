package field

// Quadrant shifts between the FFT-native layout (zero frequency at index 0)
// and the centered layout (zero frequency at Rows/2, Cols/2). The two maps
// coincide for even extents and differ for odd ones; in both cases IFFTShift
// is the exact inverse of FFTShift.
//
// dst must not alias src for any of these functions.

// FFTShift moves the zero-frequency element to the center:
// dst[(r+Rows/2)%Rows][(c+Cols/2)%Cols] = src[r][c].
func FFTShift(dst, src *Grid) {
	checkSameShape(dst, src)
	checkNotAliased(dst, src)
	hr, hc := src.Rows/2, src.Cols/2
	for r := 0; r < src.Rows; r++ {
		rr := (r + hr) % src.Rows
		for c := 0; c < src.Cols; c++ {
			dst.Data[rr*src.Cols+(c+hc)%src.Cols] = src.Data[r*src.Cols+c]
		}
	}
}

// IFFTShift moves the centered zero-frequency element back to index 0:
// dst[r][c] = src[(r+Rows/2)%Rows][(c+Cols/2)%Cols].
func IFFTShift(dst, src *Grid) {
	checkSameShape(dst, src)
	checkNotAliased(dst, src)
	hr, hc := src.Rows/2, src.Cols/2
	for r := 0; r < src.Rows; r++ {
		sr := (r + hr) % src.Rows
		for c := 0; c < src.Cols; c++ {
			dst.Data[r*src.Cols+c] = src.Data[sr*src.Cols+(c+hc)%src.Cols]
		}
	}
}

// FFTShiftReal applies the FFTShift index map to a real-valued row-major
// plane of the given shape.
func FFTShiftReal(dst, src []float64, rows, cols int) {
	checkRealPlanes(dst, src, rows, cols)
	hr, hc := rows/2, cols/2
	for r := 0; r < rows; r++ {
		rr := (r + hr) % rows
		for c := 0; c < cols; c++ {
			dst[rr*cols+(c+hc)%cols] = src[r*cols+c]
		}
	}
}

// IFFTShiftReal applies the IFFTShift index map to a real-valued row-major
// plane of the given shape.
func IFFTShiftReal(dst, src []float64, rows, cols int) {
	checkRealPlanes(dst, src, rows, cols)
	hr, hc := rows/2, cols/2
	for r := 0; r < rows; r++ {
		sr := (r + hr) % rows
		for c := 0; c < cols; c++ {
			dst[r*cols+c] = src[sr*cols+(c+hc)%cols]
		}
	}
}

func checkNotAliased(dst, src *Grid) {
	if len(dst.Data) > 0 && len(src.Data) > 0 && &dst.Data[0] == &src.Data[0] {
		panic("field: shift destination must not alias source")
	}
}

func checkRealPlanes(dst, src []float64, rows, cols int) {
	if len(dst) != rows*cols || len(src) != rows*cols {
		panic("field: plane length does not match shape")
	}
	if &dst[0] == &src[0] {
		panic("field: shift destination must not alias source")
	}
}
