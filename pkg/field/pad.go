package field

// Centered zero-padding and its adjoint crop. Both derive their window
// placement from PadOffset, so a pad followed by a crop at the same shape
// pair always addresses the same region.

// PadOffset returns the starting index of an inner extent centered inside an
// outer extent: outer/2 - inner/2 with floor division. The formula is shared
// by PadCentered and CropCentered and matches the centered-spectrum embedding
// convention for both odd and even extents.
func PadOffset(outer, inner int) int {
	return outer/2 - inner/2
}

// PadCentered embeds src centered into dst and zero-fills the border.
// dst must be at least as large as src in both dimensions and must not
// alias it.
func PadCentered(dst, src *Grid) {
	if dst.Rows < src.Rows || dst.Cols < src.Cols {
		panic("field: pad destination smaller than source")
	}
	checkNotAliased(dst, src)
	top := PadOffset(dst.Rows, src.Rows)
	left := PadOffset(dst.Cols, src.Cols)
	dst.Zero()
	for r := 0; r < src.Rows; r++ {
		d := (r+top)*dst.Cols + left
		copy(dst.Data[d:d+src.Cols], src.Data[r*src.Cols:(r+1)*src.Cols])
	}
}

// CropCentered extracts the centered window of src into dst. It is the exact
// adjoint of PadCentered: the window starts at the same PadOffset indices.
// src must be at least as large as dst in both dimensions and must not
// alias it.
func CropCentered(dst, src *Grid) {
	if src.Rows < dst.Rows || src.Cols < dst.Cols {
		panic("field: crop source smaller than destination")
	}
	checkNotAliased(dst, src)
	top := PadOffset(src.Rows, dst.Rows)
	left := PadOffset(src.Cols, dst.Cols)
	for r := 0; r < dst.Rows; r++ {
		s := (r+top)*src.Cols + left
		copy(dst.Data[r*dst.Cols:(r+1)*dst.Cols], src.Data[s:s+dst.Cols])
	}
}
