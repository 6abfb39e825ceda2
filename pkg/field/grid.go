// Package field provides the dense complex-valued grid and stack types used
// throughout the reconstruction pipeline, together with the Fourier-domain
// primitives that operate on them: unitary 2D FFTs, quadrant shifts, and
// centered zero-padding with its matching crop.
//
// All storage is row-major and contiguous. Shapes are arbitrary positive
// integers; nothing assumes square, even, or power-of-two extents.
package field

// Grid is a dense complex-valued 2D field stored in row-major order.
// Data has length Rows*Cols; element (r, c) lives at Data[r*Cols+c].
type Grid struct {
	Rows int
	Cols int
	Data []complex128
}

// NewGrid allocates a zero-filled grid of the given shape.
// It panics if either extent is not positive.
func NewGrid(rows, cols int) *Grid {
	if rows < 1 || cols < 1 {
		panic("field: grid extents must be positive")
	}
	return &Grid{
		Rows: rows,
		Cols: cols,
		Data: make([]complex128, rows*cols),
	}
}

// GridFromData wraps an existing row-major slice as a grid, taking ownership
// of the slice. It panics if the slice length does not match the shape.
func GridFromData(rows, cols int, data []complex128) *Grid {
	if len(data) != rows*cols {
		panic("field: data length does not match grid shape")
	}
	return &Grid{Rows: rows, Cols: cols, Data: data}
}

// Shape returns the row and column extents.
func (g *Grid) Shape() (rows, cols int) {
	return g.Rows, g.Cols
}

// Index returns the flat Data index of element (r, c).
func (g *Grid) Index(r, c int) int {
	return r*g.Cols + c
}

// At returns the element at (r, c).
func (g *Grid) At(r, c int) complex128 {
	return g.Data[r*g.Cols+c]
}

// Set stores v at (r, c).
func (g *Grid) Set(r, c int, v complex128) {
	g.Data[r*g.Cols+c] = v
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	out := &Grid{Rows: g.Rows, Cols: g.Cols, Data: make([]complex128, len(g.Data))}
	copy(out.Data, g.Data)
	return out
}

// CopyFrom overwrites the grid with the contents of src.
// It panics if the shapes differ.
func (g *Grid) CopyFrom(src *Grid) {
	if g.Rows != src.Rows || g.Cols != src.Cols {
		panic("field: copy between grids of different shapes")
	}
	copy(g.Data, src.Data)
}

// Zero sets every element to zero.
func (g *Grid) Zero() {
	for i := range g.Data {
		g.Data[i] = 0
	}
}

// Stack is a batch of N equally shaped grids stored contiguously.
// Element i occupies Data[i*Rows*Cols : (i+1)*Rows*Cols].
type Stack struct {
	N    int
	Rows int
	Cols int
	Data []complex128
}

// NewStack allocates a zero-filled stack of n grids of the given shape.
func NewStack(n, rows, cols int) *Stack {
	if n < 1 || rows < 1 || cols < 1 {
		panic("field: stack extents must be positive")
	}
	return &Stack{
		N:    n,
		Rows: rows,
		Cols: cols,
		Data: make([]complex128, n*rows*cols),
	}
}

// Grid returns a view of element i that shares the stack's backing storage.
// Writes through the view are visible in the stack.
func (s *Stack) Grid(i int) *Grid {
	plane := s.Rows * s.Cols
	return &Grid{
		Rows: s.Rows,
		Cols: s.Cols,
		Data: s.Data[i*plane : (i+1)*plane],
	}
}

// Clone returns a deep copy of the stack.
func (s *Stack) Clone() *Stack {
	out := &Stack{N: s.N, Rows: s.Rows, Cols: s.Cols, Data: make([]complex128, len(s.Data))}
	copy(out.Data, s.Data)
	return out
}

// RealStack is a batch of N equally shaped real-valued planes, used for
// measured intensities and amplitude targets. Layout matches Stack.
type RealStack struct {
	N    int
	Rows int
	Cols int
	Data []float64
}

// NewRealStack allocates a zero-filled real stack.
func NewRealStack(n, rows, cols int) *RealStack {
	if n < 1 || rows < 1 || cols < 1 {
		panic("field: stack extents must be positive")
	}
	return &RealStack{
		N:    n,
		Rows: rows,
		Cols: cols,
		Data: make([]float64, n*rows*cols),
	}
}

// Plane returns a view of plane i sharing the backing storage.
func (s *RealStack) Plane(i int) []float64 {
	plane := s.Rows * s.Cols
	return s.Data[i*plane : (i+1)*plane]
}

// Clone returns a deep copy of the real stack.
func (s *RealStack) Clone() *RealStack {
	out := &RealStack{N: s.N, Rows: s.Rows, Cols: s.Cols, Data: make([]float64, len(s.Data))}
	copy(out.Data, s.Data)
	return out
}

// Mask marks which detector pixels carry valid measurements. A nil *Mask is
// treated everywhere as all pixels valid.
type Mask struct {
	Rows int
	Cols int
	Data []bool
}

// NewMask allocates a mask of the given shape with every pixel marked valid.
func NewMask(rows, cols int) *Mask {
	if rows < 1 || cols < 1 {
		panic("field: mask extents must be positive")
	}
	m := &Mask{Rows: rows, Cols: cols, Data: make([]bool, rows*cols)}
	for i := range m.Data {
		m.Data[i] = true
	}
	return m
}

// At reports whether pixel (r, c) is valid.
func (m *Mask) At(r, c int) bool {
	return m.Data[r*m.Cols+c]
}

// Set marks pixel (r, c) valid or invalid.
func (m *Mask) Set(r, c int, valid bool) {
	m.Data[r*m.Cols+c] = valid
}
