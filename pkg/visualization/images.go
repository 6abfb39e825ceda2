// Package visualization renders reconstructed wavefields and solver
// diagnostics to image and plot files.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"

	"rpirecon/pkg/field"
)

// SaveMagnitudePNG writes |g| as a grayscale PNG, normalized to the
// brightest pixel. An all-zero grid produces a black image.
func SaveMagnitudePNG(g *field.Grid, path string) error {
	if g == nil {
		return fmt.Errorf("cannot render a nil grid")
	}

	values := make([]float64, len(g.Data))
	peak := 0.0
	for i, z := range g.Data {
		values[i] = cmplx.Abs(z)
		if values[i] > peak {
			peak = values[i]
		}
	}
	if peak > 0 {
		for i := range values {
			values[i] /= peak
		}
	}

	return writeGrayPNG(values, g.Rows, g.Cols, path)
}

// SavePhasePNG writes arg(g) as a grayscale PNG with -pi mapped to black
// and +pi mapped to white.
func SavePhasePNG(g *field.Grid, path string) error {
	if g == nil {
		return fmt.Errorf("cannot render a nil grid")
	}

	values := make([]float64, len(g.Data))
	for i, z := range g.Data {
		values[i] = (cmplx.Phase(z) + math.Pi) / (2 * math.Pi)
	}

	return writeGrayPNG(values, g.Rows, g.Cols, path)
}

// SaveIntensityPNG writes a detector intensity plane as a grayscale PNG.
// Values are square-root compressed before normalization so the dim tails
// of diffraction patterns stay visible next to the central peak.
func SaveIntensityPNG(values []float64, rows, cols int, path string) error {
	if rows < 1 || cols < 1 {
		return fmt.Errorf("intensity shape %dx%d is not positive", rows, cols)
	}
	if len(values) != rows*cols {
		return fmt.Errorf("intensity plane has %d values for shape %dx%d", len(values), rows, cols)
	}

	compressed := make([]float64, len(values))
	peak := 0.0
	for i, v := range values {
		if v < 0 {
			v = 0
		}
		compressed[i] = math.Sqrt(v)
		if compressed[i] > peak {
			peak = compressed[i]
		}
	}
	if peak > 0 {
		for i := range compressed {
			compressed[i] /= peak
		}
	}

	return writeGrayPNG(compressed, rows, cols, path)
}

// SaveObjectImages writes magnitude and phase images for every element of
// the stack into outputDir, named prefix_NNN_magnitude.png and
// prefix_NNN_phase.png.
func SaveObjectImages(stack *field.Stack, outputDir, prefix string) error {
	if stack == nil {
		return fmt.Errorf("cannot render a nil stack")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for i := 0; i < stack.N; i++ {
		g := stack.Grid(i)

		name := filepath.Join(outputDir, fmt.Sprintf("%s_%03d_magnitude.png", prefix, i))
		if err := SaveMagnitudePNG(g, name); err != nil {
			return err
		}

		name = filepath.Join(outputDir, fmt.Sprintf("%s_%03d_phase.png", prefix, i))
		if err := SavePhasePNG(g, name); err != nil {
			return err
		}
	}

	return nil
}

// writeGrayPNG renders normalized values in [0, 1] as a 16-bit grayscale
// PNG, clamping anything outside the range.
func writeGrayPNG(values []float64, rows, cols int, path string) error {
	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := uint16(math.Max(0, math.Min(65535, values[r*cols+c]*65535)))
			img.SetGray16(c, r, color.Gray16{Y: v})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}
