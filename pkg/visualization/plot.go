package visualization

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	// Liberation fonts register automatically on import
	_ "gonum.org/v1/plot/font/liberation"
)

// linePalette cycles when the batch has more elements than colors
var linePalette = []color.RGBA{
	{R: 0, G: 0, B: 255, A: 255},
	{R: 255, G: 0, B: 0, A: 255},
	{R: 0, G: 160, B: 0, A: 255},
	{R: 200, G: 120, B: 0, A: 255},
	{R: 140, G: 0, B: 200, A: 255},
	{R: 0, G: 150, B: 150, A: 255},
	{R: 120, G: 120, B: 120, A: 255},
	{R: 180, G: 0, B: 120, A: 255},
}

// SaveConvergencePlot draws the squared reconstruction error of every batch
// element against the iteration number, on a log10 vertical axis, and saves
// the figure to path.
//
// Parameters:
//   - history: per-iteration errors, history[it][elem], as returned by
//     Reconstructor.ErrorHistory
//   - path: destination image file; the extension selects the format
//
// Returns:
//   - Error if the history is empty or the figure cannot be written
func SaveConvergencePlot(history [][]float64, path string) error {
	if len(history) == 0 || len(history[0]) == 0 {
		return fmt.Errorf("no error history to plot")
	}
	iterations := len(history)
	elements := len(history[0])

	p := plot.New()

	// Modify the font fields directly on existing styles
	p.Title.TextStyle.Font.Typeface = "Liberation"
	p.Title.TextStyle.Font.Variant = "Sans"
	p.Title.TextStyle.Font.Size = vg.Points(12)

	p.X.Label.TextStyle.Font.Typeface = "Liberation"
	p.X.Label.TextStyle.Font.Variant = "Sans"
	p.X.Label.TextStyle.Font.Size = vg.Points(12)

	p.Y.Label.TextStyle.Font.Typeface = "Liberation"
	p.Y.Label.TextStyle.Font.Variant = "Sans"
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)

	p.X.Tick.Label.Font.Typeface = "Liberation"
	p.X.Tick.Label.Font.Variant = "Sans"
	p.X.Tick.Label.Font.Size = vg.Points(10)

	p.Y.Tick.Label.Font.Typeface = "Liberation"
	p.Y.Tick.Label.Font.Variant = "Sans"
	p.Y.Tick.Label.Font.Size = vg.Points(10)

	p.Title.Text = "Conjugate-gradient convergence"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "log10 squared error"
	p.Add(plotter.NewGrid())

	for e := 0; e < elements; e++ {
		pts := make(plotter.XYs, 0, iterations)
		for it := 0; it < iterations; it++ {
			err := history[it][e]
			if err <= 0 {
				// Exactly converged; log10 has nothing to show
				continue
			}
			pts = append(pts, plotter.XY{X: float64(it), Y: math.Log10(err)})
		}
		if len(pts) == 0 {
			continue
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = linePalette[e%len(linePalette)]
		line.Width = vg.Points(1)
		p.Add(line)

		if elements <= len(linePalette) {
			p.Legend.Add(fmt.Sprintf("object %d", e), line)
		}
	}

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
