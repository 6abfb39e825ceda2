package reconstruction

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/stat"

	"rpirecon/pkg/field"
)

// ValidationMetrics holds reconstruction quality metrics against ground
// truth. The magnitude-error functional is blind to a global phase factor,
// so every comparison happens after per-element global phase alignment.
type ValidationMetrics struct {
	// RelativeRMSE is sqrt(sum|rec-truth|^2 / sum|truth|^2) over the whole
	// aligned batch. Lower is better; zero means exact recovery.
	RelativeRMSE float64

	// PerElementRMSE is the same ratio computed per batch element.
	PerElementRMSE []float64

	// MagnitudeCorrelation is the Pearson correlation between |rec| and
	// |truth| over all pixels of the aligned batch. Values near 1 indicate
	// faithful amplitude recovery even where phases still differ.
	MagnitudeCorrelation float64

	// MeanPhaseOffset is the mean absolute global phase removed during
	// alignment, in radians. It measures nothing about quality (the
	// functional cannot see it) and is reported for diagnostics only.
	MeanPhaseOffset float64
}

// AlignGlobalPhase rotates each element of rec by the global phase that best
// matches truth, in place, and returns the applied phases. The optimal
// rotation for element i is exp(i*gamma) with
// gamma = arg(sum(conj(rec)*truth)). Elements with zero overlap are left
// untouched.
func AlignGlobalPhase(rec, truth *field.Stack) ([]float64, error) {
	if rec == nil || truth == nil {
		return nil, fmt.Errorf("both stacks must be provided")
	}
	if rec.N != truth.N || rec.Rows != truth.Rows || rec.Cols != truth.Cols {
		return nil, fmt.Errorf("stack shape %dx%dx%d does not match %dx%dx%d",
			rec.N, rec.Rows, rec.Cols, truth.N, truth.Rows, truth.Cols)
	}

	phases := make([]float64, rec.N)
	for i := 0; i < rec.N; i++ {
		rg := rec.Grid(i)
		tg := truth.Grid(i)

		var overlap complex128
		for p := range rg.Data {
			overlap += cmplx.Conj(rg.Data[p]) * tg.Data[p]
		}
		if overlap == 0 {
			continue
		}

		gamma := cmplx.Phase(overlap)
		field.Scale(rg, cmplx.Rect(1, gamma))
		phases[i] = gamma
	}
	return phases, nil
}

// Evaluate aligns a copy of rec against truth and computes the quality
// metrics. rec itself is not modified. Ground-truth elements with zero norm
// are an error: the relative error has no meaningful scale for them.
func Evaluate(rec, truth *field.Stack) (*ValidationMetrics, error) {
	if rec == nil || truth == nil {
		return nil, fmt.Errorf("both stacks must be provided")
	}

	aligned := rec.Clone()
	phases, err := AlignGlobalPhase(aligned, truth)
	if err != nil {
		return nil, err
	}

	per := make([]float64, aligned.N)
	var num, den float64
	for i := 0; i < aligned.N; i++ {
		ag := aligned.Grid(i)
		tg := truth.Grid(i)

		var n, d float64
		for p := range ag.Data {
			dv := ag.Data[p] - tg.Data[p]
			n += real(dv)*real(dv) + imag(dv)*imag(dv)
			tv := tg.Data[p]
			d += real(tv)*real(tv) + imag(tv)*imag(tv)
		}
		if d == 0 {
			return nil, fmt.Errorf("ground truth element %d has zero norm", i)
		}
		per[i] = math.Sqrt(n / d)
		num += n
		den += d
	}

	recMag := make([]float64, len(aligned.Data))
	truthMag := make([]float64, len(truth.Data))
	for p := range aligned.Data {
		recMag[p] = cmplx.Abs(aligned.Data[p])
		truthMag[p] = cmplx.Abs(truth.Data[p])
	}

	absPhases := make([]float64, len(phases))
	for i, gamma := range phases {
		absPhases[i] = math.Abs(gamma)
	}

	return &ValidationMetrics{
		RelativeRMSE:         math.Sqrt(num / den),
		PerElementRMSE:       per,
		MagnitudeCorrelation: stat.Correlation(recMag, truthMag, nil),
		MeanPhaseOffset:      stat.Mean(absPhases, nil),
	}, nil
}
