package reconstruction

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"rpirecon/pkg/field"
)

func randStack(n, rows, cols int, rng *rand.Rand) *field.Stack {
	s := field.NewStack(n, rows, cols)
	for i := range s.Data {
		s.Data[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return s
}

// TestAlignGlobalPhaseRecoversPlantedPhase verifies that alignment undoes a
// planted global phase exactly: the rotated copy must land back on the truth
// to roundoff.
func TestAlignGlobalPhaseRecoversPlantedPhase(t *testing.T) {
	rng := rand.New(rand.NewSource(40))
	truth := randStack(3, 5, 4, rng)

	planted := []float64{0.3, -1.2, 2.9}
	rec := truth.Clone()
	for i, gamma := range planted {
		field.Scale(rec.Grid(i), cmplx.Rect(1, -gamma))
	}

	phases, err := AlignGlobalPhase(rec, truth)
	if err != nil {
		t.Fatalf("AlignGlobalPhase failed: %v", err)
	}

	for i, gamma := range planted {
		diff := math.Mod(phases[i]-gamma+3*math.Pi, 2*math.Pi) - math.Pi
		if math.Abs(diff) > 1e-12 {
			t.Errorf("Element %d: expected phase %g, got %g", i, gamma, phases[i])
		}
	}
	for i := range rec.Data {
		if cmplx.Abs(rec.Data[i]-truth.Data[i]) > 1e-12 {
			t.Fatalf("Aligned[%d]: expected %v, got %v", i, truth.Data[i], rec.Data[i])
		}
	}
}

// TestEvaluatePerfectReconstruction verifies the metrics on an exact match:
// zero RMSE, unit magnitude correlation, zero phase offset.
func TestEvaluatePerfectReconstruction(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	truth := randStack(2, 6, 6, rng)

	metrics, err := Evaluate(truth.Clone(), truth)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if metrics.RelativeRMSE > 1e-12 {
		t.Errorf("Expected zero RMSE, got %g", metrics.RelativeRMSE)
	}
	for i, rmse := range metrics.PerElementRMSE {
		if rmse > 1e-12 {
			t.Errorf("Element %d: expected zero RMSE, got %g", i, rmse)
		}
	}
	if math.Abs(metrics.MagnitudeCorrelation-1) > 1e-9 {
		t.Errorf("Expected magnitude correlation 1, got %g", metrics.MagnitudeCorrelation)
	}
	if metrics.MeanPhaseOffset > 1e-12 {
		t.Errorf("Expected zero mean phase offset, got %g", metrics.MeanPhaseOffset)
	}
}

// TestEvaluateIgnoresGlobalPhase verifies that a pure global phase rotation
// does not register as reconstruction error.
func TestEvaluateIgnoresGlobalPhase(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	truth := randStack(2, 4, 4, rng)

	rec := truth.Clone()
	field.Scale(rec.Grid(0), cmplx.Rect(1, 1.1))
	field.Scale(rec.Grid(1), cmplx.Rect(1, -2.4))

	metrics, err := Evaluate(rec, truth)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if metrics.RelativeRMSE > 1e-12 {
		t.Errorf("Expected zero RMSE after alignment, got %g", metrics.RelativeRMSE)
	}
	if metrics.MeanPhaseOffset < 1.0 {
		t.Errorf("Expected the planted phases reported, got mean offset %g", metrics.MeanPhaseOffset)
	}
}

// TestEvaluateErrors verifies the failure cases: mismatched shapes and
// ground truth without a usable scale.
func TestEvaluateErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(43))

	a := randStack(2, 4, 4, rng)
	b := randStack(2, 4, 5, rng)
	if _, err := Evaluate(a, b); err == nil {
		t.Errorf("Expected error for mismatched stack shapes")
	}

	zero := field.NewStack(2, 4, 4)
	if _, err := Evaluate(a, zero); err == nil {
		t.Errorf("Expected error for zero-norm ground truth")
	}
}
