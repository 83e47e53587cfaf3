// ABOUTME: Tests for the six-mode analytical model
// ABOUTME: Validates continuity, feasibility, classification, and clamping

package services

import (
	"math"
	"testing"

	"github.com/dablab/dab-tps-analyzer/models"
)

// referenceParams is the 200 V / 50 V reflected, 100 kHz, 20 uH converter
// used throughout the analytical tests.
func referenceParams() models.ConverterParameters {
	return models.ConverterParameters{
		PrimaryV:    200,
		SecondaryV:  50,
		HalfPeriodS: 1e-5,
		InductanceH: 20e-6,
	}
}

func TestTongModel_ReferenceValues(t *testing.T) {
	// Scenario: hand-computed power and Irms^2 at one interior point per
	// mode, reference converter (K = 5000 W, T/L = 0.5).
	m := NewTongModel(referenceParams())

	cases := []struct {
		mode   models.Mode
		d      models.DutyPoint
		powerW float64
		irmsSq float64
	}{
		{models.Mode1, models.DutyPoint{D0: 0.5, D1: 0.2, D2: 0.3}, 1075.0, 841.6666666666666},
		{models.Mode2, models.DutyPoint{D0: 0.8, D1: 0.5, D2: 0.4}, 525.0, 615.4166666666667},
		{models.Mode3, models.DutyPoint{D0: 0.9, D1: 0.2, D2: 0.5}, -125.0, 1043.5416666666665},
		{models.Mode4, models.DutyPoint{D0: 0.3, D1: 0.8, D2: 0.2}, 0.0, 15.0},
		{models.Mode5, models.DutyPoint{D0: 0.2, D1: 0.4, D2: 0.5}, 525.0, 401.04166666666663},
		{models.Mode6, models.DutyPoint{D0: 0.5, D1: 0.8, D2: 0.7}, 150.0, 90.41666666666666},
	}

	for _, tc := range cases {
		if !m.Feasible(tc.mode, tc.d) {
			t.Errorf("Expected mode %s to contain %+v", tc.mode, tc.d)
		}
		if p := m.Power(tc.mode, tc.d); math.Abs(p-tc.powerW) > 1e-9 {
			t.Errorf("Mode %s power: expected %g W, got %g W", tc.mode, tc.powerW, p)
		}
		if sq := m.IrmsSquared(tc.mode, tc.d); math.Abs(sq-tc.irmsSq) > 1e-9 {
			t.Errorf("Mode %s Irms^2: expected %g, got %g", tc.mode, tc.irmsSq, sq)
		}
	}
}

func TestTongModel_BoundaryContinuity(t *testing.T) {
	// Scenario: adjacent mode regions share a boundary surface; both
	// formula sets must agree there for power and Irms^2. Any sign or
	// reflection error in one mode's equations breaks this.
	m := NewTongModel(referenceParams())

	cases := []struct {
		a, b models.Mode
		d    models.DutyPoint
	}{
		{models.Mode1, models.Mode2, models.DutyPoint{D0: 0.7, D1: 0.3, D2: 0.3}}, // D0+D2 = 1
		{models.Mode2, models.Mode3, models.DutyPoint{D0: 0.8, D1: 0.1, D2: 0.3}}, // D0+D2 = 1+D1
		{models.Mode1, models.Mode5, models.DutyPoint{D0: 0.4, D1: 0.4, D2: 0.3}}, // D1 = D0
		{models.Mode4, models.Mode5, models.DutyPoint{D0: 0.2, D1: 0.5, D2: 0.3}}, // D1 = D0+D2
		{models.Mode5, models.Mode6, models.DutyPoint{D0: 0.3, D1: 0.5, D2: 0.7}}, // D0+D2 = 1
		{models.Mode2, models.Mode6, models.DutyPoint{D0: 0.6, D1: 0.6, D2: 0.5}}, // D1 = D0
	}

	for _, tc := range cases {
		pa, pb := m.Power(tc.a, tc.d), m.Power(tc.b, tc.d)
		if math.Abs(pa-pb) > 1e-6 {
			t.Errorf("Power discontinuity between modes %s and %s at %+v: %g vs %g",
				tc.a, tc.b, tc.d, pa, pb)
		}
		ia, ib := m.IrmsSquared(tc.a, tc.d), m.IrmsSquared(tc.b, tc.d)
		if math.Abs(ia-ib) > 1e-6 {
			t.Errorf("Irms^2 discontinuity between modes %s and %s at %+v: %g vs %g",
				tc.a, tc.b, tc.d, ia, ib)
		}
	}
}

func TestTongModel_ClassifyInteriorPoints(t *testing.T) {
	m := NewTongModel(referenceParams())

	cases := map[models.Mode]models.DutyPoint{
		models.Mode1: {D0: 0.5, D1: 0.2, D2: 0.3},
		models.Mode2: {D0: 0.8, D1: 0.5, D2: 0.4},
		models.Mode3: {D0: 0.9, D1: 0.2, D2: 0.5},
		models.Mode4: {D0: 0.3, D1: 0.8, D2: 0.2},
		models.Mode5: {D0: 0.2, D1: 0.4, D2: 0.5},
		models.Mode6: {D0: 0.5, D1: 0.8, D2: 0.7},
	}

	for want, d := range cases {
		if got := m.Classify(d); got != want {
			t.Errorf("Expected Classify(%+v) = %s, got %s", d, want, got)
		}
	}
}

func TestTongModel_ClassifyBoundaryFirstMatch(t *testing.T) {
	// Scenario: D1 = D0 sits on the mode 1/5 boundary; both closures
	// contain the point and classification picks the lower-numbered mode.
	m := NewTongModel(referenceParams())

	d := models.DutyPoint{D0: 0.4, D1: 0.4, D2: 0.3}
	if got := m.Classify(d); got != models.Mode1 {
		t.Errorf("Expected boundary point to classify as mode 1, got %s", got)
	}
}

func TestTongModel_ClassifyUndefined(t *testing.T) {
	// D1 > 1 region is outside every mode.
	m := NewTongModel(referenceParams())

	if got := m.Classify(models.DutyPoint{D0: 0.1, D1: 1.5, D2: 0.1}); got != models.ModeUndefined {
		t.Errorf("Expected undefined classification, got %s", got)
	}
}

func TestTongModel_IrmsNonNegativeOnFeasibleGrid(t *testing.T) {
	// Scenario: inside any strict mode region the Irms^2 polynomial must
	// stay non-negative up to rounding noise.
	m := NewTongModel(referenceParams())

	const step = 0.05
	for d0 := step; d0 < 1; d0 += step {
		for d1 := step; d1 < 1; d1 += step {
			for d2 := step; d2 < 1; d2 += step {
				d := models.DutyPoint{D0: d0, D1: d1, D2: d2}
				for _, mode := range m.Modes() {
					if !m.Feasible(mode, d) {
						continue
					}
					if sq := m.IrmsSquared(mode, d); sq < -1e-9 {
						t.Fatalf("Negative Irms^2 %g in mode %s at %+v", sq, mode, d)
					}
				}
			}
		}
	}
}

func TestTongModel_ConstraintSlacksAgreeWithFeasibility(t *testing.T) {
	// Slacks are the optimizer's view of the same regions: all negative
	// exactly when the strict predicate holds.
	m := NewTongModel(referenceParams())

	const step = 0.1
	for d0 := step; d0 < 1; d0 += step {
		for d1 := step; d1 < 1; d1 += step {
			for d2 := step; d2 < 1; d2 += step {
				d := models.DutyPoint{D0: d0, D1: d1, D2: d2}
				for _, mode := range m.Modes() {
					allNeg := true
					for _, s := range m.ConstraintSlacks(mode, d) {
						if s >= 0 {
							allNeg = false
						}
					}
					if allNeg != m.Feasible(mode, d) {
						t.Fatalf("Slack/feasibility mismatch for mode %s at %+v", mode, d)
					}
				}
			}
		}
	}
}

func TestTongModel_SPSDuty(t *testing.T) {
	// Scenario: 500 W baseline with internal shifts pinned at 0.01.
	// Bisection lands at D0 = 0.1128 with Irms = 22.32 A.
	m := NewTongModel(referenceParams())

	d, ok := m.SPSDuty(500, 0.01)
	if !ok {
		t.Fatal("Expected SPS solution for 500 W")
	}
	if math.Abs(d.D0-0.112766) > 1e-3 {
		t.Errorf("Expected D0 near 0.1128, got %g", d.D0)
	}
	if p := m.Power(models.Mode1, d); math.Abs(p-500) > 0.01 {
		t.Errorf("Expected 500 W from SPS point, got %g W", p)
	}
	irms, valid := ClampIrms(m.IrmsSquared(models.Mode1, d), nil)
	if !valid {
		t.Fatal("Expected valid Irms at SPS point")
	}
	if math.Abs(irms-22.3155) > 0.01 {
		t.Errorf("Expected SPS Irms near 22.32 A, got %g A", irms)
	}
}

func TestTongModel_SPSDutyUnreachable(t *testing.T) {
	// Mode 1 power at D0 = 0.5 caps near 1250 W for this converter.
	m := NewTongModel(referenceParams())

	if _, ok := m.SPSDuty(5000, 0.01); ok {
		t.Error("Expected no SPS solution for 5 kW")
	}
}

func TestClampIrms(t *testing.T) {
	var diag models.Diagnostics

	// Rounding-noise negative: clamped to zero and counted.
	irms, ok := ClampIrms(-1e-12, &diag)
	if !ok {
		t.Fatal("Expected rounding-noise negative to be accepted")
	}
	if irms != 0 {
		t.Errorf("Expected clamped Irms 0, got %g", irms)
	}
	if diag.NegativeIrmsSq != 1 {
		t.Errorf("Expected 1 clamp recorded, got %d", diag.NegativeIrmsSq)
	}
	if diag.WorstNegative != -1e-12 {
		t.Errorf("Expected worst negative -1e-12, got %g", diag.WorstNegative)
	}

	// Genuinely negative: rejected, not counted as a clamp.
	if _, ok := ClampIrms(-0.5, &diag); ok {
		t.Error("Expected large negative Irms^2 to be rejected")
	}
	if diag.NegativeIrmsSq != 1 {
		t.Errorf("Expected clamp count unchanged, got %d", diag.NegativeIrmsSq)
	}

	// Positive passthrough.
	irms, ok = ClampIrms(4, nil)
	if !ok || irms != 2 {
		t.Errorf("Expected Irms 2 from Irms^2 4, got %g (ok=%v)", irms, ok)
	}
}
