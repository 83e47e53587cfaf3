// ABOUTME: Tests for the zone-based design model
// ABOUTME: Validates magnetics sizing, critical powers, masks, and samplers

package services

import (
	"math"
	"testing"

	"github.com/dablab/dab-tps-analyzer/models"
)

// designParams is the reference 200 V / 100 kHz design evaluated at
// V2 = 50 V with the magnetics sized for m* = 1.3 at V2min = 45 V.
func designParams() models.ConverterParameters {
	d := DesignMagnetics(200, 45, 100_000, 3500, 1.3)
	return models.ConverterParameters{
		PrimaryV:    200,
		SecondaryV:  50,
		SwitchingHz: 100_000,
		InductanceH: d.InductanceH,
		TurnsRatio:  d.TurnsRatio,
	}
}

func TestPStar(t *testing.T) {
	if got := PStar(1.3); math.Abs(got-0.55461) > 1e-5 {
		t.Errorf("Expected p*(1.3) = 0.55461, got %g", got)
	}
}

func TestDesignMagnetics(t *testing.T) {
	// Scenario: V1 = 200 V, V2min = 45 V, fs = 100 kHz, Pmax = 3.5 kW,
	// m* = 1.3 gives n = 1.3*200/45 and L = 10.088 uH.
	d := DesignMagnetics(200, 45, 100_000, 3500, 1.3)

	if math.Abs(d.TurnsRatio-5.777778) > 1e-5 {
		t.Errorf("Expected n = 5.7778, got %g", d.TurnsRatio)
	}
	if math.Abs(d.InductanceH-1.00879e-5) > 1e-9 {
		t.Errorf("Expected L = 10.088 uH, got %g H", d.InductanceH)
	}
	if math.Abs(d.PStar-0.55461) > 1e-5 {
		t.Errorf("Expected p* = 0.55461, got %g", d.PStar)
	}
}

func TestCriticalPowers(t *testing.T) {
	// m > 1 branch at the V2 = 50 V ratio of the reference design.
	m := 5.777777777777778 * 50 / 200
	if got := CriticalPowerLow(m); math.Abs(got-0.483322) > 1e-6 {
		t.Errorf("Expected pc1 = 0.483322 at m = %g, got %g", m, got)
	}
	if got := CriticalPowerHigh(m); math.Abs(got-0.951012) > 1e-6 {
		t.Errorf("Expected pc2 = 0.951012 at m = %g, got %g", m, got)
	}

	// m < 1 branch.
	if got := CriticalPowerLow(0.8); math.Abs(got-0.201062) > 1e-6 {
		t.Errorf("Expected pc1 = 0.201062 at m = 0.8, got %g", got)
	}
	if got := CriticalPowerHigh(0.8); math.Abs(got-0.471239) > 1e-6 {
		t.Errorf("Expected pc2 = 0.471239 at m = 0.8, got %g", got)
	}
}

func TestZoneModel_BoundaryPathPoint(t *testing.T) {
	// Scenario: the Zone I/II boundary path at d2 = 0.2 for m = 1.4444
	// (d1 = m*d2, delta = (m-1)*d2). The non-strict Zone I mask must keep
	// the point and the scaled power must match 0.5*m*pi*delta*d2.
	zm := NewZoneModel(designParams(), 3500)
	m := zm.Ratio()
	d := models.DutyPoint{D0: (m - 1) * 0.2, D1: m * 0.2, D2: 0.2}

	if !zm.Feasible(models.ZoneI, d) {
		t.Fatalf("Expected boundary path point %+v inside Zone I mask", d)
	}
	if p := zm.ScaledPower(models.ZoneI, d); math.Abs(p-0.0403365) > 1e-6 {
		t.Errorf("Expected scaled power 0.0403365, got %g", p)
	}
	if sq := zm.ScaledIrmsSquared(models.ZoneI, d); math.Abs(sq-0.00750938) > 1e-7 {
		t.Errorf("Expected scaled Irms^2 0.00750938, got %g", sq)
	}
	// Watts conversion goes through PowerScale.
	if w := zm.Power(models.ZoneI, d); math.Abs(w-254.553) > 0.01 {
		t.Errorf("Expected 254.553 W, got %g W", w)
	}
}

func TestZoneModel_SaturatedSPSPoint(t *testing.T) {
	// Scenario: d1 = d2 = 1 with delta from the SPS quadratic at
	// p = 0.9*m*pi/4 reproduces that power in Zone V.
	zm := NewZoneModel(designParams(), 0)
	m := zm.Ratio()
	p := 0.9 * m * math.Pi / 4
	d := models.DutyPoint{D0: 1 - math.Sqrt(1-4*p/(m*math.Pi)), D1: 1, D2: 1}

	if !zm.Feasible(models.ZoneV, d) {
		t.Fatalf("Expected SPS point %+v inside Zone V mask", d)
	}
	if got := zm.ScaledPower(models.ZoneV, d); math.Abs(got-p) > 1e-9 {
		t.Errorf("Expected scaled power %g, got %g", p, got)
	}
	if sq := zm.ScaledIrmsSquared(models.ZoneV, d); sq <= 0 {
		t.Errorf("Expected positive scaled Irms^2, got %g", sq)
	}
}

func TestZoneModel_ZoneIIEmptyAboveUnityRatio(t *testing.T) {
	// Scenario: for m > 1 the Zone II ZVS constraints are contradictory,
	// so no duty triple may pass its mask.
	zm := NewZoneModel(designParams(), 0)

	const step = 0.05
	for d0 := step; d0 < 1; d0 += step {
		for d1 := step; d1 < 1; d1 += step {
			for d2 := step; d2 < 1; d2 += step {
				d := models.DutyPoint{D0: d0, D1: d1, D2: d2}
				if zm.Feasible(models.ZoneII, d) {
					t.Fatalf("Zone II mask admitted %+v at m = %g > 1", d, zm.Ratio())
				}
			}
		}
	}
}

func TestZoneModel_SamplePathsEmitValidCandidates(t *testing.T) {
	// Path samples sit exactly on zone boundaries, so individual points
	// may fail the mask by rounding noise (the pool drops those). The
	// bulk must pass, and every masked sample must evaluate to a
	// non-negative Irms^2 up to noise.
	zm := NewZoneModel(designParams(), 3500)

	counts := map[models.Mode]int{}
	masked := 0
	total := 0
	zm.SamplePaths(func(m models.Mode, d models.DutyPoint) {
		total++
		if !zm.Feasible(m, d) {
			return
		}
		masked++
		counts[m]++
		if sq := zm.ScaledIrmsSquared(m, d); sq < -1e-9 {
			t.Fatalf("Sampler emitted %+v with Irms^2 = %g in zone %s", d, sq, m)
		}
	})

	if counts[models.ZoneI] == 0 {
		t.Error("Expected Zone I boundary-path samples")
	}
	if counts[models.ZoneV] == 0 {
		t.Error("Expected Zone V samples")
	}
	if masked < total/2 {
		t.Errorf("Expected most samples inside their masks, got %d of %d", masked, total)
	}
}

func TestZoneModel_IrmsNonNegativeUnderMasks(t *testing.T) {
	// The ZVS masks are what keeps the zone polynomials physical; masked
	// grid points never evaluate negative.
	zm := NewZoneModel(designParams(), 0)

	const step = 0.05
	for d0 := step; d0 < 1; d0 += step {
		for d1 := step; d1 < 1; d1 += step {
			for d2 := step; d2 < 1; d2 += step {
				d := models.DutyPoint{D0: d0, D1: d1, D2: d2}
				for _, zone := range zm.Modes() {
					if !zm.Feasible(zone, d) {
						continue
					}
					if sq := zm.ScaledIrmsSquared(zone, d); sq < -1e-9 {
						t.Fatalf("Negative Irms^2 %g in zone %s at %+v", sq, zone, d)
					}
				}
			}
		}
	}
}
