// ABOUTME: Tests for the zone design pipeline
// ABOUTME: Validates config checks, per-V2 tables, and row annotations

package services

import (
	"context"
	"math"
	"testing"

	"github.com/dablab/dab-tps-analyzer/models"
)

// smallDesignConfig keeps the pipeline test fast: three secondary voltages,
// a coarser grid, and a 50 W target step.
func smallDesignConfig() DesignConfig {
	cfg := DefaultDesignConfig()
	cfg.V2MaxV = 47
	cfg.Pool.GridStep = 0.02
	cfg.Sweep = SweepConfig{MinPowerW: 0, MaxPowerW: 3500, StepW: 50}
	return cfg
}

func TestDesignConfig_Validate(t *testing.T) {
	if err := DefaultDesignConfig().Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}

	bad := DefaultDesignConfig()
	bad.PrimaryV = 0
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for zero primary voltage")
	}

	bad = DefaultDesignConfig()
	bad.V2MinV, bad.V2MaxV = 55, 45
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for inverted voltage window")
	}

	bad = DefaultDesignConfig()
	bad.MStar = -1
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for negative design ratio")
	}
}

func TestDesignService_Run(t *testing.T) {
	// Scenario: 200 V primary, V2 in 45..47 V, m* = 1.3. Each voltage
	// gets its own candidate pool; the combined table covers every
	// (V2, target) pair exactly once, sorted.
	svc := NewDesignService(nil)
	cfg := smallDesignConfig()

	result, err := svc.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Expected design run to succeed, got %v", err)
	}

	// Magnetics sized at the design point.
	if math.Abs(result.Design.TurnsRatio-5.777778) > 1e-5 {
		t.Errorf("Expected n = 5.7778, got %g", result.Design.TurnsRatio)
	}
	if math.Abs(result.Design.InductanceH-1.00879e-5) > 1e-9 {
		t.Errorf("Expected L = 10.088 uH, got %g H", result.Design.InductanceH)
	}

	wantRows := 3 * 71 // three voltages, 0..3500 W in 50 W steps
	if len(result.Table.Rows) != wantRows {
		t.Fatalf("Expected %d rows, got %d", wantRows, len(result.Table.Rows))
	}
	if result.Summary.Rows != wantRows {
		t.Errorf("Expected summary over %d rows, got %d", wantRows, result.Summary.Rows)
	}
	if result.Summary.Solved == 0 {
		t.Fatal("Expected at least some solved rows")
	}

	if len(result.PoolSizes) != 3 {
		t.Fatalf("Expected 3 per-voltage pools, got %d", len(result.PoolSizes))
	}
	for v2, size := range result.PoolSizes {
		if size == 0 {
			t.Errorf("Expected non-empty pool for V2 = %s", v2)
		}
	}

	prev := models.OperatingPoint{SecondaryV: -1}
	for i, row := range result.Table.Rows {
		if row.SecondaryV < prev.SecondaryV ||
			(row.SecondaryV == prev.SecondaryV && row.TargetW <= prev.TargetW) {
			t.Fatalf("Rows out of (V2, target) order at index %d", i)
		}
		prev = row

		if !row.OK {
			continue
		}
		// All secondary voltages sit above the unity-ratio point, so
		// Zone II never appears.
		if row.Mode != models.ZoneI && row.Mode != models.ZoneV {
			t.Errorf("Unexpected zone %s at V2 = %g, %g W", row.Mode, row.SecondaryV, row.TargetW)
		}
		if row.ErrorW > 100 {
			t.Errorf("Row error %g W beyond fallback bound at %g W", row.ErrorW, row.TargetW)
		}
		wantM := result.Design.TurnsRatio * row.SecondaryV / cfg.PrimaryV
		if math.Abs(row.Ratio-wantM) > 1e-9 {
			t.Errorf("Expected ratio %g, got %g", wantM, row.Ratio)
		}
		if row.TurnsRatio != result.Design.TurnsRatio {
			t.Errorf("Expected turns ratio %g on row, got %g", result.Design.TurnsRatio, row.TurnsRatio)
		}
		if row.ScaledPower <= 0 {
			t.Errorf("Expected positive scaled power, got %g", row.ScaledPower)
		}
	}
}

func TestDesignService_Cancellation(t *testing.T) {
	svc := NewDesignService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Run(ctx, smallDesignConfig()); err == nil {
		t.Error("Expected error from cancelled context")
	}
}
