// ABOUTME: Tests for result types and diagnostics
// ABOUTME: Validates table helpers and the degeneracy accumulator

package models

import (
	"strings"
	"testing"
)

func TestLookupTable_Solved(t *testing.T) {
	table := LookupTable{Rows: []OperatingPoint{
		{TargetW: 100, OK: true},
		{TargetW: 200},
		{TargetW: 300, OK: true},
	}}

	solved := table.Solved()
	if len(solved) != 2 {
		t.Fatalf("Expected 2 solved rows, got %d", len(solved))
	}
	if solved[1].TargetW != 300 {
		t.Errorf("Expected 300 W row, got %g", solved[1].TargetW)
	}
}

func TestLookupTable_SortByTarget(t *testing.T) {
	table := LookupTable{Rows: []OperatingPoint{
		{TargetW: 300}, {TargetW: 100}, {TargetW: 200},
	}}
	table.SortByTarget()

	for i, want := range []float64{100, 200, 300} {
		if table.Rows[i].TargetW != want {
			t.Errorf("Index %d: expected %g W, got %g W", i, want, table.Rows[i].TargetW)
		}
	}
}

func TestDiagnostics_RecordAndMerge(t *testing.T) {
	var a, b Diagnostics
	a.RecordNegative(-1e-12)
	a.RecordNegative(-5e-12)
	b.RecordNegative(-2e-12)
	b.InfeasibleRejects = 3

	a.Merge(b)
	if a.NegativeIrmsSq != 3 {
		t.Errorf("Expected 3 clamps after merge, got %d", a.NegativeIrmsSq)
	}
	if a.WorstNegative != -5e-12 {
		t.Errorf("Expected worst -5e-12, got %g", a.WorstNegative)
	}
	if a.InfeasibleRejects != 3 {
		t.Errorf("Expected 3 rejects, got %d", a.InfeasibleRejects)
	}
}

func TestDiagnostics_DegeneracyWarning(t *testing.T) {
	var d Diagnostics
	// No clamps, no warning.
	if w := d.DegeneracyWarning(1000, 0.001); w != "" {
		t.Errorf("Expected no warning, got %q", w)
	}

	// 50 clamps in 1000 evaluations is a 5% rate.
	for i := 0; i < 50; i++ {
		d.RecordNegative(-1e-12)
	}
	w := d.DegeneracyWarning(1000, 0.001)
	if w == "" {
		t.Fatal("Expected warning above threshold")
	}
	if !strings.Contains(w, "voltage ratio") {
		t.Errorf("Expected warning to name the likely cause, got %q", w)
	}

	// Below threshold stays quiet.
	if w := d.DegeneracyWarning(1_000_000, 0.001); w != "" {
		t.Errorf("Expected no warning at low rate, got %q", w)
	}
}
