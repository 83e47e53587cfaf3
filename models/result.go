// ABOUTME: Result rows, lookup table, sweep summary, and diagnostics types.
// ABOUTME: The lookup table schema is the binding contract with consumers.

package models

import (
	"fmt"
	"sort"
)

// OperatingPoint is the outcome of one single-target optimization. Rows with
// OK=false keep Mode=ModeNoSolution and record the nearest achievable power
// error for diagnosis.
type OperatingPoint struct {
	TargetW    float64   `json:"power_target_w"`
	AchievedW  float64   `json:"power_actual_w"`
	ErrorW     float64   `json:"power_error_w"`
	Duties     DutyPoint `json:"duties"`
	IrmsA      float64   `json:"irms_a"`
	Mode       Mode      `json:"mode"`
	OK         bool      `json:"ok"`
	Message    string    `json:"message,omitempty"`
	SecondaryV float64   `json:"v2_v,omitempty"`

	// Zone-design auxiliaries, populated only by the zone pipeline.
	Ratio       float64 `json:"m,omitempty"`
	TurnsRatio  float64 `json:"n,omitempty"`
	InductanceH float64 `json:"l_h,omitempty"`
	ScaledPower float64 `json:"p_scaled,omitempty"`
	ScaledIrms  float64 `json:"irms_scaled,omitempty"`
}

// LookupTable is the ordered sweep output, one row per requested target in
// power-ascending order. Downstream consumers treat it as read-only.
type LookupTable struct {
	Params ConverterParameters `json:"params"`
	Rows   []OperatingPoint    `json:"rows"`
}

// Solved returns the rows that carry a usable operating point.
func (t LookupTable) Solved() []OperatingPoint {
	out := make([]OperatingPoint, 0, len(t.Rows))
	for _, r := range t.Rows {
		if r.OK {
			out = append(out, r)
		}
	}
	return out
}

// SortByTarget orders rows power-ascending (stable across equal targets).
func (t *LookupTable) SortByTarget() {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i].TargetW < t.Rows[j].TargetW
	})
}

// SweepSummary aggregates per-sweep convergence diagnostics.
type SweepSummary struct {
	Rows            int            `json:"rows"`
	Solved          int            `json:"solved"`
	Failed          int            `json:"failed"`
	MeanErrorW      float64        `json:"mean_error_w"`
	MaxErrorW       float64        `json:"max_error_w"`
	MeanIrmsA       float64        `json:"mean_irms_a"`
	ModeCounts      map[string]int `json:"mode_counts"`
	ConvergenceRate float64        `json:"convergence_rate"`
	Diagnostics     Diagnostics    `json:"diagnostics"`
}

// Diagnostics accumulates numeric edge-case events for one sweep or one
// candidate-pool build. Instances are merged after the parallel phase, never
// shared across goroutines.
type Diagnostics struct {
	// NegativeIrmsSq counts Irms^2 evaluations that came back below zero
	// and were clamped before the square root.
	NegativeIrmsSq int `json:"negative_irms_sq"`
	// WorstNegative is the most negative clamped value observed.
	WorstNegative float64 `json:"worst_negative"`
	// InfeasibleRejects counts candidate points matching no mode.
	InfeasibleRejects int `json:"infeasible_rejects"`
}

// RecordNegative notes one clamped Irms^2 evaluation.
func (d *Diagnostics) RecordNegative(v float64) {
	d.NegativeIrmsSq++
	if v < d.WorstNegative {
		d.WorstNegative = v
	}
}

// Merge folds other into d.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.NegativeIrmsSq += other.NegativeIrmsSq
	d.InfeasibleRejects += other.InfeasibleRejects
	if other.WorstNegative < d.WorstNegative {
		d.WorstNegative = other.WorstNegative
	}
}

// DegeneracyWarning returns a human-readable warning when the clamp rate over
// total evaluations crosses threshold, or "" when the rate is acceptable.
// Large clamp rates indicate operation near the voltage-ratio degeneracy.
func (d Diagnostics) DegeneracyWarning(evaluations int, threshold float64) string {
	if evaluations == 0 || d.NegativeIrmsSq == 0 {
		return ""
	}
	rate := float64(d.NegativeIrmsSq) / float64(evaluations)
	if rate <= threshold {
		return ""
	}
	return fmt.Sprintf(
		"negative Irms^2 rate %.4f exceeds %.4f (count=%d, worst=%g); voltage ratio likely too close to 1",
		rate, threshold, d.NegativeIrmsSq, d.WorstNegative)
}
