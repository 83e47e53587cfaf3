// ABOUTME: Canonical six-mode Tong et al. (2016) analytical model for DAB TPS.
// ABOUTME: Closed-form power, Irms^2, feasibility, classifier, and slacks.

package services

import (
	"math"

	"github.com/dablab/dab-tps-analyzer/models"
)

// negativeEpsilon separates floating-point cancellation noise (clamped and
// counted) from genuinely invalid Irms^2 values (rejected).
const negativeEpsilon = 1e-9

// ModeModel is the pluggable analytical-model strategy shared by both
// optimizer strategies. Implementations are pure and safe for concurrent use.
type ModeModel interface {
	Modes() []models.Mode
	Feasible(m models.Mode, d models.DutyPoint) bool
	// Power returns delivered power in watts.
	Power(m models.Mode, d models.DutyPoint) float64
	// IrmsSquared returns the squared inductor RMS current in A^2. The raw
	// value may be slightly negative from cancellation; callers clamp via
	// ClampIrms.
	IrmsSquared(m models.Mode, d models.DutyPoint) float64
}

// PathSampler is implemented by models that can emit analytically derived
// boundary-path candidates to close grid resolution gaps near mode
// transitions.
type PathSampler interface {
	SamplePaths(emit func(models.Mode, models.DutyPoint))
}

// ClampIrms converts a raw Irms^2 into amperes. Small negative values are
// clamped to zero and recorded in diag; values below -negativeEpsilon are
// invalid and reported with ok=false.
func ClampIrms(irmsSq float64, diag *models.Diagnostics) (irmsA float64, ok bool) {
	if irmsSq < -negativeEpsilon {
		return 0, false
	}
	if irmsSq < 0 {
		if diag != nil {
			diag.RecordNegative(irmsSq)
		}
		irmsSq = 0
	}
	return math.Sqrt(irmsSq), true
}

// TongModel evaluates the six-mode analytical formula set.
//
// The published mode 2/3 power equations carry an inverted sign convention
// and the mode 3 and mode 6 Irms^2 equations contain two transcription
// errors (the half-cycle reflection argument and a cross-term sign). This
// implementation uses the internally consistent set: every mode's power is
// -K*f(D0,D1,D2) with K = V1*V2*T/L, and every mode's Irms^2 shares the
// template
//
//	(T/L)^2 * [ (V1^2+V2^2)/24 + g(D1)V1^2/6 - sum g(arg_k)V1V2/6 + g(D2)V2^2/6 ]
//
// with g(u) = 1/4 - 3u^2/2 + u^3 and four mode-specific cross arguments.
// Continuity of both quantities across every shared mode boundary is a
// tested invariant of this set.
type TongModel struct {
	v1, v2 float64
	k      float64 // V1*V2*T/L
	s      float64 // (T/L)^2
}

// NewTongModel builds the model for one converter configuration. The
// secondary voltage is reflected through the turns ratio.
func NewTongModel(p models.ConverterParameters) *TongModel {
	p = p.WithDerived()
	v2 := p.SecondaryV * p.TurnsRatio
	tl := p.HalfPeriodS / p.InductanceH
	return &TongModel{
		v1: p.PrimaryV,
		v2: v2,
		k:  p.PrimaryV * v2 * tl,
		s:  tl * tl,
	}
}

// g is the cubic kernel appearing in every cross term of the Irms^2
// integration.
func g(u float64) float64 {
	return 0.25 - 1.5*u*u + u*u*u
}

type tongSpec struct {
	mode     models.Mode
	feasible func(d0, d1, d2 float64) bool
	poly     func(d0, d1, d2 float64) float64
	cross    func(d0, d1, d2 float64) (a, b, c, d float64)
}

var tongSpecs = []tongSpec{
	{
		mode: models.Mode1,
		feasible: func(d0, d1, d2 float64) bool {
			return d1 < d0 && d1 < d0+d2 && d0+d2 < 1
		},
		poly: func(d0, d1, d2 float64) float64 {
			return -d0 + d0*d0 + 0.5*d1 - d0*d1 + 0.5*d1*d1 - 0.5*d2 + d0*d2 - 0.5*d1*d2 + 0.5*d2*d2
		},
		cross: func(d0, d1, d2 float64) (float64, float64, float64, float64) {
			return d0, d0 + d2, d0 - d1, d0 + d2 - d1
		},
	},
	{
		mode: models.Mode2,
		feasible: func(d0, d1, d2 float64) bool {
			return d1 < d0 && d0+d2 > 1 && d0+d2 < 1+d1
		},
		poly: func(d0, d1, d2 float64) float64 {
			return -0.5 + 0.5*d0*d0 + 0.5*d1 - d0*d1 + 0.5*d1*d1 + 0.5*d2 - 0.5*d1*d2
		},
		cross: func(d0, d1, d2 float64) (float64, float64, float64, float64) {
			return d0, 2 - d0 - d2, d0 - d1, d0 + d2 - d1
		},
	},
	{
		mode: models.Mode3,
		feasible: func(d0, d1, d2 float64) bool {
			return d1 < d0 && d0+d2 > 1+d1 && d0+d2 < 2
		},
		poly: func(d0, d1, d2 float64) float64 {
			return -1 + d0 - 0.5*d1 + 1.5*d2 - d0*d2 + 0.5*d1*d2 - 0.5*d2*d2
		},
		cross: func(d0, d1, d2 float64) (float64, float64, float64, float64) {
			return d0, 2 - d0 - d2, d0 - d1, 2 - d0 - d2 + d1
		},
	},
	{
		mode: models.Mode4,
		feasible: func(d0, d1, d2 float64) bool {
			return d0 < d1 && d1 < 1 && d0+d2 > 0 && d0+d2 < d1
		},
		poly: func(d0, d1, d2 float64) float64 {
			return -d0 + 0.5*d1 + d0*d1 - 0.5*d1*d1 - 0.5*d2 + 0.5*d1*d2
		},
		cross: func(d0, d1, d2 float64) (float64, float64, float64, float64) {
			return d0, d0 + d2, d1 - d0, d1 - d0 - d2
		},
	},
	{
		mode: models.Mode5,
		feasible: func(d0, d1, d2 float64) bool {
			return d0 < d1 && d1 < d0+d2 && d0+d2 < 1
		},
		poly: func(d0, d1, d2 float64) float64 {
			return -d0 + 0.5*d0*d0 + 0.5*d1 - 0.5*d2 + d0*d2 - 0.5*d1*d2 + 0.5*d2*d2
		},
		cross: func(d0, d1, d2 float64) (float64, float64, float64, float64) {
			return d0, d0 + d2, d1 - d0, d0 + d2 - d1
		},
	},
	{
		mode: models.Mode6,
		feasible: func(d0, d1, d2 float64) bool {
			return d0 < d1 && d0+d2 > 1 && d0+d2 < 1+d1
		},
		poly: func(d0, d1, d2 float64) float64 {
			return -0.5 + 0.5*d1 + 0.5*d2 - 0.5*d1*d2
		},
		cross: func(d0, d1, d2 float64) (float64, float64, float64, float64) {
			return d0, 2 - d0 - d2, d1 - d0, d0 + d2 - d1
		},
	},
}

func tongSpecFor(m models.Mode) *tongSpec {
	i := int(m - models.Mode1)
	if i < 0 || i >= len(tongSpecs) {
		return nil
	}
	return &tongSpecs[i]
}

// Modes returns the six canonical modes in classifier priority order.
func (t *TongModel) Modes() []models.Mode {
	return models.TongModes()
}

// Feasible reports whether d lies strictly inside mode m's region.
func (t *TongModel) Feasible(m models.Mode, d models.DutyPoint) bool {
	spec := tongSpecFor(m)
	return spec != nil && spec.feasible(d.D0, d.D1, d.D2)
}

// Power evaluates mode m's closed-form power equation in watts.
func (t *TongModel) Power(m models.Mode, d models.DutyPoint) float64 {
	spec := tongSpecFor(m)
	if spec == nil {
		return 0
	}
	return -t.k * spec.poly(d.D0, d.D1, d.D2)
}

// IrmsSquared evaluates mode m's squared-RMS-current equation in A^2.
func (t *TongModel) IrmsSquared(m models.Mode, d models.DutyPoint) float64 {
	spec := tongSpecFor(m)
	if spec == nil {
		return 0
	}
	a, b, c, e := spec.cross(d.D0, d.D1, d.D2)
	v1sq, v2sq, v12 := t.v1*t.v1, t.v2*t.v2, t.v1*t.v2
	return t.s * ((v1sq+v2sq)/24 +
		g(d.D1)*v1sq/6 -
		(g(a)+g(b)+g(c)+g(e))*v12/6 +
		g(d.D2)*v2sq/6)
}

// Classify returns the first mode (in Mode1..Mode6 priority order) whose
// boundary-inclusive region contains d, or ModeUndefined. Points on a shared
// boundary satisfy both neighbors' non-strict inequalities; either formula
// is valid there by the continuity invariant, so first-match is safe.
func (t *TongModel) Classify(d models.DutyPoint) models.Mode {
	type region struct {
		mode models.Mode
		ok   bool
	}
	d0, d1, d2 := d.D0, d.D1, d.D2
	checks := []region{
		{models.Mode1, d1 <= d0 && d1 <= d0+d2 && d0+d2 <= 1},
		{models.Mode2, d1 <= d0 && d0+d2 >= 1 && d0+d2 <= 1+d1},
		{models.Mode3, d1 <= d0 && d0+d2 >= 1+d1 && d0+d2 <= 2},
		{models.Mode4, d0 <= d1 && d1 <= 1 && d0+d2 >= 0 && d0+d2 <= d1},
		{models.Mode5, d0 <= d1 && d1 <= d0+d2 && d0+d2 <= 1},
		{models.Mode6, d0 <= d1 && d0+d2 >= 1 && d0+d2 <= 1+d1},
	}
	for _, c := range checks {
		if c.ok {
			return c.mode
		}
	}
	return models.ModeUndefined
}

// ConstraintSlacks returns mode m's region inequalities as signed slacks
// (satisfied when <= 0), in the form consumed by the constrained optimizer.
func (t *TongModel) ConstraintSlacks(m models.Mode, d models.DutyPoint) []float64 {
	d0, d1, d2 := d.D0, d.D1, d.D2
	switch m {
	case models.Mode1:
		return []float64{d1 - d0, d1 - (d0 + d2), (d0 + d2) - 1}
	case models.Mode2:
		return []float64{d1 - d0, 1 - (d0 + d2), (d0 + d2) - (1 + d1)}
	case models.Mode3:
		return []float64{d1 - d0, (1 + d1) - (d0 + d2), (d0 + d2) - 2}
	case models.Mode4:
		return []float64{d0 - d1, d1 - 1, -(d0 + d2), (d0 + d2) - d1}
	case models.Mode5:
		return []float64{d0 - d1, d1 - (d0 + d2), (d0 + d2) - 1}
	case models.Mode6:
		return []float64{d0 - d1, 1 - (d0 + d2), (d0 + d2) - (1 + d1)}
	default:
		return nil
	}
}

// SPSDuty returns the single-phase-shift baseline operating point delivering
// target watts: D1 and D2 pinned to floor, D0 found by bisection on the
// monotone-rising branch of the mode 1 power curve. Used both as an
// optimizer seed and as the comparison baseline for TPS gains.
func (t *TongModel) SPSDuty(target, floor float64) (models.DutyPoint, bool) {
	f := func(d0 float64) float64 {
		return t.Power(models.Mode1, models.DutyPoint{D0: d0, D1: floor, D2: floor})
	}
	lo, hi := floor, 0.5
	if target <= f(lo) || target >= f(hi) {
		return models.DutyPoint{}, false
	}
	for i := 0; i < 100; i++ {
		mid := 0.5 * (lo + hi)
		if f(mid) < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	d := models.DutyPoint{D0: 0.5 * (lo + hi), D1: floor, D2: floor}
	return d, t.Feasible(models.Mode1, d)
}
