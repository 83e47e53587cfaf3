// ABOUTME: Constrained single-target TPS optimizer: minimum-Irms duty triple
// ABOUTME: at a given power via penalty continuation over Nelder-Mead.

package services

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/dablab/dab-tps-analyzer/models"
)

// OptimizerConfig tunes the constrained search. Zero values are replaced by
// DefaultOptimizerConfig.
type OptimizerConfig struct {
	// DutyFloor/DutyCeil bound every duty component.
	DutyFloor float64
	DutyCeil  float64
	// PowerToleranceW is the acceptance band on |P - target|.
	PowerToleranceW float64
	// MaxIterations bounds each Nelder-Mead stage.
	MaxIterations int
	// ConstraintSlackTol is how far outside a mode region an accepted
	// solution may sit (covers solutions converging onto a boundary).
	ConstraintSlackTol float64
}

// DefaultOptimizerConfig mirrors the established sweep settings: duty bounds
// [0.01, 0.99] and a 2 W power-matching band.
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		DutyFloor:          0.01,
		DutyCeil:           0.99,
		PowerToleranceW:    2.0,
		MaxIterations:      500,
		ConstraintSlackTol: 1e-9,
	}
}

func (c OptimizerConfig) withDefaults() OptimizerConfig {
	d := DefaultOptimizerConfig()
	if c.DutyFloor == 0 {
		c.DutyFloor = d.DutyFloor
	}
	if c.DutyCeil == 0 {
		c.DutyCeil = d.DutyCeil
	}
	if c.PowerToleranceW == 0 {
		c.PowerToleranceW = d.PowerToleranceW
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.ConstraintSlackTol == 0 {
		c.ConstraintSlackTol = d.ConstraintSlackTol
	}
	return c
}

// penaltyStages are the continuation weights applied to the squared
// constraint violations; each stage warm-starts from the previous optimum.
var penaltyStages = []float64{1e4, 1e6, 1e8}

// TPSOptimizer solves one power target at a time: minimize Irms^2 subject to
// the power-balance equality, the selected mode's region inequalities, and
// the duty bounds. The equality and inequalities enter as squared penalty
// terms with increasing weight; the inner unconstrained solves use
// derivative-free Nelder-Mead, which tolerates the piecewise polynomials at
// the region edges.
type TPSOptimizer struct {
	model *TongModel
	cfg   OptimizerConfig
}

// NewTPSOptimizer wires the analytical model to the search configuration.
func NewTPSOptimizer(model *TongModel, cfg OptimizerConfig) *TPSOptimizer {
	return &TPSOptimizer{model: model, cfg: cfg.withDefaults()}
}

// classicSeed is the historical starting triple that converges for most
// mid-range targets.
var classicSeed = models.DutyPoint{D0: 0.65, D1: 0.32, D2: 0.20}

// interiorSeeds places one strictly feasible point inside each mode region,
// used as the retry guess when the classic seed stalls outside the region.
var interiorSeeds = map[models.Mode]models.DutyPoint{
	models.Mode1: {D0: 0.50, D1: 0.20, D2: 0.30},
	models.Mode2: {D0: 0.80, D1: 0.50, D2: 0.40},
	models.Mode3: {D0: 0.90, D1: 0.20, D2: 0.50},
	models.Mode4: {D0: 0.30, D1: 0.80, D2: 0.20},
	models.Mode5: {D0: 0.20, D1: 0.40, D2: 0.50},
	models.Mode6: {D0: 0.50, D1: 0.80, D2: 0.70},
}

// Optimize returns the minimum-Irms operating point delivering target watts,
// searching every mode region plus the exact-power SPS baseline. diag may be
// nil. A row with OK=false means no candidate satisfied both the power band
// and a mode region.
func (o *TPSOptimizer) Optimize(target float64, diag *models.Diagnostics) models.OperatingPoint {
	best := models.OperatingPoint{
		TargetW: target,
		Mode:    models.ModeNoSolution,
		IrmsA:   math.Inf(1),
	}

	// The SPS point at exact target power is always a valid mode 1
	// candidate when the target is reachable; the TPS optimum can only
	// improve on it.
	if d, ok := o.model.SPSDuty(target, o.cfg.DutyFloor); ok {
		o.consider(&best, models.Mode1, d, target, diag)
	}

	for _, m := range o.model.Modes() {
		seeds := []models.DutyPoint{classicSeed, interiorSeeds[m]}
		for _, seed := range seeds {
			d, ok := o.solveMode(m, target, seed)
			if !ok {
				continue
			}
			if o.consider(&best, m, d, target, diag) {
				break // accepted from this seed; skip the retry
			}
		}
	}

	if !best.OK {
		best.IrmsA = 0
		best.Message = fmt.Sprintf("no mode admits %.1f W within ±%.1f W", target, o.cfg.PowerToleranceW)
		if diag != nil {
			diag.InfeasibleRejects++
		}
	}
	return best
}

// consider validates a candidate and folds it into best when it wins.
// Returns whether the candidate was accepted as valid.
func (o *TPSOptimizer) consider(best *models.OperatingPoint, m models.Mode, d models.DutyPoint, target float64, diag *models.Diagnostics) bool {
	if !d.InEnvelope(o.cfg.DutyFloor, o.cfg.DutyCeil) {
		return false
	}
	for _, s := range o.model.ConstraintSlacks(m, d) {
		if s > o.cfg.ConstraintSlackTol {
			return false
		}
	}
	p := o.model.Power(m, d)
	if math.Abs(p-target) > o.cfg.PowerToleranceW {
		return false
	}
	irms, ok := ClampIrms(o.model.IrmsSquared(m, d), diag)
	if !ok {
		if diag != nil {
			diag.InfeasibleRejects++
		}
		return false
	}
	if irms < best.IrmsA {
		*best = models.OperatingPoint{
			TargetW:   target,
			AchievedW: p,
			ErrorW:    math.Abs(p - target),
			Duties:    d,
			IrmsA:     irms,
			Mode:      m,
			OK:        true,
		}
	}
	return true
}

// solveMode runs the penalty continuation for one mode region from one seed.
func (o *TPSOptimizer) solveMode(m models.Mode, target float64, seed models.DutyPoint) (models.DutyPoint, bool) {
	x := seed.Slice()
	settings := &optimize.Settings{
		MajorIterations: o.cfg.MaxIterations,
	}

	for _, mu := range penaltyStages {
		problem := optimize.Problem{
			Func: func(v []float64) float64 {
				return o.penalized(m, target, mu, v)
			},
		}
		result, err := optimize.Minimize(problem, x, settings, &optimize.NelderMead{})
		if err != nil && result == nil {
			return models.DutyPoint{}, false
		}
		copy(x, result.X)
	}

	// Snap onto the bounds; Nelder-Mead may settle epsilon outside.
	for i := range x {
		x[i] = math.Min(math.Max(x[i], o.cfg.DutyFloor), o.cfg.DutyCeil)
	}
	return models.FromSlice(x), true
}

// penalized is the stage objective: Irms^2 plus mu-weighted squared
// violations of the power equality, the mode inequalities, and the bounds.
// The power residual is normalized by the target so the weight schedule
// works uniformly across the sweep range.
func (o *TPSOptimizer) penalized(m models.Mode, target, mu float64, x []float64) float64 {
	d := models.FromSlice(x)

	violation := 0.0
	rel := (o.model.Power(m, d) - target) / target
	violation += rel * rel
	for _, s := range o.model.ConstraintSlacks(m, d) {
		if s > 0 {
			violation += s * s
		}
	}
	for _, v := range x {
		if v < o.cfg.DutyFloor {
			dv := o.cfg.DutyFloor - v
			violation += dv * dv
		}
		if v > o.cfg.DutyCeil {
			dv := v - o.cfg.DutyCeil
			violation += dv * dv
		}
	}

	return o.model.IrmsSquared(m, d) + mu*violation
}
