// ABOUTME: Precomputed candidate pool: volumetric duty-grid plus analytical
// ABOUTME: path samples, power-sorted for windowed minimum-Irms lookup.

package services

import (
	"fmt"
	"math"
	"sort"

	"github.com/dablab/dab-tps-analyzer/models"
)

// PoolConfig controls candidate generation and lookup acceptance.
type PoolConfig struct {
	// GridStep is the volumetric sweep resolution; grid values run from
	// GridStep up to (not including) 1.
	GridStep float64
	// MaxPowerW caps kept candidates; 0 means the model's own limit only.
	MaxPowerW float64
	// ToleranceW is the half-width of the power-matching window.
	ToleranceW float64
	// FallbackMaxErrorW bounds the nearest-power fallback when the window
	// is empty. Negative disables the bound (fallback always accepted).
	FallbackMaxErrorW float64
}

// DefaultPoolConfig matches the established table-generation settings.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		GridStep:          0.01,
		ToleranceW:        2.0,
		FallbackMaxErrorW: 100.0,
	}
}

// Candidate is one precomputed feasible operating point.
type Candidate struct {
	Duty   models.DutyPoint
	Mode   models.Mode
	PowerW float64
	IrmsA  float64

	// Dimensionless values, populated only for scaled (zone) models.
	ScaledPower float64
	ScaledIrms  float64
}

// scaledEvaluator is satisfied by models working in dimensionless units
// alongside watts.
type scaledEvaluator interface {
	ScaledPower(models.Mode, models.DutyPoint) float64
	ScaledIrmsSquared(models.Mode, models.DutyPoint) float64
}

// CandidatePool is an immutable power-sorted candidate set. Build once,
// query from any goroutine.
type CandidatePool struct {
	cfg        PoolConfig
	candidates []Candidate // sorted by PowerW ascending
}

// BuildPool sweeps the duty grid over every region of the model, keeps
// feasible positive-power candidates, folds in the model's analytical path
// samples when it provides them, deduplicates, and sorts by power. diag
// accumulates clamp and reject counts; it may be nil.
func BuildPool(model ModeModel, cfg PoolConfig, diag *models.Diagnostics) *CandidatePool {
	if cfg.GridStep <= 0 {
		cfg.GridStep = DefaultPoolConfig().GridStep
	}
	if cfg.ToleranceW == 0 {
		cfg.ToleranceW = DefaultPoolConfig().ToleranceW
	}

	type dutyKey struct {
		mode       models.Mode
		d0, d1, d2 float64
	}
	seen := make(map[dutyKey]struct{})
	var out []Candidate

	add := func(m models.Mode, d models.DutyPoint) {
		if !model.Feasible(m, d) {
			return
		}
		p := model.Power(m, d)
		if p <= 0 || (cfg.MaxPowerW > 0 && p > cfg.MaxPowerW) {
			return
		}
		irms, ok := ClampIrms(model.IrmsSquared(m, d), diag)
		if !ok {
			if diag != nil {
				diag.InfeasibleRejects++
			}
			return
		}
		key := dutyKey{m, d.D0, d.D1, d.D2}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}

		c := Candidate{Duty: d, Mode: m, PowerW: p, IrmsA: irms}
		if se, scaled := model.(scaledEvaluator); scaled {
			c.ScaledPower = se.ScaledPower(m, d)
			if sq := se.ScaledIrmsSquared(m, d); sq > 0 {
				c.ScaledIrms = math.Sqrt(sq)
			}
		}
		out = append(out, c)
	}

	modes := model.Modes()
	for d0 := cfg.GridStep; d0 < 1; d0 += cfg.GridStep {
		for d1 := cfg.GridStep; d1 < 1; d1 += cfg.GridStep {
			for d2 := cfg.GridStep; d2 < 1; d2 += cfg.GridStep {
				d := models.DutyPoint{D0: d0, D1: d1, D2: d2}
				for _, m := range modes {
					add(m, d)
				}
			}
		}
	}

	if sampler, ok := model.(PathSampler); ok {
		sampler.SamplePaths(add)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].PowerW != out[j].PowerW {
			return out[i].PowerW < out[j].PowerW
		}
		return out[i].IrmsA < out[j].IrmsA
	})
	return &CandidatePool{cfg: cfg, candidates: out}
}

// Size returns the number of stored candidates.
func (p *CandidatePool) Size() int { return len(p.candidates) }

// PowerRange returns the lowest and highest candidate powers in watts.
func (p *CandidatePool) PowerRange() (lo, hi float64) {
	if len(p.candidates) == 0 {
		return 0, 0
	}
	return p.candidates[0].PowerW, p.candidates[len(p.candidates)-1].PowerW
}

// Lookup resolves one power target: minimum-Irms candidate inside the
// tolerance window, else the nearest-power candidate when its error stays
// within FallbackMaxErrorW, else a NO_SOLUTION row carrying the nearest
// error for diagnosis.
func (p *CandidatePool) Lookup(target float64) models.OperatingPoint {
	if len(p.candidates) == 0 {
		return models.OperatingPoint{
			TargetW: target,
			Mode:    models.ModeNoSolution,
			Message: "empty candidate pool",
		}
	}

	lo := sort.Search(len(p.candidates), func(i int) bool {
		return p.candidates[i].PowerW >= target-p.cfg.ToleranceW
	})
	hi := sort.Search(len(p.candidates), func(i int) bool {
		return p.candidates[i].PowerW > target+p.cfg.ToleranceW
	})

	if lo < hi {
		best := lo
		for i := lo + 1; i < hi; i++ {
			if p.candidates[i].IrmsA < p.candidates[best].IrmsA {
				best = i
			}
		}
		return p.row(target, p.candidates[best])
	}

	// Window empty: nearest power, minimum Irms among equal-distance ties.
	best := p.nearest(target)
	errW := math.Abs(p.candidates[best].PowerW - target)
	if p.cfg.FallbackMaxErrorW >= 0 && errW > p.cfg.FallbackMaxErrorW {
		return models.OperatingPoint{
			TargetW: target,
			ErrorW:  errW,
			Mode:    models.ModeNoSolution,
			Message: fmt.Sprintf("nearest candidate is %.1f W away, beyond the %.1f W fallback bound", errW, p.cfg.FallbackMaxErrorW),
		}
	}
	return p.row(target, p.candidates[best])
}

func (p *CandidatePool) nearest(target float64) int {
	i := sort.Search(len(p.candidates), func(i int) bool {
		return p.candidates[i].PowerW >= target
	})
	best := -1
	bestErr := math.Inf(1)
	// Scan outward over the two runs adjacent to the insertion point so
	// that equal-distance ties on both sides resolve by minimum Irms.
	for j := i - 1; j >= 0; j-- {
		errW := target - p.candidates[j].PowerW
		if errW > bestErr {
			break
		}
		if errW < bestErr || p.candidates[j].IrmsA < p.candidates[best].IrmsA {
			best, bestErr = j, errW
		}
	}
	for j := i; j < len(p.candidates); j++ {
		errW := p.candidates[j].PowerW - target
		if errW > bestErr {
			break
		}
		if errW < bestErr || p.candidates[j].IrmsA < p.candidates[best].IrmsA {
			best, bestErr = j, errW
		}
	}
	return best
}

func (p *CandidatePool) row(target float64, c Candidate) models.OperatingPoint {
	return models.OperatingPoint{
		TargetW:     target,
		AchievedW:   c.PowerW,
		ErrorW:      math.Abs(c.PowerW - target),
		Duties:      c.Duty,
		IrmsA:       c.IrmsA,
		Mode:        c.Mode,
		OK:          true,
		ScaledPower: c.ScaledPower,
		ScaledIrms:  c.ScaledIrms,
	}
}
