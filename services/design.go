// ABOUTME: Zone-based design pipeline: size magnetics at the design point,
// ABOUTME: then build per-V2 candidate pools and resolve the target grid.

package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/dablab/dab-tps-analyzer/models"
)

// DesignConfig describes one full design run: fixed primary side, a secondary
// voltage window, and the power grid the lookup table must cover.
type DesignConfig struct {
	PrimaryV    float64
	SwitchingHz float64
	MaxPowerW   float64

	V2MinV  float64
	V2MaxV  float64
	V2StepV float64

	// MStar is the voltage-ratio design point pinned at V2MinV.
	MStar float64

	Pool  PoolConfig
	Sweep SweepConfig

	// Workers caps per-V2 parallelism; 0 means one worker per V2 value.
	Workers int
}

// DefaultDesignConfig reflects the reference 200 V / 100 kHz / 3.5 kW design
// with a 45..55 V secondary window.
func DefaultDesignConfig() DesignConfig {
	return DesignConfig{
		PrimaryV:    200,
		SwitchingHz: 100_000,
		MaxPowerW:   3500,
		V2MinV:      45,
		V2MaxV:      55,
		V2StepV:     1,
		MStar:       1.3,
		Pool:        DefaultPoolConfig(),
		Sweep:       SweepConfig{MinPowerW: 0, MaxPowerW: 3500, StepW: 10},
	}
}

// Validate rejects configurations that cannot produce a design.
func (c DesignConfig) Validate() error {
	if c.PrimaryV <= 0 {
		return fmt.Errorf("primary voltage must be positive, got %g", c.PrimaryV)
	}
	if c.SwitchingHz <= 0 {
		return fmt.Errorf("switching frequency must be positive, got %g", c.SwitchingHz)
	}
	if c.MaxPowerW <= 0 {
		return fmt.Errorf("max power must be positive, got %g", c.MaxPowerW)
	}
	if c.V2MinV <= 0 || c.V2MaxV < c.V2MinV || c.V2StepV <= 0 {
		return fmt.Errorf("invalid secondary voltage window [%g, %g] step %g", c.V2MinV, c.V2MaxV, c.V2StepV)
	}
	if c.MStar <= 0 {
		return fmt.Errorf("design ratio m* must be positive, got %g", c.MStar)
	}
	return c.Sweep.Validate()
}

// secondaryVoltages expands the V2 window, both ends inclusive.
func (c DesignConfig) secondaryVoltages() []float64 {
	n := int((c.V2MaxV-c.V2MinV)/c.V2StepV) + 1
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, c.V2MinV+float64(i)*c.V2StepV)
	}
	return out
}

// DesignResult is the outcome of one design run: the sized magnetics and the
// combined per-V2 lookup table.
type DesignResult struct {
	Design  ZoneDesign          `json:"design"`
	Table   models.LookupTable  `json:"table"`
	Summary models.SweepSummary `json:"summary"`
	// PoolSizes records candidates kept per secondary voltage.
	PoolSizes map[string]int `json:"pool_sizes"`
}

// DesignService runs the zone pipeline end to end.
type DesignService struct {
	log *slog.Logger
}

// NewDesignService builds the pipeline; logger may be nil.
func NewDesignService(logger *slog.Logger) *DesignService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DesignService{log: logger}
}

// Run sizes n and L at the design point, then for every secondary voltage in
// the window builds a zone candidate pool and resolves the power grid
// against it. Voltages are processed in parallel; rows come back sorted by
// (V2, target power).
func (s *DesignService) Run(ctx context.Context, cfg DesignConfig) (DesignResult, error) {
	if err := cfg.Validate(); err != nil {
		return DesignResult{}, err
	}

	design := DesignMagnetics(cfg.PrimaryV, cfg.V2MinV, cfg.SwitchingHz, cfg.MaxPowerW, cfg.MStar)
	s.log.Info("magnetics sized",
		"m_star", cfg.MStar,
		"p_star", design.PStar,
		"n", design.TurnsRatio,
		"l_uh", design.InductanceH*1e6)

	voltages := cfg.secondaryVoltages()
	workers := cfg.Workers
	if workers <= 0 || workers > len(voltages) {
		workers = len(voltages)
	}

	perV2 := make([][]models.OperatingPoint, len(voltages))
	diags := make([]models.Diagnostics, len(voltages))
	poolSizes := make([]int, len(voltages))
	targets := cfg.Sweep.Targets()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, v2 := range voltages {
		i, v2 := i, v2
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			params := models.ConverterParameters{
				PrimaryV:    cfg.PrimaryV,
				SecondaryV:  v2,
				SwitchingHz: cfg.SwitchingHz,
				InductanceH: design.InductanceH,
				TurnsRatio:  design.TurnsRatio,
			}
			zm := NewZoneModel(params, cfg.MaxPowerW)

			poolCfg := cfg.Pool
			poolCfg.MaxPowerW = cfg.MaxPowerW
			pool := BuildPool(zm, poolCfg, &diags[i])
			poolSizes[i] = pool.Size()

			rows := make([]models.OperatingPoint, len(targets))
			for j, t := range targets {
				row := pool.Lookup(t)
				row.SecondaryV = v2
				row.Ratio = zm.Ratio()
				row.TurnsRatio = design.TurnsRatio
				row.InductanceH = design.InductanceH
				rows[j] = row
			}
			perV2[i] = rows

			s.log.Debug("secondary voltage resolved",
				"v2", v2,
				"m", zm.Ratio(),
				"pool", pool.Size(),
				"rows", len(rows))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DesignResult{}, fmt.Errorf("design pipeline aborted: %w", err)
	}

	var table models.LookupTable
	table.Params = models.ConverterParameters{
		PrimaryV:    cfg.PrimaryV,
		SecondaryV:  cfg.V2MinV,
		SwitchingHz: cfg.SwitchingHz,
		InductanceH: design.InductanceH,
		TurnsRatio:  design.TurnsRatio,
	}.WithDerived()
	for _, rows := range perV2 {
		table.Rows = append(table.Rows, rows...)
	}
	sort.SliceStable(table.Rows, func(i, j int) bool {
		if table.Rows[i].SecondaryV != table.Rows[j].SecondaryV {
			return table.Rows[i].SecondaryV < table.Rows[j].SecondaryV
		}
		return table.Rows[i].TargetW < table.Rows[j].TargetW
	})

	result := DesignResult{
		Design:    design,
		Table:     table,
		Summary:   summarize(table),
		PoolSizes: make(map[string]int, len(voltages)),
	}
	for i, v2 := range voltages {
		result.Summary.Diagnostics.Merge(diags[i])
		result.PoolSizes[fmt.Sprintf("%g", v2)] = poolSizes[i]
	}

	// Operating this close to unity ratio makes the Irms^2 polynomials
	// cancel to rounding noise; flag it rather than fail.
	if warn := result.Summary.Diagnostics.DegeneracyWarning(totalEvaluations(cfg, len(voltages)), 0.001); warn != "" {
		s.log.Warn(warn)
	}
	return result, nil
}

// totalEvaluations estimates grid evaluations per design run for the
// degeneracy rate check.
func totalEvaluations(cfg DesignConfig, voltages int) int {
	step := cfg.Pool.GridStep
	if step <= 0 {
		step = DefaultPoolConfig().GridStep
	}
	perAxis := int(math.Ceil(1/step)) - 1
	return voltages * 3 * perAxis * perAxis * perAxis
}
