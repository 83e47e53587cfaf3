// ABOUTME: Power-sweep driver: runs a solver over a target range in parallel
// ABOUTME: and aggregates the lookup table plus convergence statistics.

package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dablab/dab-tps-analyzer/models"
)

// Solver resolves one power target into an operating point. Implementations
// must be safe for concurrent use; diag is goroutine-local and may be nil.
type Solver interface {
	Solve(target float64, diag *models.Diagnostics) models.OperatingPoint
}

// Solve lets the constrained optimizer drive a sweep.
func (o *TPSOptimizer) Solve(target float64, diag *models.Diagnostics) models.OperatingPoint {
	return o.Optimize(target, diag)
}

// Solve lets a candidate pool drive a sweep. Clamp diagnostics for pools are
// collected at build time, not per lookup.
func (p *CandidatePool) Solve(target float64, _ *models.Diagnostics) models.OperatingPoint {
	return p.Lookup(target)
}

// SweepConfig describes one lookup-table generation run.
type SweepConfig struct {
	MinPowerW float64
	MaxPowerW float64
	StepW     float64
	// Workers caps sweep parallelism; 0 means GOMAXPROCS.
	Workers int
}

// Validate rejects ranges that would produce no targets.
func (c SweepConfig) Validate() error {
	if c.StepW <= 0 {
		return fmt.Errorf("power step must be positive, got %g", c.StepW)
	}
	if c.MaxPowerW < c.MinPowerW {
		return fmt.Errorf("power range is empty: [%g, %g]", c.MinPowerW, c.MaxPowerW)
	}
	return nil
}

// Targets expands the range into the ascending target list, both ends
// inclusive.
func (c SweepConfig) Targets() []float64 {
	n := int((c.MaxPowerW-c.MinPowerW)/c.StepW) + 1
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, c.MinPowerW+float64(i)*c.StepW)
	}
	return out
}

// SweepService generates lookup tables for one converter configuration.
type SweepService struct {
	params models.ConverterParameters
	solver Solver
	log    *slog.Logger
}

// NewSweepService wires a solver to the converter parameters it was built
// for. logger may be nil to use the default.
func NewSweepService(params models.ConverterParameters, solver Solver, logger *slog.Logger) *SweepService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepService{params: params.WithDerived(), solver: solver, log: logger}
}

// Run sweeps the configured target range. Rows come back in ascending
// target order regardless of worker scheduling; every target yields exactly
// one row, failed targets included. Cancelling ctx abandons remaining
// targets and returns its error.
func (s *SweepService) Run(ctx context.Context, cfg SweepConfig) (models.LookupTable, models.SweepSummary, error) {
	if err := cfg.Validate(); err != nil {
		return models.LookupTable{}, models.SweepSummary{}, err
	}
	targets := cfg.Targets()
	rows := make([]models.OperatingPoint, len(targets))

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(targets) {
		workers = len(targets)
	}

	s.log.Info("starting power sweep",
		"targets", len(targets),
		"min_w", cfg.MinPowerW,
		"max_w", cfg.MaxPowerW,
		"step_w", cfg.StepW,
		"workers", workers)

	diags := make([]models.Diagnostics, workers)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for i := w; i < len(targets); i += workers {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				rows[i] = s.solver.Solve(targets[i], &diags[w])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.LookupTable{}, models.SweepSummary{}, fmt.Errorf("sweep aborted: %w", err)
	}

	table := models.LookupTable{Params: s.params, Rows: rows}
	summary := summarize(table)
	for _, d := range diags {
		summary.Diagnostics.Merge(d)
	}

	s.log.Info("sweep complete",
		"rows", summary.Rows,
		"solved", summary.Solved,
		"failed", summary.Failed,
		"mean_error_w", summary.MeanErrorW,
		"mean_irms_a", summary.MeanIrmsA)
	if summary.Diagnostics.NegativeIrmsSq > 0 {
		s.log.Warn("clamped negative Irms^2 evaluations during sweep",
			"count", summary.Diagnostics.NegativeIrmsSq,
			"worst", summary.Diagnostics.WorstNegative)
	}
	return table, summary, nil
}

// summarize computes the aggregate statistics block for a finished table.
func summarize(table models.LookupTable) models.SweepSummary {
	sum := models.SweepSummary{
		Rows:       len(table.Rows),
		ModeCounts: make(map[string]int),
	}
	var errs, irms []float64
	for _, r := range table.Rows {
		sum.ModeCounts[r.Mode.String()]++
		if !r.OK {
			sum.Failed++
			continue
		}
		sum.Solved++
		errs = append(errs, r.ErrorW)
		irms = append(irms, r.IrmsA)
	}
	if len(errs) > 0 {
		sum.MeanErrorW = stat.Mean(errs, nil)
		sum.MaxErrorW = floats.Max(errs)
		sum.MeanIrmsA = stat.Mean(irms, nil)
	}
	if sum.Rows > 0 {
		sum.ConvergenceRate = float64(sum.Solved) / float64(sum.Rows)
	}
	return sum
}
