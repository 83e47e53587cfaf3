// ABOUTME: Sweep command generating the full lookup table
// ABOUTME: Supports both solver strategies and CSV/JSON output

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dablab/dab-tps-analyzer/config"
	"github.com/dablab/dab-tps-analyzer/export"
	"github.com/dablab/dab-tps-analyzer/models"
	"github.com/dablab/dab-tps-analyzer/services"
)

var (
	sweepStrategy string
	sweepOut      string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Generate the minimum-Irms lookup table over the configured power range",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runSweep(cmd.Context(), cfg, sweepStrategy, sweepOut, cmd.OutOrStdout())
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepStrategy, "strategy", "pool", "Solver strategy: pool or optimizer")
	sweepCmd.Flags().StringVar(&sweepOut, "out", "", "CSV output path (default: stdout)")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(ctx context.Context, cfg *config.Config, strategy, outPath string, stdout io.Writer) error {
	solver, err := buildSolver(cfg, strategy)
	if err != nil {
		return err
	}

	svc := services.NewSweepService(cfg.Converter(), solver, nil)
	table, summary, err := svc.Run(ctx, cfg.Sweep())
	if err != nil {
		return err
	}

	out := stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer f.Close()
		out = f
	}

	if IsJSONOutput() {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"table":   table,
			"summary": summary,
		})
	}

	if err := export.WriteTable(out, table); err != nil {
		return err
	}
	if outPath != "" {
		fmt.Fprintf(stdout, "Wrote %d rows to %s (%d solved, mean error %.3f W)\n",
			summary.Rows, outPath, summary.Solved, summary.MeanErrorW)
	}
	return nil
}

// buildSolver assembles the requested strategy over the configured converter.
func buildSolver(cfg *config.Config, strategy string) (services.Solver, error) {
	model := services.NewTongModel(cfg.Converter())
	switch strategy {
	case "optimizer":
		return services.NewTPSOptimizer(model, cfg.Optimizer()), nil
	case "pool":
		var diag models.Diagnostics
		return services.BuildPool(model, cfg.Pool(), &diag), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (want pool or optimizer)", strategy)
	}
}
