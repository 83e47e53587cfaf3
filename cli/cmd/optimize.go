// ABOUTME: Optimize command resolving a single power target
// ABOUTME: Prints the minimum-Irms operating point for one target

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dablab/dab-tps-analyzer/config"
	"github.com/dablab/dab-tps-analyzer/models"
)

var optimizeStrategy string

var optimizeCmd = &cobra.Command{
	Use:   "optimize <target-watts>",
	Short: "Find the minimum-Irms duty triple for one power target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := strconv.ParseFloat(args[0], 64)
		if err != nil || target <= 0 {
			return fmt.Errorf("invalid target %q: want positive watts", args[0])
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runOptimize(cfg, optimizeStrategy, target, cmd.OutOrStdout())
	},
}

func init() {
	optimizeCmd.Flags().StringVar(&optimizeStrategy, "strategy", "optimizer", "Solver strategy: pool or optimizer")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cfg *config.Config, strategy string, target float64, out io.Writer) error {
	solver, err := buildSolver(cfg, strategy)
	if err != nil {
		return err
	}

	var diag models.Diagnostics
	row := solver.Solve(target, &diag)

	if IsJSONOutput() {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(row)
	}

	if !row.OK {
		return fmt.Errorf("no solution for %.1f W: %s", target, row.Message)
	}
	fmt.Fprintf(out, "P=%.1f W -> Mode %s | D0=%.4f, D1=%.4f, D2=%.4f | Irms=%.4f A | Error=%.2f W\n",
		row.TargetW, row.Mode, row.Duties.D0, row.Duties.D1, row.Duties.D2, row.IrmsA, row.ErrorW)
	return nil
}
