// ABOUTME: Design command running the zone-based magnetics sizing pipeline
// ABOUTME: Emits the per-V2 operating-point dataset as CSV or JSON

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dablab/dab-tps-analyzer/export"
	"github.com/dablab/dab-tps-analyzer/services"
)

var designOut string

var designCmd = &cobra.Command{
	Use:   "design",
	Short: "Size magnetics at the design point and build the per-V2 lookup dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		svc := services.NewDesignService(nil)
		result, err := svc.Run(cmd.Context(), cfg.Design())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if designOut != "" {
			f, err := os.Create(designOut)
			if err != nil {
				return fmt.Errorf("creating %s: %w", designOut, err)
			}
			defer f.Close()
			if IsJSONOutput() {
				enc := json.NewEncoder(f)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else if err := export.WriteDesignTable(f, result); err != nil {
				return err
			}
			fmt.Fprintf(out, "n=%.6f, L=%.3f uH, p*=%.6f; wrote %d rows to %s\n",
				result.Design.TurnsRatio, result.Design.InductanceH*1e6,
				result.Design.PStar, len(result.Table.Rows), designOut)
			return nil
		}

		if IsJSONOutput() {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		return export.WriteDesignTable(out, result)
	},
}

func init() {
	designCmd.Flags().StringVar(&designOut, "out", "", "CSV output path (default: stdout)")
	rootCmd.AddCommand(designCmd)
}
