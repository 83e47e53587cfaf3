// ABOUTME: CSV export for lookup tables and design datasets.
// ABOUTME: Column layout is the external contract with downstream tooling.

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/dablab/dab-tps-analyzer/models"
	"github.com/dablab/dab-tps-analyzer/services"
)

// tableHeader is the six-mode lookup-table layout.
var tableHeader = []string{
	"Power_Target_W", "D0", "D1", "D2",
	"Irms_A", "Power_Actual_W", "Power_Error_W", "Mode",
}

// designHeader is the zone design dataset layout, one row per (V2, target).
var designHeader = []string{
	"Power_Target_W", "V2_V", "D0_delta", "D1", "D2", "Zone",
	"Irms_A", "Power_Actual_W", "Power_Error_W",
	"m", "p_scaled", "n", "L_H",
}

// WriteTable emits a lookup table in the six-mode layout. NO_SOLUTION rows
// keep their target and nearest-error columns; the operating-point columns
// stay empty.
func WriteTable(w io.Writer, table models.LookupTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tableHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range table.Rows {
		rec := []string{
			num(r.TargetW),
			"", "", "", "", "",
			num(r.ErrorW),
			r.Mode.String(),
		}
		if r.OK {
			rec[1] = num(r.Duties.D0)
			rec[2] = num(r.Duties.D1)
			rec[3] = num(r.Duties.D2)
			rec[4] = num(r.IrmsA)
			rec[5] = num(r.AchievedW)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row for %g W: %w", r.TargetW, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDesignTable emits a design run in the zone dataset layout.
func WriteDesignTable(w io.Writer, result services.DesignResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(designHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range result.Table.Rows {
		rec := []string{
			num(r.TargetW),
			num(r.SecondaryV),
			"", "", "",
			r.Mode.String(),
			"", "",
			num(r.ErrorW),
			"", "",
			num(result.Design.TurnsRatio),
			num(result.Design.InductanceH),
		}
		if r.OK {
			rec[2] = num(r.Duties.D0)
			rec[3] = num(r.Duties.D1)
			rec[4] = num(r.Duties.D2)
			rec[6] = num(r.IrmsA)
			rec[7] = num(r.AchievedW)
			rec[9] = num(r.Ratio)
			rec[10] = num(r.ScaledPower)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row for %g W at V2=%g: %w", r.TargetW, r.SecondaryV, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
