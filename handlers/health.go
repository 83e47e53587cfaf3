// ABOUTME: Health endpoint reporting converter configuration status
// ABOUTME: Surfaces the voltage-ratio degeneracy check for operators

package handlers

import (
	"math"
	"net/http"
)

// ratioDegeneracyBand flags converters operating close enough to unity
// reflected ratio that the Irms^2 polynomials cancel toward rounding noise.
// A 2% supply offset is enough to leave the band.
const ratioDegeneracyBand = 0.02

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status": "ok",
	}

	if h.cfg != nil {
		params := h.cfg.Converter()
		ratio := params.Ratio()
		resp["converter"] = map[string]interface{}{
			"primary_v":    params.PrimaryV,
			"secondary_v":  params.SecondaryV,
			"ratio":        ratio,
			"switching_hz": params.SwitchingHz,
		}
		if math.Abs(ratio-1) < ratioDegeneracyBand {
			resp["warnings"] = []string{
				"reflected voltage ratio is within 2% of unity; expect clamped Irms^2 evaluations",
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
