// ABOUTME: HTTP handlers for the TPS analyzer API endpoints
// ABOUTME: Serves lookup tables, single-point optimization, and design runs

package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/dablab/dab-tps-analyzer/cache"
	"github.com/dablab/dab-tps-analyzer/config"
	"github.com/dablab/dab-tps-analyzer/models"
	"github.com/dablab/dab-tps-analyzer/services"
)

// Strategy names accepted by the table and optimize endpoints.
const (
	StrategyPool      = "pool"
	StrategyOptimizer = "optimizer"
)

type Handler struct {
	cfg   *config.Config
	cache *cache.Cache
	// group collapses concurrent builds of the same table; pools take
	// seconds to generate and every request for a cold key would
	// otherwise start its own.
	group singleflight.Group

	model     *services.TongModel
	optimizer *services.TPSOptimizer
	designSvc *services.DesignService
}

func NewHandler(cfg *config.Config, c *cache.Cache) *Handler {
	h := &Handler{
		cfg:       cfg,
		cache:     c,
		designSvc: services.NewDesignService(nil),
	}
	if cfg != nil {
		h.model = services.NewTongModel(cfg.Converter())
		h.optimizer = services.NewTPSOptimizer(h.model, cfg.Optimizer())
	}
	return h
}

// tableResponse is the JSON envelope for generated tables.
type tableResponse struct {
	Strategy string              `json:"strategy"`
	Table    models.LookupTable  `json:"table"`
	Summary  models.SweepSummary `json:"summary"`
}

// HandleTable generates (or serves from cache) the full lookup table.
// Query parameters: strategy (pool|optimizer), min_w, max_w, step_w.
func (h *Handler) HandleTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	strategy := r.URL.Query().Get("strategy")
	if strategy == "" {
		strategy = StrategyPool
	}
	if strategy != StrategyPool && strategy != StrategyOptimizer {
		writeError(w, http.StatusBadRequest, "unknown strategy", strategy)
		return
	}

	sweepCfg := h.cfg.Sweep()
	var err error
	if sweepCfg.MinPowerW, err = floatParam(r, "min_w", sweepCfg.MinPowerW); err != nil {
		writeError(w, http.StatusBadRequest, "invalid min_w", err.Error())
		return
	}
	if sweepCfg.MaxPowerW, err = floatParam(r, "max_w", sweepCfg.MaxPowerW); err != nil {
		writeError(w, http.StatusBadRequest, "invalid max_w", err.Error())
		return
	}
	if sweepCfg.StepW, err = floatParam(r, "step_w", sweepCfg.StepW); err != nil {
		writeError(w, http.StatusBadRequest, "invalid step_w", err.Error())
		return
	}
	if err := sweepCfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid sweep range", err.Error())
		return
	}

	key := cache.TableKey(strategy, h.cfg.PrimaryV, h.cfg.SecondaryV,
		sweepCfg.MinPowerW, sweepCfg.MaxPowerW, sweepCfg.StepW)
	if cached, found := h.cache.Get(key); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	resp, err, _ := h.group.Do(key, func() (interface{}, error) {
		solver, err := h.solver(strategy)
		if err != nil {
			return nil, err
		}
		svc := services.NewSweepService(h.cfg.Converter(), solver, slog.Default())
		table, summary, err := svc.Run(r.Context(), sweepCfg)
		if err != nil {
			return nil, err
		}
		out := tableResponse{Strategy: strategy, Table: table, Summary: summary}
		h.cache.Set(key, out)
		return out, nil
	})
	if err != nil {
		slog.Error("Table generation failed", "strategy", strategy, "error", err)
		writeError(w, http.StatusInternalServerError, "table generation failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleOptimize resolves a single power target.
// Query parameters: target_w (required), strategy (pool|optimizer).
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	raw := r.URL.Query().Get("target_w")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "target_w is required", "")
		return
	}
	target, err := strconv.ParseFloat(raw, 64)
	if err != nil || target <= 0 {
		writeError(w, http.StatusBadRequest, "invalid target_w", raw)
		return
	}

	strategy := r.URL.Query().Get("strategy")
	if strategy == "" {
		strategy = StrategyOptimizer
	}
	solver, err := h.solver(strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown strategy", strategy)
		return
	}

	var diag models.Diagnostics
	row := solver.Solve(target, &diag)
	if !row.OK {
		// The target is outside what this converter can deliver; that
		// is a client-side condition, not a server failure.
		writeJSON(w, http.StatusUnprocessableEntity, row)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// HandleDesign runs the zone design pipeline with the configured window.
func (h *Handler) HandleDesign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	designCfg := h.cfg.Design()
	key := fmt.Sprintf("design:%g:%g:%g:%g:%g", designCfg.PrimaryV,
		designCfg.V2MinV, designCfg.V2MaxV, designCfg.MStar, designCfg.MaxPowerW)
	if cached, found := h.cache.Get(key); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	resp, err, _ := h.group.Do(key, func() (interface{}, error) {
		result, err := h.designSvc.Run(r.Context(), designCfg)
		if err != nil {
			return nil, err
		}
		h.cache.Set(key, result)
		return result, nil
	})
	if err != nil {
		slog.Error("Design run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "design run failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// solver builds the requested strategy. Pools are cached by build inputs so
// repeated sweeps reuse the candidate set.
func (h *Handler) solver(strategy string) (services.Solver, error) {
	switch strategy {
	case StrategyOptimizer:
		return h.optimizer, nil
	case StrategyPool:
		key := cache.TableKey("pool-candidates", h.cfg.PrimaryV, h.cfg.SecondaryV,
			h.cfg.GridStep, 0, 0)
		if cached, found := h.cache.Get(key); found {
			return cached.(*services.CandidatePool), nil
		}
		var diag models.Diagnostics
		pool := services.BuildPool(h.model, h.cfg.Pool(), &diag)
		if warn := diag.DegeneracyWarning(pool.Size(), 0.001); warn != "" {
			slog.Warn(warn)
		}
		h.cache.Set(key, pool)
		return pool, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
}

// EnableCORS applies the configured allow-list before delegating.
func (h *Handler) EnableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && h.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func (h *Handler) originAllowed(origin string) bool {
	if h.cfg == nil {
		return false
	}
	for _, allowed := range h.cfg.CORSAllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

func floatParam(r *http.Request, name string, fallback float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   msg,
		"details": details,
		"code":    status,
	})
}
