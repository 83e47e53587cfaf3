// ABOUTME: Entry point for the DAB TPS analyzer backend service
// ABOUTME: Provides HTTP API for lookup tables, optimization, and design runs

package main

import (
	"log/slog"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/dablab/dab-tps-analyzer/cache"
	"github.com/dablab/dab-tps-analyzer/config"
	"github.com/dablab/dab-tps-analyzer/handlers"
	"github.com/dablab/dab-tps-analyzer/logger"
	"github.com/dablab/dab-tps-analyzer/middleware"
)

func main() {
	// Initialize structured logging
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	params := cfg.Converter()
	slog.Info("Starting DAB TPS Analyzer Backend")
	slog.Info("Converter configured",
		"primary_v", params.PrimaryV,
		"secondary_v", params.SecondaryV,
		"switching_hz", params.SwitchingHz,
		"inductance_h", params.InductanceH,
		"ratio", params.Ratio())
	if math.Abs(params.Ratio()-1) < 0.02 {
		slog.Warn("Reflected voltage ratio within 2% of unity; Irms^2 evaluations will clamp near zero")
	}

	// Initialize cache
	cacheTTL := time.Duration(cfg.CacheTTL) * time.Second
	c := cache.New(cacheTTL)
	slog.Info("Cache initialized", "ttl", cacheTTL)

	// Initialize handlers
	h := handlers.NewHandler(cfg, c)

	// Register routes with logging middleware
	http.HandleFunc("/api/health", h.EnableCORS(middleware.LogRequest(h.Health)))
	http.HandleFunc("/api/table", h.EnableCORS(middleware.LogRequest(h.HandleTable)))
	http.HandleFunc("/api/optimize", h.EnableCORS(middleware.LogRequest(h.HandleOptimize)))
	http.HandleFunc("/api/design", h.EnableCORS(middleware.LogRequest(h.HandleDesign)))

	// Start server
	addr := ":" + cfg.Port
	slog.Info("Server listening", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
