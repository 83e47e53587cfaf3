// ABOUTME: Configuration loader for the TPS analyzer service
// ABOUTME: Loads converter, sweep, and server settings from environment variables

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dablab/dab-tps-analyzer/models"
	"github.com/dablab/dab-tps-analyzer/services"
)

type Config struct {
	// Server
	Port               string
	CacheTTL           int      // seconds, lookup-table cache
	CORSAllowedOrigins []string // allowed CORS origins (empty = block all cross-origin)

	// Converter
	PrimaryV     float64
	SecondaryV   float64
	SwitchingHz  float64
	InductanceH  float64
	TurnsRatio   float64
	ESRPrimary   float64
	ESRSecondary float64

	// Sweep / lookup
	PowerMinW         float64
	PowerMaxW         float64
	PowerStepW        float64
	PowerToleranceW   float64
	GridStep          float64
	FallbackMaxErrorW float64
	SweepWorkers      int

	// Zone design
	DesignV2MinV  float64
	DesignV2MaxV  float64
	DesignV2StepV float64
	DesignMStar   float64
	DesignPMaxW   float64
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		CacheTTL:           getEnvInt("CACHE_TTL", 300),
		CORSAllowedOrigins: getEnvStringList("CORS_ALLOWED_ORIGINS"),

		PrimaryV:     getEnvFloat("PRIMARY_VOLTAGE_V", 200),
		SecondaryV:   getEnvFloat("SECONDARY_VOLTAGE_V", 50),
		SwitchingHz:  getEnvFloat("SWITCHING_FREQ_HZ", 50_000),
		InductanceH:  getEnvFloat("INDUCTANCE_H", 20e-6),
		TurnsRatio:   getEnvFloat("TURNS_RATIO", 1),
		ESRPrimary:   getEnvFloat("ESR_PRIMARY_OHM", 0),
		ESRSecondary: getEnvFloat("ESR_SECONDARY_OHM", 0),

		PowerMinW:         getEnvFloat("POWER_MIN_W", 100),
		PowerMaxW:         getEnvFloat("POWER_MAX_W", 1000),
		PowerStepW:        getEnvFloat("POWER_STEP_W", 10),
		PowerToleranceW:   getEnvFloat("POWER_TOLERANCE_W", 2),
		GridStep:          getEnvFloat("GRID_STEP", 0.01),
		FallbackMaxErrorW: getEnvFloat("FALLBACK_MAX_ERROR_W", 100),
		SweepWorkers:      getEnvInt("SWEEP_WORKERS", 0),

		DesignV2MinV:  getEnvFloat("DESIGN_V2_MIN_V", 45),
		DesignV2MaxV:  getEnvFloat("DESIGN_V2_MAX_V", 55),
		DesignV2StepV: getEnvFloat("DESIGN_V2_STEP_V", 1),
		DesignMStar:   getEnvFloat("DESIGN_M_STAR", 1.3),
		DesignPMaxW:   getEnvFloat("DESIGN_P_MAX_W", 3500),
	}

	if err := cfg.Converter().Validate(); err != nil {
		return nil, fmt.Errorf("invalid converter configuration: %w", err)
	}
	if err := cfg.Sweep().Validate(); err != nil {
		return nil, fmt.Errorf("invalid sweep configuration: %w", err)
	}
	if cfg.GridStep <= 0 || cfg.GridStep >= 1 {
		return nil, fmt.Errorf("GRID_STEP must be in (0, 1), got %g", cfg.GridStep)
	}
	if cfg.PowerToleranceW <= 0 {
		return nil, fmt.Errorf("POWER_TOLERANCE_W must be positive, got %g", cfg.PowerToleranceW)
	}

	return cfg, nil
}

// Converter assembles the validated converter parameter record.
func (c *Config) Converter() models.ConverterParameters {
	return models.ConverterParameters{
		PrimaryV:     c.PrimaryV,
		SecondaryV:   c.SecondaryV,
		SwitchingHz:  c.SwitchingHz,
		InductanceH:  c.InductanceH,
		TurnsRatio:   c.TurnsRatio,
		ESRPrimary:   c.ESRPrimary,
		ESRSecondary: c.ESRSecondary,
	}.WithDerived()
}

// Sweep assembles the lookup-table generation settings.
func (c *Config) Sweep() services.SweepConfig {
	return services.SweepConfig{
		MinPowerW: c.PowerMinW,
		MaxPowerW: c.PowerMaxW,
		StepW:     c.PowerStepW,
		Workers:   c.SweepWorkers,
	}
}

// Pool assembles the candidate-pool settings.
func (c *Config) Pool() services.PoolConfig {
	return services.PoolConfig{
		GridStep:          c.GridStep,
		ToleranceW:        c.PowerToleranceW,
		FallbackMaxErrorW: c.FallbackMaxErrorW,
	}
}

// Optimizer assembles the constrained-search settings.
func (c *Config) Optimizer() services.OptimizerConfig {
	cfg := services.DefaultOptimizerConfig()
	cfg.PowerToleranceW = c.PowerToleranceW
	return cfg
}

// Design assembles the zone design pipeline settings.
func (c *Config) Design() services.DesignConfig {
	return services.DesignConfig{
		PrimaryV:    c.PrimaryV,
		SwitchingHz: c.SwitchingHz,
		MaxPowerW:   c.DesignPMaxW,
		V2MinV:      c.DesignV2MinV,
		V2MaxV:      c.DesignV2MaxV,
		V2StepV:     c.DesignV2StepV,
		MStar:       c.DesignMStar,
		Pool:        c.Pool(),
		Sweep: services.SweepConfig{
			MinPowerW: 0,
			MaxPowerW: c.DesignPMaxW,
			StepW:     c.PowerStepW,
			Workers:   c.SweepWorkers,
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvStringList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
