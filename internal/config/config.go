package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/sergiocarp10/ggca/domain/analysis"
	"github.com/sergiocarp10/ggca/internal"
)

// Config is the environment-backed configuration for the demo binary.
type Config struct {
	Analysis analysis.Config
	Demo     DemoConfig
}

// DemoConfig sizes the synthetic datasets the demo binary generates.
type DemoConfig struct {
	Genes   int
	Gems    int
	Samples int
	Seed    int64
}

// Load reads configuration from the environment, after loading a .env file
// when one is present, and validates the analysis section.
func Load() (*Config, error) {
	// A missing .env file is fine; explicit env vars win either way
	_ = godotenv.Load()

	method, err := analysis.ParseCorrelationMethod(getEnv("GGCA_CORRELATION_METHOD", string(analysis.Pearson)))
	if err != nil {
		return nil, err
	}
	adjustment, err := analysis.ParseAdjustmentMethod(getEnv("GGCA_ADJUSTMENT_METHOD", string(analysis.BenjaminiHochberg)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Analysis: analysis.Config{
			CorrelationMethod:    method,
			AdjustmentMethod:     adjustment,
			CorrelationThreshold: getEnvFloat("GGCA_CORRELATION_THRESHOLD", 0.7),
			IsAllVsAll:           getEnvBool("GGCA_ALL_VS_ALL", true),
			GemContainsCpG:       getEnvBool("GGCA_GEM_CONTAINS_CPG", false),
			KeepTopN:             getEnvInt("GGCA_KEEP_TOP_N", 0),
			SortBufSize:          getEnvInt("GGCA_SORT_BUF_SIZE", 2_000_000),
			CollectGemDataset:    getEnvBool("GGCA_COLLECT_GEM_DATASET", true),
			Workers:              getEnvInt("GGCA_WORKERS", 0),
		},
		Demo: DemoConfig{
			Genes:   getEnvInt("GGCA_DEMO_GENES", 200),
			Gems:    getEnvInt("GGCA_DEMO_GEMS", 100),
			Samples: getEnvInt("GGCA_DEMO_SAMPLES", 50),
			Seed:    int64(getEnvInt("GGCA_DEMO_SEED", 42)),
		},
	}
	if err := cfg.Analysis.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		internal.DefaultLogger.Warn("ignoring malformed %s=%q, using %d", key, v, fallback)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		internal.DefaultLogger.Warn("ignoring malformed %s=%q, using %g", key, v, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		internal.DefaultLogger.Warn("ignoring malformed %s=%q, using %t", key, v, fallback)
	}
	return fallback
}
