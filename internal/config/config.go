// Package config loads the server's tunable knobs: evaluator thresholds,
// wait-k bounds, and listen ports. Defaults are seeded first, an optional
// config file is merged over them, and env-var overrides go on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/linlinlin-zhang/stream2graph/internal/evaluate"
	"github.com/linlinlin-zhang/stream2graph/internal/tracing"
	"github.com/linlinlin-zhang/stream2graph/internal/waitk"
)

// WaitKConfig is the mapstructure-shaped counterpart of waitk.Bounds.
type WaitKConfig struct {
	Min  int `mapstructure:"min"`
	Base int `mapstructure:"base"`
	Max  int `mapstructure:"max"`
}

// ServerConfig carries the HTTP and metrics listen addresses.
type ServerConfig struct {
	Port        int `mapstructure:"port"`
	MetricsPort int `mapstructure:"metrics_port"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Features is the full config-file schema, unmarshaled by viper.
type Features struct {
	Server     ServerConfig        `mapstructure:"server"`
	Logging    LoggingConfig       `mapstructure:"logging"`
	Tracing    tracing.Config      `mapstructure:"tracing"`
	WaitK      WaitKConfig         `mapstructure:"wait_k"`
	Thresholds evaluate.Thresholds `mapstructure:"thresholds"`
}

// defaultFeatures seeds every field so Load never returns zero values for a
// knob the config file omits.
func defaultFeatures() Features {
	return Features{
		Server:     ServerConfig{Port: 8080, MetricsPort: 9090},
		Logging:    LoggingConfig{Level: "info", Format: "console"},
		Tracing:    tracing.Config{Enabled: false, ServiceName: "stream2graph"},
		WaitK:      WaitKConfig{Min: 1, Base: 2, Max: 4},
		Thresholds: evaluate.DefaultThresholds(),
	}
}

// Load reads features.yaml from CONFIG_PATH, or a default path, merging it
// over built-in defaults. A missing config file is not an error: Load
// returns the defaults unchanged.
func Load() (*Features, error) {
	f := defaultFeatures()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		if _, err := os.Stat("/app/config/features.yaml"); err == nil {
			cfgPath = "/app/config/features.yaml"
		} else {
			cfgPath = "config/features.yaml"
		}
	}
	if info, err := os.Stat(cfgPath); err == nil && info.IsDir() {
		cfgPath = filepath.Join(cfgPath, "features.yaml")
	}

	if _, err := os.Stat(cfgPath); err == nil {
		v := viper.New()
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
		if err := v.Unmarshal(&f); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	applyEnvOverrides(&f)
	return &f, nil
}

// applyEnvOverrides layers environment variables over the loaded config.
func applyEnvOverrides(f *Features) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			f.Server.Port = n
		}
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			f.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		f.Logging.Level = strings.TrimSpace(v)
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			f.Tracing.Enabled = b
		}
	}
	if v := os.Getenv("TRACING_OTLP_ENDPOINT"); v != "" {
		f.Tracing.OTLPEndpoint = strings.TrimSpace(v)
	}
	if v := os.Getenv("WAIT_K_MIN"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			f.WaitK.Min = n
		}
	}
	if v := os.Getenv("WAIT_K_BASE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			f.WaitK.Base = n
		}
	}
	if v := os.Getenv("WAIT_K_MAX"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			f.WaitK.Max = n
		}
	}
	if v := os.Getenv("LATENCY_P95_THRESHOLD_MS"); v != "" {
		var x float64
		if _, err := fmt.Sscanf(v, "%f", &x); err == nil {
			f.Thresholds.LatencyP95ThresholdMs = x
		}
	}
	if v := os.Getenv("FLICKER_MEAN_THRESHOLD"); v != "" {
		var x float64
		if _, err := fmt.Sscanf(v, "%f", &x); err == nil {
			f.Thresholds.FlickerMeanThreshold = x
		}
	}
	if v := os.Getenv("MENTAL_MAP_MIN"); v != "" {
		var x float64
		if _, err := fmt.Sscanf(v, "%f", &x); err == nil {
			f.Thresholds.MentalMapMin = x
		}
	}
	if v := os.Getenv("INTENT_ACC_THRESHOLD"); v != "" {
		var x float64
		if _, err := fmt.Sscanf(v, "%f", &x); err == nil {
			f.Thresholds.IntentAccThreshold = x
		}
	}
}

// Bounds converts the config's wait-k knobs to a waitk.Bounds value.
func (f *Features) Bounds() waitk.Bounds {
	return waitk.Bounds{Min: f.WaitK.Min, Base: f.WaitK.Base, Max: f.WaitK.Max}
}
