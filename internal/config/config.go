// Package config provides unified configuration loading for causaloop.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/causaloop/causaloop/internal/analysis"
	"github.com/causaloop/causaloop/internal/loops"
)

// Config contains all causaloop configuration settings.
type Config struct {
	// Detector contains bounds for loop discovery.
	Detector DetectorConfig `json:"detector" yaml:"detector"`

	// Stability contains the default stability-analysis parameters; a run
	// request may override them per run.
	Stability StabilityConfig `json:"stability" yaml:"stability"`

	// Store contains settings for the run archive.
	Store StoreConfig `json:"store" yaml:"store"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// DetectorConfig bounds loop discovery.
type DetectorConfig struct {
	// MaxLoops is the safety bound on discovered loops; discovery past it
	// returns a partial, truncated result.
	MaxLoops int `json:"max_loops" yaml:"max_loops"`

	// MaxLength caps loop length in edges. 0 means unrestricted.
	MaxLength int `json:"max_length,omitempty" yaml:"max_length,omitempty"`
}

// StabilityConfig holds the default convergence tolerance.
type StabilityConfig struct {
	// Epsilon is the relative tolerance within which node values must stay
	// to count as settled.
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`

	// Window is the trailing number of ticks the tolerance is checked over.
	Window int `json:"window" yaml:"window"`
}

// StoreConfig configures the run archive.
type StoreConfig struct {
	// Dir is the directory holding the runs database. Defaults to
	// ~/.causaloop.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// LoggingConfig configures causaloop's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "trace" additionally writes per-tick engine state to trace.jsonl.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Detector: DetectorConfig{
			MaxLoops: loops.DefaultMaxLoops,
		},
		Stability: StabilityConfig{
			Epsilon: analysis.DefaultEpsilon,
			Window:  analysis.DefaultWindow,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.causaloop/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".causaloop", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// StoreDir returns the configured store directory, falling back to
// ~/.causaloop.
func (c *Config) StoreDir() (string, error) {
	if c.Store.Dir != "" {
		return c.Store.Dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving store dir: %w", err)
	}
	return filepath.Join(homeDir, ".causaloop"), nil
}

// DetectorOptions returns the configured loop-discovery bounds.
func (c *Config) DetectorOptions() loops.Options {
	return loops.Options{MaxLength: c.Detector.MaxLength, MaxLoops: c.Detector.MaxLoops}
}

// AnalysisOptions returns the configured default stability parameters.
func (c *Config) AnalysisOptions() analysis.Options {
	return analysis.Options{Epsilon: c.Stability.Epsilon, Window: c.Stability.Window}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Detector.MaxLoops < 0 {
		return fmt.Errorf("max_loops must be non-negative, got %d", c.Detector.MaxLoops)
	}
	if c.Detector.MaxLength < 0 {
		return fmt.Errorf("max_length must be non-negative, got %d", c.Detector.MaxLength)
	}

	if c.Stability.Epsilon < 0 {
		return fmt.Errorf("epsilon must be non-negative, got %f", c.Stability.Epsilon)
	}
	if c.Stability.Window < 0 {
		return fmt.Errorf("window must be non-negative, got %d", c.Stability.Window)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("CAUSALOOP_MAX_LOOPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Detector.MaxLoops = n
		}
	}
	if v := os.Getenv("CAUSALOOP_MAX_LOOP_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Detector.MaxLength = n
		}
	}

	if v := os.Getenv("CAUSALOOP_EPSILON"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Stability.Epsilon = f
		}
	}
	if v := os.Getenv("CAUSALOOP_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Stability.Window = n
		}
	}

	if v := os.Getenv("CAUSALOOP_STORE_DIR"); v != "" {
		config.Store.Dir = v
	}

	if v := os.Getenv("CAUSALOOP_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}
