// Package config handles configuration loading and validation for toolwitness.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"toolwitness/internal/scorer"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete toolwitness configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Monitor configuration for evidence collection.
	Monitor MonitorConfig `toml:"monitor" json:"monitor" yaml:"monitor"`

	// Scoring coefficients for the authenticity verdict.
	Scoring ScoringConfig `toml:"scoring" json:"scoring" yaml:"scoring"`

	// Storage configuration for the certificate audit store.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Signing configuration for certificate signatures.
	Signing SigningConfig `toml:"signing" json:"signing" yaml:"signing"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// MonitorConfig holds evidence-collection configuration.
type MonitorConfig struct {
	// StrictMode blocks fabricated results instead of certifying them
	// advisorily.
	StrictMode bool `toml:"strict_mode" json:"strict_mode" yaml:"strict_mode"`

	// ScanRoot is the directory observed for filesystem evidence.
	ScanRoot string `toml:"scan_root" json:"scan_root" yaml:"scan_root"`

	// MaxScanDepth bounds the filesystem snapshot traversal.
	MaxScanDepth int `toml:"max_scan_depth" json:"max_scan_depth" yaml:"max_scan_depth"`

	// FabricationPatterns are extra phrases merged into the default
	// pattern set.
	FabricationPatterns []string `toml:"fabrication_patterns" json:"fabrication_patterns" yaml:"fabrication_patterns"`
}

// ScoringConfig holds the verdict coefficients. All values are required
// to be in [0, 1]; MinRealisticTimeMs is in milliseconds.
type ScoringConfig struct {
	Baseline            float64 `toml:"baseline" json:"baseline" yaml:"baseline"`
	SubprocessBonus     float64 `toml:"subprocess_bonus" json:"subprocess_bonus" yaml:"subprocess_bonus"`
	FilesystemBonus     float64 `toml:"filesystem_bonus" json:"filesystem_bonus" yaml:"filesystem_bonus"`
	IndicatorPenalty    float64 `toml:"indicator_penalty" json:"indicator_penalty" yaml:"indicator_penalty"`
	MaxIndicatorPenalty float64 `toml:"max_indicator_penalty" json:"max_indicator_penalty" yaml:"max_indicator_penalty"`
	TimingBonusMax      float64 `toml:"timing_bonus_max" json:"timing_bonus_max" yaml:"timing_bonus_max"`
	MinRealisticTimeMs  int     `toml:"min_realistic_time_ms" json:"min_realistic_time_ms" yaml:"min_realistic_time_ms"`
}

// StorageConfig holds certificate persistence configuration.
type StorageConfig struct {
	// Enabled turns the SQLite audit store on.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the path to the SQLite database file.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// SigningConfig holds certificate signing configuration.
type SigningConfig struct {
	// Enabled turns certificate signing on.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// KeyPath is the path to the Ed25519 private key.
	KeyPath string `toml:"key_path" json:"key_path" yaml:"key_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the output format: text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is where logs go: stdout, stderr, or file.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file path when Output is "file".
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Monitor: MonitorConfig{
			ScanRoot:     ".",
			MaxScanDepth: 2,
		},
		Scoring: ScoringConfig{
			Baseline:            0.5,
			SubprocessBonus:     0.25,
			FilesystemBonus:     0.25,
			IndicatorPenalty:    0.15,
			MaxIndicatorPenalty: 0.6,
			TimingBonusMax:      0.1,
			MinRealisticTimeMs:  5,
		},
		Storage: StorageConfig{
			Path: filepath.Join(dataDir(), "certificates.db"),
		},
		Signing: SigningConfig{
			KeyPath: filepath.Join(dataDir(), "signing.key"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// dataDir returns the default data directory.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".toolwitness"
	}
	return filepath.Join(home, ".toolwitness")
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(dataDir(), "config.toml")
}

// Weights converts the scoring section into scorer coefficients.
func (c *ScoringConfig) Weights() scorer.Weights {
	return scorer.Weights{
		Baseline:            c.Baseline,
		SubprocessBonus:     c.SubprocessBonus,
		FilesystemBonus:     c.FilesystemBonus,
		IndicatorPenalty:    c.IndicatorPenalty,
		MaxIndicatorPenalty: c.MaxIndicatorPenalty,
		TimingBonusMax:      c.TimingBonusMax,
		MinRealisticTime:    time.Duration(c.MinRealisticTimeMs) * time.Millisecond,
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Version <= 0 || c.Version > Version {
		return fmt.Errorf("unsupported config version %d", c.Version)
	}
	if c.Monitor.MaxScanDepth < 0 {
		return fmt.Errorf("monitor.max_scan_depth must not be negative, got %d", c.Monitor.MaxScanDepth)
	}

	for name, v := range map[string]float64{
		"scoring.baseline":              c.Scoring.Baseline,
		"scoring.subprocess_bonus":      c.Scoring.SubprocessBonus,
		"scoring.filesystem_bonus":      c.Scoring.FilesystemBonus,
		"scoring.indicator_penalty":     c.Scoring.IndicatorPenalty,
		"scoring.max_indicator_penalty": c.Scoring.MaxIndicatorPenalty,
		"scoring.timing_bonus_max":      c.Scoring.TimingBonusMax,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %g", name, v)
		}
	}
	if c.Scoring.MinRealisticTimeMs < 0 {
		return fmt.Errorf("scoring.min_realistic_time_ms must not be negative, got %d", c.Scoring.MinRealisticTimeMs)
	}

	if c.Storage.Enabled && c.Storage.Path == "" {
		return fmt.Errorf("storage.path required when storage is enabled")
	}
	if c.Signing.Enabled && c.Signing.KeyPath == "" {
		return fmt.Errorf("signing.key_path required when signing is enabled")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	if strings.ToLower(c.Logging.Output) == "file" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging.file_path required for file output")
	}

	return nil
}

// ApplyEnvOverrides overrides configuration values from TOOLWITNESS_*
// environment variables. Used for containerized deployments where editing
// a config file is inconvenient.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TOOLWITNESS_STRICT_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Monitor.StrictMode = b
		}
	}
	if v := os.Getenv("TOOLWITNESS_SCAN_ROOT"); v != "" {
		c.Monitor.ScanRoot = v
	}
	if v := os.Getenv("TOOLWITNESS_MAX_SCAN_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Monitor.MaxScanDepth = n
		}
	}
	if v := os.Getenv("TOOLWITNESS_STORAGE_PATH"); v != "" {
		c.Storage.Enabled = true
		c.Storage.Path = v
	}
	if v := os.Getenv("TOOLWITNESS_SIGNING_KEY"); v != "" {
		c.Signing.Enabled = true
		c.Signing.KeyPath = v
	}
	if v := os.Getenv("TOOLWITNESS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TOOLWITNESS_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// SaveConfig writes the configuration to a TOML file.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
