package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolwitness/internal/scorer"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestDefaultWeightsMatchScorer(t *testing.T) {
	assert.Equal(t, scorer.DefaultWeights(), DefaultConfig().Scoring.Weights())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero version", func(c *Config) { c.Version = 0 }},
		{"future version", func(c *Config) { c.Version = Version + 1 }},
		{"negative scan depth", func(c *Config) { c.Monitor.MaxScanDepth = -1 }},
		{"baseline above one", func(c *Config) { c.Scoring.Baseline = 1.5 }},
		{"negative penalty", func(c *Config) { c.Scoring.IndicatorPenalty = -0.1 }},
		{"negative realistic time", func(c *Config) { c.Scoring.MinRealisticTimeMs = -5 }},
		{"storage enabled without path", func(c *Config) { c.Storage.Enabled = true; c.Storage.Path = "" }},
		{"signing enabled without key", func(c *Config) { c.Signing.Enabled = true; c.Signing.KeyPath = "" }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"file logging without path", func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveAndLoadTOMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Monitor.StrictMode = true
	cfg.Monitor.FabricationPatterns = []string{"task is done"}
	cfg.Scoring.IndicatorPenalty = 0.2
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.True(t, loaded.Monitor.StrictMode)
	assert.Equal(t, []string{"task is done"}, loaded.Monitor.FabricationPatterns)
	assert.Equal(t, 0.2, loaded.Scoring.IndicatorPenalty)
}

func TestLoadYAMLConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("version: 1\nmonitor:\n  strict_mode: true\n  max_scan_depth: 3\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.True(t, cfg.Monitor.StrictMode)
	assert.Equal(t, 3, cfg.Monitor.MaxScanDepth)
	// Unset sections keep their defaults.
	assert.Equal(t, 0.5, cfg.Scoring.Baseline)
}

func TestMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := NewLoader(filepath.Join(t.TempDir(), "nope.toml")).Load()
	require.NoError(t, err)
	assert.Equal(t, Version, cfg.Version)
	assert.Equal(t, ".", cfg.Monitor.ScanRoot)
}

func TestInvalidFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = \"not a number"), 0644))

	_, err := NewLoader(path).Load()
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TOOLWITNESS_STRICT_MODE", "true")
	t.Setenv("TOOLWITNESS_MAX_SCAN_DEPTH", "4")
	t.Setenv("TOOLWITNESS_STORAGE_PATH", "/tmp/audit.db")
	t.Setenv("TOOLWITNESS_LOG_LEVEL", "debug")

	cfg := LoadFromEnv()
	assert.True(t, cfg.Monitor.StrictMode)
	assert.Equal(t, 4, cfg.Monitor.MaxScanDepth)
	assert.True(t, cfg.Storage.Enabled)
	assert.Equal(t, "/tmp/audit.db", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadOrCreateWritesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, Version, cfg.Version)

	_, created, err = LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestWatchReloadsOnRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, SaveConfig(DefaultConfig(), path))

	l := NewLoader(path)
	_, err := l.Load()
	require.NoError(t, err)
	defer l.Close()

	reloaded := make(chan *Config, 1)
	l.OnChange(func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	require.NoError(t, l.Watch())

	updated := DefaultConfig()
	updated.Monitor.StrictMode = true
	require.NoError(t, SaveConfig(updated, path))

	select {
	case c := <-reloaded:
		assert.True(t, c.Monitor.StrictMode)
		assert.True(t, l.Config().Monitor.StrictMode)
	case <-time.After(2 * time.Second):
		t.Fatal("config reload not observed")
	}
}
