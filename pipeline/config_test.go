package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1, cfg.MinDF)
	assert.Equal(t, 5, cfg.Folds)
	assert.Equal(t, int64(1), cfg.Seed)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 0.2, cfg.TestFraction)
	assert.Equal(t, 200, cfg.MaxIter)
	assert.Equal(t, 1e-5, cfg.Tol)
	assert.Equal(t, 100, cfg.NLambda)
	assert.Equal(t, SelectLambda1SE, cfg.LambdaSelection)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"min_df zero", func(c *Config) { c.MinDF = 0 }},
		{"one fold", func(c *Config) { c.Folds = 1 }},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"test fraction zero", func(c *Config) { c.TestFraction = 0 }},
		{"test fraction one", func(c *Config) { c.TestFraction = 1 }},
		{"zero max_iter", func(c *Config) { c.MaxIter = 0 }},
		{"negative tol", func(c *Config) { c.Tol = -1 }},
		{"one lambda", func(c *Config) { c.NLambda = 1 }},
		{"unknown selection", func(c *Config) { c.LambdaSelection = "best" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte("min_df: 2\nfolds: 3\nbatch_size: 5\nlambda_selection: min\n")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// Listed fields override, everything else keeps its default.
	assert.Equal(t, 2, cfg.MinDF)
	assert.Equal(t, 3, cfg.Folds)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, SelectLambdaMin, cfg.LambdaSelection)
	assert.Equal(t, 0.2, cfg.TestFraction)
	assert.Equal(t, 100, cfg.NLambda)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("folds: [not a number\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("folds: 1\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
