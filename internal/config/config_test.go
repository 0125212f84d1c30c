package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repp/internal/testutil"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Jobs)
	assert.Equal(t, "WARN", cfg.Log.Level)
	assert.Equal(t, 0, cfg.MaxIterations)
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "repp.yaml", `
rules: rules/main.rpp
max_iterations: 1000
match_timeout_ms: 250
normalize: true
jobs: 4
db: runs.db
activate: [german, dates]
log:
  level: DEBUG
  dir: /tmp/repp-logs
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "rules/main.rpp", cfg.Rules)
	assert.Equal(t, 1000, cfg.MaxIterations)
	assert.Equal(t, 250*time.Millisecond, cfg.MatchTimeout())
	assert.True(t, cfg.Normalize)
	assert.Equal(t, 4, cfg.Jobs)
	assert.Equal(t, "runs.db", cfg.DB)
	assert.Equal(t, []string{"german", "dates"}, cfg.Activate)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, "/tmp/repp-logs", cfg.Log.Dir)

	// Unset keys keep defaults.
	assert.Equal(t, "repp.log", cfg.Log.Filename)
	assert.Equal(t, 24, cfg.Log.MaxAgeHours)
}

func TestLoad_YAMLEmptyFile(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "repp.yaml", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLUnknownField(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "repp.yaml", "rulez: x.rpp\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rulez")
}

func TestLoad_YAMLInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"negative iterations", "max_iterations: -1\n", "max_iterations"},
		{"zero jobs", "jobs: 0\n", "jobs"},
		{"bad level", "log:\n  level: LOUD\n", "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, t.TempDir(), "repp.yaml", tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_CUE(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "repp.cue", `
rules:          "main.rpp"
max_iterations: 50
jobs:           2
activate: ["german"]
log: level: "INFO"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "main.rpp", cfg.Rules)
	assert.Equal(t, 50, cfg.MaxIterations)
	assert.Equal(t, 2, cfg.Jobs)
	assert.Equal(t, []string{"german"}, cfg.Activate)
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Equal(t, 1, cfg.Log.RotationHours)
}

func TestLoad_CUESchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", `rulez: "x"`},
		{"wrong type", `jobs: "four"`},
		{"below minimum", `jobs: 0`},
		{"bad level", `log: level: "LOUD"`},
		{"syntax", `rules: "unterminated`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, t.TempDir(), "repp.cue", tt.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/repp.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestEngineOptions(t *testing.T) {
	cfg := Default()
	assert.Len(t, cfg.EngineOptions(), 2)

	cfg.MatchTimeoutMS = 100
	assert.Len(t, cfg.EngineOptions(), 3)
}

func TestLoggingOptions(t *testing.T) {
	cfg := Default()
	cfg.Log.Dir = "logs"

	opts := cfg.LoggingOptions()
	assert.Equal(t, "WARN", opts.Level)
	assert.Equal(t, "logs", opts.Dir)
	assert.Equal(t, 24*time.Hour, opts.MaxAge)
	assert.Equal(t, time.Hour, opts.RotationTime)
}
