// Package config loads repp settings from YAML or CUE files.
//
// Command-line flags override file values; see the cli package.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/repp/internal/engine"
	"github.com/roach88/repp/internal/logging"
)

//go:embed schema.cue
var schemaCUE string

// Config holds repp settings.
type Config struct {
	Rules          string   `yaml:"rules" json:"rules"`
	MaxIterations  int      `yaml:"max_iterations" json:"max_iterations"`
	MatchTimeoutMS int      `yaml:"match_timeout_ms" json:"match_timeout_ms"`
	Normalize      bool     `yaml:"normalize" json:"normalize"`
	Jobs           int      `yaml:"jobs" json:"jobs"`
	DB             string   `yaml:"db" json:"db"`
	Activate       []string `yaml:"activate" json:"activate"`

	Log LogConfig `yaml:"log" json:"log"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level         string `yaml:"level" json:"level"`
	Dir           string `yaml:"dir" json:"dir"`
	Filename      string `yaml:"filename" json:"filename"`
	MaxAgeHours   int    `yaml:"max_age_hours" json:"max_age_hours"`
	RotationHours int    `yaml:"rotation_hours" json:"rotation_hours"`
}

var validLevels = map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true}

// Default returns the settings used when no config file is given.
func Default() *Config {
	return &Config{
		Jobs: 1,
		Log: LogConfig{
			Level:         "WARN",
			Filename:      logging.DefaultFilename,
			MaxAgeHours:   24,
			RotationHours: 1,
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must not be negative")
	}
	if c.MatchTimeoutMS < 0 {
		return fmt.Errorf("match_timeout_ms must not be negative")
	}
	if c.Jobs <= 0 {
		return fmt.Errorf("jobs must be positive")
	}
	if !validLevels[strings.ToUpper(c.Log.Level)] {
		return fmt.Errorf("log level %q must be one of DEBUG, INFO, WARN, ERROR", c.Log.Level)
	}
	if c.Log.MaxAgeHours < 0 || c.Log.RotationHours < 0 {
		return fmt.Errorf("log rotation settings must not be negative")
	}
	return nil
}

// Load reads a config file. Files ending in .cue are checked against the
// embedded #Config schema; anything else is parsed as YAML with unknown
// keys rejected. Values not set in the file keep their defaults.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(filename), ".cue") {
		err = decodeCUE(filename, data, cfg)
	} else {
		err = decodeYAML(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// decodeCUE unifies the file with #Config and copies the concrete result
// onto cfg through JSON, so absent fields keep their defaults.
func decodeCUE(filename string, data []byte, cfg *Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return err
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return err
	}

	raw, err := unified.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, cfg)
}

// MatchTimeout returns the per-match regex timeout (0 means the library
// default).
func (c *Config) MatchTimeout() time.Duration {
	return time.Duration(c.MatchTimeoutMS) * time.Millisecond
}

// EngineOptions translates the settings into engine options.
func (c *Config) EngineOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithMaxIterations(c.MaxIterations),
		engine.WithNormalize(c.Normalize),
	}
	if c.MatchTimeoutMS > 0 {
		opts = append(opts, engine.WithMatchTimeout(c.MatchTimeout()))
	}
	return opts
}

// LoggingOptions translates the log section into logging options.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:        c.Log.Level,
		Dir:          c.Log.Dir,
		Filename:     c.Log.Filename,
		MaxAge:       time.Duration(c.Log.MaxAgeHours) * time.Hour,
		RotationTime: time.Duration(c.Log.RotationHours) * time.Hour,
	}
}
