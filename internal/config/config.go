// SPDX-License-Identifier: Apache-2.0

// Package config loads the run manifest and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/secscan/isinscan/internal/evidence"
)

// Environment variables recognized by ApplyEnv.
const (
	EnvSummaryPath     = "ISINSCAN_SUMMARY_PATH"
	EnvReportPath      = "ISINSCAN_REPORT_PATH"
	EnvLogLevel        = "ISINSCAN_LOG_LEVEL"
	EnvLogFormat       = "ISINSCAN_LOG_FORMAT"
	EnvWorkers         = "ISINSCAN_WORKERS"
	EnvRequireChecksum = "ISINSCAN_REQUIRE_CHECKSUM"
)

// DefaultSummaryPath is where the summary goes when nothing else is configured.
const DefaultSummaryPath = "final_summary.json"

// Config is one aggregation run.
type Config struct {
	Output     OutputConfig      `yaml:"output"`
	Validation ValidationConfig  `yaml:"validation"`
	Workers    int               `yaml:"workers"`
	Log        LogConfig         `yaml:"log"`
	Sources    []evidence.Source `yaml:"sources"`
}

// OutputConfig names the files a run writes.
type OutputConfig struct {
	Summary string `yaml:"summary"`
	// Report is optional; no advisory report is written when empty.
	Report string `yaml:"report"`
}

// ValidationConfig controls identifier strictness.
type ValidationConfig struct {
	RequireChecksum bool `yaml:"require_checksum"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration with no sources.
func DefaultConfig() *Config {
	return &Config{
		Output:  OutputConfig{Summary: DefaultSummaryPath},
		Workers: 1,
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads .env files, the optional manifest at path and environment
// overrides, in that order. It does not validate; callers apply flag
// overrides first and then call Validate.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the ISINSCAN_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvSummaryPath); ok && v != "" {
		c.Output.Summary = v
	}
	if v, ok := lookup(EnvReportPath); ok {
		c.Output.Report = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.Log.Format = v
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}
	if v, ok := lookup(EnvRequireChecksum); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRequireChecksum, err)
		}
		c.Validation.RequireChecksum = b
	}
	return nil
}

// Validate checks that the configuration describes a runnable job.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Output.Summary) == "" {
		errs = append(errs, errors.New("output.summary is required"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}

	seen := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		if src.ID == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: id is required", i))
		} else if _, dup := seen[src.ID]; dup {
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate id %q", i, src.ID))
		}
		seen[src.ID] = struct{}{}
		if src.Path == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: path is required", i))
		}
		switch strings.ToLower(src.Format) {
		case "", "json", "yaml", "yml":
		default:
			errs = append(errs, fmt.Errorf("sources[%d]: unsupported format %q", i, src.Format))
		}
	}
	return errors.Join(errs...)
}

// ParseSource parses a command-line source of the form id=path[@format].
func ParseSource(s string) (evidence.Source, error) {
	id, rest, ok := strings.Cut(s, "=")
	if !ok || id == "" || rest == "" {
		return evidence.Source{}, fmt.Errorf("invalid source %q: want id=path[@format]", s)
	}
	src := evidence.Source{ID: id, Path: rest}
	if i := strings.LastIndex(rest, "@"); i > 0 {
		switch format := strings.ToLower(rest[i+1:]); format {
		case "json", "yaml", "yml":
			src.Path, src.Format = rest[:i], format
		}
	}
	return src, nil
}
