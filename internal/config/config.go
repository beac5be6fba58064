// Package config loads the xmlvalidate configuration from a YAML file and
// XMLVALIDATE_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Config is the command line configuration. Flags given on the command
// line override it.
type Config struct {
	Schema      string       `yaml:"schema"`
	FullScan    bool         `yaml:"full_scan"`
	ReadAhead   int          `yaml:"read_ahead"`
	MaxErrors   int          `yaml:"max_errors"`
	CacheSize   int          `yaml:"cache_size"`
	MetricsFile string       `yaml:"metrics_file"`
	Log         LogConfig    `yaml:"log"`
	Output      OutputConfig `yaml:"output"`
}

// LogConfig selects the log level (debug, info, warn, error) and the
// console or json format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// OutputConfig selects the report format and when pretty output is colored.
type OutputConfig struct {
	Format string `yaml:"format"`
	Color  string `yaml:"color"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ReadAhead: 4096,
		CacheSize: 32,
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Output: OutputConfig{
			Format: "text",
			Color:  "auto",
		},
	}
}

// Load returns the defaults, overlaid with the file at path when path is
// not empty, overlaid with the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.UnmarshalWithOptions(data, cfg, yaml.DisallowUnknownField()); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Schema = envOrDefault("XMLVALIDATE_SCHEMA", c.Schema)
	c.MetricsFile = envOrDefault("XMLVALIDATE_METRICS_FILE", c.MetricsFile)
	c.Log.Level = envOrDefault("XMLVALIDATE_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOrDefault("XMLVALIDATE_LOG_FORMAT", c.Log.Format)
	c.Output.Format = envOrDefault("XMLVALIDATE_OUTPUT_FORMAT", c.Output.Format)
	c.Output.Color = envOrDefault("XMLVALIDATE_COLOR", c.Output.Color)

	var err error
	if c.FullScan, err = envBool("XMLVALIDATE_FULL_SCAN", c.FullScan); err != nil {
		return err
	}
	if c.ReadAhead, err = envInt("XMLVALIDATE_READ_AHEAD", c.ReadAhead); err != nil {
		return err
	}
	if c.MaxErrors, err = envInt("XMLVALIDATE_MAX_ERRORS", c.MaxErrors); err != nil {
		return err
	}
	if c.CacheSize, err = envInt("XMLVALIDATE_CACHE_SIZE", c.CacheSize); err != nil {
		return err
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.ReadAhead < 0 {
		return fmt.Errorf("read_ahead must not be negative, got %d", c.ReadAhead)
	}
	if c.MaxErrors < 0 {
		return fmt.Errorf("max_errors must not be negative, got %d", c.MaxErrors)
	}
	switch c.Output.Format {
	case "text", "pretty", "json", "yaml":
	default:
		return fmt.Errorf("output.format must be text, pretty, json or yaml, got %q", c.Output.Format)
	}
	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("output.color must be auto, always or never, got %q", c.Output.Color)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
