// Package config loads the YAML settings shared by the server and CLI.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"kernprof-mcp/internal/kernprof"
)

// Config is the on-disk configuration file format.
type Config struct {
	Enabled         bool   `yaml:"enabled"`
	Delimiter       string `yaml:"delimiter"`
	Marker          string `yaml:"marker"`
	TimeUnit        string `yaml:"time_unit"`
	MaxLines        int    `yaml:"max_lines"`
	OutputDir       string `yaml:"output_dir"`
	OutputName      string `yaml:"output_name"`
	TimestampFormat string `yaml:"timestamp_format"`
	Chart           bool   `yaml:"chart"`
	Pprof           bool   `yaml:"pprof"`
	LogLevel        string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	k := kernprof.DefaultConfig()
	return Config{
		Enabled:         true,
		Delimiter:       k.Delimiter,
		Marker:          k.Marker,
		TimeUnit:        k.TimeUnit,
		MaxLines:        k.MaxLines,
		OutputDir:       ".",
		OutputName:      "profile_output",
		TimestampFormat: "2006-01-02T150405",
		LogLevel:        "info",
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields the transform depends on.
func (c Config) Validate() error {
	switch {
	case c.Delimiter == "":
		return errors.New("delimiter must not be empty")
	case c.Marker == "":
		return errors.New("marker must not be empty")
	case c.Delimiter == c.Marker:
		return errors.New("delimiter and marker must differ")
	case c.MaxLines <= 0:
		return fmt.Errorf("max_lines must be positive, got %d", c.MaxLines)
	case c.OutputName == "":
		return errors.New("output_name must not be empty")
	}
	return nil
}

// Kernprof returns the parser settings.
func (c Config) Kernprof() kernprof.Config {
	return kernprof.Config{
		Delimiter: c.Delimiter,
		Marker:    c.Marker,
		TimeUnit:  c.TimeUnit,
		MaxLines:  c.MaxLines,
	}
}

// ToYAML serializes the configuration, e.g. for `kernprof config`.
func (c Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}
