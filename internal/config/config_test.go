package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kernprof.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "Total time: ", cfg.Delimiter)
	assert.Equal(t, "Pystone time: ", cfg.Marker)
	assert.Equal(t, 20, cfg.MaxLines)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
enabled: false
max_lines: 5
output_dir: reports
chart: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 5, cfg.MaxLines)
	assert.Equal(t, "reports", cfg.OutputDir)
	assert.True(t, cfg.Chart)
	assert.Equal(t, "Total time: ", cfg.Delimiter)

	k := cfg.Kernprof()
	assert.Equal(t, 5, k.MaxLines)
	assert.Equal(t, "s", k.TimeUnit)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "max_lines: [1, 2"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "max_lines: 0"))
	assert.ErrorContains(t, err, "max_lines")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"EmptyDelimiter", func(c *Config) { c.Delimiter = "" }},
		{"EmptyMarker", func(c *Config) { c.Marker = "" }},
		{"SameLiterals", func(c *Config) { c.Marker = c.Delimiter }},
		{"NegativeLines", func(c *Config) { c.MaxLines = -1 }},
		{"EmptyName", func(c *Config) { c.OutputName = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestToYAMLRoundTrip(t *testing.T) {
	data, err := Default().ToYAML()
	require.NoError(t, err)

	cfg, err := Load(writeConfig(t, string(data)))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
