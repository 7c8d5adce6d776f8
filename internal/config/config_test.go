package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bimbridge/internal/engine"
	"github.com/roach88/bimbridge/internal/ir"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Journal)
	assert.Equal(t, 10000, cfg.Timeouts.DefaultMS)
	assert.Equal(t, 15000, cfg.Timeouts.ByKind["CreateRoom"])
	assert.Equal(t, engine.DefaultSuppressPatterns, cfg.SuppressPatterns)
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "bimbridge.yaml", `
logLevel: debug
journal: /tmp/journal.db
timeouts:
  defaultMs: 2000
  byKind:
    TagRooms: 30000
suppressPatterns: [duplicate]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal)
	assert.Equal(t, 2000, cfg.Timeouts.DefaultMS)
	assert.Equal(t, 30000, cfg.Timeouts.ByKind["TagRooms"])
	assert.Equal(t, 15000, cfg.Timeouts.ByKind["CreateLevel"], "unset kinds keep their default")
	assert.Equal(t, []string{"duplicate"}, cfg.SuppressPatterns)
}

func TestLoad_CUE(t *testing.T) {
	path := writeFile(t, "bimbridge.cue", `
logLevel:    "warn"
metricsAddr: ":9090"
timeouts: byKind: Delete: 500
timeouts: byKind: FilterElements: 2500
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, 500, cfg.Timeouts.ByKind["Delete"])
	assert.Equal(t, 2500, cfg.Timeouts.ByKind["FilterElements"])
	assert.Equal(t, 10000, cfg.Timeouts.DefaultMS)
}

func TestLoad_EmptyYAML(t *testing.T) {
	path := writeFile(t, "empty.yml", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_SchemaRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown level", "logLevel: verbose\n"},
		{"unknown field", "colour: red\n"},
		{"unknown kind", "timeouts:\n  byKind:\n    Explode: 100\n"},
		{"zero timeout", "timeouts:\n  defaultMs: 0\n"},
		{"negative timeout", "timeouts:\n  byKind:\n    Move: -5\n"},
		{"empty pattern", "suppressPatterns: ['']\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.yaml", tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "config.toml", "a = 1"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(writeFile(t, "broken.yaml", "logLevel: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing yaml config")

	_, err = Load(writeFile(t, "broken.cue", "logLevel: "))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compiling cue config")
}

func TestEngineTimeouts(t *testing.T) {
	cfg := Default()
	cfg.Timeouts.DefaultMS = 250
	cfg.Timeouts.ByKind["Rotate"] = 40

	tt := cfg.EngineTimeouts()

	assert.Equal(t, 250*time.Millisecond, tt.For(ir.ActionDelete))
	assert.Equal(t, 40*time.Millisecond, tt.For(ir.ActionRotate))
	assert.Equal(t, 15*time.Second, tt.For(ir.ActionCreateLevel))
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	l, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)

	cfg.LogLevel = "loud"
	_, err = cfg.SlogLevel()
	assert.Error(t, err)
}

func TestYAML_RoundTrips(t *testing.T) {
	cfg := Default()
	cfg.Journal = "journal.db"

	out, err := cfg.YAML()
	require.NoError(t, err)

	back, err := ParseYAML(out)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
