// Package config loads bimbridge settings from YAML or CUE files.
//
// Both formats are checked against the embedded CUE schema (#Config)
// before decoding. Fields a file leaves out keep the values of Default.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bimbridge/internal/engine"
	"github.com/roach88/bimbridge/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// Config is the effective bridge configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel" yaml:"logLevel"`
	// Journal is the sqlite journal path. Empty disables journaling.
	Journal string `json:"journal" yaml:"journal"`
	// MetricsAddr is the listen address for /metrics. Empty disables it.
	MetricsAddr      string   `json:"metricsAddr" yaml:"metricsAddr"`
	Timeouts         Timeouts `json:"timeouts" yaml:"timeouts"`
	SuppressPatterns []string `json:"suppressPatterns" yaml:"suppressPatterns"`
}

// Timeouts is the bridge wait table in milliseconds.
type Timeouts struct {
	DefaultMS int            `json:"defaultMs" yaml:"defaultMs"`
	ByKind    map[string]int `json:"byKind" yaml:"byKind"`
}

// ErrUnsupportedFormat is returned for config files that are neither YAML
// nor CUE.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Default returns the built-in configuration.
func Default() Config {
	t := engine.DefaultTimeouts()
	byKind := make(map[string]int, len(t.ByKind))
	for k, d := range t.ByKind {
		byKind[string(k)] = int(d.Milliseconds())
	}
	return Config{
		LogLevel:         "info",
		Timeouts:         Timeouts{DefaultMS: int(t.Default.Milliseconds()), ByKind: byKind},
		SuppressPatterns: slices.Clone(engine.DefaultSuppressPatterns),
	}
}

// Load reads path and returns the effective configuration. An empty path
// returns Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(data, path)
	default:
		return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ParseYAML parses a YAML document and validates it against the schema.
func ParseYAML(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parsing yaml config: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	ctx := cuecontext.New()
	return decode(ctx, ctx.Encode(raw))
}

// ParseCUE compiles a CUE document and validates it against the schema.
// The document's top-level fields are the config fields.
func ParseCUE(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Config{}, fmt.Errorf("compiling cue config: %w", err)
	}
	return decode(ctx, v)
}

func decode(ctx *cue.Context, file cue.Value) (Config, error) {
	if err := file.Err(); err != nil {
		return Config{}, fmt.Errorf("encoding config: %w", err)
	}
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compiling config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	var overlay Config
	if err := v.Decode(&overlay); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg := Default()
	cfg.merge(overlay)
	return cfg, nil
}

// merge copies the fields set in o over c. Per-kind timeouts are merged
// key by key.
func (c *Config) merge(o Config) {
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.Journal != "" {
		c.Journal = o.Journal
	}
	if o.MetricsAddr != "" {
		c.MetricsAddr = o.MetricsAddr
	}
	if o.Timeouts.DefaultMS > 0 {
		c.Timeouts.DefaultMS = o.Timeouts.DefaultMS
	}
	if c.Timeouts.ByKind == nil {
		c.Timeouts.ByKind = make(map[string]int)
	}
	maps.Copy(c.Timeouts.ByKind, o.Timeouts.ByKind)
	if o.SuppressPatterns != nil {
		c.SuppressPatterns = o.SuppressPatterns
	}
}

// EngineTimeouts converts the millisecond table for the bridge.
func (c Config) EngineTimeouts() engine.Timeouts {
	t := engine.Timeouts{
		Default: time.Duration(c.Timeouts.DefaultMS) * time.Millisecond,
		ByKind:  make(map[ir.ActionKind]time.Duration, len(c.Timeouts.ByKind)),
	}
	for k, ms := range c.Timeouts.ByKind {
		t.ByKind[ir.ActionKind(k)] = time.Duration(ms) * time.Millisecond
	}
	return t
}

// SlogLevel returns LogLevel as a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// YAML renders the configuration as YAML.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
