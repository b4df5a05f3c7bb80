// Package config provides configuration types, defaults, and persistence for difflens.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/difflens/internal/log"
	"github.com/zjrosen/difflens/internal/richtext"
	"github.com/zjrosen/difflens/internal/tracing"
)

// Config holds all difflens configuration.
type Config struct {
	Pool      PoolConfig      `mapstructure:"pool"`
	ScrollMap ScrollMapConfig `mapstructure:"scrollmap"`
	Tracing   tracing.Config  `mapstructure:"tracing"`
	Log       LogConfig       `mapstructure:"log"`
	Flags     map[string]bool `mapstructure:"flags"`
}

// PoolConfig configures the worker pool that hosts diff-engine functions.
type PoolConfig struct {
	// MaxWorkers bounds live workers. Zero means one per CPU.
	MaxWorkers    int           `mapstructure:"max_workers" yaml:"max_workers"`
	AutoTerminate time.Duration `mapstructure:"auto_terminate" yaml:"auto_terminate"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// MaxQueue bounds queued invocations. Zero means unbounded.
	MaxQueue int `mapstructure:"max_queue" yaml:"max_queue"`
}

// ScrollMapConfig configures scroll map construction and memoization.
type ScrollMapConfig struct {
	// PageSpacing is the vertical gap between stacked pages, in page units.
	PageSpacing     float64         `mapstructure:"page_spacing" yaml:"page_spacing"`
	DebugAssertions bool            `mapstructure:"debug_assertions" yaml:"debug_assertions"`
	Cache           CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Highlight       HighlightConfig `mapstructure:"highlight" yaml:"highlight"`
}

// CacheConfig controls the scroll map memo.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// HighlightConfig selects which style attributes count as a change when
// listing changes. Style attributes only apply when the style-diff flag is on.
type HighlightConfig struct {
	FontFamily bool `mapstructure:"font_family" yaml:"font_family"`
	FontSize   bool `mapstructure:"font_size" yaml:"font_size"`
	Color      bool `mapstructure:"color" yaml:"color"`
}

// NotSameOptions converts the highlight settings into grouping options.
// Content changes always count.
func (h HighlightConfig) NotSameOptions(styleDiff bool) richtext.NotSameOptions {
	opts := richtext.NotSameOptions{Content: true}
	if styleDiff {
		opts.FontFamily = h.FontFamily
		opts.FontSize = h.FontSize
		opts.Color = h.Color
	}
	return opts
}

// LogConfig configures the debug log.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// DefaultTracesFilePath returns the default trace file location under the
// user config directory, or an empty string if the home directory is unknown.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "difflens", "traces", "traces.jsonl")
}

// Defaults returns the default configuration.
func Defaults() Config {
	tr := tracing.DefaultConfig()
	tr.FilePath = DefaultTracesFilePath()

	return Config{
		Pool: PoolConfig{
			MaxWorkers:    0,
			AutoTerminate: 60 * time.Second,
			SweepInterval: 10 * time.Second,
			Timeout:       10 * time.Second,
		},
		ScrollMap: ScrollMapConfig{
			PageSpacing: 0.02,
			Cache: CacheConfig{
				Enabled: true,
				TTL:     10 * time.Minute,
			},
			Highlight: HighlightConfig{
				FontFamily: true,
				FontSize:   true,
				Color:      true,
			},
		},
		Tracing: tr,
		Log: LogConfig{
			Level: "info",
		},
		Flags: map[string]bool{},
	}
}

// ValidatePool checks pool configuration for errors.
func ValidatePool(pool PoolConfig) error {
	if pool.MaxWorkers < 0 {
		return fmt.Errorf("pool.max_workers must be >= 0, got %d", pool.MaxWorkers)
	}
	if pool.MaxQueue < 0 {
		return fmt.Errorf("pool.max_queue must be >= 0, got %d", pool.MaxQueue)
	}
	if pool.AutoTerminate < 0 {
		return fmt.Errorf("pool.auto_terminate must not be negative, got %s", pool.AutoTerminate)
	}
	if pool.SweepInterval < 0 {
		return fmt.Errorf("pool.sweep_interval must not be negative, got %s", pool.SweepInterval)
	}
	if pool.Timeout < 0 {
		return fmt.Errorf("pool.timeout must not be negative, got %s", pool.Timeout)
	}
	return nil
}

// ValidateScrollMap checks scroll map configuration for errors.
func ValidateScrollMap(sm ScrollMapConfig) error {
	if sm.PageSpacing < 0 {
		return fmt.Errorf("scrollmap.page_spacing must be >= 0, got %v", sm.PageSpacing)
	}
	if sm.Cache.TTL < 0 {
		return fmt.Errorf("scrollmap.cache.ttl must not be negative, got %s", sm.Cache.TTL)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tr tracing.Config) error {
	if tr.SampleRate < 0.0 || tr.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tr.SampleRate)
	}

	if tr.Exporter != "" {
		switch tr.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tr.Exporter)
		}
	}

	// Path requirements only matter once tracing is on.
	if tr.Enabled {
		if tr.Exporter == "file" && tr.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tr.Exporter == "otlp" && tr.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// ValidateLog checks the log level name.
func ValidateLog(l LogConfig) error {
	switch l.Level {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", l.Level)
	}
}

// Validate runs every section validator and joins the failures.
func Validate(cfg Config) error {
	return errors.Join(
		ValidatePool(cfg.Pool),
		ValidateScrollMap(cfg.ScrollMap),
		ValidateTracing(cfg.Tracing),
		ValidateLog(cfg.Log),
	)
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# difflens configuration

# Worker pool hosting the diff-engine functions
pool:
  # max_workers: 0        # 0 = one worker per CPU
  auto_terminate: 60s     # Idle workers are torn down after this long
  sweep_interval: 10s     # How often idle workers are checked
  timeout: 10s            # Per-invocation timeout, started at dispatch
  max_queue: 0            # 0 = unbounded

# Scroll map construction
scrollmap:
  page_spacing: 0.02      # Gap between stacked pages, in page heights
  debug_assertions: false # Panic on malformed chunks (development only)
  cache:
    enabled: true
    ttl: 10m
  # Style attributes reported as changes when the style-diff flag is on
  highlight:
    font_family: true
    font_size: true
    color: true

# Debug log (enable with --debug or DIFFLENS_DEBUG=1)
log:
  level: info
  # file: difflens.log

# Feature flags
flags:
  style-diff: false       # Report style-only changes in 'scrollmap changes'
  process-workers: false  # Host diff functions in subprocesses

# Tracing (OpenTelemetry)
tracing:
  enabled: false
  exporter: file          # none, file, stdout, otlp
  # file_path: ~/.config/difflens/traces/traces.jsonl
  # otlp_endpoint: localhost:4317
  sample_rate: 1.0
  #
  # Example: Send traces to Jaeger via OTLP
  # tracing:
  #   enabled: true
  #   exporter: otlp
  #   otlp_endpoint: jaeger.internal:4317
  #   sample_rate: 0.1
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
