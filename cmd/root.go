// Package cmd implements the difflens command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/difflens/internal/config"
	"github.com/zjrosen/difflens/internal/flags"
	"github.com/zjrosen/difflens/internal/log"
	"github.com/zjrosen/difflens/internal/scrollmap"
	"github.com/zjrosen/difflens/internal/tracing"
)

const defaultConfigPath = ".difflens/config.yaml"

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	logFile   string

	cfg          config.Config
	flagRegistry *flags.Registry
	provider     *tracing.Provider
	logCleanup   func()
)

var rootCmd = &cobra.Command{
	Use:   "difflens",
	Short: "Synchronized scrolling for rich-text document diffs",
	Long: `difflens builds the scroll map that keeps the two panes of a rich-text
(PDF/Word) diff aligned, answers position queries against it, and hosts the
text diff functions the viewer runs off its main thread.`,
	Version:            version,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .difflens/config.yaml, then ~/.config/difflens/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"enable debug logging (also DIFFLENS_DEBUG=1)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write the debug log to this file instead of stderr")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("pool.max_workers", defaults.Pool.MaxWorkers)
	viper.SetDefault("pool.auto_terminate", defaults.Pool.AutoTerminate)
	viper.SetDefault("pool.sweep_interval", defaults.Pool.SweepInterval)
	viper.SetDefault("pool.timeout", defaults.Pool.Timeout)
	viper.SetDefault("pool.max_queue", defaults.Pool.MaxQueue)
	viper.SetDefault("scrollmap.page_spacing", defaults.ScrollMap.PageSpacing)
	viper.SetDefault("scrollmap.debug_assertions", defaults.ScrollMap.DebugAssertions)
	viper.SetDefault("scrollmap.cache.enabled", defaults.ScrollMap.Cache.Enabled)
	viper.SetDefault("scrollmap.cache.ttl", defaults.ScrollMap.Cache.TTL)
	viper.SetDefault("scrollmap.highlight.font_family", defaults.ScrollMap.Highlight.FontFamily)
	viper.SetDefault("scrollmap.highlight.font_size", defaults.ScrollMap.Highlight.FontSize)
	viper.SetDefault("scrollmap.highlight.color", defaults.ScrollMap.Highlight.Color)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)
	viper.SetDefault("log.level", defaults.Log.Level)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .difflens/config.yaml (current directory)
		// 2. ~/.config/difflens/config.yaml (user config)
		if _, err := os.Stat(defaultConfigPath); err == nil {
			viper.SetConfigFile(defaultConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "difflens"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .difflens/config.yaml
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if writeErr := config.WriteDefaultConfig(defaultConfigPath); writeErr == nil {
				viper.SetConfigFile(defaultConfigPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	cfg = config.Config{}
	_ = viper.Unmarshal(&cfg)
}

// configPath is the file config edits are written to.
func configPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return defaultConfigPath
}

func setup(_ *cobra.Command, _ []string) error {
	if err := initLogging(); err != nil {
		return err
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", configPath(), err)
	}

	scrollmap.SetDebugAssertions(cfg.ScrollMap.DebugAssertions)
	flagRegistry = flags.New(cfg.Flags)

	p, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	provider = p
	return nil
}

// initLogging enables the debug log when --debug or DIFFLENS_DEBUG is set.
// The log goes to --log-file, then log.file, then stderr; stdout is reserved
// for command output and the worker protocol.
func initLogging() error {
	if os.Getenv("DIFFLENS_DEBUG") == "" && !debugFlag {
		return nil
	}

	path := logFile
	if path == "" {
		path = cfg.Log.File
	}
	if path == "" {
		log.InitWriter(os.Stderr, log.LevelDebug)
		logCleanup = log.Reset
		return nil
	}

	cleanup, err := log.Init(path)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	log.SetMinLevel(log.ParseLevel(cfg.Log.Level))
	logCleanup = cleanup
	log.Info(log.CatCLI, "difflens starting", "version", version, "config", configPath())
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	var err error
	if provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = provider.Shutdown(ctx)
		cancel()
		provider = nil
	}
	if logCleanup != nil {
		logCleanup()
		logCleanup = nil
	}
	return err
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
