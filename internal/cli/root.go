// Package cli provides the command-line interface for marketpulse.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"marketpulse/internal/analysis/pipeline"
	"marketpulse/internal/config"
	"marketpulse/internal/feed"
	"marketpulse/internal/logging"
	"marketpulse/internal/service"
	"marketpulse/internal/store"
)

// Version information
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
	store     *store.SQLiteStore
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "marketpulse",
		Short: "Crypto technical analysis and composite signals",
		Long: `marketpulse analyzes Binance spot pairs across three timeframes and
condenses indicators, candlestick patterns, support and resistance, money
flow and trend confluence into one signal score with IF/THEN scenarios.

Use 'marketpulse analyze BTC' for a full report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/marketpulse)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newScanCmd(app))
	rootCmd.AddCommand(newBotCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))

	return rootCmd
}

func (a *App) init(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config")
	if dir == "" {
		dir = config.DefaultConfigDir()
	}
	a.ConfigDir = dir

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	a.Config = cfg

	a.Logger = logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logging.SetDebugLevel()
		a.Logger = a.Logger.Level(zerolog.DebugLevel)
	}
	return nil
}

// Analyzer builds the fetch chain (Binance, retries, sqlite cache) and the
// pipeline behind one analyzer.
func (a *App) Analyzer() *service.Analyzer {
	var src feed.Source = feed.NewBinanceSource(a.Config.Feed, a.Logger)
	src = feed.NewRetryingSource(src, a.Config.Feed.MaxRetries, a.Logger)

	if a.Config.Cache.Enabled {
		st, err := a.candleStore()
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Candle cache unavailable, fetching live")
		} else {
			src = feed.NewCachedSource(src, st, a.Config.Feed.CacheTTL, a.Logger)
		}
	}

	pipe := pipeline.New(a.Config.AnalysisConfig())
	return service.NewAnalyzer(src, pipe, a.Config.Analysis.Lookback, a.Logger)
}

func (a *App) candleStore() (*store.SQLiteStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	st, err := store.NewSQLiteStore(a.Config.Cache.Path)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug().Str("path", a.Config.Cache.Path).Msg("SQLite store initialized")
	a.store = st
	return st, nil
}

// Close releases the store if one was opened.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("marketpulse v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(redacted(app.Config))
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			NewOutput(cmd).Println(config.TemplatePath(app.ConfigDir))
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the commented config template",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			path, err := config.WriteTemplate(app.ConfigDir, force)
			if err != nil {
				return err
			}
			NewOutput(cmd).Success("✓ Wrote %s", path)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

// redacted returns a copy of cfg with credentials masked.
func redacted(cfg *config.Config) config.Config {
	c := *cfg
	c.Feed.APIKey = mask(c.Feed.APIKey)
	c.Feed.APISecret = mask(c.Feed.APISecret)
	c.Telegram.BotToken = mask(c.Telegram.BotToken)
	return c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Analysis")
	output.Printf("  Timeframe:       %s\n", cfg.Analysis.PrimaryTimeframe)
	output.Printf("  Lookback:        %d candles\n", cfg.Analysis.Lookback)
	output.Printf("  Workers:         %d\n", cfg.Analysis.Workers)
	w := cfg.Scoring.Weights
	output.Printf("  Weights:         trend %.2f  momentum %.2f  volume %.2f  levels %.2f  patterns %.2f\n",
		w.Trend, w.Momentum, w.Volume, w.Levels, w.Patterns)
	output.Println()

	output.Bold("Feed")
	output.Printf("  Exchange:        %s\n", cfg.Feed.Exchange)
	output.Printf("  Rate limit:      %.0f req/s (burst %d)\n", cfg.Feed.RequestsPerSecond, cfg.Feed.Burst)
	output.Printf("  Retries:         %d\n", cfg.Feed.MaxRetries)
	output.Printf("  Cache:           %v (ttl %s, %s)\n", cfg.Cache.Enabled, cfg.Feed.CacheTTL, cfg.Cache.Path)
	output.Println()

	output.Bold("Telegram")
	output.Printf("  Enabled:         %v\n", cfg.Telegram.Enabled)
	output.Printf("  Token:           %s\n", mask(cfg.Telegram.BotToken))
	output.Printf("  Chat:            %d\n", cfg.Telegram.ChatID)
	output.Println()

	output.Bold("Watch")
	output.Printf("  Symbols:         %v\n", cfg.Watch.Symbols)
	output.Printf("  Schedule:        %s\n", cfg.Watch.Schedule)
	output.Printf("  Min score:       %.0f\n", cfg.Watch.MinScore)
	output.Printf("  Notify:          %v\n", cfg.Watch.Notify)
}
