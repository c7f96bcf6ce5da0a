// Package cli provides the command-line interface for the trading application.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nifty-trader/internal/analysis/indicators"
	"nifty-trader/internal/analysis/scoring"
	"nifty-trader/internal/broker"
	"nifty-trader/internal/config"
	"nifty-trader/internal/logging"
	"nifty-trader/internal/notify"
	"nifty-trader/internal/paper"
	"nifty-trader/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Zerodha  *broker.Zerodha
	Source   broker.CandleSource
	Gateway  broker.Gateway
	Store    store.DataStore
	Ledger   *paper.Ledger
	Scorer   *scoring.SignalScorer
	Notifier notify.Notifier
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize broker if credentials are available
	if cfg.Credentials.Zerodha.APIKey != "" {
		app.Zerodha = broker.NewZerodha(broker.ZerodhaConfig{
			APIKey:    cfg.Credentials.Zerodha.APIKey,
			APISecret: cfg.Credentials.Zerodha.APISecret,
			UserID:    cfg.Credentials.Zerodha.UserID,
		})
		logger.Debug().Msg("Zerodha broker initialized")
	}

	// Candle source: Zerodha when authenticated, synthetic otherwise
	if app.Zerodha != nil && app.Zerodha.IsAuthenticated() {
		app.Source = app.Zerodha
		app.Gateway = app.Zerodha
		logger.Debug().Msg("using Zerodha candle source")
	} else {
		app.Source = broker.NewSynthetic(0, 22500)
		logger.Debug().Msg("using synthetic candle source")
	}

	// Initialize SQLite store
	dataStore, err := store.NewSQLiteStore(cfg.Trading.DatabasePath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Trading.DatabasePath).Msg("SQLite store initialized")
	}

	// Indicator engine and scorer from configuration
	engine := indicators.NewEngine(engineConfig(cfg.Indicators))
	app.Scorer = scoring.NewSignalScorerWith(engine, scorerWeights(cfg.Scoring.Weights), scorerThresholds(cfg.Scoring))

	// Paper ledger backed by the store when available
	var repo paper.Repository
	if app.Store != nil {
		repo = app.Store
	}
	ledger, err := paper.NewLedger(cfg.Trading.InitialCapital, repo, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize paper ledger")
	} else {
		app.Ledger = ledger
	}

	// Notifications
	if cfg.Notifications.Enabled {
		app.Notifier = notify.NewMultiNotifier(&cfg.Notifications)
	} else {
		app.Notifier = notify.NewNoOpNotifier()
	}

	rootCmd := &cobra.Command{
		Use:   "nifty-trader",
		Short: "NIFTY intraday trading CLI",
		Long: `NIFTY intraday trading CLI for the Indian stock market.

It computes technical indicators over NIFTY candles, scores them into
trade signals, and runs an automated paper or live trading loop against
Zerodha Kite Connect.

Use 'nifty-trader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/nifty-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Add all command groups
	addCoreCommands(rootCmd, app)
	addAuthCommands(rootCmd, app)
	addAnalyzeCommands(rootCmd, app)
	addDataCommands(rootCmd, app)
	addPaperCommands(rootCmd, app)
	addTraderCommands(rootCmd, app)

	return rootCmd
}

// engineConfig maps the file configuration onto the indicator engine.
func engineConfig(ic config.IndicatorConfig) indicators.Config {
	return indicators.Config{
		EMAFastPeriod:    ic.EMAFastPeriod,
		EMASlowPeriod:    ic.EMASlowPeriod,
		RSIPeriod:        ic.RSIPeriod,
		MACDFastPeriod:   ic.MACDFastPeriod,
		MACDSlowPeriod:   ic.MACDSlowPeriod,
		MACDSignalPeriod: ic.MACDSignalPeriod,
		SuperTrendPeriod: ic.SuperTrendPeriod,
		SuperTrendMult:   ic.SuperTrendFactor,
		ATRPeriod:        ic.ATRPeriod,
		SRLookback:       ic.SRLookback,
		SRWindow:         ic.SRWindow,
		SRThreshold:      ic.SRClusterGap,
		CPRNarrowPercent: ic.CPRNarrowPercent,
		CPRWidePercent:   ic.CPRWidePercent,
	}
}

// scorerWeights maps the configured indicator weights to the scorer.
func scorerWeights(w config.ScoringWeights) scoring.Weights {
	if w == (config.ScoringWeights{}) {
		return scoring.DefaultWeights()
	}
	return scoring.Weights{
		EMACrossover: w.EMACrossover,
		EMATrend:     w.EMATrend,
		RSIExtreme:   w.RSIExtreme,
		RSINeutral:   w.RSINeutral,
		MACD:         w.MACD,
		MACDMomentum: w.MACDMomentum,
		SuperTrend:   w.SuperTrend,
		VWAP:         w.VWAP,
		Pattern:      w.Pattern,
		CPR:          w.CPR,
		FibAbove:     w.FibAbove,
		FibBelow:     w.FibBelow,
	}
}

// scorerThresholds overlays configured classification thresholds on the
// defaults, keeping the RSI bands.
func scorerThresholds(sc config.ScoringConfig) scoring.Thresholds {
	th := scoring.DefaultThresholds()
	th.StrongBuy = sc.StrongBuyThreshold
	th.Buy = sc.BuyThreshold
	th.Sell = sc.SellThreshold
	th.StrongSell = sc.StrongSellThreshold
	th.StopATRMult = sc.StopATRMultiplier
	th.TargetATRMult = sc.TargetATRMultiplier
	th.MinCandles = sc.MinCandles
	return th
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("NIFTY Trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
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
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Trading Configuration")
	output.Printf("  Mode:             %s\n", cfg.Trading.Mode)
	output.Printf("  Symbol:           %s\n", cfg.Trading.Symbol)
	output.Printf("  Interval:         %s\n", cfg.Trading.Interval)
	output.Printf("  Quantity:         %d\n", cfg.Trading.Quantity)
	output.Printf("  Initial Capital:  %s\n", FormatIndianCurrency(cfg.Trading.InitialCapital))
	output.Printf("  Exchange:         %s\n", cfg.Trading.DefaultExchange)
	output.Println()

	output.Bold("Indicator Configuration")
	output.Printf("  EMA:              %d/%d\n", cfg.Indicators.EMAFastPeriod, cfg.Indicators.EMASlowPeriod)
	output.Printf("  RSI Period:       %d\n", cfg.Indicators.RSIPeriod)
	output.Printf("  MACD:             %d/%d/%d\n", cfg.Indicators.MACDFastPeriod, cfg.Indicators.MACDSlowPeriod, cfg.Indicators.MACDSignalPeriod)
	output.Printf("  SuperTrend:       %d x %.1f\n", cfg.Indicators.SuperTrendPeriod, cfg.Indicators.SuperTrendFactor)
	output.Printf("  ATR Period:       %d\n", cfg.Indicators.ATRPeriod)
	output.Println()

	output.Bold("Scoring Configuration")
	output.Printf("  Strong Buy:       %.0f\n", cfg.Scoring.StrongBuyThreshold)
	output.Printf("  Buy:              %.0f\n", cfg.Scoring.BuyThreshold)
	output.Printf("  Sell:             %.0f\n", cfg.Scoring.SellThreshold)
	output.Printf("  Strong Sell:      %.0f\n", cfg.Scoring.StrongSellThreshold)
	output.Printf("  Stop ATR Mult:    %.1f\n", cfg.Scoring.StopATRMultiplier)
	output.Printf("  Target ATR Mult:  %.1f\n", cfg.Scoring.TargetATRMultiplier)
	output.Println()

	output.Bold("Trader Configuration")
	output.Printf("  Poll Interval:    %ds\n", cfg.Trader.PollIntervalSeconds)
	output.Printf("  Max Daily Trades: %d\n", cfg.Trader.MaxDailyTrades)
	output.Printf("  Min Strength:     %.0f\n", cfg.Trader.MinStrength)
	output.Printf("  Cooldown:         %d min\n", cfg.Trader.CooldownMinutes)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:          %v\n", cfg.Notifications.Enabled)
	output.Printf("  Level:            %s\n", cfg.Notifications.Level)
	output.Printf("  Webhook:          %v\n", cfg.Notifications.Webhook.Enabled)
	output.Printf("  Telegram:         %v\n", cfg.Notifications.Telegram.Enabled)
	output.Printf("  Email:            %v\n", cfg.Notifications.Email.Enabled)

	return nil
}
