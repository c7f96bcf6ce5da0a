// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"nifty-trader/pkg/utils"
)

// Config holds all application configuration.
type Config struct {
	Trading       TradingConfig      `mapstructure:"trading"`
	Indicators    IndicatorConfig    `mapstructure:"indicators"`
	Scoring       ScoringConfig      `mapstructure:"scoring"`
	Trader        TraderConfig       `mapstructure:"trader"`
	UI            UIConfig           `mapstructure:"ui"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode            string  `mapstructure:"mode"`   // "live", "paper"
	Symbol          string  `mapstructure:"symbol"` // e.g. "NIFTY 50"
	Interval        string  `mapstructure:"interval"`
	Quantity        int     `mapstructure:"quantity"`
	InitialCapital  float64 `mapstructure:"initial_capital"`
	DefaultExchange string  `mapstructure:"default_exchange"` // NSE, BSE
	DatabasePath    string  `mapstructure:"database_path"`
	MarketOpen      string  `mapstructure:"market_open"`  // "HH:MM" IST
	MarketClose     string  `mapstructure:"market_close"` // "HH:MM" IST
}

// Session returns the configured trading session. Call Validate first;
// it guarantees the session strings parse.
func (t TradingConfig) Session() utils.Session {
	s, err := utils.ParseSession(t.MarketOpen, t.MarketClose)
	if err != nil {
		return utils.DefaultSession()
	}
	return s
}

// IndicatorConfig holds indicator periods and parameters.
type IndicatorConfig struct {
	EMAFastPeriod    int     `mapstructure:"ema_fast_period"`
	EMASlowPeriod    int     `mapstructure:"ema_slow_period"`
	RSIPeriod        int     `mapstructure:"rsi_period"`
	MACDFastPeriod   int     `mapstructure:"macd_fast_period"`
	MACDSlowPeriod   int     `mapstructure:"macd_slow_period"`
	MACDSignalPeriod int     `mapstructure:"macd_signal_period"`
	SuperTrendPeriod int     `mapstructure:"supertrend_period"`
	SuperTrendFactor float64 `mapstructure:"supertrend_factor"`
	ATRPeriod        int     `mapstructure:"atr_period"`
	SRLookback       int     `mapstructure:"sr_lookback"`
	SRWindow         int     `mapstructure:"sr_window"`
	SRClusterGap     float64 `mapstructure:"sr_cluster_gap"`
	CPRNarrowPercent float64 `mapstructure:"cpr_narrow_percent"`
	CPRWidePercent   float64 `mapstructure:"cpr_wide_percent"`
}

// ScoringConfig holds signal scoring thresholds and weights.
type ScoringConfig struct {
	StrongBuyThreshold  float64        `mapstructure:"strong_buy_threshold"`
	BuyThreshold        float64        `mapstructure:"buy_threshold"`
	SellThreshold       float64        `mapstructure:"sell_threshold"`
	StrongSellThreshold float64        `mapstructure:"strong_sell_threshold"`
	StopATRMultiplier   float64        `mapstructure:"stop_atr_multiplier"`
	TargetATRMultiplier float64        `mapstructure:"target_atr_multiplier"`
	MinCandles          int            `mapstructure:"min_candles"`
	Weights             ScoringWeights `mapstructure:"weights"`
}

// ScoringWeights holds the per-indicator score contributions.
type ScoringWeights struct {
	EMACrossover float64 `mapstructure:"ema_crossover"`
	EMATrend     float64 `mapstructure:"ema_trend"`
	RSIExtreme   float64 `mapstructure:"rsi_extreme"`
	RSINeutral   float64 `mapstructure:"rsi_neutral"`
	MACD         float64 `mapstructure:"macd"`
	MACDMomentum float64 `mapstructure:"macd_momentum"`
	SuperTrend   float64 `mapstructure:"supertrend"`
	VWAP         float64 `mapstructure:"vwap"`
	Pattern      float64 `mapstructure:"pattern"`
	CPR          float64 `mapstructure:"cpr"`
	FibAbove     float64 `mapstructure:"fib_above"`
	FibBelow     float64 `mapstructure:"fib_below"`
}

// TraderConfig holds auto-trader limits and timing.
type TraderConfig struct {
	PollIntervalSeconds int     `mapstructure:"poll_interval_seconds"`
	MaxDailyTrades      int     `mapstructure:"max_daily_trades"`
	MinStrength         float64 `mapstructure:"min_strength"`
	CooldownMinutes     int     `mapstructure:"cooldown_minutes"`
	StopTimeoutSeconds  int     `mapstructure:"stop_timeout_seconds"`
	LookbackCandles     int     `mapstructure:"lookback_candles"`
}

// PollInterval returns the poll interval as a duration.
func (t TraderConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalSeconds) * time.Second
}

// Cooldown returns the minimum gap between executed trades.
func (t TraderConfig) Cooldown() time.Duration {
	return time.Duration(t.CooldownMinutes) * time.Minute
}

// StopTimeout returns the bounded join timeout for Stop.
func (t TraderConfig) StopTimeout() time.Duration {
	return time.Duration(t.StopTimeoutSeconds) * time.Second
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, trades_only, errors_only
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Email    EmailConfig    `mapstructure:"email"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// EmailConfig holds email notification configuration.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// Credentials holds API credentials.
type Credentials struct {
	Zerodha ZerodhaCredentials `mapstructure:"zerodha"`
}

// ZerodhaCredentials holds Zerodha API credentials.
type ZerodhaCredentials struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	UserID    string `mapstructure:"user_id"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/nifty-trader"
	}
	return filepath.Join(home, ".config", "nifty-trader")
}

// DefaultDatabasePath returns the default sqlite database path.
func DefaultDatabasePath() string {
	return filepath.Join(DefaultConfigDir(), "trader.db")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			return createTemplateConfig(configDir, name)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZERODHA_API_KEY"); v != "" {
		cfg.Credentials.Zerodha.APIKey = v
	}
	if v := os.Getenv("ZERODHA_API_SECRET"); v != "" {
		cfg.Credentials.Zerodha.APISecret = v
	}
	if v := os.Getenv("ZERODHA_USER_ID"); v != "" {
		cfg.Credentials.Zerodha.UserID = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

// applyDefaults fills zero values so a sparse config file still works.
func applyDefaults(cfg *Config) {
	if cfg.Trading.Mode == "" {
		cfg.Trading.Mode = "paper"
	}
	if cfg.Trading.Symbol == "" {
		cfg.Trading.Symbol = "NIFTY 50"
	}
	if cfg.Trading.Interval == "" {
		cfg.Trading.Interval = "5min"
	}
	if cfg.Trading.MarketOpen == "" {
		cfg.Trading.MarketOpen = "09:15"
	}
	if cfg.Trading.MarketClose == "" {
		cfg.Trading.MarketClose = "15:30"
	}
	if cfg.Trading.Quantity <= 0 {
		cfg.Trading.Quantity = 50
	}
	if cfg.Trading.InitialCapital <= 0 {
		cfg.Trading.InitialCapital = 100000
	}
	if cfg.Trading.DefaultExchange == "" {
		cfg.Trading.DefaultExchange = "NSE"
	}
	if cfg.Trading.DatabasePath == "" {
		cfg.Trading.DatabasePath = DefaultDatabasePath()
	}
	if cfg.Indicators.EMAFastPeriod <= 0 {
		cfg.Indicators.EMAFastPeriod = 9
	}
	if cfg.Indicators.EMASlowPeriod <= 0 {
		cfg.Indicators.EMASlowPeriod = 21
	}
	if cfg.Indicators.RSIPeriod <= 0 {
		cfg.Indicators.RSIPeriod = 14
	}
	if cfg.Indicators.MACDFastPeriod <= 0 {
		cfg.Indicators.MACDFastPeriod = 12
	}
	if cfg.Indicators.MACDSlowPeriod <= 0 {
		cfg.Indicators.MACDSlowPeriod = 26
	}
	if cfg.Indicators.MACDSignalPeriod <= 0 {
		cfg.Indicators.MACDSignalPeriod = 9
	}
	if cfg.Indicators.SuperTrendPeriod <= 0 {
		cfg.Indicators.SuperTrendPeriod = 10
	}
	if cfg.Indicators.SuperTrendFactor <= 0 {
		cfg.Indicators.SuperTrendFactor = 3.0
	}
	if cfg.Indicators.ATRPeriod <= 0 {
		cfg.Indicators.ATRPeriod = 10
	}
	if cfg.Indicators.SRLookback <= 0 {
		cfg.Indicators.SRLookback = 50
	}
	if cfg.Indicators.SRWindow <= 0 {
		cfg.Indicators.SRWindow = 2
	}
	if cfg.Indicators.SRClusterGap <= 0 {
		cfg.Indicators.SRClusterGap = 20
	}
	if cfg.Indicators.CPRNarrowPercent <= 0 {
		cfg.Indicators.CPRNarrowPercent = 0.1
	}
	if cfg.Indicators.CPRWidePercent <= 0 {
		cfg.Indicators.CPRWidePercent = 0.25
	}
	if cfg.Scoring.StrongBuyThreshold == 0 {
		cfg.Scoring.StrongBuyThreshold = 50
	}
	if cfg.Scoring.BuyThreshold == 0 {
		cfg.Scoring.BuyThreshold = 25
	}
	if cfg.Scoring.SellThreshold == 0 {
		cfg.Scoring.SellThreshold = -25
	}
	if cfg.Scoring.StrongSellThreshold == 0 {
		cfg.Scoring.StrongSellThreshold = -50
	}
	if cfg.Scoring.StopATRMultiplier <= 0 {
		cfg.Scoring.StopATRMultiplier = 1.5
	}
	if cfg.Scoring.TargetATRMultiplier <= 0 {
		cfg.Scoring.TargetATRMultiplier = 2.5
	}
	if cfg.Scoring.MinCandles <= 0 {
		cfg.Scoring.MinCandles = 30
	}
	applyWeightDefaults(&cfg.Scoring.Weights)
	if cfg.Trader.PollIntervalSeconds <= 0 {
		cfg.Trader.PollIntervalSeconds = 300
	}
	if cfg.Trader.MaxDailyTrades <= 0 {
		cfg.Trader.MaxDailyTrades = 5
	}
	if cfg.Trader.MinStrength <= 0 {
		cfg.Trader.MinStrength = 40
	}
	if cfg.Trader.CooldownMinutes <= 0 {
		cfg.Trader.CooldownMinutes = 5
	}
	if cfg.Trader.StopTimeoutSeconds <= 0 {
		cfg.Trader.StopTimeoutSeconds = 10
	}
	if cfg.Trader.LookbackCandles <= 0 {
		cfg.Trader.LookbackCandles = 100
	}
}

// applyWeightDefaults fills unset scoring weights.
func applyWeightDefaults(w *ScoringWeights) {
	if w.EMACrossover <= 0 {
		w.EMACrossover = 20
	}
	if w.EMATrend <= 0 {
		w.EMATrend = 10
	}
	if w.RSIExtreme <= 0 {
		w.RSIExtreme = 15
	}
	if w.RSINeutral <= 0 {
		w.RSINeutral = 5
	}
	if w.MACD <= 0 {
		w.MACD = 15
	}
	if w.MACDMomentum <= 0 {
		w.MACDMomentum = 5
	}
	if w.SuperTrend <= 0 {
		w.SuperTrend = 20
	}
	if w.VWAP <= 0 {
		w.VWAP = 10
	}
	if w.Pattern <= 0 {
		w.Pattern = 15
	}
	if w.CPR <= 0 {
		w.CPR = 15
	}
	if w.FibAbove <= 0 {
		w.FibAbove = 10
	}
	if w.FibBelow <= 0 {
		w.FibBelow = 5
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Trading.Mode != "" && c.Trading.Mode != "live" && c.Trading.Mode != "paper" {
		return fmt.Errorf("invalid trading mode: %s (must be 'live' or 'paper')", c.Trading.Mode)
	}

	if c.Trading.Quantity < 0 {
		return fmt.Errorf("quantity must be non-negative")
	}
	if c.Trading.InitialCapital < 0 {
		return fmt.Errorf("initial_capital must be non-negative")
	}

	if c.Indicators.EMAFastPeriod >= c.Indicators.EMASlowPeriod {
		return fmt.Errorf("ema_fast_period must be less than ema_slow_period")
	}
	if c.Indicators.MACDFastPeriod >= c.Indicators.MACDSlowPeriod {
		return fmt.Errorf("macd_fast_period must be less than macd_slow_period")
	}

	if c.Scoring.BuyThreshold <= 0 || c.Scoring.StrongBuyThreshold <= c.Scoring.BuyThreshold {
		return fmt.Errorf("buy thresholds must satisfy 0 < buy < strong_buy")
	}
	if c.Scoring.SellThreshold >= 0 || c.Scoring.StrongSellThreshold >= c.Scoring.SellThreshold {
		return fmt.Errorf("sell thresholds must satisfy strong_sell < sell < 0")
	}

	if c.Trader.MinStrength < 0 || c.Trader.MinStrength > 100 {
		return fmt.Errorf("min_strength must be between 0 and 100")
	}

	if _, err := utils.ParseSession(c.Trading.MarketOpen, c.Trading.MarketClose); err != nil {
		return err
	}

	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Trading.Mode == "paper"
}
