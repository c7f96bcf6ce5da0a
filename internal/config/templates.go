package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Nifty Trader Configuration

[trading]
# Trading mode: "live" or "paper"
mode = "paper"
# Instrument to trade
symbol = "NIFTY 50"
# Candle interval: 1min, 5min, 15min, 1day
interval = "5min"
# Quantity per trade
quantity = 50
# Starting paper trading capital in INR
initial_capital = 100000.0
# Default exchange: NSE, BSE
default_exchange = "NSE"
# SQLite database path (empty uses the config dir)
database_path = ""
# Trading session in IST
market_open = "09:15"
market_close = "15:30"

[indicators]
ema_fast_period = 9
ema_slow_period = 21
rsi_period = 14
macd_fast_period = 12
macd_slow_period = 26
macd_signal_period = 9
supertrend_period = 10
supertrend_factor = 3.0
atr_period = 10
# Support/resistance detection
sr_lookback = 50
sr_window = 2
sr_cluster_gap = 20.0
# CPR width classification thresholds (percent of pivot)
cpr_narrow_percent = 0.1
cpr_wide_percent = 0.25

[scoring]
strong_buy_threshold = 50.0
buy_threshold = 25.0
sell_threshold = -25.0
strong_sell_threshold = -50.0
# Stop-loss and target distance in ATR multiples
stop_atr_multiplier = 1.5
target_atr_multiplier = 2.5
# Minimum candles required before scoring
min_candles = 30

[scoring.weights]
# Per-indicator score contributions
ema_crossover = 20.0
ema_trend = 10.0
rsi_extreme = 15.0
rsi_neutral = 5.0
macd = 15.0
macd_momentum = 5.0
supertrend = 20.0
vwap = 10.0
pattern = 15.0
cpr = 15.0
fib_above = 10.0
fib_below = 5.0

[trader]
# Seconds between evaluation cycles
poll_interval_seconds = 300
# Maximum auto-executed trades per day
max_daily_trades = 5
# Minimum signal strength to act on (0-100)
min_strength = 40.0
# Minimum minutes between executed trades
cooldown_minutes = 5
# Seconds to wait for the trading loop to exit on stop
stop_timeout_seconds = 10
# Candles fetched per evaluation
lookback_candles = 100

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"

[notifications]
# Enable notifications
enabled = false
# Notification level: all, trades_only, errors_only
level = "all"

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""

[notifications.email]
enabled = false
smtp_host = ""
smtp_port = 587
username = ""
password = ""
from = ""
to = ""
`

const credentialsTemplate = `# Nifty Trader Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[zerodha]
api_key = ""
api_secret = ""
user_id = ""
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, created template at %s", path)
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Restricted permissions for credentials
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return fmt.Errorf("credentials file not found, created template at %s", path)
}
