package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# marketpulse configuration

[analysis]
# Primary timeframe: 1m, 5m, 15m, 30m, 1h, 4h, 1d (1h and 4h are always analysed too)
primary_timeframe = "15m"
# Candles fetched per timeframe
lookback = 200
# Indicator worker pool size
workers = 4

[indicators]
sma_fast = 9
sma_mid = 21
sma_slow = 50
ema_fast = 12
ema_slow = 26
rsi_period = 14
rsi_overbought = 70.0
rsi_oversold = 30.0
macd_fast = 12
macd_slow = 26
macd_signal = 9
bb_period = 20
bb_std_dev = 2.0
atr_period = 14
stoch_k = 14
stoch_smooth = 3
stoch_d = 3
adx_period = 14
# Reset VWAP at each UTC day
vwap_session_reset = true

[patterns]
doji_body_ratio = 0.10
hammer_wick_ratio = 2.0
hammer_max_shadow = 0.5
hammer_max_body_ratio = 0.35
star_body_ratio = 2.0
soldier_min_body_ratio = 0.5
pin_bar_wick_ratio = 0.66
tweezer_tolerance = 0.05

[levels]
# Candles on each side a pivot must dominate
pivot_window = 3
# Relative clustering tolerance (0.005 = 0.5%)
tolerance = 0.005
min_touches = 2
# Candles scanned for pivots (0 = whole series)
lookback = 100

[trend]
ema_weight = 0.4
sma_weight = 0.3
adx_weight = 0.3
adx_threshold = 20.0
neutral_band = 0.002
direction_threshold = 0.2

[flow]
lookback = 10
obv_slope_threshold = 0.1
vwap_band = 0.001
spike_multiplier = 1.5
volume_ma_period = 20

[scoring]
confidence_gain = 1.5
spike_amplifier = 1.25
level_proximity_atr = 1.5
stoch_min_range = 0.01

[scoring.weights]
# Must sum to 1.0
trend = 0.25
momentum = 0.25
volume = 0.20
levels = 0.15
patterns = 0.15

[scenario]
target_atr = 3.0
stop_atr = 1.5
max_level_distance = 0.10
breakout_proximity = 0.005
min_risk_reward = 1.5
risk_reward_cap = 5.0
alignment_weight = 0.6

[feed]
exchange = "binance"
timeout = "15s"
requests_per_second = 10.0
burst = 5
max_retries = 3
cache_ttl = "45s"

[cache]
enabled = true
# path = "~/.config/marketpulse/candles.db"

[telegram]
# Token can also come from TELEGRAM_BOT_TOKEN
enabled = false
bot_token = ""
chat_id = 0

[watch]
symbols = ["BTCUSDT", "ETHUSDT"]
# Cron spec with seconds field
schedule = "0 */15 * * * *"
# Only report signals with |score| at or above this value
min_score = 30.0
notify = false

[logging]
level = "info"
console = true
file = false
max_size = 100
max_backups = 3
max_age = 28
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

// TemplatePath returns where the config file lives for a directory.
func TemplatePath(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// WriteTemplate writes the commented template to configDir. An existing
// file is kept unless force is set.
func WriteTemplate(configDir string, force bool) (string, error) {
	path := TemplatePath(configDir)
	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("%s already exists", path)
	}
	if err := createTemplateConfig(filepath.Dir(path)); err != nil {
		return path, err
	}
	return path, nil
}
