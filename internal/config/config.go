// Package config provides configuration management for the signal bot.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Analysis   AnalysisSettings `mapstructure:"analysis"`
	Indicators IndicatorParams  `mapstructure:"indicators"`
	Patterns   PatternParams    `mapstructure:"patterns"`
	Levels     LevelParams      `mapstructure:"levels"`
	Trend      TrendParams      `mapstructure:"trend"`
	Flow       FlowParams       `mapstructure:"flow"`
	Scoring    ScoringParams    `mapstructure:"scoring"`
	Scenario   ScenarioParams   `mapstructure:"scenario"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Watch      WatchConfig      `mapstructure:"watch"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// AnalysisSettings holds run-level analysis settings.
type AnalysisSettings struct {
	PrimaryTimeframe string `mapstructure:"primary_timeframe"`
	Lookback         int    `mapstructure:"lookback"` // candles fetched per timeframe
	Workers          int    `mapstructure:"workers"`
}

// FeedConfig holds exchange access settings.
type FeedConfig struct {
	Exchange          string        `mapstructure:"exchange"`
	APIKey            string        `mapstructure:"api_key"`
	APISecret         string        `mapstructure:"api_secret"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxRetries        int           `mapstructure:"max_retries"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// CacheConfig holds the candle cache settings.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TelegramConfig holds Telegram bot configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"` // push target for watch reports
	Debug    bool   `mapstructure:"debug"`
}

// WatchConfig holds the periodic watchlist scan settings.
type WatchConfig struct {
	Symbols  []string `mapstructure:"symbols"`
	Schedule string   `mapstructure:"schedule"` // cron spec with seconds
	MinScore float64  `mapstructure:"min_score"`
	Notify   bool     `mapstructure:"notify"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/marketpulse"
	}
	return filepath.Join(home, ".config", "marketpulse")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
// A missing config.toml is replaced by the commented template and defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file overrides anything.
func Default() *Config {
	v := viper.New()
	setDefaults(v, DefaultConfigDir())
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper, configDir string) {
	d := DefaultAnalysisConfig()

	v.SetDefault("analysis.primary_timeframe", string(d.PrimaryTimeframe))
	v.SetDefault("analysis.lookback", 200)
	v.SetDefault("analysis.workers", d.Workers)

	v.SetDefault("indicators.sma_fast", d.Indicators.SMAFast)
	v.SetDefault("indicators.sma_mid", d.Indicators.SMAMid)
	v.SetDefault("indicators.sma_slow", d.Indicators.SMASlow)
	v.SetDefault("indicators.ema_fast", d.Indicators.EMAFast)
	v.SetDefault("indicators.ema_slow", d.Indicators.EMASlow)
	v.SetDefault("indicators.rsi_period", d.Indicators.RSIPeriod)
	v.SetDefault("indicators.rsi_overbought", d.Indicators.RSIOverbought)
	v.SetDefault("indicators.rsi_oversold", d.Indicators.RSIOversold)
	v.SetDefault("indicators.macd_fast", d.Indicators.MACDFast)
	v.SetDefault("indicators.macd_slow", d.Indicators.MACDSlow)
	v.SetDefault("indicators.macd_signal", d.Indicators.MACDSignal)
	v.SetDefault("indicators.bb_period", d.Indicators.BBPeriod)
	v.SetDefault("indicators.bb_std_dev", d.Indicators.BBStdDev)
	v.SetDefault("indicators.atr_period", d.Indicators.ATRPeriod)
	v.SetDefault("indicators.stoch_k", d.Indicators.StochK)
	v.SetDefault("indicators.stoch_smooth", d.Indicators.StochSmooth)
	v.SetDefault("indicators.stoch_d", d.Indicators.StochD)
	v.SetDefault("indicators.adx_period", d.Indicators.ADXPeriod)
	v.SetDefault("indicators.vwap_session_reset", d.Indicators.VWAPSessionReset)

	v.SetDefault("patterns.doji_body_ratio", d.Patterns.DojiBodyRatio)
	v.SetDefault("patterns.hammer_wick_ratio", d.Patterns.HammerWickRatio)
	v.SetDefault("patterns.hammer_max_shadow", d.Patterns.HammerMaxShadow)
	v.SetDefault("patterns.hammer_max_body_ratio", d.Patterns.HammerMaxBodyRatio)
	v.SetDefault("patterns.star_body_ratio", d.Patterns.StarBodyRatio)
	v.SetDefault("patterns.soldier_min_body_ratio", d.Patterns.SoldierMinBodyRatio)
	v.SetDefault("patterns.pin_bar_wick_ratio", d.Patterns.PinBarWickRatio)
	v.SetDefault("patterns.tweezer_tolerance", d.Patterns.TweezerTolerance)

	v.SetDefault("levels.pivot_window", d.Levels.PivotWindow)
	v.SetDefault("levels.tolerance", d.Levels.Tolerance)
	v.SetDefault("levels.min_touches", d.Levels.MinTouches)
	v.SetDefault("levels.lookback", d.Levels.Lookback)

	v.SetDefault("trend.ema_weight", d.Trend.EMAWeight)
	v.SetDefault("trend.sma_weight", d.Trend.SMAWeight)
	v.SetDefault("trend.adx_weight", d.Trend.ADXWeight)
	v.SetDefault("trend.adx_threshold", d.Trend.ADXThreshold)
	v.SetDefault("trend.neutral_band", d.Trend.NeutralBand)
	v.SetDefault("trend.direction_threshold", d.Trend.DirectionThreshold)

	v.SetDefault("flow.lookback", d.Flow.Lookback)
	v.SetDefault("flow.obv_slope_threshold", d.Flow.OBVSlopeThreshold)
	v.SetDefault("flow.vwap_band", d.Flow.VWAPBand)
	v.SetDefault("flow.spike_multiplier", d.Flow.SpikeMultiplier)
	v.SetDefault("flow.volume_ma_period", d.Flow.VolumeMAPeriod)

	v.SetDefault("scoring.weights.trend", d.Scoring.Weights.Trend)
	v.SetDefault("scoring.weights.momentum", d.Scoring.Weights.Momentum)
	v.SetDefault("scoring.weights.volume", d.Scoring.Weights.Volume)
	v.SetDefault("scoring.weights.levels", d.Scoring.Weights.Levels)
	v.SetDefault("scoring.weights.patterns", d.Scoring.Weights.Patterns)
	v.SetDefault("scoring.confidence_gain", d.Scoring.ConfidenceGain)
	v.SetDefault("scoring.spike_amplifier", d.Scoring.SpikeAmplifier)
	v.SetDefault("scoring.level_proximity_atr", d.Scoring.LevelProximityATR)
	v.SetDefault("scoring.stoch_min_range", d.Scoring.StochMinRange)

	v.SetDefault("scenario.target_atr", d.Scenario.TargetATR)
	v.SetDefault("scenario.stop_atr", d.Scenario.StopATR)
	v.SetDefault("scenario.max_level_distance", d.Scenario.MaxLevelDistance)
	v.SetDefault("scenario.breakout_proximity", d.Scenario.BreakoutProximity)
	v.SetDefault("scenario.min_risk_reward", d.Scenario.MinRiskReward)
	v.SetDefault("scenario.risk_reward_cap", d.Scenario.RiskRewardCap)
	v.SetDefault("scenario.alignment_weight", d.Scenario.AlignmentWeight)

	v.SetDefault("feed.exchange", "binance")
	v.SetDefault("feed.timeout", 15*time.Second)
	v.SetDefault("feed.requests_per_second", 10.0)
	v.SetDefault("feed.burst", 5)
	v.SetDefault("feed.max_retries", 3)
	v.SetDefault("feed.cache_ttl", 45*time.Second)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", filepath.Join(configDir, "candles.db"))

	v.SetDefault("telegram.enabled", false)

	v.SetDefault("watch.symbols", []string{"BTCUSDT", "ETHUSDT"})
	v.SetDefault("watch.schedule", "0 */15 * * * *")
	v.SetDefault("watch.min_score", 30.0)
	v.SetDefault("watch.notify", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "marketpulse.log"))
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
}

func applyEnvOverrides(cfg *Config) {
	// Telegram
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
		cfg.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}

	// Exchange credentials (optional, klines are public)
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.Feed.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		cfg.Feed.APISecret = v
	}

	if v := os.Getenv("MARKETPULSE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MARKETPULSE_TIMEFRAME"); v != "" {
		cfg.Analysis.PrimaryTimeframe = v
	}
}

// Validate validates the configuration. Every violation is a ValidationError wrapping ErrConfigInvalid.
func (c *Config) Validate() error {
	if !models.Timeframe(c.Analysis.PrimaryTimeframe).Valid() {
		return apperrors.NewValidationError("analysis.primary_timeframe", c.Analysis.PrimaryTimeframe, "must be one of 1m, 5m, 15m, 30m, 1h, 4h, 1d")
	}
	if c.Analysis.Workers <= 0 {
		return apperrors.NewValidationError("analysis.workers", c.Analysis.Workers, "must be positive")
	}

	ind := c.Indicators
	periods := []struct {
		name  string
		value int
	}{
		{"indicators.sma_fast", ind.SMAFast},
		{"indicators.sma_mid", ind.SMAMid},
		{"indicators.sma_slow", ind.SMASlow},
		{"indicators.ema_fast", ind.EMAFast},
		{"indicators.ema_slow", ind.EMASlow},
		{"indicators.rsi_period", ind.RSIPeriod},
		{"indicators.macd_fast", ind.MACDFast},
		{"indicators.macd_slow", ind.MACDSlow},
		{"indicators.macd_signal", ind.MACDSignal},
		{"indicators.bb_period", ind.BBPeriod},
		{"indicators.atr_period", ind.ATRPeriod},
		{"indicators.stoch_k", ind.StochK},
		{"indicators.stoch_smooth", ind.StochSmooth},
		{"indicators.stoch_d", ind.StochD},
		{"indicators.adx_period", ind.ADXPeriod},
		{"levels.pivot_window", c.Levels.PivotWindow},
		{"levels.min_touches", c.Levels.MinTouches},
		{"flow.lookback", c.Flow.Lookback},
		{"flow.volume_ma_period", c.Flow.VolumeMAPeriod},
	}
	for _, p := range periods {
		if p.value <= 0 {
			return apperrors.NewValidationError(p.name, p.value, "must be positive")
		}
	}
	if ind.EMAFast >= ind.EMASlow {
		return apperrors.NewValidationError("indicators.ema_fast", ind.EMAFast, "must be shorter than ema_slow")
	}
	if ind.MACDFast >= ind.MACDSlow {
		return apperrors.NewValidationError("indicators.macd_fast", ind.MACDFast, "must be shorter than macd_slow")
	}
	if ind.BBStdDev <= 0 {
		return apperrors.NewValidationError("indicators.bb_std_dev", ind.BBStdDev, "must be positive")
	}
	if ind.RSIOversold <= 0 || ind.RSIOverbought >= 100 || ind.RSIOversold >= ind.RSIOverbought {
		return apperrors.NewValidationError("indicators.rsi_oversold", ind.RSIOversold, "must satisfy 0 < oversold < overbought < 100")
	}

	pat := c.Patterns
	for name, value := range map[string]float64{
		"patterns.doji_body_ratio":        pat.DojiBodyRatio,
		"patterns.hammer_max_body_ratio":  pat.HammerMaxBodyRatio,
		"patterns.soldier_min_body_ratio": pat.SoldierMinBodyRatio,
		"patterns.pin_bar_wick_ratio":     pat.PinBarWickRatio,
		"patterns.tweezer_tolerance":      pat.TweezerTolerance,
	} {
		if value <= 0 || value >= 1 {
			return apperrors.NewValidationError(name, value, "must be between 0 and 1")
		}
	}
	if pat.HammerWickRatio <= 0 || pat.HammerMaxShadow <= 0 || pat.StarBodyRatio <= 0 {
		return apperrors.NewValidationError("patterns", pat, "wick and star ratios must be positive")
	}

	if c.Levels.Tolerance <= 0 || c.Levels.Tolerance >= 0.1 {
		return apperrors.NewValidationError("levels.tolerance", c.Levels.Tolerance, "must be between 0 and 0.1")
	}
	if c.Levels.Lookback < 0 {
		return apperrors.NewValidationError("levels.lookback", c.Levels.Lookback, "must be non-negative")
	}

	tr := c.Trend
	if tr.EMAWeight < 0 || tr.SMAWeight < 0 || tr.ADXWeight < 0 || tr.EMAWeight+tr.SMAWeight+tr.ADXWeight <= 0 {
		return apperrors.NewValidationError("trend", tr, "vote weights must be non-negative and not all zero")
	}
	if tr.DirectionThreshold <= 0 || tr.DirectionThreshold >= 1 {
		return apperrors.NewValidationError("trend.direction_threshold", tr.DirectionThreshold, "must be between 0 and 1")
	}
	if tr.NeutralBand < 0 || tr.ADXThreshold < 0 || tr.ADXThreshold > 100 {
		return apperrors.NewValidationError("trend", tr, "neutral_band and adx_threshold out of range")
	}

	if c.Flow.SpikeMultiplier <= 1 {
		return apperrors.NewValidationError("flow.spike_multiplier", c.Flow.SpikeMultiplier, "must be greater than 1")
	}
	if c.Flow.VWAPBand < 0 || c.Flow.OBVSlopeThreshold < 0 {
		return apperrors.NewValidationError("flow", c.Flow, "vwap_band and obv_slope_threshold must be non-negative")
	}

	w := c.Scoring.Weights
	for name, value := range map[string]float64{
		"scoring.weights.trend":    w.Trend,
		"scoring.weights.momentum": w.Momentum,
		"scoring.weights.volume":   w.Volume,
		"scoring.weights.levels":   w.Levels,
		"scoring.weights.patterns": w.Patterns,
	} {
		if value < 0 {
			return apperrors.NewValidationError(name, value, "must be non-negative")
		}
	}
	if math.Abs(w.Sum()-1) > 1e-6 {
		return apperrors.NewValidationError("scoring.weights", w.Sum(), "must sum to 1")
	}
	if c.Scoring.ConfidenceGain <= 0 || c.Scoring.SpikeAmplifier < 1 || c.Scoring.LevelProximityATR <= 0 || c.Scoring.StochMinRange <= 0 {
		return apperrors.NewValidationError("scoring", c.Scoring, "gain, amplifier, proximity and stochastic range must be positive")
	}

	sc := c.Scenario
	if sc.MinRiskReward <= 0 {
		return apperrors.NewValidationError("scenario.min_risk_reward", sc.MinRiskReward, "must be positive")
	}
	if sc.TargetATR <= 0 || sc.StopATR <= 0 || sc.MaxLevelDistance <= 0 || sc.BreakoutProximity < 0 {
		return apperrors.NewValidationError("scenario", sc, "ATR multiples and distances must be positive")
	}
	if sc.RiskRewardCap < sc.MinRiskReward {
		return apperrors.NewValidationError("scenario.risk_reward_cap", sc.RiskRewardCap, "must be at least min_risk_reward")
	}
	if sc.AlignmentWeight < 0 || sc.AlignmentWeight > 1 {
		return apperrors.NewValidationError("scenario.alignment_weight", sc.AlignmentWeight, "must be between 0 and 1")
	}

	if c.Feed.RequestsPerSecond <= 0 || c.Feed.Burst <= 0 {
		return apperrors.NewValidationError("feed.requests_per_second", c.Feed.RequestsPerSecond, "rate and burst must be positive")
	}
	if c.Feed.MaxRetries < 0 {
		return apperrors.NewValidationError("feed.max_retries", c.Feed.MaxRetries, "must be non-negative")
	}
	if c.Analysis.Lookback < ind.LongestLookback() {
		return apperrors.NewValidationError("analysis.lookback", c.Analysis.Lookback, fmt.Sprintf("must cover the longest indicator lookback (%d)", ind.LongestLookback()))
	}

	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return apperrors.NewValidationError("telegram.bot_token", "", "required when telegram is enabled")
	}

	return nil
}

// AnalysisConfig returns the value object handed to the analysis core.
func (c *Config) AnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		PrimaryTimeframe: models.Timeframe(c.Analysis.PrimaryTimeframe),
		Workers:          c.Analysis.Workers,
		Indicators:       c.Indicators,
		Patterns:         c.Patterns,
		Levels:           c.Levels,
		Trend:            c.Trend,
		Flow:             c.Flow,
		Scoring:          c.Scoring,
		Scenario:         c.Scenario,
	}
}
