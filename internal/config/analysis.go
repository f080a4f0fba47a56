package config

import "marketpulse/internal/models"

// AnalysisConfig is the read-only parameter set handed to the analysis core for one run.
type AnalysisConfig struct {
	PrimaryTimeframe models.Timeframe
	Workers          int
	Indicators       IndicatorParams
	Patterns         PatternParams
	Levels           LevelParams
	Trend            TrendParams
	Flow             FlowParams
	Scoring          ScoringParams
	Scenario         ScenarioParams
}

// IndicatorParams holds indicator periods.
type IndicatorParams struct {
	SMAFast          int     `mapstructure:"sma_fast"`
	SMAMid           int     `mapstructure:"sma_mid"`
	SMASlow          int     `mapstructure:"sma_slow"`
	EMAFast          int     `mapstructure:"ema_fast"`
	EMASlow          int     `mapstructure:"ema_slow"`
	RSIPeriod        int     `mapstructure:"rsi_period"`
	RSIOverbought    float64 `mapstructure:"rsi_overbought"`
	RSIOversold      float64 `mapstructure:"rsi_oversold"`
	MACDFast         int     `mapstructure:"macd_fast"`
	MACDSlow         int     `mapstructure:"macd_slow"`
	MACDSignal       int     `mapstructure:"macd_signal"`
	BBPeriod         int     `mapstructure:"bb_period"`
	BBStdDev         float64 `mapstructure:"bb_std_dev"`
	ATRPeriod        int     `mapstructure:"atr_period"`
	StochK           int     `mapstructure:"stoch_k"`
	StochSmooth      int     `mapstructure:"stoch_smooth"`
	StochD           int     `mapstructure:"stoch_d"`
	ADXPeriod        int     `mapstructure:"adx_period"`
	VWAPSessionReset bool    `mapstructure:"vwap_session_reset"`
}

// PatternParams holds candlestick geometry thresholds.
type PatternParams struct {
	DojiBodyRatio       float64 `mapstructure:"doji_body_ratio"`        // body/range at or below which a candle is a doji
	HammerWickRatio     float64 `mapstructure:"hammer_wick_ratio"`      // long wick as a multiple of body
	HammerMaxShadow     float64 `mapstructure:"hammer_max_shadow"`      // short wick as a multiple of body
	HammerMaxBodyRatio  float64 `mapstructure:"hammer_max_body_ratio"`  // body/range ceiling
	StarBodyRatio       float64 `mapstructure:"star_body_ratio"`        // outer bodies vs middle body
	SoldierMinBodyRatio float64 `mapstructure:"soldier_min_body_ratio"` // body/range floor for each candle
	PinBarWickRatio     float64 `mapstructure:"pin_bar_wick_ratio"`     // dominant wick/range floor
	TweezerTolerance    float64 `mapstructure:"tweezer_tolerance"`      // extreme mismatch as a fraction of range
}

// LevelParams controls support/resistance detection.
type LevelParams struct {
	PivotWindow int     `mapstructure:"pivot_window"`
	Tolerance   float64 `mapstructure:"tolerance"`
	MinTouches  int     `mapstructure:"min_touches"`
	Lookback    int     `mapstructure:"lookback"`
}

// TrendParams controls the per-timeframe trend vote.
type TrendParams struct {
	EMAWeight          float64 `mapstructure:"ema_weight"`
	SMAWeight          float64 `mapstructure:"sma_weight"`
	ADXWeight          float64 `mapstructure:"adx_weight"`
	ADXThreshold       float64 `mapstructure:"adx_threshold"`
	NeutralBand        float64 `mapstructure:"neutral_band"`
	DirectionThreshold float64 `mapstructure:"direction_threshold"`
}

// FlowParams controls money-flow analysis.
type FlowParams struct {
	Lookback          int     `mapstructure:"lookback"`
	OBVSlopeThreshold float64 `mapstructure:"obv_slope_threshold"`
	VWAPBand          float64 `mapstructure:"vwap_band"`
	SpikeMultiplier   float64 `mapstructure:"spike_multiplier"`
	VolumeMAPeriod    int     `mapstructure:"volume_ma_period"`
}

// Weights are the composite sub-score weights. They must sum to 1.
type Weights struct {
	Trend    float64 `mapstructure:"trend"`
	Momentum float64 `mapstructure:"momentum"`
	Volume   float64 `mapstructure:"volume"`
	Levels   float64 `mapstructure:"levels"`
	Patterns float64 `mapstructure:"patterns"`
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Trend + w.Momentum + w.Volume + w.Levels + w.Patterns
}

// ScoringParams controls the composite scorer.
type ScoringParams struct {
	Weights           Weights `mapstructure:"weights"`
	ConfidenceGain    float64 `mapstructure:"confidence_gain"`
	SpikeAmplifier    float64 `mapstructure:"spike_amplifier"`
	LevelProximityATR float64 `mapstructure:"level_proximity_atr"`
	StochMinRange     float64 `mapstructure:"stoch_min_range"`
}

// ScenarioParams controls trade scenario generation.
type ScenarioParams struct {
	TargetATR         float64 `mapstructure:"target_atr"`
	StopATR           float64 `mapstructure:"stop_atr"`
	MaxLevelDistance  float64 `mapstructure:"max_level_distance"`
	BreakoutProximity float64 `mapstructure:"breakout_proximity"`
	MinRiskReward     float64 `mapstructure:"min_risk_reward"`
	RiskRewardCap     float64 `mapstructure:"risk_reward_cap"`
	AlignmentWeight   float64 `mapstructure:"alignment_weight"`
}

// DefaultAnalysisConfig returns the stock calibration.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		PrimaryTimeframe: models.Timeframe15m,
		Workers:          4,
		Indicators: IndicatorParams{
			SMAFast:          9,
			SMAMid:           21,
			SMASlow:          50,
			EMAFast:          12,
			EMASlow:          26,
			RSIPeriod:        14,
			RSIOverbought:    70,
			RSIOversold:      30,
			MACDFast:         12,
			MACDSlow:         26,
			MACDSignal:       9,
			BBPeriod:         20,
			BBStdDev:         2.0,
			ATRPeriod:        14,
			StochK:           14,
			StochSmooth:      3,
			StochD:           3,
			ADXPeriod:        14,
			VWAPSessionReset: true,
		},
		Patterns: PatternParams{
			DojiBodyRatio:       0.10,
			HammerWickRatio:     2.0,
			HammerMaxShadow:     0.5,
			HammerMaxBodyRatio:  0.35,
			StarBodyRatio:       2.0,
			SoldierMinBodyRatio: 0.5,
			PinBarWickRatio:     0.66,
			TweezerTolerance:    0.05,
		},
		Levels: LevelParams{
			PivotWindow: 3,
			Tolerance:   0.005,
			MinTouches:  2,
			Lookback:    100,
		},
		Trend: TrendParams{
			EMAWeight:          0.4,
			SMAWeight:          0.3,
			ADXWeight:          0.3,
			ADXThreshold:       20,
			NeutralBand:        0.002,
			DirectionThreshold: 0.2,
		},
		Flow: FlowParams{
			Lookback:          10,
			OBVSlopeThreshold: 0.1,
			VWAPBand:          0.001,
			SpikeMultiplier:   1.5,
			VolumeMAPeriod:    20,
		},
		Scoring: ScoringParams{
			Weights: Weights{
				Trend:    0.25,
				Momentum: 0.25,
				Volume:   0.20,
				Levels:   0.15,
				Patterns: 0.15,
			},
			ConfidenceGain:    1.5,
			SpikeAmplifier:    1.25,
			LevelProximityATR: 1.5,
			StochMinRange:     0.01,
		},
		Scenario: ScenarioParams{
			TargetATR:         3.0,
			StopATR:           1.5,
			MaxLevelDistance:  0.10,
			BreakoutProximity: 0.005,
			MinRiskReward:     1.5,
			RiskRewardCap:     5.0,
			AlignmentWeight:   0.6,
		},
	}
}

// LongestLookback returns the largest candle count any configured indicator needs.
func (p IndicatorParams) LongestLookback() int {
	longest := 0
	for _, n := range []int{
		p.SMAFast, p.SMAMid, p.SMASlow, p.EMAFast, p.EMASlow,
		p.RSIPeriod + 1, p.MACDSlow + p.MACDSignal - 1, p.BBPeriod,
		p.ATRPeriod, p.StochK + p.StochSmooth + p.StochD - 2, 2 * p.ADXPeriod,
	} {
		if n > longest {
			longest = n
		}
	}
	return longest
}
