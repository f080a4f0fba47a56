// Package report turns analysis results into the views users see: a
// serializable summary, Telegram HTML and a styled terminal report.
package report

import (
	"math"
	"sort"
	"strings"
	"time"

	"marketpulse/internal/analysis"
	"marketpulse/internal/analysis/indicators"
	"marketpulse/internal/analysis/session"
)

// Summary is the flattened, display-ready form of an analysis result.
// Pointer fields are nil when the underlying value is unavailable.
type Summary struct {
	Symbol     string           `json:"symbol" yaml:"symbol"`
	Timeframe  string           `json:"timeframe" yaml:"timeframe"`
	AsOf       time.Time        `json:"as_of" yaml:"as_of"`
	Price      float64          `json:"price" yaml:"price"`
	Verdict    string           `json:"verdict" yaml:"verdict"`
	Score      float64          `json:"score" yaml:"score"`
	Confidence float64          `json:"confidence" yaml:"confidence"`
	Breakdown  []ComponentLine  `json:"breakdown" yaml:"breakdown"`
	Indicators IndicatorSummary `json:"indicators" yaml:"indicators"`
	Trend      TrendSummary     `json:"trend" yaml:"trend"`
	Levels     LevelSummary     `json:"levels" yaml:"levels"`
	Flow       FlowSummary      `json:"money_flow" yaml:"money_flow"`
	Patterns   []PatternLine    `json:"patterns" yaml:"patterns"`
	Scenarios  []ScenarioLine   `json:"scenarios" yaml:"scenarios"`
	Range      *RangeLine       `json:"range,omitempty" yaml:"range,omitempty"`
	Session    SessionSummary   `json:"session" yaml:"session"`
	Missing    []string         `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
}

// ComponentLine is one sub-score of the composite.
type ComponentLine struct {
	Component       string  `json:"component" yaml:"component"`
	Score           float64 `json:"score" yaml:"score"`
	Weight          float64 `json:"weight" yaml:"weight"`
	EffectiveWeight float64 `json:"effective_weight" yaml:"effective_weight"`
	Points          float64 `json:"points" yaml:"points"` // score * effective weight * 100
	Available       bool    `json:"available" yaml:"available"`
}

// IndicatorSummary holds the latest primary-timeframe indicator values.
type IndicatorSummary struct {
	RSI           *float64 `json:"rsi,omitempty" yaml:"rsi,omitempty"`
	MACD          *float64 `json:"macd,omitempty" yaml:"macd,omitempty"`
	MACDSignal    *float64 `json:"macd_signal,omitempty" yaml:"macd_signal,omitempty"`
	MACDHistogram *float64 `json:"macd_histogram,omitempty" yaml:"macd_histogram,omitempty"`
	MACDMomentum  string   `json:"macd_momentum,omitempty" yaml:"macd_momentum,omitempty"` // histogram "rising" or "falling" against the prior candle
	StochK        *float64 `json:"stoch_k,omitempty" yaml:"stoch_k,omitempty"`
	StochD        *float64 `json:"stoch_d,omitempty" yaml:"stoch_d,omitempty"`
	PercentB      *float64 `json:"bb_percent_b,omitempty" yaml:"bb_percent_b,omitempty"`
	BandWidthPct  *float64 `json:"bb_width_pct,omitempty" yaml:"bb_width_pct,omitempty"`
	ATR           *float64 `json:"atr,omitempty" yaml:"atr,omitempty"`
	ATRPct        *float64 `json:"atr_pct,omitempty" yaml:"atr_pct,omitempty"`
	ADX           *float64 `json:"adx,omitempty" yaml:"adx,omitempty"`
	VWAP          *float64 `json:"vwap,omitempty" yaml:"vwap,omitempty"`
	EMAFast       *float64 `json:"ema_fast,omitempty" yaml:"ema_fast,omitempty"`
	EMASlow       *float64 `json:"ema_slow,omitempty" yaml:"ema_slow,omitempty"`
	SMASlow       *float64 `json:"sma_slow,omitempty" yaml:"sma_slow,omitempty"`
}

// TrendSummary is the per-timeframe trend plus its confluence.
type TrendSummary struct {
	Timeframes []TrendLine `json:"timeframes" yaml:"timeframes"`
	Direction  string      `json:"direction" yaml:"direction"`
	Strength   float64     `json:"strength" yaml:"strength"`
	Agreement  string      `json:"agreement" yaml:"agreement"`
}

// TrendLine is the trend verdict for one timeframe.
type TrendLine struct {
	Timeframe string   `json:"timeframe" yaml:"timeframe"`
	Direction string   `json:"direction" yaml:"direction"`
	Strength  float64  `json:"strength" yaml:"strength"`
	ADX       *float64 `json:"adx,omitempty" yaml:"adx,omitempty"`
	Available bool     `json:"available" yaml:"available"`
}

// LevelSummary holds the two nearest levels on each side.
type LevelSummary struct {
	R2            *LevelLine `json:"r2,omitempty" yaml:"r2,omitempty"`
	R1            *LevelLine `json:"r1,omitempty" yaml:"r1,omitempty"`
	S1            *LevelLine `json:"s1,omitempty" yaml:"s1,omitempty"`
	S2            *LevelLine `json:"s2,omitempty" yaml:"s2,omitempty"`
	RangeHigh     float64    `json:"range_high" yaml:"range_high"`
	RangeLow      float64    `json:"range_low" yaml:"range_low"`
	RangePosition *float64   `json:"range_position,omitempty" yaml:"range_position,omitempty"`
	Available     bool       `json:"available" yaml:"available"`
}

// LevelLine is one support or resistance level.
type LevelLine struct {
	Price       float64 `json:"price" yaml:"price"`
	Touches     int     `json:"touches" yaml:"touches"`
	DistancePct float64 `json:"distance_pct" yaml:"distance_pct"`
}

// FlowSummary is the money-flow picture.
type FlowSummary struct {
	Label        string  `json:"label" yaml:"label"`
	BuyPct       float64 `json:"buy_pct" yaml:"buy_pct"`
	SellPct      float64 `json:"sell_pct" yaml:"sell_pct"`
	OBVTrend     string  `json:"obv_trend" yaml:"obv_trend"`
	VWAPPosition string  `json:"vwap_position" yaml:"vwap_position"`
	VolumeRatio  float64 `json:"volume_ratio" yaml:"volume_ratio"`
	VolumeSpike  bool    `json:"volume_spike" yaml:"volume_spike"`
	VolumeTrend  string  `json:"volume_trend" yaml:"volume_trend"`
	Available    bool    `json:"available" yaml:"available"`
}

// PatternLine is one detected candlestick pattern.
type PatternLine struct {
	Name     string  `json:"name" yaml:"name"`
	Bias     string  `json:"bias" yaml:"bias"`
	Strength float64 `json:"strength" yaml:"strength"`
	BarsAgo  int     `json:"bars_ago" yaml:"bars_ago"`
}

// ScenarioLine is one ranked trade setup.
type ScenarioLine struct {
	Rank        int      `json:"rank" yaml:"rank"`
	Kind        string   `json:"kind" yaml:"kind"`
	Trigger     string   `json:"trigger" yaml:"trigger"`
	TriggerAt   float64  `json:"trigger_price" yaml:"trigger_price"`
	Entry       float64  `json:"entry" yaml:"entry"`
	Target      float64  `json:"target" yaml:"target"`
	Stop        float64  `json:"stop" yaml:"stop"`
	RiskReward  float64  `json:"risk_reward" yaml:"risk_reward"`
	Probability string   `json:"probability" yaml:"probability"`
	Signals     []string `json:"signals" yaml:"signals"`
}

// RangeLine is the fade plan between the nearest support and resistance.
type RangeLine struct {
	Support     float64  `json:"support" yaml:"support"`
	Resistance  float64  `json:"resistance" yaml:"resistance"`
	LongStop    float64  `json:"long_stop" yaml:"long_stop"`
	ShortStop   float64  `json:"short_stop" yaml:"short_stop"`
	WidthATR    float64  `json:"width_atr" yaml:"width_atr"`
	ADX         *float64 `json:"adx,omitempty" yaml:"adx,omitempty"`
	Probability string   `json:"probability" yaml:"probability"`
}

// SessionSummary is the trading session context at report time.
type SessionSummary struct {
	Active         string `json:"active" yaml:"active"`
	Volatility     string `json:"volatility" yaml:"volatility"`
	NextSession    string `json:"next_session" yaml:"next_session"`
	HoursUntilNext int    `json:"hours_until_next" yaml:"hours_until_next"`
	Note           string `json:"note" yaml:"note"`
}

// Build flattens a result into a Summary.
func Build(r analysis.Result, names indicators.Names, sess session.Context) Summary {
	snap := r.PrimarySnapshot()

	s := Summary{
		Symbol:     r.Symbol,
		Timeframe:  string(r.PrimaryTimeframe),
		AsOf:       r.AsOf,
		Price:      r.Price,
		Verdict:    string(r.Score.Verdict),
		Score:      r.Score.Value,
		Confidence: r.Score.Confidence,
		Indicators: buildIndicators(snap, names, r.Price),
		Trend:      buildTrend(r, names),
		Levels:     buildLevels(r.Levels, r.Price),
		Flow: FlowSummary{
			Label:        string(r.MoneyFlow.Label),
			BuyPct:       r.MoneyFlow.BuyPressure,
			SellPct:      r.MoneyFlow.SellPressure,
			OBVTrend:     string(r.MoneyFlow.OBVTrend),
			VWAPPosition: string(r.MoneyFlow.VWAPPosition),
			VolumeRatio:  r.MoneyFlow.VolumeRatio,
			VolumeSpike:  r.MoneyFlow.VolumeSpike,
			VolumeTrend:  string(r.MoneyFlow.VolumeTrend),
			Available:    r.MoneyFlow.Available,
		},
		Session: SessionSummary{
			Active:         sess.Label(),
			Volatility:     string(sess.Volatility),
			NextSession:    sess.NextSession,
			HoursUntilNext: sess.HoursUntilNext,
			Note:           sess.Note,
		},
		Missing: snap.Unavailable(),
	}

	for _, c := range r.Score.Contributions {
		s.Breakdown = append(s.Breakdown, ComponentLine{
			Component:       string(c.Component),
			Score:           c.Score,
			Weight:          c.Weight,
			EffectiveWeight: c.EffectiveWeight,
			Points:          c.Score * c.EffectiveWeight * 100,
			Available:       c.Available,
		})
	}

	last := r.Bars - 1
	patterns := append([]analysis.PatternMatch(nil), r.Patterns...)
	sort.SliceStable(patterns, func(i, j int) bool { return patterns[i].EndIndex > patterns[j].EndIndex })
	for _, p := range patterns {
		s.Patterns = append(s.Patterns, PatternLine{
			Name:     p.Name,
			Bias:     string(p.Bias),
			Strength: p.Strength,
			BarsAgo:  last - p.EndIndex,
		})
	}

	for _, sc := range r.Scenarios {
		s.Scenarios = append(s.Scenarios, ScenarioLine{
			Rank:        sc.Rank,
			Kind:        string(sc.Kind),
			Trigger:     string(sc.Condition.Trigger),
			TriggerAt:   sc.Condition.Price,
			Entry:       sc.Entry,
			Target:      sc.Target,
			Stop:        sc.Stop,
			RiskReward:  sc.RiskReward.Value,
			Probability: string(sc.Probability),
			Signals:     sc.Condition.Signals,
		})
	}

	if rg := r.Range; rg.Available {
		line := &RangeLine{
			Support:     rg.Support,
			Resistance:  rg.Resistance,
			LongStop:    rg.LongStop,
			ShortStop:   rg.ShortStop,
			WidthATR:    rg.WidthATR,
			Probability: string(rg.Probability),
		}
		if !math.IsNaN(rg.ADX) {
			adx := rg.ADX
			line.ADX = &adx
		}
		s.Range = line
	}

	return s
}

func buildIndicators(snap indicators.Snapshot, names indicators.Names, price float64) IndicatorSummary {
	value := func(name string) *float64 {
		if v, ok := snap.Value(name); ok {
			return &v
		}
		return nil
	}
	field := func(name, key string) *float64 {
		if v, ok := snap.Field(name, key); ok {
			return &v
		}
		return nil
	}
	pct := func(v *float64) *float64 {
		if v == nil || price <= 0 {
			return nil
		}
		p := *v / price * 100
		return &p
	}

	ind := IndicatorSummary{
		RSI:           value(names.RSI),
		MACD:          field(names.MACD, "macd"),
		MACDSignal:    field(names.MACD, "signal"),
		MACDHistogram: field(names.MACD, "histogram"),
		StochK:        field(names.Stochastic, "percent_k"),
		StochD:        field(names.Stochastic, "percent_d"),
		PercentB:      field(names.Bollinger, "percent_b"),
		ATR:           value(names.ATR),
		ADX:           field(names.ADX, "adx"),
		VWAP:          value(names.VWAP),
		EMAFast:       value(names.EMAFast),
		EMASlow:       value(names.EMASlow),
		SMASlow:       value(names.SMASlow),
	}
	if bw := field(names.Bollinger, "bandwidth"); bw != nil {
		w := *bw * 100
		ind.BandWidthPct = &w
	}
	ind.ATRPct = pct(ind.ATR)
	ind.MACDMomentum = histogramMomentum(snap, names.MACD)
	return ind
}

func buildTrend(r analysis.Result, names indicators.Names) TrendSummary {
	t := TrendSummary{
		Direction: string(r.Confluence.Direction),
		Strength:  r.Confluence.Strength,
		Agreement: string(r.Confluence.Agreement),
	}
	for i, st := range r.Confluence.Timeframes {
		line := TrendLine{
			Timeframe: string(st.Timeframe),
			Direction: string(st.Direction),
			Strength:  st.Strength,
			Available: st.Available,
		}
		if adx, ok := r.SnapshotAt(i).Field(names.ADX, "adx"); ok {
			line.ADX = &adx
		}
		t.Timeframes = append(t.Timeframes, line)
	}
	return t
}

func buildLevels(set analysis.LevelSet, price float64) LevelSummary {
	l := LevelSummary{
		RangeHigh: set.RangeHigh,
		RangeLow:  set.RangeLow,
		Available: set.Available,
	}
	line := func(levels []analysis.Level, i int) *LevelLine {
		if i >= len(levels) {
			return nil
		}
		return &LevelLine{Price: levels[i].Price, Touches: levels[i].TouchCount, DistancePct: levels[i].Distance * 100}
	}
	l.R1, l.R2 = line(set.Resistance, 0), line(set.Resistance, 1)
	l.S1, l.S2 = line(set.Support, 0), line(set.Support, 1)
	if pos, ok := set.RangePosition(price); ok {
		l.RangePosition = &pos
	}
	return l
}

func histogramMomentum(snap indicators.Snapshot, macd string) string {
	reading, ok := snap.Get(macd)
	if !ok {
		return ""
	}
	cur, ok1 := reading.Value("histogram")
	prev, ok2 := reading.Prev("histogram")
	switch {
	case !ok1 || !ok2:
		return ""
	case cur > prev:
		return "rising"
	case cur < prev:
		return "falling"
	}
	return ""
}

// VerdictLabel renders a verdict for display, e.g. "STRONG BUY".
func VerdictLabel(v string) string {
	return strings.ReplaceAll(v, "_", " ")
}
