// Package analysis defines the value types produced by one analysis run:
// pattern matches, levels, trend confluence, money flow, the composite
// signal score and trade scenarios.
package analysis

import (
	"time"

	"marketpulse/internal/analysis/indicators"
	"marketpulse/internal/models"
)

// Bias represents the expected direction implied by a signal.
type Bias string

const (
	Bullish Bias = "bullish"
	Bearish Bias = "bearish"
	Neutral Bias = "neutral"
)

// Sign returns +1 for bullish, -1 for bearish and 0 otherwise.
func (b Bias) Sign() float64 {
	switch b {
	case Bullish:
		return 1
	case Bearish:
		return -1
	default:
		return 0
	}
}

// PatternMatch is one candlestick pattern found in the trailing candles.
type PatternMatch struct {
	Name       string
	StartIndex int
	EndIndex   int
	Bias       Bias
	Strength   float64 // 0..1, grows with the margin past the qualifying threshold
}

// LevelKind represents the type of price level.
type LevelKind string

const (
	Support    LevelKind = "support"
	Resistance LevelKind = "resistance"
)

// Level represents a support or resistance zone built from clustered pivots.
type Level struct {
	Price        float64
	Kind         LevelKind
	TouchCount   int
	VolumeWeight float64 // absorbed volume / total series volume
	Distance     float64 // |price - current| / current
}

// LevelSet holds detected levels split by side, each ordered nearest first.
type LevelSet struct {
	Support    []Level
	Resistance []Level
	RangeHigh  float64
	RangeLow   float64
	Available  bool
}

// NearestSupport returns the closest support level.
func (s LevelSet) NearestSupport() (Level, bool) {
	if len(s.Support) == 0 {
		return Level{}, false
	}
	return s.Support[0], true
}

// NearestResistance returns the closest resistance level.
func (s LevelSet) NearestResistance() (Level, bool) {
	if len(s.Resistance) == 0 {
		return Level{}, false
	}
	return s.Resistance[0], true
}

// RangePosition returns where price sits inside the scanned range, 0..100.
func (s LevelSet) RangePosition(price float64) (float64, bool) {
	width := s.RangeHigh - s.RangeLow
	if width <= 0 {
		return 0, false
	}
	pos := (price - s.RangeLow) / width * 100
	if pos < 0 {
		pos = 0
	}
	if pos > 100 {
		pos = 100
	}
	return pos, true
}

// Direction is a trend direction.
type Direction string

const (
	Up       Direction = "up"
	Down     Direction = "down"
	Sideways Direction = "sideways"
)

// Sign returns +1 for up, -1 for down and 0 for sideways.
func (d Direction) Sign() float64 {
	switch d {
	case Up:
		return 1
	case Down:
		return -1
	default:
		return 0
	}
}

// TrendState is the trend verdict for one timeframe.
type TrendState struct {
	Timeframe models.Timeframe
	Direction Direction
	Strength  float64 // 0..1
	Vote      float64 // raw weighted vote, -1..1
	Available bool
}

// Agreement classifies how the timeframes line up.
type Agreement string

const (
	AllAgree   Agreement = "all-agree"
	Majority   Agreement = "majority"
	Conflicted Agreement = "conflicted"
)

// Confluence is the combined trend verdict across timeframes.
type Confluence struct {
	Direction  Direction
	Strength   float64
	Agreement  Agreement
	Timeframes []TrendState
}

// Available reports whether at least one timeframe produced a trend state.
func (c Confluence) Available() bool {
	for _, tf := range c.Timeframes {
		if tf.Available {
			return true
		}
	}
	return false
}

// OBVTrend is the direction of on-balance volume.
type OBVTrend string

const (
	OBVRising  OBVTrend = "rising"
	OBVFalling OBVTrend = "falling"
	OBVFlat    OBVTrend = "flat"
)

// VWAPPosition is where price sits relative to VWAP.
type VWAPPosition string

const (
	AboveVWAP   VWAPPosition = "above"
	BelowVWAP   VWAPPosition = "below"
	AtVWAP      VWAPPosition = "at"
	UnknownVWAP VWAPPosition = "unknown"
)

// FlowLabel summarises money flow for display.
type FlowLabel string

const (
	StrongInflow  FlowLabel = "strong_inflow"
	Inflow        FlowLabel = "inflow"
	NeutralFlow   FlowLabel = "neutral"
	Outflow       FlowLabel = "outflow"
	StrongOutflow FlowLabel = "strong_outflow"
)

// VolumeTrend compares recent volume against the preceding window.
type VolumeTrend string

const (
	VolumeIncreasing VolumeTrend = "increasing"
	VolumeDecreasing VolumeTrend = "decreasing"
	VolumeStable     VolumeTrend = "stable"
)

// MoneyFlowState describes buying versus selling pressure.
type MoneyFlowState struct {
	BuyPressure  float64 // percent of volume on candles closing above open
	SellPressure float64 // percent of volume on candles closing below open
	FlatPressure float64 // percent of volume on candles closing at open
	OBVTrend     OBVTrend
	OBVSlope     float64 // per-candle OBV slope in units of average volume
	VWAP         float64
	VWAPPosition VWAPPosition
	VolumeSpike  bool
	VolumeRatio  float64 // last volume / trailing average, 0 when unknown
	VolumeTrend  VolumeTrend
	Label        FlowLabel
	Available    bool
}

// Component identifies one composite sub-score.
type Component string

const (
	ComponentTrend    Component = "trend"
	ComponentMomentum Component = "momentum"
	ComponentVolume   Component = "volume"
	ComponentLevels   Component = "levels"
	ComponentPatterns Component = "patterns"
)

// Components lists the sub-scores in reporting order.
var Components = []Component{ComponentTrend, ComponentMomentum, ComponentVolume, ComponentLevels, ComponentPatterns}

// Contribution is one sub-score and the weight it carried.
type Contribution struct {
	Component       Component
	Score           float64 // -1..1
	Weight          float64 // configured weight
	EffectiveWeight float64 // weight after redistribution, 0 when unavailable
	Available       bool
}

// Verdict is the human label attached to a score.
type Verdict string

const (
	StrongBuy  Verdict = "STRONG_BUY"
	Buy        Verdict = "BUY"
	LeanBuy    Verdict = "LEAN_BUY"
	Hold       Verdict = "NEUTRAL"
	LeanSell   Verdict = "LEAN_SELL"
	Sell       Verdict = "SELL"
	StrongSell Verdict = "STRONG_SELL"
)

// SignalScore is the fused directional score.
type SignalScore struct {
	Value         float64 // -100..100
	Confidence    float64 // 0..100
	Verdict       Verdict
	Contributions []Contribution
}

// Contribution returns the entry for one component.
func (s SignalScore) Contribution(c Component) (Contribution, bool) {
	for _, contrib := range s.Contributions {
		if contrib.Component == c {
			return contrib, true
		}
	}
	return Contribution{}, false
}

// ScenarioKind names a trade setup.
type ScenarioKind string

const (
	ScenarioBullish   ScenarioKind = "bullish"
	ScenarioBearish   ScenarioKind = "bearish"
	ScenarioBreakout  ScenarioKind = "breakout"
	ScenarioBreakdown ScenarioKind = "breakdown"
)

// Bias returns the trade direction of the scenario kind.
func (k ScenarioKind) Bias() Bias {
	switch k {
	case ScenarioBullish, ScenarioBreakout:
		return Bullish
	default:
		return Bearish
	}
}

// Trigger is the price event that activates a scenario.
type Trigger string

const (
	HoldAbove  Trigger = "hold_above"
	HoldBelow  Trigger = "hold_below"
	CloseAbove Trigger = "close_above"
	CloseBelow Trigger = "close_below"
)

// Signal codes that confirm a scenario trigger.
const (
	SignalRSIRising      = "rsi_rising"
	SignalRSIFalling     = "rsi_falling"
	SignalMACDBullish    = "macd_bullish"
	SignalMACDBearish    = "macd_bearish"
	SignalVWAPReclaim    = "vwap_reclaim"
	SignalVWAPLoss       = "vwap_loss"
	SignalVolumeExpands  = "volume_expands"
	SignalTrendAlignedUp = "trend_aligned_up"
	SignalTrendAlignedDn = "trend_aligned_down"
)

// Condition is the IF clause of a scenario.
type Condition struct {
	Trigger Trigger
	Price   float64
	Signals []string
}

// RiskReward is reward distance over risk distance. It is undefined when entry equals stop.
type RiskReward struct {
	Value   float64
	Defined bool
}

// Probability is a coarse label derived from the scenario ranking score.
type Probability string

const (
	ProbabilityHigh   Probability = "high"
	ProbabilityMedium Probability = "medium"
	ProbabilityLow    Probability = "low"
)

// Scenario is one IF/THEN trade setup.
type Scenario struct {
	Kind        ScenarioKind
	Condition   Condition
	Entry       float64
	Target      float64
	Stop        float64
	RiskReward  RiskReward
	TargetBasis string // "level" or "atr"
	StopBasis   string
	RankScore   float64 // 0..1
	Rank        int     // 1 is best
	Probability Probability
}

// RangePlan fades the extremes between the nearest support and resistance.
// It has an entry on each side, so it is reported beside the ranked
// scenarios rather than among them.
type RangePlan struct {
	Support     float64
	Resistance  float64
	LongStop    float64 // below support
	ShortStop   float64 // above resistance
	WidthATR    float64 // (resistance - support) / ATR
	ADX         float64 // NaN when unavailable
	Probability Probability
	Available   bool
}

// Result bundles everything one analysis run produces.
type Result struct {
	Symbol           string
	PrimaryTimeframe models.Timeframe
	AsOf             time.Time
	Price            float64
	Bars             int // primary candles analyzed
	Snapshots        []indicators.Snapshot // primary, 1h, 4h; aligned with Confluence.Timeframes
	Patterns         []PatternMatch
	Levels           LevelSet
	Confluence       Confluence
	MoneyFlow        MoneyFlowState
	Score            SignalScore
	Scenarios        []Scenario
	Range            RangePlan
}

// SnapshotAt returns the snapshot for the i-th frame (0 is the primary
// timeframe), or an empty snapshot when there is none.
func (r Result) SnapshotAt(i int) indicators.Snapshot {
	if i < 0 || i >= len(r.Snapshots) {
		return indicators.Snapshot{}
	}
	return r.Snapshots[i]
}

// PrimarySnapshot returns the snapshot of the primary timeframe.
func (r Result) PrimarySnapshot() indicators.Snapshot {
	return r.SnapshotAt(0)
}
