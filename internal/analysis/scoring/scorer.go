// Package scoring fuses the analysis components into a composite signal score.
package scoring

import (
	"math"

	"marketpulse/internal/analysis"
	"marketpulse/internal/analysis/indicators"
	"marketpulse/internal/config"
	"marketpulse/internal/models"
)

// Inputs are the component results one score is computed from.
type Inputs struct {
	Candles    []models.Candle // primary timeframe
	Snapshot   indicators.Snapshot
	Patterns   []analysis.PatternMatch
	Levels     analysis.LevelSet
	Confluence analysis.Confluence
	Flow       analysis.MoneyFlowState
}

// SignalScorer combines trend, momentum, volume, level and pattern
// sub-scores into a composite score.
type SignalScorer struct {
	params     config.ScoringParams
	indicators config.IndicatorParams
	names      indicators.Names
}

// NewSignalScorer creates a new signal scorer.
func NewSignalScorer(params config.ScoringParams, ind config.IndicatorParams) *SignalScorer {
	return &SignalScorer{
		params:     params,
		indicators: ind,
		names:      indicators.StandardNames(ind),
	}
}

// Score calculates the composite score from -100 (strong sell) to +100
// (strong buy). Unavailable sub-scores carry no weight and the remaining
// weights are renormalized. The result depends only on its inputs.
func (s *SignalScorer) Score(in Inputs) analysis.SignalScore {
	w := s.params.Weights
	subs := []struct {
		component analysis.Component
		weight    float64
		score     func(Inputs) (float64, bool)
	}{
		{analysis.ComponentTrend, w.Trend, s.trendScore},
		{analysis.ComponentMomentum, w.Momentum, s.momentumScore},
		{analysis.ComponentVolume, w.Volume, s.volumeScore},
		{analysis.ComponentLevels, w.Levels, s.levelScore},
		{analysis.ComponentPatterns, w.Patterns, s.patternScore},
	}

	contributions := make([]analysis.Contribution, len(subs))
	var totalScore, totalWeight float64
	for i, sub := range subs {
		c := analysis.Contribution{Component: sub.component, Weight: sub.weight}
		if v, ok := sub.score(in); ok {
			c.Score = clamp(v, -1, 1)
			c.Available = true
			totalScore += c.Score * sub.weight
			totalWeight += sub.weight
		}
		contributions[i] = c
	}

	result := analysis.SignalScore{Verdict: analysis.Hold, Contributions: contributions}
	if totalWeight <= 0 {
		return result
	}

	mean := totalScore / totalWeight
	var dispersion float64
	for i := range contributions {
		c := &contributions[i]
		if !c.Available {
			continue
		}
		c.EffectiveWeight = c.Weight / totalWeight
		dispersion += c.EffectiveWeight * math.Abs(c.Score-mean)
	}
	dispersion = clamp(dispersion, 0, 1)

	result.Value = clamp(100*mean, -100, 100)
	result.Confidence = clamp(s.params.ConfidenceGain*math.Abs(result.Value)*(1-dispersion), 0, 100)
	result.Verdict = VerdictFor(result.Value)
	return result
}

// trendScore scales the confluence direction by its strength and how many
// timeframes agree.
func (s *SignalScorer) trendScore(in Inputs) (float64, bool) {
	if !in.Confluence.Available() {
		return 0, false
	}
	var factor float64
	switch in.Confluence.Agreement {
	case analysis.AllAgree:
		factor = 1
	case analysis.Majority:
		factor = 2.0 / 3.0
	}
	return in.Confluence.Direction.Sign() * in.Confluence.Strength * factor, true
}

// momentumScore averages the RSI, MACD and Stochastic readings that are available.
func (s *SignalScorer) momentumScore(in Inputs) (float64, bool) {
	var total float64
	var count int

	if rsi, ok := in.Snapshot.Value(s.names.RSI); ok {
		total += s.rsiScore(rsi)
		count++
	}

	hist, okHist := in.Snapshot.Field(s.names.MACD, "histogram")
	atr, okATR := in.Snapshot.Value(s.names.ATR)
	if okHist && okATR && atr > 0 {
		total += clamp(hist/atr, -1, 1)
		count++
	}

	if v, ok := s.stochasticScore(in); ok {
		total += v
		count++
	}

	if count == 0 {
		return 0, false
	}
	return total / float64(count), true
}

// rsiScore maps RSI to [-1, 1]. Past the overbought or oversold thresholds
// the reading fades back toward zero as exhaustion builds.
func (s *SignalScorer) rsiScore(rsi float64) float64 {
	ob, os := s.indicators.RSIOverbought, s.indicators.RSIOversold
	switch {
	case rsi > ob && ob < 100:
		return (ob - 50) / 50 * (100 - rsi) / (100 - ob)
	case rsi < os && os > 0:
		return (os - 50) / 50 * rsi / os
	default:
		return (rsi - 50) / 50
	}
}

// stochasticScore reads %K, attenuated when the lookback range is too narrow
// relative to price to mean anything.
func (s *SignalScorer) stochasticScore(in Inputs) (float64, bool) {
	k, ok := in.Snapshot.Field(s.names.Stochastic, "percent_k")
	if !ok || len(in.Candles) == 0 {
		return 0, false
	}
	score := (k - 50) / 50

	rng, ok := in.Snapshot.Field(s.names.Stochastic, "range")
	closePrice := in.Candles[len(in.Candles)-1].Close
	if ok && closePrice > 0 && s.params.StochMinRange > 0 {
		if rel := rng / closePrice; rel < s.params.StochMinRange {
			score *= rel / s.params.StochMinRange
		}
	}
	return score, true
}

// volumeScore blends pressure, OBV direction and VWAP position, amplified on a volume spike.
func (s *SignalScorer) volumeScore(in Inputs) (float64, bool) {
	f := in.Flow
	if !f.Available {
		return 0, false
	}

	pressure := (f.BuyPressure - f.SellPressure) / 100

	var obv float64
	switch f.OBVTrend {
	case analysis.OBVRising:
		obv = 1
	case analysis.OBVFalling:
		obv = -1
	}

	var vwap float64
	switch f.VWAPPosition {
	case analysis.AboveVWAP:
		vwap = 1
	case analysis.BelowVWAP:
		vwap = -1
	}

	score := 0.5*pressure + 0.3*obv + 0.2*vwap
	if f.VolumeSpike {
		score *= s.params.SpikeAmplifier
	}
	return clamp(score, -1, 1), true
}

// levelScore rewards price sitting just above support and penalizes price
// pressing into resistance, with extra weight when the latest candle
// rejects the level.
func (s *SignalScorer) levelScore(in Inputs) (float64, bool) {
	atr, ok := in.Snapshot.Value(s.names.ATR)
	if !in.Levels.Available || !ok || atr <= 0 || len(in.Candles) == 0 {
		return 0, false
	}
	last := in.Candles[len(in.Candles)-1]
	reach := s.params.LevelProximityATR * atr

	var score float64
	if sup, ok := in.Levels.NearestSupport(); ok {
		if d := last.Close - sup.Price; d <= reach {
			score += 1 - d/reach
			if last.Range() > 0 && last.LowerShadow()/last.Range() >= 0.5 {
				score += 0.5
			}
		}
	}
	if res, ok := in.Levels.NearestResistance(); ok {
		if d := res.Price - last.Close; d <= reach {
			score -= 1 - d/reach
			if last.Range() > 0 && last.UpperShadow()/last.Range() >= 0.5 {
				score -= 0.5
			}
		}
	}
	return clamp(score, -1, 1), true
}

func (s *SignalScorer) patternScore(in Inputs) (float64, bool) {
	if len(in.Candles) == 0 {
		return 0, false
	}
	var total float64
	for _, m := range in.Patterns {
		total += m.Bias.Sign() * m.Strength
	}
	return clamp(total, -1, 1), true
}

// VerdictFor converts a numeric score to a verdict.
func VerdictFor(value float64) analysis.Verdict {
	switch {
	case value >= 60:
		return analysis.StrongBuy
	case value >= 30:
		return analysis.Buy
	case value >= 10:
		return analysis.LeanBuy
	case value > -10:
		return analysis.Hold
	case value > -30:
		return analysis.LeanSell
	case value > -60:
		return analysis.Sell
	default:
		return analysis.StrongSell
	}
}

// clamp restricts a value to the given range.
func clamp(value, minVal, maxVal float64) float64 {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
