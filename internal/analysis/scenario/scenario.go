// Package scenario turns levels, volatility and the composite score into
// ranked IF/THEN trade setups.
package scenario

import (
	"math"
	"sort"

	"marketpulse/internal/analysis"
	"marketpulse/internal/config"
)

// Basis values describe where a target or stop came from.
const (
	BasisLevel = "level"
	BasisATR   = "atr"
)

var kindOrder = map[analysis.ScenarioKind]int{
	analysis.ScenarioBullish:   0,
	analysis.ScenarioBearish:   1,
	analysis.ScenarioBreakout:  2,
	analysis.ScenarioBreakdown: 3,
}

// Inputs are the analysis results scenarios are derived from.
type Inputs struct {
	Price  float64
	ATR    float64 // 0 when unavailable
	Levels analysis.LevelSet
	Score  analysis.SignalScore
	ADX    float64 // NaN when unavailable; only the range plan reads it
}

// Range plan thresholds: stops sit one ATR outside the range, and ADX below
// rangeQuietADX (high) or rangeTrendADX (medium) makes a fade likely.
const (
	rangeStopATR  = 1.0
	rangeQuietADX = 20.0
	rangeTrendADX = 25.0
)

// Generator builds trade scenarios.
type Generator struct {
	p config.ScenarioParams
}

// NewGenerator creates a new scenario generator.
func NewGenerator(p config.ScenarioParams) *Generator {
	return &Generator{p: p}
}

// RiskReward returns reward distance over risk distance. It is undefined
// when entry equals stop.
func RiskReward(entry, target, stop float64) analysis.RiskReward {
	risk := math.Abs(entry - stop)
	if risk == 0 || math.IsNaN(risk) {
		return analysis.RiskReward{}
	}
	return analysis.RiskReward{Value: math.Abs(target-entry) / risk, Defined: true}
}

// Generate returns the scenarios that clear the minimum risk-reward, best first.
func (g *Generator) Generate(in Inputs) []analysis.Scenario {
	if in.Price <= 0 {
		return nil
	}

	candidates := []*analysis.Scenario{
		g.bullish(in),
		g.bearish(in),
		g.breakout(in),
	}

	var out []analysis.Scenario
	for _, s := range candidates {
		if s == nil || !oriented(*s) {
			continue
		}
		s.RiskReward = RiskReward(s.Entry, s.Target, s.Stop)
		if !s.RiskReward.Defined || s.RiskReward.Value < g.p.MinRiskReward {
			continue
		}
		s.RankScore = g.rankScore(*s, in.Score)
		s.Probability = probability(s.RankScore)
		out = append(out, *s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RankScore != out[j].RankScore {
			return out[i].RankScore > out[j].RankScore
		}
		return kindOrder[out[i].Kind] < kindOrder[out[j].Kind]
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Range returns the fade plan between the nearest support and resistance.
// It needs both levels and a positive ATR.
func (g *Generator) Range(in Inputs) analysis.RangePlan {
	sup, okSup := in.Levels.NearestSupport()
	res, okRes := in.Levels.NearestResistance()
	if !okSup || !okRes || in.ATR <= 0 || res.Price <= sup.Price {
		return analysis.RangePlan{ADX: in.ADX}
	}

	plan := analysis.RangePlan{
		Support:     sup.Price,
		Resistance:  res.Price,
		LongStop:    sup.Price - rangeStopATR*in.ATR,
		ShortStop:   res.Price + rangeStopATR*in.ATR,
		WidthATR:    (res.Price - sup.Price) / in.ATR,
		ADX:         in.ADX,
		Probability: analysis.ProbabilityLow,
		Available:   true,
	}
	switch {
	case math.IsNaN(in.ADX):
	case in.ADX < rangeQuietADX:
		plan.Probability = analysis.ProbabilityHigh
	case in.ADX < rangeTrendADX:
		plan.Probability = analysis.ProbabilityMedium
	}
	return plan
}

// oriented reports whether target and stop sit on the correct sides of entry.
func oriented(s analysis.Scenario) bool {
	if s.Kind.Bias() == analysis.Bullish {
		return s.Target > s.Entry && s.Stop <= s.Entry
	}
	return s.Target < s.Entry && s.Stop >= s.Entry
}

func (g *Generator) bullish(in Inputs) *analysis.Scenario {
	entry := in.Price
	s := &analysis.Scenario{
		Kind:  analysis.ScenarioBullish,
		Entry: entry,
		Condition: analysis.Condition{
			Trigger: analysis.HoldAbove,
			Price:   entry,
			Signals: []string{analysis.SignalRSIRising, analysis.SignalMACDBullish, analysis.SignalVWAPReclaim},
		},
	}
	if !g.upside(s, in, in.Levels.Resistance, entry) {
		return nil
	}
	if sup, ok := g.within(in.Levels.Support, entry, analysis.Support); ok {
		s.Stop, s.StopBasis = sup.Price, BasisLevel
		s.Condition.Price = sup.Price
	} else if in.ATR > 0 {
		s.Stop, s.StopBasis = entry-g.p.StopATR*in.ATR, BasisATR
	} else {
		return nil
	}
	return s
}

func (g *Generator) bearish(in Inputs) *analysis.Scenario {
	entry := in.Price
	s := &analysis.Scenario{
		Kind:  analysis.ScenarioBearish,
		Entry: entry,
		Condition: analysis.Condition{
			Trigger: analysis.HoldBelow,
			Price:   entry,
			Signals: []string{analysis.SignalRSIFalling, analysis.SignalMACDBearish, analysis.SignalVWAPLoss},
		},
	}
	if !g.downside(s, in, in.Levels.Support, entry) {
		return nil
	}
	if res, ok := g.within(in.Levels.Resistance, entry, analysis.Resistance); ok {
		s.Stop, s.StopBasis = res.Price, BasisLevel
		s.Condition.Price = res.Price
	} else if in.ATR > 0 {
		s.Stop, s.StopBasis = entry+g.p.StopATR*in.ATR, BasisATR
	} else {
		return nil
	}
	return s
}

// breakout builds a breakout or breakdown when price is pressing a level.
// When both sides qualify the nearer level wins, resistance on a tie.
func (g *Generator) breakout(in Inputs) *analysis.Scenario {
	res, okRes := in.Levels.NearestResistance()
	sup, okSup := in.Levels.NearestSupport()
	okRes = okRes && res.Distance <= g.p.BreakoutProximity
	okSup = okSup && sup.Distance <= g.p.BreakoutProximity

	switch {
	case okRes && (!okSup || res.Distance <= sup.Distance):
		entry := res.Price
		s := &analysis.Scenario{
			Kind:  analysis.ScenarioBreakout,
			Entry: entry,
			Condition: analysis.Condition{
				Trigger: analysis.CloseAbove,
				Price:   entry,
				Signals: []string{analysis.SignalVolumeExpands, analysis.SignalTrendAlignedUp},
			},
		}
		if !g.upside(s, in, in.Levels.Resistance[1:], entry) {
			return nil
		}
		if !g.stopBelow(s, in, entry) {
			return nil
		}
		return s

	case okSup:
		entry := sup.Price
		s := &analysis.Scenario{
			Kind:  analysis.ScenarioBreakdown,
			Entry: entry,
			Condition: analysis.Condition{
				Trigger: analysis.CloseBelow,
				Price:   entry,
				Signals: []string{analysis.SignalVolumeExpands, analysis.SignalTrendAlignedDn},
			},
		}
		if !g.downside(s, in, in.Levels.Support[1:], entry) {
			return nil
		}
		if !g.stopAbove(s, in, entry) {
			return nil
		}
		return s
	}
	return nil
}

// upside sets a long target: the nearest resistance above entry within
// reach, otherwise an ATR projection.
func (g *Generator) upside(s *analysis.Scenario, in Inputs, levels []analysis.Level, entry float64) bool {
	for _, l := range levels {
		if l.Price > entry && (l.Price-entry)/entry <= g.p.MaxLevelDistance {
			s.Target, s.TargetBasis = l.Price, BasisLevel
			return true
		}
	}
	if in.ATR <= 0 {
		return false
	}
	s.Target, s.TargetBasis = entry+g.p.TargetATR*in.ATR, BasisATR
	return true
}

// downside sets a short target: the nearest support below entry within
// reach, otherwise an ATR projection.
func (g *Generator) downside(s *analysis.Scenario, in Inputs, levels []analysis.Level, entry float64) bool {
	for _, l := range levels {
		if l.Price < entry && (entry-l.Price)/entry <= g.p.MaxLevelDistance {
			s.Target, s.TargetBasis = l.Price, BasisLevel
			return true
		}
	}
	if in.ATR <= 0 {
		return false
	}
	s.Target, s.TargetBasis = entry-g.p.TargetATR*in.ATR, BasisATR
	return true
}

// stopBelow sets a long stop: the nearest support strictly below entry
// within reach, otherwise an ATR projection.
func (g *Generator) stopBelow(s *analysis.Scenario, in Inputs, entry float64) bool {
	if l, ok := g.within(in.Levels.Support, entry, analysis.Support); ok && l.Price < entry {
		s.Stop, s.StopBasis = l.Price, BasisLevel
		return true
	}
	if in.ATR <= 0 {
		return false
	}
	s.Stop, s.StopBasis = entry-g.p.StopATR*in.ATR, BasisATR
	return true
}

// stopAbove sets a short stop: the nearest resistance strictly above entry
// within reach, otherwise an ATR projection.
func (g *Generator) stopAbove(s *analysis.Scenario, in Inputs, entry float64) bool {
	if l, ok := g.within(in.Levels.Resistance, entry, analysis.Resistance); ok && l.Price > entry {
		s.Stop, s.StopBasis = l.Price, BasisLevel
		return true
	}
	if in.ATR <= 0 {
		return false
	}
	s.Stop, s.StopBasis = entry+g.p.StopATR*in.ATR, BasisATR
	return true
}

// within returns the nearest level on the given side of entry inside MaxLevelDistance.
func (g *Generator) within(levels []analysis.Level, entry float64, kind analysis.LevelKind) (analysis.Level, bool) {
	for _, l := range levels {
		if math.Abs(l.Price-entry)/entry > g.p.MaxLevelDistance {
			continue
		}
		if kind == analysis.Support && l.Price <= entry {
			return l, true
		}
		if kind == analysis.Resistance && l.Price >= entry {
			return l, true
		}
	}
	return analysis.Level{}, false
}

// rankScore blends agreement with the composite score and capped risk-reward.
func (g *Generator) rankScore(s analysis.Scenario, score analysis.SignalScore) float64 {
	alignment := (score.Value/100*s.Kind.Bias().Sign() + 1) / 2
	alignment = math.Max(0, math.Min(1, alignment))

	rr := s.RiskReward.Value
	if g.p.RiskRewardCap > 0 {
		rr = math.Min(rr, g.p.RiskRewardCap) / g.p.RiskRewardCap
	} else {
		rr = 0
	}
	return g.p.AlignmentWeight*alignment + (1-g.p.AlignmentWeight)*rr
}

func probability(rank float64) analysis.Probability {
	switch {
	case rank >= 0.65:
		return analysis.ProbabilityHigh
	case rank >= 0.45:
		return analysis.ProbabilityMedium
	default:
		return analysis.ProbabilityLow
	}
}
