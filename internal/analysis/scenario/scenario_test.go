package scenario

import (
	"math"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/analysis"
	"marketpulse/internal/config"
)

func newGenerator() *Generator {
	return NewGenerator(config.DefaultAnalysisConfig().Scenario)
}

func level(price, current float64, kind analysis.LevelKind) analysis.Level {
	return analysis.Level{Price: price, Kind: kind, TouchCount: 2, Distance: math.Abs(price-current) / current}
}

func find(scenarios []analysis.Scenario, kind analysis.ScenarioKind) (analysis.Scenario, bool) {
	for _, s := range scenarios {
		if s.Kind == kind {
			return s, true
		}
	}
	return analysis.Scenario{}, false
}

func TestRiskRewardUndefinedWhenEntryEqualsStop(t *testing.T) {
	rr := RiskReward(100, 110, 100)
	assert.False(t, rr.Defined)
	assert.Zero(t, rr.Value)

	rr = RiskReward(100, 110, 95)
	assert.True(t, rr.Defined)
	assert.InDelta(t, 2.0, rr.Value, 1e-12)
}

func TestGenerateOmitsScenarioWithStopAtEntry(t *testing.T) {
	price := 100.0
	in := Inputs{
		Price: price,
		ATR:   1,
		Levels: analysis.LevelSet{
			Available: true,
			// Support exactly at price makes the bullish stop equal its entry.
			Support: []analysis.Level{level(100, price, analysis.Support)},
		},
	}

	scenarios := newGenerator().Generate(in)
	_, ok := find(scenarios, analysis.ScenarioBullish)
	assert.False(t, ok)
	for _, s := range scenarios {
		assert.True(t, s.RiskReward.Defined)
	}
}

func TestGenerateBullishTargetsResistance(t *testing.T) {
	price := 100.0
	in := Inputs{
		Price:  price,
		ATR:    0.7,
		Levels: analysis.LevelSet{Available: true, Resistance: []analysis.Level{level(105, price, analysis.Resistance)}},
		Score:  analysis.SignalScore{Value: 50},
	}

	scenarios := newGenerator().Generate(in)
	bull, ok := find(scenarios, analysis.ScenarioBullish)
	require.True(t, ok)

	assert.Equal(t, 105.0, bull.Target)
	assert.Equal(t, BasisLevel, bull.TargetBasis)
	assert.InDelta(t, 100-1.5*0.7, bull.Stop, 1e-9)
	assert.Equal(t, BasisATR, bull.StopBasis)
	assert.InDelta(t, 5/1.05, bull.RiskReward.Value, 1e-9)
	assert.Equal(t, analysis.HoldAbove, bull.Condition.Trigger)
	assert.Equal(t, 1, bull.Rank)

	// The bearish stop sits at the resistance 5% away while its ATR target is only 2.1 away.
	_, ok = find(scenarios, analysis.ScenarioBearish)
	assert.False(t, ok)
}

func TestGenerateBreakoutNearResistance(t *testing.T) {
	price := 100.0
	in := Inputs{
		Price: price,
		ATR:   1,
		Levels: analysis.LevelSet{
			Available: true,
			Resistance: []analysis.Level{
				level(100.3, price, analysis.Resistance),
				level(106, price, analysis.Resistance),
			},
			Support: []analysis.Level{level(99.2, price, analysis.Support)},
		},
		Score: analysis.SignalScore{Value: 40},
	}

	scenarios := newGenerator().Generate(in)
	breakout, ok := find(scenarios, analysis.ScenarioBreakout)
	require.True(t, ok)
	assert.Equal(t, 100.3, breakout.Entry)
	assert.Equal(t, 106.0, breakout.Target)
	assert.Equal(t, analysis.CloseAbove, breakout.Condition.Trigger)
	assert.Contains(t, breakout.Condition.Signals, analysis.SignalVolumeExpands)
	assert.Equal(t, 99.2, breakout.Stop)
	assert.Equal(t, BasisLevel, breakout.StopBasis)

	_, ok = find(scenarios, analysis.ScenarioBreakdown)
	assert.False(t, ok)
}

func TestGenerateBreakdownWhenSupportIsNearer(t *testing.T) {
	price := 100.0
	in := Inputs{
		Price: price,
		ATR:   1,
		Levels: analysis.LevelSet{
			Available:  true,
			Resistance: []analysis.Level{level(100.4, price, analysis.Resistance)},
			Support: []analysis.Level{
				level(99.9, price, analysis.Support),
				level(95, price, analysis.Support),
			},
		},
		Score: analysis.SignalScore{Value: -40},
	}

	scenarios := newGenerator().Generate(in)
	breakdown, ok := find(scenarios, analysis.ScenarioBreakdown)
	require.True(t, ok)
	assert.Equal(t, 99.9, breakdown.Entry)
	assert.Equal(t, 95.0, breakdown.Target)
	assert.Equal(t, 100.4, breakdown.Stop)
	assert.Equal(t, BasisLevel, breakdown.StopBasis)
	assert.InDelta(t, 4.9/0.5, breakdown.RiskReward.Value, 1e-9)

	_, ok = find(scenarios, analysis.ScenarioBreakout)
	assert.False(t, ok)
}

func TestGenerateBreakdownFallsBackToATRStop(t *testing.T) {
	price := 100.0
	in := Inputs{
		Price: price,
		ATR:   1,
		Levels: analysis.LevelSet{
			Available: true,
			Support: []analysis.Level{
				level(99.9, price, analysis.Support),
				level(95, price, analysis.Support),
			},
		},
		Score: analysis.SignalScore{Value: -40},
	}

	breakdown, ok := find(newGenerator().Generate(in), analysis.ScenarioBreakdown)
	require.True(t, ok)
	assert.InDelta(t, 99.9+1.5, breakdown.Stop, 1e-9)
	assert.Equal(t, BasisATR, breakdown.StopBasis)
}

func TestGenerateBreakoutIgnoresLevelsOutOfReach(t *testing.T) {
	price := 100.0
	in := Inputs{
		Price: price,
		ATR:   1,
		Levels: analysis.LevelSet{
			Available:  true,
			Resistance: []analysis.Level{level(100.2, price, analysis.Resistance)},
			Support:    []analysis.Level{level(80, price, analysis.Support)},
		},
		Score: analysis.SignalScore{Value: 40},
	}

	breakout, ok := find(newGenerator().Generate(in), analysis.ScenarioBreakout)
	require.True(t, ok)
	assert.InDelta(t, 100.2-1.5, breakout.Stop, 1e-9)
	assert.Equal(t, BasisATR, breakout.StopBasis)
	assert.Equal(t, BasisATR, breakout.TargetBasis)
}

func TestGenerateRanksAlignedScenarioFirst(t *testing.T) {
	in := Inputs{Price: 100, ATR: 1, Levels: analysis.LevelSet{Available: true}}

	in.Score = analysis.SignalScore{Value: -80}
	scenarios := newGenerator().Generate(in)
	require.Len(t, scenarios, 2)
	assert.Equal(t, analysis.ScenarioBearish, scenarios[0].Kind)
	assert.Equal(t, analysis.ProbabilityHigh, scenarios[0].Probability)

	// Equal rank scores fall back to kind order.
	in.Score = analysis.SignalScore{}
	scenarios = newGenerator().Generate(in)
	require.Len(t, scenarios, 2)
	assert.Equal(t, analysis.ScenarioBullish, scenarios[0].Kind)
	assert.Equal(t, scenarios[0].RankScore, scenarios[1].RankScore)
}

func TestGenerateWithoutATROrLevels(t *testing.T) {
	assert.Empty(t, newGenerator().Generate(Inputs{Price: 100}))
	assert.Empty(t, newGenerator().Generate(Inputs{}))
}

func TestProperty_ScenariosClearMinimumRiskReward(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	p := config.DefaultAnalysisConfig().Scenario
	g := NewGenerator(p)

	properties.Property("every emitted scenario has a defined risk-reward at or above the minimum", prop.ForAll(
		func(atr float64, offsets []float64, score float64) bool {
			price := 100.0
			var set analysis.LevelSet
			set.Available = true
			for _, off := range offsets {
				l := level(price*(1+off), price, analysis.Support)
				if off > 0 {
					l.Kind = analysis.Resistance
					set.Resistance = append(set.Resistance, l)
				} else {
					set.Support = append(set.Support, l)
				}
			}
			sort.Slice(set.Support, func(i, j int) bool { return set.Support[i].Distance < set.Support[j].Distance })
			sort.Slice(set.Resistance, func(i, j int) bool { return set.Resistance[i].Distance < set.Resistance[j].Distance })

			scenarios := g.Generate(Inputs{Price: price, ATR: atr, Levels: set, Score: analysis.SignalScore{Value: score}})
			for i, s := range scenarios {
				if !s.RiskReward.Defined || s.RiskReward.Value < p.MinRiskReward {
					return false
				}
				if s.Rank != i+1 || s.RankScore < 0 || s.RankScore > 1 {
					return false
				}
				if i > 0 && s.RankScore > scenarios[i-1].RankScore {
					return false
				}
			}
			return true
		},
		gen.Float64Range(0, 3),
		gen.SliceOfN(6, gen.Float64Range(-0.12, 0.12)),
		gen.Float64Range(-100, 100),
	))

	properties.TestingRun(t)
}

func TestRangePlan(t *testing.T) {
	price := 100.0
	levels := analysis.LevelSet{
		Available:  true,
		Support:    []analysis.Level{level(98, price, analysis.Support)},
		Resistance: []analysis.Level{level(103, price, analysis.Resistance)},
	}

	tests := []struct {
		name string
		adx  float64
		want analysis.Probability
	}{
		{"quiet", 15, analysis.ProbabilityHigh},
		{"building", 22, analysis.ProbabilityMedium},
		{"trending", 32, analysis.ProbabilityLow},
		{"no adx", math.NaN(), analysis.ProbabilityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := newGenerator().Range(Inputs{Price: price, ATR: 2, Levels: levels, ADX: tt.adx})
			require.True(t, plan.Available)
			assert.Equal(t, tt.want, plan.Probability)
			assert.InDelta(t, 98.0, plan.Support, 1e-9)
			assert.InDelta(t, 103.0, plan.Resistance, 1e-9)
			assert.InDelta(t, 96.0, plan.LongStop, 1e-9)
			assert.InDelta(t, 105.0, plan.ShortStop, 1e-9)
			assert.InDelta(t, 2.5, plan.WidthATR, 1e-9)
		})
	}
}

func TestRangePlanUnavailable(t *testing.T) {
	price := 100.0
	sup := []analysis.Level{level(98, price, analysis.Support)}
	res := []analysis.Level{level(103, price, analysis.Resistance)}

	tests := []struct {
		name string
		in   Inputs
	}{
		{"no resistance", Inputs{Price: price, ATR: 1, Levels: analysis.LevelSet{Support: sup}}},
		{"no support", Inputs{Price: price, ATR: 1, Levels: analysis.LevelSet{Resistance: res}}},
		{"no atr", Inputs{Price: price, Levels: analysis.LevelSet{Support: sup, Resistance: res}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := newGenerator().Range(tt.in)
			assert.False(t, plan.Available)
		})
	}
}
