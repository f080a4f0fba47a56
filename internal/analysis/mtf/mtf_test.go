package mtf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/analysis"
	"marketpulse/internal/analysis/analysistest"
	"marketpulse/internal/analysis/indicators"
	"marketpulse/internal/config"
	"marketpulse/internal/models"
)

func newAnalyzer() *Analyzer {
	cfg := config.DefaultAnalysisConfig()
	return NewAnalyzer(
		indicators.NewStandardEngine(cfg.Indicators, 2),
		indicators.StandardNames(cfg.Indicators),
		cfg.Trend,
	)
}

func frames(build func(tf models.Timeframe) models.Series) []Frame {
	var out []Frame
	for _, tf := range []models.Timeframe{models.Timeframe15m, models.Timeframe1h, models.Timeframe4h} {
		out = append(out, Frame{Timeframe: tf, Candles: build(tf).Candles})
	}
	return out
}

func TestAnalyzeUptrendAllAgree(t *testing.T) {
	result := newAnalyzer().Analyze(context.Background(), frames(func(tf models.Timeframe) models.Series {
		return analysistest.Uptrend(120, 0.005, tf)
	}))

	require.Len(t, result.Snapshots, 3)
	c := result.Confluence
	assert.Equal(t, analysis.Up, c.Direction)
	assert.Equal(t, analysis.AllAgree, c.Agreement)
	assert.InDelta(t, 1.0, c.Strength, 1e-9)
	for _, s := range c.Timeframes {
		assert.True(t, s.Available)
		assert.Equal(t, analysis.Up, s.Direction)
	}
	assert.Equal(t, models.Timeframe15m, c.Timeframes[0].Timeframe)
}

func TestAnalyzeFlatIsSideways(t *testing.T) {
	result := newAnalyzer().Analyze(context.Background(), frames(func(tf models.Timeframe) models.Series {
		return analysistest.Flat(120, tf)
	}))

	assert.Equal(t, analysis.Sideways, result.Confluence.Direction)
	assert.InDelta(t, 0.0, result.Confluence.Strength, 1e-9)
}

func TestVoteDropsUnavailableInputs(t *testing.T) {
	a := newAnalyzer()
	candles := analysistest.Uptrend(27, 0.005, models.Timeframe15m).Candles

	// 27 candles cover the EMAs but neither SMA_50 nor ADX_14.
	snap := a.engine.Snapshot(context.Background(), candles)
	state := a.Vote(models.Timeframe15m, snap, candles[len(candles)-1].Close)

	require.True(t, state.Available)
	assert.Equal(t, analysis.Up, state.Direction)
	assert.InDelta(t, 1.0, state.Vote, 1e-9)

	empty := a.Vote(models.Timeframe15m, indicators.Snapshot{}, 100)
	assert.False(t, empty.Available)
	assert.Equal(t, analysis.Sideways, empty.Direction)
}

func TestFuse(t *testing.T) {
	up := func(s float64) analysis.TrendState {
		return analysis.TrendState{Direction: analysis.Up, Strength: s, Available: true}
	}
	down := func(s float64) analysis.TrendState {
		return analysis.TrendState{Direction: analysis.Down, Strength: s, Available: true}
	}
	sideways := analysis.TrendState{Direction: analysis.Sideways, Available: true}
	missing := analysis.TrendState{Direction: analysis.Sideways}

	tests := []struct {
		name      string
		states    []analysis.TrendState
		direction analysis.Direction
		agreement analysis.Agreement
		strength  float64
	}{
		{"all agree", []analysis.TrendState{up(0.8), up(0.6), up(1)}, analysis.Up, analysis.AllAgree, 0.8},
		{"majority", []analysis.TrendState{down(0.6), down(1), up(0.4)}, analysis.Down, analysis.Majority, 0.8},
		{"conflicted", []analysis.TrendState{up(0.6), down(0.6), sideways}, analysis.Sideways, analysis.Conflicted, 0},
		{"single available frame", []analysis.TrendState{up(0.5), missing, missing}, analysis.Sideways, analysis.Conflicted, 0},
		{"two of three available", []analysis.TrendState{down(0.4), missing, down(0.8)}, analysis.Down, analysis.AllAgree, 0.6},
		{"one against sideways", []analysis.TrendState{up(0.5), sideways, missing}, analysis.Sideways, analysis.Conflicted, 0},
		{"none available", []analysis.TrendState{missing, missing}, analysis.Sideways, analysis.Conflicted, 0},
	}

	a := newAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := a.Fuse(tt.states)
			assert.Equal(t, tt.direction, c.Direction)
			assert.Equal(t, tt.agreement, c.Agreement)
			assert.InDelta(t, tt.strength, c.Strength, 1e-9)
		})
	}
}
