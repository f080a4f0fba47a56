package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/analysis"
	"marketpulse/internal/analysis/analysistest"
	"marketpulse/internal/config"
	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/models"
)

func newPipeline() *Pipeline {
	return New(config.DefaultAnalysisConfig())
}

func input(primary, hour, fourHour models.Series) Input {
	return Input{Symbol: "TESTUSDT", Primary: primary, Hour: hour, FourHour: fourHour}
}

func TestRunUptrendWithResistance(t *testing.T) {
	primary := analysistest.Uptrend(120, 0.005, models.Timeframe15m)
	last := primary.Candles[len(primary.Candles)-1].Close
	resistance := last * 1.05
	primary = analysistest.WithWicks(primary, resistance, 40, 60)

	result, err := newPipeline().Run(context.Background(), input(
		primary,
		analysistest.Uptrend(120, 0.005, models.Timeframe1h),
		analysistest.Uptrend(120, 0.005, models.Timeframe4h),
	))
	require.NoError(t, err)

	assert.Equal(t, "TESTUSDT", result.Symbol)
	assert.Equal(t, models.Timeframe15m, result.PrimaryTimeframe)
	assert.Equal(t, last, result.Price)
	assert.Equal(t, primary.Candles[len(primary.Candles)-1].Timestamp, result.AsOf)
	assert.Len(t, result.Snapshots, 3)

	assert.Equal(t, analysis.Up, result.Confluence.Direction)
	assert.Equal(t, analysis.AllAgree, result.Confluence.Agreement)
	assert.Greater(t, result.Score.Value, 0.0)
	assert.GreaterOrEqual(t, result.Score.Value, -100.0)
	assert.LessOrEqual(t, result.Score.Value, 100.0)

	res, ok := result.Levels.NearestResistance()
	require.True(t, ok)
	assert.InEpsilon(t, resistance, res.Price, 1e-9)

	var bullish *analysis.Scenario
	for i := range result.Scenarios {
		s := &result.Scenarios[i]
		assert.NotEqual(t, analysis.ScenarioBearish, s.Kind)
		if s.Kind == analysis.ScenarioBullish {
			bullish = s
		}
	}
	require.NotNil(t, bullish)
	assert.InEpsilon(t, resistance, bullish.Target, 1e-9)
	assert.GreaterOrEqual(t, bullish.RiskReward.Value, 1.5)
	assert.Equal(t, 1, result.Scenarios[0].Rank)

	_, hasSupport := result.Levels.NearestSupport()
	assert.Equal(t, hasSupport, result.Range.Available)
	if result.Range.Available {
		assert.InEpsilon(t, resistance, result.Range.Resistance, 1e-9)
		assert.Less(t, result.Range.LongStop, result.Range.Support)
		assert.Greater(t, result.Range.ShortStop, result.Range.Resistance)
	}
}

func TestRunFlatMarket(t *testing.T) {
	result, err := newPipeline().Run(context.Background(), input(
		analysistest.Flat(120, models.Timeframe15m),
		analysistest.Flat(120, models.Timeframe1h),
		analysistest.Flat(120, models.Timeframe4h),
	))
	require.NoError(t, err)

	assert.Equal(t, analysis.Sideways, result.Confluence.Direction)
	assert.Less(t, result.Score.Value, 10.0)
	assert.Greater(t, result.Score.Value, -10.0)
	assert.Equal(t, analysis.Hold, result.Score.Verdict)
	assert.Equal(t, analysis.NeutralFlow, result.MoneyFlow.Label)
	for _, m := range result.Patterns {
		assert.Equal(t, "Doji", m.Name)
	}
}

func TestRunShortHistoryDegradesGracefully(t *testing.T) {
	result, err := newPipeline().Run(context.Background(), input(
		analysistest.Uptrend(10, 0.005, models.Timeframe15m),
		analysistest.Uptrend(10, 0.005, models.Timeframe1h),
		analysistest.Uptrend(10, 0.005, models.Timeframe4h),
	))
	require.NoError(t, err)

	snap := result.PrimarySnapshot()
	_, ok := snap.Value("SMA_50")
	assert.False(t, ok)

	for _, c := range []analysis.Component{analysis.ComponentTrend, analysis.ComponentMomentum} {
		contrib, ok := result.Score.Contribution(c)
		require.True(t, ok)
		assert.False(t, contrib.Available, c)
		assert.Zero(t, contrib.EffectiveWeight, c)
	}

	assert.GreaterOrEqual(t, result.Score.Value, -100.0)
	assert.LessOrEqual(t, result.Score.Value, 100.0)
	assert.GreaterOrEqual(t, result.Score.Confidence, 0.0)
	assert.LessOrEqual(t, result.Score.Confidence, 100.0)
}

func TestRunKeepsSnapshotsPerFrameWhenPrimaryIsHourly(t *testing.T) {
	// The primary series is hourly too but much shorter than the 1h frame.
	result, err := newPipeline().Run(context.Background(), input(
		analysistest.Uptrend(30, 0.005, models.Timeframe1h),
		analysistest.Uptrend(120, 0.005, models.Timeframe1h),
		analysistest.Uptrend(120, 0.005, models.Timeframe4h),
	))
	require.NoError(t, err)

	require.Len(t, result.Snapshots, 3)
	require.Len(t, result.Confluence.Timeframes, 3)
	assert.Equal(t, models.Timeframe1h, result.PrimaryTimeframe)
	assert.Equal(t, models.Timeframe1h, result.Confluence.Timeframes[0].Timeframe)
	assert.Equal(t, models.Timeframe1h, result.Confluence.Timeframes[1].Timeframe)

	_, ok := result.PrimarySnapshot().Value("SMA_50")
	assert.False(t, ok)
	_, ok = result.SnapshotAt(1).Value("SMA_50")
	assert.True(t, ok)
	assert.Equal(t, 30, result.Bars)
}

func TestRunRejectsInvalidSeries(t *testing.T) {
	primary := analysistest.Uptrend(60, 0.005, models.Timeframe15m)
	primary.Candles[30].High = primary.Candles[30].Close * 0.9

	_, err := newPipeline().Run(context.Background(), input(
		primary,
		analysistest.Uptrend(60, 0.005, models.Timeframe1h),
		analysistest.Uptrend(60, 0.005, models.Timeframe4h),
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSeries)

	var serr *apperrors.SeriesError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 30, serr.Index)
}

func TestRunRejectsEmptyHigherTimeframe(t *testing.T) {
	_, err := newPipeline().Run(context.Background(), input(
		analysistest.Uptrend(60, 0.005, models.Timeframe15m),
		models.Series{Symbol: "TESTUSDT", Timeframe: models.Timeframe1h},
		analysistest.Uptrend(60, 0.005, models.Timeframe4h),
	))
	assert.ErrorIs(t, err, apperrors.ErrInvalidSeries)
}

func TestRunIsDeterministic(t *testing.T) {
	p := newPipeline()
	in := input(
		analysistest.Uptrend(150, 0.003, models.Timeframe15m),
		analysistest.Flat(150, models.Timeframe1h),
		analysistest.Uptrend(150, 0.001, models.Timeframe4h),
	)

	first, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Scenarios, second.Scenarios)
	assert.Equal(t, first.Confluence, second.Confluence)
	assert.Equal(t, first.Patterns, second.Patterns)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPipeline().Run(ctx, input(
		analysistest.Uptrend(60, 0.005, models.Timeframe15m),
		analysistest.Uptrend(60, 0.005, models.Timeframe1h),
		analysistest.Uptrend(60, 0.005, models.Timeframe4h),
	))
	assert.ErrorIs(t, err, context.Canceled)
}
