package report

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"marketpulse/internal/analysis/analysistest"
	"marketpulse/internal/analysis/indicators"
	"marketpulse/internal/analysis/pipeline"
	"marketpulse/internal/analysis/session"
	"marketpulse/internal/config"
	"marketpulse/internal/models"
)

func uptrendSummary(t *testing.T) Summary {
	t.Helper()
	p := pipeline.New(config.DefaultAnalysisConfig())
	primary := analysistest.Uptrend(120, 0.005, models.Timeframe15m)
	primary = analysistest.WithWicks(primary, primary.Candles[119].Close*1.05, 40, 60)

	result, err := p.Run(context.Background(), pipeline.Input{
		Symbol:   "TESTUSDT",
		Primary:  primary,
		Hour:     analysistest.Uptrend(120, 0.005, models.Timeframe1h),
		FourHour: analysistest.Uptrend(120, 0.005, models.Timeframe4h),
	})
	require.NoError(t, err)

	return Build(result, p.Names(), session.At(time.Date(2024, time.June, 3, 14, 0, 0, 0, time.UTC)))
}

func TestBuild(t *testing.T) {
	s := uptrendSummary(t)

	assert.Equal(t, "TESTUSDT", s.Symbol)
	assert.Equal(t, "15m", s.Timeframe)
	assert.Greater(t, s.Score, 0.0)
	assert.Len(t, s.Breakdown, 5)
	assert.Len(t, s.Trend.Timeframes, 3)
	assert.Equal(t, "up", s.Trend.Direction)

	require.NotNil(t, s.Indicators.RSI)
	require.NotNil(t, s.Indicators.ATR)
	require.NotNil(t, s.Indicators.ATRPct)
	assert.InDelta(t, *s.Indicators.ATR/s.Price*100, *s.Indicators.ATRPct, 1e-9)

	require.NotNil(t, s.Levels.R1)
	assert.Greater(t, s.Levels.R1.Price, s.Price)
	assert.Greater(t, s.Levels.R1.DistancePct, 0.0)

	require.NotEmpty(t, s.Scenarios)
	assert.Equal(t, 1, s.Scenarios[0].Rank)

	for i := 1; i < len(s.Patterns); i++ {
		assert.GreaterOrEqual(t, s.Patterns[i].BarsAgo, s.Patterns[i-1].BarsAgo)
	}

	var points float64
	for _, c := range s.Breakdown {
		points += c.Points
	}
	assert.InDelta(t, s.Score, points, 1e-6)
}

func TestSummarySerializes(t *testing.T) {
	s := uptrendSummary(t)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"money_flow"`)
	assert.Contains(t, string(raw), `"verdict"`)

	out, err := yaml.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), "scenarios:")
}

func TestHTML(t *testing.T) {
	s := uptrendSummary(t)
	out := HTML(s)

	for _, want := range []string{
		"<b>TESTUSDT</b>",
		"Score Breakdown",
		"Trend by Timeframe",
		"Key Levels",
		"Money Flow",
		"Scenarios",
		"Not financial advice",
		VerdictLabel(s.Verdict),
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "NaN")
}

func TestHTMLEscapesInput(t *testing.T) {
	s := Summary{Symbol: "<script>&", Verdict: "NEUTRAL", Session: SessionSummary{Active: "Asia"}}
	out := HTML(s)
	assert.Contains(t, out, "&lt;script&gt;&amp;")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "No setup clears")
}

func TestQuick(t *testing.T) {
	s := Summary{Symbol: "BTCUSDT", Price: 67012.5, Verdict: "STRONG_BUY", Score: 72, Confidence: 81}
	out := Quick(s)
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "67,012.50")
	assert.Contains(t, out, "STRONG BUY")
	assert.Contains(t, out, "+72")
	assert.NotContains(t, out, "\n")
}

func TestChunk(t *testing.T) {
	assert.Equal(t, []string{"short"}, Chunk("short", 100))
	assert.Nil(t, Chunk("", 10))

	parts := Chunk("aaaa\n\nbbbb\ncccc", 10)
	assert.Equal(t, []string{"aaaa", "bbbb\ncccc"}, parts)

	parts = Chunk("aaaa\nbbbb\ncccc", 10)
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, parts)
}

func TestChunkProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("chunks respect the limit and keep valid UTF-8", prop.ForAll(
		func(words []string, limit int) bool {
			text := strings.Join(words, "\n")
			for _, part := range Chunk(text, limit) {
				if len(part) > limit || part == "" || !utf8.ValidString(part) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.OneGenOf(gen.AlphaString(), gen.Const("₿ßü"), gen.Const(""))),
		gen.IntRange(8, 64),
	))

	properties.Property("chunks preserve all non-newline content", prop.ForAll(
		func(words []string, limit int) bool {
			text := strings.Join(words, "\n\n")
			joined := strings.Join(Chunk(text, limit), "")
			return strings.ReplaceAll(joined, "\n", "") == strings.ReplaceAll(text, "\n", "")
		},
		gen.SliceOf(gen.AlphaString()),
		gen.IntRange(4, 64),
	))

	properties.TestingRun(t)
}

func TestTerminal(t *testing.T) {
	s := uptrendSummary(t)
	out := Terminal(s)

	for _, want := range []string{"TESTUSDT", "Breakdown", "Trend", "Levels", "Scenarios", VerdictLabel(s.Verdict)} {
		assert.Contains(t, out, want)
	}
}

func TestBuildIndicatorsMACDMomentum(t *testing.T) {
	names := indicators.StandardNames(config.DefaultAnalysisConfig().Indicators)
	snapshot := func(cur, prev float64) indicators.Snapshot {
		return indicators.Snapshot{Readings: map[string]indicators.Reading{
			names.MACD: {
				Name:     names.MACD,
				Values:   map[string]float64{"histogram": cur},
				Previous: map[string]float64{"histogram": prev},
			},
		}}
	}

	assert.Equal(t, "rising", buildIndicators(snapshot(0.5, 0.2), names, 100).MACDMomentum)
	assert.Equal(t, "falling", buildIndicators(snapshot(-0.5, 0.2), names, 100).MACDMomentum)
	assert.Empty(t, buildIndicators(snapshot(0.2, 0.2), names, 100).MACDMomentum)
	assert.Empty(t, buildIndicators(indicators.Snapshot{}, names, 100).MACDMomentum)

	ind := buildIndicators(snapshot(0.5, 0.2), names, 100)
	s := uptrendSummary(t)
	s.Indicators = ind
	assert.Contains(t, HTML(s), "Bullish, histogram rising")
}

func TestRangeLineRendering(t *testing.T) {
	s := uptrendSummary(t)
	s.Range = &RangeLine{Support: 98, Resistance: 103, LongStop: 96, ShortStop: 105, WidthATR: 2.5, Probability: "high"}

	out := HTML(s)
	assert.Contains(t, out, "Range-bound")
	assert.Contains(t, out, "Width  <b>2.5</b> ATR")
	assert.Contains(t, Terminal(s), "width 2.5 ATR")

	s.Range = nil
	assert.NotContains(t, HTML(s), "Range-bound")
}
