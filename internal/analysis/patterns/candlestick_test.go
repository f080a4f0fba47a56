package patterns

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/analysis"
	"marketpulse/internal/analysis/analysistest"
	"marketpulse/internal/config"
	"marketpulse/internal/models"
)

func newRecognizer() *CandlestickRecognizer {
	return NewCandlestickRecognizer(config.DefaultAnalysisConfig().Patterns)
}

func findMatch(matches []analysis.PatternMatch, name string) (analysis.PatternMatch, bool) {
	for _, m := range matches {
		if m.Name == name {
			return m, true
		}
	}
	return analysis.PatternMatch{}, false
}

func TestCandlestickRecognizer(t *testing.T) {
	candle := analysistest.Candle
	lead := []models.Candle{candle(90, 91, 89, 90.5), candle(90.5, 91.5, 90, 91)}

	tests := []struct {
		name    string
		candles []models.Candle
		want    string
		bias    analysis.Bias
		span    int
	}{
		{
			name:    "hammer after decline",
			candles: []models.Candle{candle(105, 106, 103, 104), candle(104, 104.5, 101.5, 102), candle(100, 100.6, 98, 100.5)},
			want:    PatternHammer,
			bias:    analysis.Bullish,
			span:    1,
		},
		{
			name:    "hanging man after rise",
			candles: []models.Candle{candle(96, 98.5, 95.5, 98), candle(98, 101, 97.5, 100.5), candle(100, 100.6, 98, 100.5)},
			want:    PatternHangingMan,
			bias:    analysis.Bearish,
			span:    1,
		},
		{
			name:    "shooting star after rise",
			candles: []models.Candle{candle(96, 98.5, 95.5, 98), candle(98, 101, 97.5, 100.5), candle(100.5, 103, 99.9, 100)},
			want:    PatternShootingStar,
			bias:    analysis.Bearish,
			span:    1,
		},
		{
			name:    "bullish engulfing",
			candles: []models.Candle{candle(100, 101, 99, 100.5), candle(102, 102.5, 100.5, 101), candle(100.8, 103.5, 100.6, 103)},
			want:    PatternBullishEngulfing,
			bias:    analysis.Bullish,
			span:    2,
		},
		{
			name:    "bearish engulfing",
			candles: []models.Candle{candle(100, 101, 99, 100.5), candle(101, 102.5, 100.8, 102), candle(102.2, 102.4, 99.5, 100)},
			want:    PatternBearishEngulfing,
			bias:    analysis.Bearish,
			span:    2,
		},
		{
			name:    "morning star",
			candles: []models.Candle{candle(110, 110.5, 104.5, 105), candle(104.5, 105, 103.5, 104.2), candle(104.5, 109, 104.3, 108.5)},
			want:    PatternMorningStar,
			bias:    analysis.Bullish,
			span:    3,
		},
		{
			name:    "evening star",
			candles: []models.Candle{candle(105, 110.5, 104.5, 110), candle(110.5, 111.5, 110, 110.8), candle(110.5, 110.7, 106, 106.5)},
			want:    PatternEveningStar,
			bias:    analysis.Bearish,
			span:    3,
		},
		{
			name:    "three white soldiers",
			candles: analysistest.Uptrend(3, 0.01, models.Timeframe15m).Candles,
			want:    PatternThreeWhiteSoldiers,
			bias:    analysis.Bullish,
			span:    3,
		},
		{
			name:    "three black crows",
			candles: []models.Candle{candle(110, 110.2, 107.8, 108), candle(108, 108.1, 105.9, 106), candle(106, 106.1, 103.8, 104)},
			want:    PatternThreeBlackCrows,
			bias:    analysis.Bearish,
			span:    3,
		},
		{
			name:    "bearish pin bar",
			candles: []models.Candle{candle(100, 100.2, 99.8, 100), candle(100, 104, 99.9, 100.3)},
			want:    PatternBearishPinBar,
			bias:    analysis.Bearish,
			span:    1,
		},
		{
			name:    "tweezer top",
			candles: []models.Candle{candle(100, 102, 99.8, 101.8), candle(101.8, 102.05, 100, 100.2)},
			want:    PatternTweezerTop,
			bias:    analysis.Bearish,
			span:    2,
		},
		{
			name:    "tweezer bottom",
			candles: []models.Candle{candle(102, 102.2, 99.9, 100.1), candle(100.1, 101.9, 99.95, 101.8)},
			want:    PatternTweezerBottom,
			bias:    analysis.Bullish,
			span:    2,
		},
	}

	r := newRecognizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candles := append(append([]models.Candle(nil), lead...), tt.candles...)
			matches := r.Detect(candles)

			m, ok := findMatch(matches, tt.want)
			require.True(t, ok, "expected %s in %v", tt.want, matches)
			assert.Equal(t, tt.bias, m.Bias)
			assert.Equal(t, len(candles)-1, m.EndIndex)
			assert.Equal(t, len(candles)-tt.span, m.StartIndex)
			assert.GreaterOrEqual(t, m.Strength, 0.5)
			assert.LessOrEqual(t, m.Strength, 1.0)
		})
	}
}

func TestCandlestickRecognizerFlatSeriesIsOnlyDoji(t *testing.T) {
	matches := newRecognizer().Detect(analysistest.Flat(30, models.Timeframe15m).Candles)
	require.NotEmpty(t, matches)
	for _, m := range matches {
		assert.Equal(t, PatternDoji, m.Name)
		assert.Equal(t, analysis.Neutral, m.Bias)
	}
}

func TestCandlestickRecognizerSkipsPredicatesNeedingMoreCandles(t *testing.T) {
	r := newRecognizer()
	assert.Empty(t, r.Detect(nil))

	// A lone hammer shape has no prior move to qualify against.
	one := []models.Candle{analysistest.Candle(100, 100.6, 98, 100.5)}
	matches := r.Detect(one)
	_, ok := findMatch(matches, PatternHammer)
	assert.False(t, ok)
	_, ok = findMatch(matches, PatternBullishPinBar)
	assert.True(t, ok)
}

func TestProperty_PatternMatchesStayInWindow(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	r := newRecognizer()
	properties.Property("matches cover only the trailing candles with strength in [0.5, 1]", prop.ForAll(
		func(candles []models.Candle) bool {
			n := len(candles)
			for _, m := range r.Detect(candles) {
				if m.EndIndex != n-1 || m.StartIndex < n-Window || m.StartIndex > m.EndIndex {
					return false
				}
				if m.Strength < 0.5 || m.Strength > 1 {
					return false
				}
			}
			return true
		},
		analysistest.WalkGen(1, 40),
	))

	properties.TestingRun(t)
}
