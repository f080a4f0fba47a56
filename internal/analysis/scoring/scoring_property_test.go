package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"

	"marketpulse/internal/analysis"
	"marketpulse/internal/analysis/analysistest"
	"marketpulse/internal/analysis/indicators"
	"marketpulse/internal/analysis/mtf"
	"marketpulse/internal/analysis/patterns"
	"marketpulse/internal/config"
	"marketpulse/internal/models"
)

// Property: for any candle series the composite score stays within
// [-100, +100], confidence within [0, 100], and the verdict matches the
// score thresholds:
//   - score >= 60: STRONG_BUY
//   - score >= 30: BUY
//   - score >= 10: LEAN_BUY
//   - -10 < score < 10: NEUTRAL
//   - score <= -10: LEAN_SELL
//   - score <= -30: SELL
//   - score <= -60: STRONG_SELL

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0
	return gopter.NewProperties(parameters)
}

// buildInputs runs every component over the same series on all three timeframes.
func buildInputs(cfg config.AnalysisConfig, candles []models.Candle) Inputs {
	engine := indicators.NewStandardEngine(cfg.Indicators, 2)
	names := indicators.StandardNames(cfg.Indicators)
	trend := mtf.NewAnalyzer(engine, names, cfg.Trend)

	frames := []mtf.Frame{
		{Timeframe: models.Timeframe15m, Candles: candles},
		{Timeframe: models.Timeframe1h, Candles: candles},
		{Timeframe: models.Timeframe4h, Candles: candles},
	}
	res := trend.Analyze(context.Background(), frames)
	levels, _ := patterns.NewLevelDetector(cfg.Levels).Detect(candles)

	return Inputs{
		Candles:    candles,
		Snapshot:   res.Snapshots[0],
		Patterns:   patterns.NewCandlestickRecognizer(cfg.Patterns).Detect(candles),
		Levels:     levels,
		Confluence: res.Confluence,
		Flow:       patterns.NewFlowAnalyzer(cfg.Flow, cfg.Indicators.VWAPSessionReset).Analyze(candles),
	}
}

func TestProperty_SignalScoreWithinBounds(t *testing.T) {
	properties := newProperties()
	cfg := config.DefaultAnalysisConfig()
	scorer := NewSignalScorer(cfg.Scoring, cfg.Indicators)

	properties.Property("score is within [-100, +100] and confidence within [0, 100]", prop.ForAll(
		func(candles []models.Candle) bool {
			score := scorer.Score(buildInputs(cfg, candles))
			return score.Value >= -100 && score.Value <= 100 &&
				score.Confidence >= 0 && score.Confidence <= 100
		},
		analysistest.WalkGen(5, 150),
	))

	properties.TestingRun(t)
}

func TestProperty_SignalScoreVerdictMapping(t *testing.T) {
	properties := newProperties()
	cfg := config.DefaultAnalysisConfig()
	scorer := NewSignalScorer(cfg.Scoring, cfg.Indicators)

	properties.Property("score maps to the verdict for its band", prop.ForAll(
		func(candles []models.Candle) bool {
			score := scorer.Score(buildInputs(cfg, candles))
			return score.Verdict == getExpectedVerdict(score.Value)
		},
		analysistest.WalkGen(30, 150),
	))

	properties.TestingRun(t)
}

func TestProperty_EffectiveWeightsRenormalize(t *testing.T) {
	properties := newProperties()
	cfg := config.DefaultAnalysisConfig()
	scorer := NewSignalScorer(cfg.Scoring, cfg.Indicators)

	properties.Property("available effective weights sum to 1 and unavailable ones are 0", prop.ForAll(
		func(candles []models.Candle) bool {
			score := scorer.Score(buildInputs(cfg, candles))
			var sum float64
			for _, c := range score.Contributions {
				if !c.Available && c.EffectiveWeight != 0 {
					return false
				}
				sum += c.EffectiveWeight
			}
			return sum > 1-1e-9 && sum < 1+1e-9
		},
		analysistest.WalkGen(1, 120),
	))

	properties.TestingRun(t)
}

func getExpectedVerdict(score float64) analysis.Verdict {
	switch {
	case score >= 60:
		return analysis.StrongBuy
	case score >= 30:
		return analysis.Buy
	case score >= 10:
		return analysis.LeanBuy
	case score > -10:
		return analysis.Hold
	case score > -30:
		return analysis.LeanSell
	case score > -60:
		return analysis.Sell
	default:
		return analysis.StrongSell
	}
}
