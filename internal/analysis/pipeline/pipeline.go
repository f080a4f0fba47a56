// Package pipeline runs every analysis component over one symbol's candle
// history and assembles the result.
package pipeline

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"marketpulse/internal/analysis"
	"marketpulse/internal/analysis/indicators"
	"marketpulse/internal/analysis/mtf"
	"marketpulse/internal/analysis/patterns"
	"marketpulse/internal/analysis/scenario"
	"marketpulse/internal/analysis/scoring"
	"marketpulse/internal/config"
	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/logging"
	"marketpulse/internal/models"
)

// Input holds the three candle histories one run analyzes.
type Input struct {
	Symbol   string
	Primary  models.Series
	Hour     models.Series
	FourHour models.Series
}

// Pipeline wires the analysis components together. It performs no I/O and
// is safe for concurrent use.
type Pipeline struct {
	cfg        config.AnalysisConfig
	names      indicators.Names
	trend      *mtf.Analyzer
	recognizer *patterns.CandlestickRecognizer
	levels     *patterns.LevelDetector
	flow       *patterns.FlowAnalyzer
	scorer     *scoring.SignalScorer
	scenarios  *scenario.Generator
}

// New creates a pipeline from a validated analysis configuration.
func New(cfg config.AnalysisConfig) *Pipeline {
	names := indicators.StandardNames(cfg.Indicators)
	engine := indicators.NewStandardEngine(cfg.Indicators, cfg.Workers)

	return &Pipeline{
		cfg:        cfg,
		names:      names,
		trend:      mtf.NewAnalyzer(engine, names, cfg.Trend),
		recognizer: patterns.NewCandlestickRecognizer(cfg.Patterns),
		levels:     patterns.NewLevelDetector(cfg.Levels),
		flow:       patterns.NewFlowAnalyzer(cfg.Flow, cfg.Indicators.VWAPSessionReset),
		scorer:     scoring.NewSignalScorer(cfg.Scoring, cfg.Indicators),
		scenarios:  scenario.NewGenerator(cfg.Scenario),
	}
}

// Names returns the snapshot keys the pipeline's indicators register under.
func (p *Pipeline) Names() indicators.Names {
	return p.names
}

// Run validates the input, runs the components concurrently, then scores
// the result and derives scenarios. An invalid series fails the whole run.
func (p *Pipeline) Run(ctx context.Context, in Input) (analysis.Result, error) {
	primaryTF := orDefault(in.Primary.Timeframe, p.cfg.PrimaryTimeframe)
	frames := []mtf.Frame{
		{Timeframe: primaryTF, Candles: in.Primary.Candles},
		{Timeframe: orDefault(in.Hour.Timeframe, models.Timeframe1h), Candles: in.Hour.Candles},
		{Timeframe: orDefault(in.FourHour.Timeframe, models.Timeframe4h), Candles: in.FourHour.Candles},
	}

	for _, s := range []models.Series{in.Primary, in.Hour, in.FourHour} {
		if err := s.Validate(); err != nil {
			return analysis.Result{}, err
		}
	}

	ctx, _ = logging.WithRunID(ctx)
	logger := logging.WithOperation(logging.WithSymbol(logging.FromContext(ctx), in.Symbol), "analyze")
	start := time.Now()

	candles := in.Primary.Candles
	var (
		wg        sync.WaitGroup
		trend     mtf.Result
		matches   []analysis.PatternMatch
		levels    analysis.LevelSet
		levelsErr error
		flow      analysis.MoneyFlowState
	)

	timed := func(name string, fn func()) {
		defer wg.Done()
		t := time.Now()
		fn()
		logger.Debug().Str("component", name).Dur("duration", time.Since(t)).Msg("Component finished")
	}

	wg.Add(4)
	go timed("confluence", func() { trend = p.trend.Analyze(ctx, frames) })
	go timed("patterns", func() { matches = p.recognizer.Detect(candles) })
	go timed("levels", func() { levels, levelsErr = p.levels.Detect(candles) })
	go timed("flow", func() { flow = p.flow.Analyze(candles) })
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return analysis.Result{}, apperrors.Wrap(err, "analysis cancelled")
	}
	if levelsErr != nil {
		logger.Debug().Err(levelsErr).Msg("Levels unavailable")
	}

	snap := trend.Snapshots[0]
	last := candles[len(candles)-1]

	score := p.scorer.Score(scoring.Inputs{
		Candles:    candles,
		Snapshot:   snap,
		Patterns:   matches,
		Levels:     levels,
		Confluence: trend.Confluence,
		Flow:       flow,
	})

	atr, _ := snap.Value(p.names.ATR)
	adx, ok := snap.Field(p.names.ADX, "adx")
	if !ok {
		adx = math.NaN()
	}
	setup := scenario.Inputs{
		Price:  last.Close,
		ATR:    atr,
		Levels: levels,
		Score:  score,
		ADX:    adx,
	}
	scenarios := p.scenarios.Generate(setup)

	result := analysis.Result{
		Symbol:           in.Symbol,
		PrimaryTimeframe: primaryTF,
		AsOf:             last.Timestamp,
		Price:            last.Close,
		Bars:             len(candles),
		Snapshots:        trend.Snapshots,
		Patterns:         matches,
		Levels:           levels,
		Confluence:       trend.Confluence,
		MoneyFlow:        flow,
		Score:            score,
		Scenarios:        scenarios,
		Range:            p.scenarios.Range(setup),
	}

	logUnavailable(logger, snap, score)
	logger.Debug().Dur("duration", time.Since(start)).Msg("Pipeline finished")
	logging.LogSignal(logger, in.Symbol, string(score.Verdict), score.Value, score.Confidence, len(scenarios))

	return result, nil
}

func logUnavailable(logger zerolog.Logger, snap indicators.Snapshot, score analysis.SignalScore) {
	if names := snap.Unavailable(); len(names) > 0 {
		logger.Debug().Strs("indicators", names).Msg("Indicators unavailable")
	}
	for _, c := range score.Contributions {
		if !c.Available {
			logger.Debug().Str("component", string(c.Component)).Msg("Sub-score unavailable, weight redistributed")
		}
	}
}

func orDefault(tf, fallback models.Timeframe) models.Timeframe {
	if tf == "" {
		return fallback
	}
	return tf
}
