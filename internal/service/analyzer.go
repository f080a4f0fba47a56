// Package service connects the market data feed to the analysis pipeline
// and the report builder. It is the single entry point the CLI, the bot and
// the watch scheduler analyze symbols through.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marketpulse/internal/analysis"
	"marketpulse/internal/analysis/pipeline"
	"marketpulse/internal/analysis/scoring"
	"marketpulse/internal/analysis/session"
	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/feed"
	"marketpulse/internal/models"
	"marketpulse/internal/report"
)

// Analyzer fetches candles for a symbol and runs the pipeline over them.
type Analyzer struct {
	src    feed.Source
	pipe   *pipeline.Pipeline
	limit  int
	now    func() time.Time
	logger zerolog.Logger
}

// NewAnalyzer creates an Analyzer. A non-positive limit uses feed.DefaultLimit.
func NewAnalyzer(src feed.Source, pipe *pipeline.Pipeline, limit int, logger zerolog.Logger) *Analyzer {
	if limit <= 0 {
		limit = feed.DefaultLimit
	}
	return &Analyzer{
		src:    src,
		pipe:   pipe,
		limit:  limit,
		now:    time.Now,
		logger: logger,
	}
}

// Analyze normalizes symbol, fetches the primary, 1h and 4h histories and
// runs the pipeline.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, tf models.Timeframe) (analysis.Result, error) {
	if !tf.Valid() {
		return analysis.Result{}, apperrors.NewValidationError("timeframe", string(tf), "unsupported timeframe")
	}

	normalized, err := feed.NormalizeSymbol(symbol)
	if err != nil {
		return analysis.Result{}, err
	}

	in, err := feed.FetchFrames(ctx, a.src, normalized, tf, a.limit)
	if err != nil {
		return analysis.Result{}, apperrors.Wrapf(err, "fetching %s", normalized)
	}

	return a.pipe.Run(ctx, in)
}

// Report analyzes symbol and flattens the result for display.
func (a *Analyzer) Report(ctx context.Context, symbol string, tf models.Timeframe) (report.Summary, error) {
	result, err := a.Analyze(ctx, symbol, tf)
	if err != nil {
		return report.Summary{}, err
	}
	return a.Summarize(result), nil
}

// Summarize builds the display summary for a result using the session in
// effect now.
func (a *Analyzer) Summarize(result analysis.Result) report.Summary {
	return report.Build(result, a.pipe.Names(), session.At(a.now()))
}

// Runner adapts the analyzer to the screener at a fixed timeframe.
func (a *Analyzer) Runner(tf models.Timeframe) scoring.Runner {
	return func(ctx context.Context, symbol string) (analysis.Result, error) {
		return a.Analyze(ctx, symbol, tf)
	}
}

// Screener returns a watchlist screener over this analyzer.
func (a *Analyzer) Screener(tf models.Timeframe, concurrency int) *scoring.Screener {
	return scoring.NewScreener(a.Runner(tf), a.pipe.Names(), concurrency)
}
