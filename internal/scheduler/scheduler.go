// Package scheduler runs the watchlist scan on a cron schedule and pushes
// the symbols that clear the score threshold to the notifiers.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"marketpulse/internal/analysis"
	"marketpulse/internal/analysis/scoring"
	"marketpulse/internal/config"
	"marketpulse/internal/logging"
	"marketpulse/internal/notify"
	"marketpulse/internal/report"
)

// Scanner screens a watchlist.
type Scanner interface {
	Scan(ctx context.Context, symbols []string, filters []scoring.Filter) []scoring.ScreenerResult
}

// SummarizeFunc turns a result into its display summary.
type SummarizeFunc func(analysis.Result) report.Summary

// Outcome is what one scan produced.
type Outcome struct {
	Started time.Time
	Passed  []report.Summary
	Failed  map[string]error
	Scanned int
}

// Scheduler manages the watch task.
type Scheduler struct {
	cron      *cron.Cron
	scanner   Scanner
	summarize SummarizeFunc
	notifier  notify.Notifier
	cfg       config.WatchConfig
	logger    zerolog.Logger
	ctx       context.Context
}

// New creates a Scheduler. Runs that overlap a still-running scan are skipped.
func New(ctx context.Context, scanner Scanner, summarize SummarizeFunc, notifier notify.Notifier, cfg config.WatchConfig, logger zerolog.Logger) *Scheduler {
	logger = logger.With().Str("component", "watch").Logger()
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		scanner:   scanner,
		summarize: summarize,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		ctx:       ctx,
	}
}

// Register adds the watch task on the configured schedule.
func (s *Scheduler) Register() error {
	if len(s.cfg.Symbols) == 0 {
		return fmt.Errorf("register watch task: no symbols configured")
	}
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.RunOnce(s.ctx) }); err != nil {
		return fmt.Errorf("register watch task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Str("schedule", s.cfg.Schedule).Strs("symbols", s.cfg.Symbols).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for a running scan to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// Next returns when the watch task fires next, or the zero time if it is
// not registered.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunOnce scans the watchlist and notifies for every symbol whose absolute
// score reaches the threshold.
func (s *Scheduler) RunOnce(ctx context.Context) Outcome {
	ctx, runID := logging.WithRunID(logging.WithLogger(ctx, s.logger))
	logger := logging.FromContext(ctx)

	out := Outcome{Started: time.Now(), Failed: make(map[string]error)}
	results := s.scanner.Scan(ctx, s.cfg.Symbols, []scoring.Filter{scoring.MinScoreFilter(s.cfg.MinScore)})
	out.Scanned = len(results)

	for _, r := range results {
		if r.Error != nil {
			out.Failed[r.Symbol] = r.Error
			logger.Warn().Err(r.Error).Str("symbol", r.Symbol).Msg("Watch analysis failed")
			continue
		}
		if !r.Passed {
			continue
		}
		out.Passed = append(out.Passed, s.summarize(r.Result))
	}

	logger.Info().
		Int("scanned", out.Scanned).
		Int("passed", len(out.Passed)).
		Int("failed", len(out.Failed)).
		Dur("duration", time.Since(out.Started)).
		Msg("Watch scan complete")

	if s.cfg.Notify {
		s.notify(ctx, runID, out)
	}
	return out
}

func (s *Scheduler) notify(ctx context.Context, runID string, out Outcome) {
	logger := logging.FromContext(ctx)

	for _, sum := range out.Passed {
		if err := s.notifier.SendSignal(ctx, sum); err != nil {
			logger.Error().Err(err).Str("symbol", sum.Symbol).Msg("Signal notification failed")
		}
	}

	if len(out.Failed) > 0 && len(out.Failed) == out.Scanned {
		names := make([]string, 0, len(out.Failed))
		for sym := range out.Failed {
			names = append(names, sym)
		}
		err := fmt.Errorf("all %d symbols failed", len(out.Failed))
		if nerr := s.notifier.SendError(ctx, err, "watch run "+runID+": "+strings.Join(names, ", ")); nerr != nil {
			logger.Error().Err(nerr).Msg("Error notification failed")
		}
	}
}

// cronLogger routes cron's own logging to zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
