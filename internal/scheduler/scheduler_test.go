package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/analysis"
	"marketpulse/internal/analysis/scoring"
	"marketpulse/internal/config"
	"marketpulse/internal/notify"
	"marketpulse/internal/report"
)

type fakeScanner struct {
	results []scoring.ScreenerResult
	filters []scoring.Filter
	symbols []string
}

func (f *fakeScanner) Scan(_ context.Context, symbols []string, filters []scoring.Filter) []scoring.ScreenerResult {
	f.symbols = symbols
	f.filters = filters
	return f.results
}

type fakeNotifier struct {
	mu      sync.Mutex
	signals []report.Summary
	errs    []string
}

func (f *fakeNotifier) Send(context.Context, notify.Notification) error { return nil }

func (f *fakeNotifier) SendSignal(_ context.Context, s report.Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, s)
	return nil
}

func (f *fakeNotifier) SendError(_ context.Context, err error, ctx string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, ctx+": "+err.Error())
	return nil
}

func summarize(r analysis.Result) report.Summary {
	return report.Summary{Symbol: r.Symbol, Score: r.Score.Value}
}

func result(symbol string, score float64, passed bool) scoring.ScreenerResult {
	return scoring.ScreenerResult{
		Symbol: symbol,
		Result: analysis.Result{Symbol: symbol, Score: analysis.SignalScore{Value: score}},
		Passed: passed,
	}
}

func watchConfig() config.WatchConfig {
	return config.WatchConfig{
		Symbols:  []string{"BTC", "ETH", "SOL"},
		Schedule: "0 */15 * * * *",
		MinScore: 40,
		Notify:   true,
	}
}

func TestRunOnceNotifiesPassingSymbols(t *testing.T) {
	scanner := &fakeScanner{results: []scoring.ScreenerResult{
		result("BTCUSDT", 55, true),
		result("ETHUSDT", -48, true),
		result("SOLUSDT", 12, false),
	}}
	n := &fakeNotifier{}
	s := New(context.Background(), scanner, summarize, n, watchConfig(), zerolog.Nop())

	out := s.RunOnce(context.Background())

	assert.Equal(t, 3, out.Scanned)
	require.Len(t, out.Passed, 2)
	assert.Empty(t, out.Failed)
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, scanner.symbols)
	require.Len(t, scanner.filters, 1)
	assert.Equal(t, scoring.MinScoreFilter(40), scanner.filters[0])

	require.Len(t, n.signals, 2)
	assert.Equal(t, "BTCUSDT", n.signals[0].Symbol)
	assert.Equal(t, "ETHUSDT", n.signals[1].Symbol)
	assert.Empty(t, n.errs)
}

func TestRunOnceWithoutNotify(t *testing.T) {
	cfg := watchConfig()
	cfg.Notify = false
	n := &fakeNotifier{}
	s := New(context.Background(), &fakeScanner{results: []scoring.ScreenerResult{result("BTCUSDT", 90, true)}}, summarize, n, cfg, zerolog.Nop())

	out := s.RunOnce(context.Background())
	assert.Len(t, out.Passed, 1)
	assert.Empty(t, n.signals)
}

func TestRunOnceReportsTotalFailure(t *testing.T) {
	scanner := &fakeScanner{results: []scoring.ScreenerResult{
		{Symbol: "BTC", Error: errors.New("feed down")},
		{Symbol: "ETH", Error: errors.New("feed down")},
	}}
	n := &fakeNotifier{}
	s := New(context.Background(), scanner, summarize, n, watchConfig(), zerolog.Nop())

	out := s.RunOnce(context.Background())
	assert.Len(t, out.Failed, 2)
	assert.Empty(t, out.Passed)
	require.Len(t, n.errs, 1)
	assert.Contains(t, n.errs[0], "all 2 symbols failed")
}

func TestRegister(t *testing.T) {
	s := New(context.Background(), &fakeScanner{}, summarize, &fakeNotifier{}, watchConfig(), zerolog.Nop())
	assert.True(t, s.Next().IsZero())
	require.NoError(t, s.Register())

	s.Start()
	defer s.Stop()
	assert.False(t, s.Next().IsZero())

	bad := watchConfig()
	bad.Schedule = "every now and then"
	err := New(context.Background(), &fakeScanner{}, summarize, &fakeNotifier{}, bad, zerolog.Nop()).Register()
	assert.Error(t, err)

	empty := watchConfig()
	empty.Symbols = nil
	err = New(context.Background(), &fakeScanner{}, summarize, &fakeNotifier{}, empty, zerolog.Nop()).Register()
	assert.Error(t, err)
}
