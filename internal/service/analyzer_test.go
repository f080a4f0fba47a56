package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/analysis/analysistest"
	"marketpulse/internal/analysis/pipeline"
	"marketpulse/internal/analysis/scoring"
	"marketpulse/internal/config"
	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/models"
)

type stubSource struct {
	mu      sync.Mutex
	symbols []string
	limits  []int
	err     error
}

func (s *stubSource) Fetch(_ context.Context, symbol string, tf models.Timeframe, limit int) (models.Series, error) {
	s.mu.Lock()
	s.symbols = append(s.symbols, symbol)
	s.limits = append(s.limits, limit)
	s.mu.Unlock()
	if s.err != nil {
		return models.Series{}, s.err
	}
	series := analysistest.Uptrend(limit, 0.004, tf)
	series.Symbol = symbol
	return series, nil
}

func newAnalyzer(src *stubSource) *Analyzer {
	a := NewAnalyzer(src, pipeline.New(config.DefaultAnalysisConfig()), 120, zerolog.Nop())
	a.now = func() time.Time { return time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC) }
	return a
}

func TestAnalyzeNormalizesSymbol(t *testing.T) {
	src := &stubSource{}
	result, err := newAnalyzer(src).Analyze(context.Background(), "btc/usdt", models.Timeframe15m)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", result.Symbol)
	assert.Equal(t, models.Timeframe15m, result.PrimaryTimeframe)
	assert.Len(t, src.symbols, 3)
	for i := range src.symbols {
		assert.Equal(t, "BTCUSDT", src.symbols[i])
		assert.Equal(t, 120, src.limits[i])
	}
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	src := &stubSource{}
	a := newAnalyzer(src)

	_, err := a.Analyze(context.Background(), "BTC", models.Timeframe("7m"))
	var verr *apperrors.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = a.Analyze(context.Background(), "$$$", models.Timeframe1h)
	assert.ErrorIs(t, err, apperrors.ErrUnknownSymbol)
	assert.Empty(t, src.symbols)
}

func TestAnalyzePropagatesFeedErrors(t *testing.T) {
	src := &stubSource{err: apperrors.ErrFeedUnavailable}
	_, err := newAnalyzer(src).Analyze(context.Background(), "ETH", models.Timeframe1h)
	assert.ErrorIs(t, err, apperrors.ErrFeedUnavailable)
}

func TestReport(t *testing.T) {
	s, err := newAnalyzer(&stubSource{}).Report(context.Background(), "sol", models.Timeframe1h)
	require.NoError(t, err)

	assert.Equal(t, "SOLUSDT", s.Symbol)
	assert.Equal(t, "1h", s.Timeframe)
	assert.NotEmpty(t, s.Session.Active)
	assert.Greater(t, s.Score, 0.0)
}

func TestScreenerUsesAnalyzer(t *testing.T) {
	a := newAnalyzer(&stubSource{})
	results := a.Screener(models.Timeframe15m, 2).Scan(context.Background(),
		[]string{"BTC", "ETH", "$$$"}, []scoring.Filter{scoring.MinScoreFilter(0)})

	require.Len(t, results, 3)
	var failed int
	for _, r := range results {
		if r.Error != nil {
			failed++
			assert.ErrorIs(t, r.Error, apperrors.ErrUnknownSymbol)
			continue
		}
		assert.True(t, r.Passed)
	}
	assert.Equal(t, 1, failed)
}
