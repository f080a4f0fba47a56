package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/analysis/analysistest"
	"marketpulse/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "candles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetCandles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	series := analysistest.Uptrend(20, 0.01, models.Timeframe15m)

	require.NoError(t, s.SaveCandles(ctx, "BTCUSDT", models.Timeframe15m, series.Candles))

	got, err := s.GetCandles(ctx, "BTCUSDT", models.Timeframe15m, series.Candles[5].Timestamp, series.Candles[9].Timestamp)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, c := range got {
		want := series.Candles[5+i]
		assert.True(t, want.Timestamp.Equal(c.Timestamp))
		assert.Equal(t, want.Close, c.Close)
		assert.Equal(t, want.Volume, c.Volume)
	}

	other, err := s.GetCandles(ctx, "BTCUSDT", models.Timeframe1h, series.Candles[0].Timestamp, series.Candles[19].Timestamp)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSaveCandlesReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	series := analysistest.Uptrend(3, 0.01, models.Timeframe1h)

	require.NoError(t, s.SaveCandles(ctx, "ETHUSDT", models.Timeframe1h, series.Candles))
	updated := series.Candles[2]
	updated.Close = updated.Open
	updated.Volume = 42
	require.NoError(t, s.SaveCandles(ctx, "ETHUSDT", models.Timeframe1h, []models.Candle{updated}))

	got, err := s.GetLatestCandles(ctx, "ETHUSDT", models.Timeframe1h, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 42.0, got[2].Volume)
	assert.Equal(t, updated.Open, got[2].Close)
}

func TestGetCandlesFreshness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fresh, err := s.GetCandlesFreshness(ctx, "BTCUSDT", models.Timeframe15m)
	require.NoError(t, err)
	assert.True(t, fresh.IsZero())

	series := analysistest.Uptrend(8, 0.01, models.Timeframe15m)
	require.NoError(t, s.SaveCandles(ctx, "BTCUSDT", models.Timeframe15m, series.Candles))

	fresh, err = s.GetCandlesFreshness(ctx, "BTCUSDT", models.Timeframe15m)
	require.NoError(t, err)
	assert.True(t, series.Candles[7].Timestamp.Equal(fresh), "got %s", fresh)
}

func TestLastSync(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "candles.db")
	key := FetchKey{Symbol: "BTCUSDT", Timeframe: models.Timeframe15m, Limit: 200}
	at := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	assert.True(t, s.GetLastSync(key).IsZero())
	require.NoError(t, s.SetLastSync(key, at))
	assert.True(t, at.Equal(s.GetLastSync(key)))
	require.NoError(t, s.Close())

	// A fresh handle has an empty memo and must read the table.
	reopened, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()
	assert.True(t, at.Equal(reopened.GetLastSync(key)))

	other := key
	other.Limit = 100
	assert.True(t, reopened.GetLastSync(other).IsZero())
}

func TestFetchKeyString(t *testing.T) {
	assert.Equal(t, "BTCUSDT/4h/200", FetchKey{Symbol: "BTCUSDT", Timeframe: models.Timeframe4h, Limit: 200}.String())
}

func TestProperty_LatestCandlesAreTrailingWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	run := 0
	properties.Property("latest candles are the newest limit candles in ascending order", prop.ForAll(
		func(n, limit int) bool {
			run++
			symbol := "SYM" + time.Duration(run).String()
			series := analysistest.Uptrend(n, 0.002, models.Timeframe5m)
			if err := s.SaveCandles(ctx, symbol, models.Timeframe5m, series.Candles); err != nil {
				return false
			}

			got, err := s.GetLatestCandles(ctx, symbol, models.Timeframe5m, limit)
			if err != nil {
				return false
			}
			want := series.Candles
			if len(want) > limit {
				want = want[len(want)-limit:]
			}
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if !got[i].Timestamp.Equal(want[i].Timestamp) || got[i].Close != want[i].Close {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 40),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
