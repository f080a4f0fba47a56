package feed

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marketpulse/internal/models"
	"marketpulse/internal/store"
)

// DefaultCacheTTL is how long a fetched request is served from the store.
const DefaultCacheTTL = 45 * time.Second

// CachedSource serves repeated requests from a candle store until the TTL
// for that (symbol, timeframe, limit) expires. Store failures are logged and
// fall through to the wrapped source.
type CachedSource struct {
	src    Source
	store  store.CandleStore
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewCachedSource wraps src with a store-backed TTL cache.
func NewCachedSource(src Source, st store.CandleStore, ttl time.Duration, logger zerolog.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{
		src:    src,
		store:  st,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Fetch returns cached candles when fresh, otherwise fetches and stores them.
func (c *CachedSource) Fetch(ctx context.Context, symbol string, tf models.Timeframe, limit int) (models.Series, error) {
	key := store.FetchKey{Symbol: symbol, Timeframe: tf, Limit: limit}

	if last := c.store.GetLastSync(key); !last.IsZero() && c.now().Sub(last) < c.ttl {
		candles, err := c.store.GetLatestCandles(ctx, symbol, tf, limit)
		if err == nil && len(candles) > 0 {
			c.logger.Debug().Str("key", key.String()).Int("candles", len(candles)).Msg("Cache hit")
			return models.Series{Symbol: symbol, Timeframe: tf, Candles: candles}, nil
		}
		if err != nil {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache read failed")
		}
	}

	series, err := c.src.Fetch(ctx, symbol, tf, limit)
	if err != nil {
		return models.Series{}, err
	}

	if err := c.store.SaveCandles(ctx, symbol, tf, series.Candles); err != nil {
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache write failed")
		return series, nil
	}
	if err := c.store.SetLastSync(key, c.now()); err != nil {
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache sync update failed")
	}
	return series, nil
}
