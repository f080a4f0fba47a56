// Package store provides candle persistence for the market data cache.
package store

import (
	"context"
	"fmt"
	"time"

	"marketpulse/internal/models"
)

// CandleStore defines the interface for candle persistence.
type CandleStore interface {
	// Candles
	SaveCandles(ctx context.Context, symbol string, tf models.Timeframe, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol string, tf models.Timeframe, from, to time.Time) ([]models.Candle, error)
	GetLatestCandles(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error)
	GetCandlesFreshness(ctx context.Context, symbol string, tf models.Timeframe) (time.Time, error)

	// Fetch bookkeeping
	GetLastSync(key FetchKey) time.Time
	SetLastSync(key FetchKey, t time.Time) error

	// Lifecycle
	Close() error
}

// FetchKey identifies one cached candle request.
type FetchKey struct {
	Symbol    string
	Timeframe models.Timeframe
	Limit     int
}

// String returns the key as stored in the sync table.
func (k FetchKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Symbol, k.Timeframe, k.Limit)
}
