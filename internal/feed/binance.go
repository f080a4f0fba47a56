package feed

import (
	"context"
	"net/http"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"marketpulse/internal/config"
	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/logging"
	"marketpulse/internal/models"
)

const sourceBinance = "binance"

// Binance API error codes the feed distinguishes.
const (
	codeTooManyRequests = -1003
	codeInvalidSymbol   = -1121
)

// BinanceSource fetches spot klines from Binance.
type BinanceSource struct {
	client  *binance.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewBinanceSource creates a Binance klines source. Klines are public, so the
// key pair may be empty.
func NewBinanceSource(cfg config.FeedConfig, logger zerolog.Logger) *BinanceSource {
	client := binance.NewClient(cfg.APIKey, cfg.APISecret)
	if cfg.Timeout > 0 {
		client.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &BinanceSource{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger.With().Str("source", sourceBinance).Logger(),
	}
}

// Fetch returns the latest limit closed and open klines, oldest first.
func (b *BinanceSource) Fetch(ctx context.Context, symbol string, tf models.Timeframe, limit int) (models.Series, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return models.Series{}, errors.Wrap(err, "waiting for rate limiter")
	}

	start := time.Now()
	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(string(tf)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		err = classify(symbol, tf, err)
		logging.LogFetch(b.logger, sourceBinance, symbol, string(tf), 0, time.Since(start), err)
		return models.Series{}, err
	}

	candles, err := convertKlines(klines)
	if err != nil {
		return models.Series{}, errors.Wrapf(err, "converting %s %s klines", symbol, tf)
	}
	logging.LogFetch(b.logger, sourceBinance, symbol, string(tf), len(candles), time.Since(start), nil)

	if len(candles) == 0 {
		return models.Series{}, apperrors.NewFeedError(sourceBinance, symbol, string(tf), apperrors.ErrDataNotFound)
	}
	return models.Series{Symbol: symbol, Timeframe: tf, Candles: candles}, nil
}

// classify maps exchange failures onto the feed error sentinels.
func classify(symbol string, tf models.Timeframe, err error) error {
	cause := apperrors.ErrFeedUnavailable
	if common.IsAPIError(err) {
		apiErr := err.(*common.APIError)
		switch apiErr.Code {
		case codeInvalidSymbol:
			cause = apperrors.ErrUnknownSymbol
		case codeTooManyRequests:
			cause = apperrors.ErrRateLimited
		}
	}
	return errors.Wrapf(apperrors.NewFeedError(sourceBinance, symbol, string(tf), cause), "%v", err)
}

func convertKlines(klines []*binance.Kline) ([]models.Candle, error) {
	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := convertKline(k)
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func convertKline(k *binance.Kline) (models.Candle, error) {
	var values [5]float64
	for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return models.Candle{}, errors.Wrapf(err, "parsing kline field %q", s)
		}
		values[i] = d.InexactFloat64()
	}

	return models.Candle{
		Timestamp: time.UnixMilli(k.OpenTime).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}
