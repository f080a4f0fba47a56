package feed

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/models"
)

// RetryingSource retries transient fetch failures with exponential backoff.
type RetryingSource struct {
	src        Source
	maxRetries int
	initial    time.Duration
	logger     zerolog.Logger
}

// NewRetryingSource wraps src with up to maxRetries additional attempts.
func NewRetryingSource(src Source, maxRetries int, logger zerolog.Logger) *RetryingSource {
	return &RetryingSource{
		src:        src,
		maxRetries: maxRetries,
		initial:    500 * time.Millisecond,
		logger:     logger,
	}
}

// Fetch calls the wrapped source until it succeeds, returns a permanent
// error or the retry budget runs out.
func (r *RetryingSource) Fetch(ctx context.Context, symbol string, tf models.Timeframe, limit int) (models.Series, error) {
	var series models.Series
	attempt := 0

	operation := func() error {
		attempt++
		var err error
		series, err = r.src.Fetch(ctx, symbol, tf, limit)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		r.logger.Warn().Err(err).Str("symbol", symbol).Str("timeframe", string(tf)).Int("attempt", attempt).Msg("Fetch failed, retrying")
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.initial
	policy.MaxElapsedTime = 30 * time.Second

	var b backoff.BackOff = backoff.WithMaxRetries(policy, uint64(r.maxRetries))
	b = backoff.WithContext(b, ctx)

	if err := backoff.Retry(operation, b); err != nil {
		return models.Series{}, err
	}
	return series, nil
}

// retryable reports whether a fetch error may succeed on a later attempt.
func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, apperrors.ErrUnknownSymbol),
		errors.Is(err, apperrors.ErrInvalidSeries),
		errors.Is(err, apperrors.ErrDataNotFound):
		return false
	default:
		return true
	}
}
