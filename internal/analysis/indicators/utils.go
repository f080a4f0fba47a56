package indicators

import (
	"math"

	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/models"
)

var (
	// ErrInsufficientData is returned when there's not enough data for calculation.
	ErrInsufficientData = apperrors.ErrInsufficientData
	// ErrInvalidPeriod is returned when the period is invalid.
	ErrInvalidPeriod = apperrors.ErrInvalidPeriod
)

// Undefined marks positions before an indicator's lookback is satisfied.
var Undefined = math.NaN()

// IsDefined reports whether v holds a computed value.
func IsDefined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Last returns the most recent value of a series and whether it is defined.
func Last(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	v := values[len(values)-1]
	return v, IsDefined(v)
}

// undefinedSeries allocates a series of length n with every position undefined.
func undefinedSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = Undefined
	}
	return out
}

func checkPeriod(period, available, required int) error {
	if period <= 0 {
		return ErrInvalidPeriod
	}
	if available < required {
		return ErrInsufficientData
	}
	return nil
}

// sum calculates the sum of a slice of float64.
func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// mean calculates the arithmetic mean of a slice of float64.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

// stdDev calculates the population standard deviation of a slice of float64.
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var variance float64
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// trueRange calculates the true range for a candle.
func trueRange(current, previous models.Candle) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}

// typicalPrice calculates (high + low + close) / 3.
func typicalPrice(c models.Candle) float64 {
	return (c.High + c.Low + c.Close) / 3
}

func closePrices(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func highest(values []float64) float64 {
	h := math.Inf(-1)
	for _, v := range values {
		if v > h {
			h = v
		}
	}
	return h
}

func lowest(values []float64) float64 {
	l := math.Inf(1)
	for _, v := range values {
		if v < l {
			l = v
		}
	}
	return l
}

// wilderSmooth applies Wilder's smoothing to values[start:], seeding with the
// simple mean of the first period values. Output positions before
// start+period-1 are undefined.
func wilderSmooth(values []float64, start, period int) []float64 {
	out := undefinedSeries(len(values))
	seedEnd := start + period
	if period <= 0 || seedEnd > len(values) {
		return out
	}

	prev := mean(values[start:seedEnd])
	out[seedEnd-1] = prev
	for i := seedEnd; i < len(values); i++ {
		prev = prev + (values[i]-prev)/float64(period)
		out[i] = prev
	}
	return out
}

// emaFrom computes an EMA over values[start:], seeded with the SMA of the first
// period values. Positions before start+period-1 are undefined.
func emaFrom(values []float64, start, period int) []float64 {
	out := undefinedSeries(len(values))
	seedEnd := start + period
	if period <= 0 || seedEnd > len(values) {
		return out
	}

	k := 2.0 / float64(period+1)
	prev := mean(values[start:seedEnd])
	out[seedEnd-1] = prev
	for i := seedEnd; i < len(values); i++ {
		prev = values[i]*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

// smaFrom computes a rolling mean over values[start:]. Each window is summed
// fresh so results never depend on accumulated rounding.
func smaFrom(values []float64, start, period int) []float64 {
	out := undefinedSeries(len(values))
	if period <= 0 || start+period > len(values) {
		return out
	}

	for i := start + period - 1; i < len(values); i++ {
		out[i] = mean(values[i-period+1 : i+1])
	}
	return out
}
