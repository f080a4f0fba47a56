package indicators

import (
	"fmt"

	"marketpulse/internal/models"
)

// ATR calculates the Average True Range.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR_%d", a.period)
}

func (a *ATR) Period() int {
	return a.period
}

func (a *ATR) Calculate(candles []models.Candle) ([]float64, error) {
	if err := checkPeriod(a.period, len(candles), a.period); err != nil {
		return nil, err
	}

	n := len(candles)
	tr := make([]float64, n)

	// First TR is just high - low
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < n; i++ {
		tr[i] = trueRange(candles[i], candles[i-1])
	}

	return wilderSmooth(tr, 0, a.period), nil
}

// BollingerBands calculates Bollinger Bands.
type BollingerBands struct {
	period    int
	stdDevMul float64
}

// NewBollingerBands creates a new Bollinger Bands indicator.
func NewBollingerBands(period int, stdDevMul float64) *BollingerBands {
	return &BollingerBands{
		period:    period,
		stdDevMul: stdDevMul,
	}
}

func (b *BollingerBands) Name() string {
	return fmt.Sprintf("BB_%d_%.1f", b.period, b.stdDevMul)
}

func (b *BollingerBands) Period() int {
	return b.period
}

func (b *BollingerBands) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if b.stdDevMul <= 0 {
		return nil, ErrInvalidPeriod
	}
	if err := checkPeriod(b.period, len(candles), b.period); err != nil {
		return nil, err
	}

	n := len(candles)
	closes := closePrices(candles)

	middle := undefinedSeries(n)
	upper := undefinedSeries(n)
	lower := undefinedSeries(n)
	bandwidth := undefinedSeries(n)
	percentB := undefinedSeries(n)

	for i := b.period - 1; i < n; i++ {
		window := closes[i-b.period+1 : i+1]
		sma := mean(window)
		sd := stdDev(window)

		middle[i] = sma
		upper[i] = sma + b.stdDevMul*sd
		lower[i] = sma - b.stdDevMul*sd
		bandwidth[i] = (upper[i] - lower[i]) / middle[i]

		// A flat window has no band; treat price as centred.
		if width := upper[i] - lower[i]; width > 0 {
			percentB[i] = (closes[i] - lower[i]) / width
		} else {
			percentB[i] = 0.5
		}
	}

	return map[string][]float64{
		"middle":    middle,
		"upper":     upper,
		"lower":     lower,
		"bandwidth": bandwidth,
		"percent_b": percentB,
	}, nil
}
