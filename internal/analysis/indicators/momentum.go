package indicators

import (
	"fmt"

	"marketpulse/internal/models"
)

// RSI calculates the Relative Strength Index using Wilder smoothing.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d", r.period)
}

func (r *RSI) Period() int {
	return r.period + 1
}

func (r *RSI) Calculate(candles []models.Candle) ([]float64, error) {
	if err := checkPeriod(r.period, len(candles), r.period+1); err != nil {
		return nil, err
	}

	n := len(candles)
	result := undefinedSeries(n)
	closes := closePrices(candles)

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	// Seed with simple averages, then Wilder smoothing
	avgGain := mean(gains[1 : r.period+1])
	avgLoss := mean(losses[1 : r.period+1])
	result[r.period] = rsiValue(avgGain, avgLoss)

	for i := r.period + 1; i < n; i++ {
		avgGain = (avgGain*float64(r.period-1) + gains[i]) / float64(r.period)
		avgLoss = (avgLoss*float64(r.period-1) + losses[i]) / float64(r.period)
		result[i] = rsiValue(avgGain, avgLoss)
	}

	return result, nil
}

// rsiValue maps the smoothed averages into [0,100]. No losses is 100; no movement at all is 50.
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// Stochastic calculates the Stochastic Oscillator (%K and %D).
type Stochastic struct {
	kPeriod int
	smooth  int
	dPeriod int
}

// NewStochastic creates a stochastic oscillator. smooth = 1 gives the fast %K.
func NewStochastic(kPeriod, smooth, dPeriod int) *Stochastic {
	return &Stochastic{
		kPeriod: kPeriod,
		smooth:  smooth,
		dPeriod: dPeriod,
	}
}

func (s *Stochastic) Name() string {
	return fmt.Sprintf("STOCH_%d_%d_%d", s.kPeriod, s.smooth, s.dPeriod)
}

func (s *Stochastic) Period() int {
	return s.kPeriod + s.smooth + s.dPeriod - 2
}

// Calculate returns percent_k, percent_d and range (highest high minus lowest low over the %K lookback).
func (s *Stochastic) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if s.kPeriod <= 0 || s.smooth <= 0 || s.dPeriod <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < s.Period() {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
	}

	rawK := undefinedSeries(n)
	hlRange := undefinedSeries(n)
	for i := s.kPeriod - 1; i < n; i++ {
		hh := highest(highs[i-s.kPeriod+1 : i+1])
		ll := lowest(lows[i-s.kPeriod+1 : i+1])
		hlRange[i] = hh - ll
		if hh == ll {
			rawK[i] = 50
			continue
		}
		rawK[i] = (candles[i].Close - ll) / (hh - ll) * 100
	}

	percentK := smaFrom(rawK, s.kPeriod-1, s.smooth)
	percentD := smaFrom(percentK, s.kPeriod+s.smooth-2, s.dPeriod)

	return map[string][]float64{
		"percent_k": percentK,
		"percent_d": percentD,
		"range":     hlRange,
	}, nil
}
