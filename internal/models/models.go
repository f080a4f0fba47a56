// Package models defines the market data types shared across the application.
package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "marketpulse/internal/errors"
)

// Timeframe represents a candle interval.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

var timeframeDurations = map[Timeframe]time.Duration{
	Timeframe1m:  time.Minute,
	Timeframe5m:  5 * time.Minute,
	Timeframe15m: 15 * time.Minute,
	Timeframe30m: 30 * time.Minute,
	Timeframe1h:  time.Hour,
	Timeframe4h:  4 * time.Hour,
	Timeframe1d:  24 * time.Hour,
}

// ParseTimeframe parses a user supplied interval such as "15m" or "4H".
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := timeframeDurations[tf]; !ok {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

// Duration returns the expected spacing between consecutive candles.
func (tf Timeframe) Duration() time.Duration {
	return timeframeDurations[tf]
}

// Valid reports whether the timeframe is one of the supported intervals.
func (tf Timeframe) Valid() bool {
	_, ok := timeframeDurations[tf]
	return ok
}

func (tf Timeframe) String() string {
	return string(tf)
}

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// Body returns the absolute distance between open and close.
func (c Candle) Body() float64 {
	return math.Abs(c.Close - c.Open)
}

// Range returns the distance between high and low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// UpperShadow returns the wick above the body.
func (c Candle) UpperShadow() float64 {
	return c.High - math.Max(c.Open, c.Close)
}

// LowerShadow returns the wick below the body.
func (c Candle) LowerShadow() float64 {
	return math.Min(c.Open, c.Close) - c.Low
}

// Series is an ordered candle history, oldest first, for one symbol and timeframe.
type Series struct {
	Symbol    string
	Timeframe Timeframe
	Candles   []Candle
}

// Validate checks the ordering and shape invariants every analysis relies on.
func (s Series) Validate() error {
	if len(s.Candles) == 0 {
		return &apperrors.SeriesError{Symbol: s.Symbol, Timeframe: string(s.Timeframe), Index: -1, Message: "series is empty"}
	}

	for i, c := range s.Candles {
		if !finitePositive(c.Open) || !finitePositive(c.High) || !finitePositive(c.Low) || !finitePositive(c.Close) {
			return s.invalid(i, "prices must be finite and positive")
		}
		if math.IsNaN(c.Volume) || math.IsInf(c.Volume, 0) || c.Volume < 0 {
			return s.invalid(i, "volume must be finite and non-negative")
		}
		if c.High < math.Max(c.Open, c.Close) || c.Low > math.Min(c.Open, c.Close) {
			return s.invalid(i, "high/low do not bound open/close")
		}
		if i > 0 && !c.Timestamp.After(s.Candles[i-1].Timestamp) {
			return s.invalid(i, "timestamps must be strictly increasing")
		}
	}

	return nil
}

// CheckSpacing reports a gap larger than the timeframe's expected spacing.
func (s Series) CheckSpacing() error {
	step := s.Timeframe.Duration()
	if step == 0 {
		return nil
	}
	for i := 1; i < len(s.Candles); i++ {
		if gap := s.Candles[i].Timestamp.Sub(s.Candles[i-1].Timestamp); gap > step {
			return s.invalid(i, fmt.Sprintf("gap of %s exceeds %s spacing", gap, step))
		}
	}
	return nil
}

func (s Series) invalid(index int, msg string) error {
	return &apperrors.SeriesError{
		Symbol:    s.Symbol,
		Timeframe: string(s.Timeframe),
		Index:     index,
		Message:   msg,
	}
}

func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
