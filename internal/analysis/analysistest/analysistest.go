// Package analysistest provides candle generators and synthetic market shapes
// for tests of the analysis packages.
package analysistest

import (
	"math"
	"reflect"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"

	"marketpulse/internal/models"
)

// Epoch is the first candle time of every synthetic series.
var Epoch = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

// CandleGen generates valid candle data with realistic OHLCV values.
func CandleGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.Candle{}), map[string]gopter.Gen{
		"Open":   gen.Float64Range(100.0, 1000.0),
		"High":   gen.Float64Range(100.0, 1000.0),
		"Low":    gen.Float64Range(100.0, 1000.0),
		"Close":  gen.Float64Range(100.0, 1000.0),
		"Volume": gen.Float64Range(0, 1e7),
	}).Map(func(c models.Candle) models.Candle {
		return repair(c)
	})
}

// CandleSliceGen generates between minLen and maxLen independent candles,
// timestamped 15 minutes apart.
func CandleSliceGen(minLen, maxLen int) gopter.Gen {
	return gen.IntRange(minLen, maxLen).FlatMap(func(v interface{}) gopter.Gen {
		return gen.SliceOfN(v.(int), CandleGen())
	}, reflect.TypeOf([]models.Candle{})).Map(func(candles []models.Candle) []models.Candle {
		for i := range candles {
			candles[i] = repair(candles[i])
			candles[i].Timestamp = Epoch.Add(time.Duration(i) * 15 * time.Minute)
		}
		return candles
	})
}

// WalkGen generates a random-walk series of between minLen and maxLen candles.
// Consecutive candles open at the previous close, which gives indicators and
// pivots a more market-like shape than independent candles.
func WalkGen(minLen, maxLen int) gopter.Gen {
	step := gen.Struct(reflect.TypeOf(walkStep{}), map[string]gopter.Gen{
		"Return": gen.Float64Range(-0.03, 0.03),
		"Upper":  gen.Float64Range(0, 0.01),
		"Lower":  gen.Float64Range(0, 0.01),
		"Volume": gen.Float64Range(0, 5000),
	})
	return gen.IntRange(minLen, maxLen).FlatMap(func(v interface{}) gopter.Gen {
		return gen.SliceOfN(v.(int), step)
	}, reflect.TypeOf([]walkStep{})).Map(func(steps []walkStep) []models.Candle {
		candles := make([]models.Candle, len(steps))
		price := 100.0
		for i, s := range steps {
			open := price
			closePrice := open * (1 + s.Return)
			candles[i] = models.Candle{
				Timestamp: Epoch.Add(time.Duration(i) * 15 * time.Minute),
				Open:      open,
				Close:     closePrice,
				High:      math.Max(open, closePrice) * (1 + s.Upper),
				Low:       math.Min(open, closePrice) * (1 - s.Lower),
				Volume:    s.Volume,
			}
			price = closePrice
		}
		return candles
	})
}

type walkStep struct {
	Return float64
	Upper  float64
	Lower  float64
	Volume float64
}

func repair(c models.Candle) models.Candle {
	if c.Open <= 0 {
		c.Open = 100.0
	}
	if c.Close <= 0 {
		c.Close = 100.0
	}
	if c.Volume < 0 {
		c.Volume = 0
	}
	// Ensure OHLC constraints: High >= max(Open, Close) and Low <= min(Open, Close)
	c.High = math.Max(c.High, math.Max(c.Open, c.Close))
	if c.Low <= 0 {
		c.Low = math.Min(c.Open, c.Close)
	}
	c.Low = math.Min(c.Low, math.Min(c.Open, c.Close))
	return c
}

// Uptrend builds n candles whose closes grow geometrically by growth per candle.
// Each candle opens at the previous close with a 0.1% wick on both sides and
// constant volume.
func Uptrend(n int, growth float64, tf models.Timeframe) models.Series {
	candles := make([]models.Candle, n)
	price := 100.0
	for i := range candles {
		open := price
		closePrice := open * (1 + growth)
		candles[i] = models.Candle{
			Timestamp: Epoch.Add(time.Duration(i) * tf.Duration()),
			Open:      open,
			Close:     closePrice,
			High:      closePrice * 1.001,
			Low:       open * 0.999,
			Volume:    1000,
		}
		price = closePrice
	}
	return models.Series{Symbol: "TESTUSDT", Timeframe: tf, Candles: candles}
}

// WithWicks returns a copy of s whose candles at the given indices have their
// high raised to price, leaving closes untouched.
func WithWicks(s models.Series, price float64, indices ...int) models.Series {
	candles := append([]models.Candle(nil), s.Candles...)
	for _, i := range indices {
		candles[i].High = price
	}
	return models.Series{Symbol: s.Symbol, Timeframe: s.Timeframe, Candles: candles}
}

// Flat builds n doji candles whose closes alternate between 100.00 and 100.08,
// inside a 0.1% band, with identical volume on every candle.
func Flat(n int, tf models.Timeframe) models.Series {
	candles := make([]models.Candle, n)
	for i := range candles {
		price := 100.0
		if i%2 == 1 {
			price = 100.08
		}
		candles[i] = models.Candle{
			Timestamp: Epoch.Add(time.Duration(i) * tf.Duration()),
			Open:      price,
			Close:     price,
			High:      price + 0.02,
			Low:       price - 0.02,
			Volume:    1000,
		}
	}
	return models.Series{Symbol: "TESTUSDT", Timeframe: tf, Candles: candles}
}

// Candle is a shorthand constructor used by pattern tests.
func Candle(open, high, low, close float64) models.Candle {
	return models.Candle{Open: open, High: high, Low: low, Close: close, Volume: 1000}
}
