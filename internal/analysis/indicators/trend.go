package indicators

import (
	"fmt"
	"math"

	"marketpulse/internal/models"
)

// SMA calculates Simple Moving Average.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

func (s *SMA) Name() string {
	return fmt.Sprintf("SMA_%d", s.period)
}

func (s *SMA) Period() int {
	return s.period
}

func (s *SMA) Calculate(candles []models.Candle) ([]float64, error) {
	if err := checkPeriod(s.period, len(candles), s.period); err != nil {
		return nil, err
	}
	return smaFrom(closePrices(candles), 0, s.period), nil
}

// EMA calculates Exponential Moving Average.
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator.
func NewEMA(period int) *EMA {
	return &EMA{period: period}
}

func (e *EMA) Name() string {
	return fmt.Sprintf("EMA_%d", e.period)
}

func (e *EMA) Period() int {
	return e.period
}

func (e *EMA) Calculate(candles []models.Candle) ([]float64, error) {
	if err := checkPeriod(e.period, len(candles), e.period); err != nil {
		return nil, err
	}
	return emaFrom(closePrices(candles), 0, e.period), nil
}

// CalculateEMA calculates EMA on raw values (helper for other indicators).
// It returns nil when there are fewer values than the period.
func CalculateEMA(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}
	return emaFrom(values, 0, period)
}

// MACD calculates Moving Average Convergence Divergence.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD indicator, typically (12, 26, 9).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD_%d_%d_%d", m.fastPeriod, m.slowPeriod, m.signalPeriod)
}

func (m *MACD) Period() int {
	return m.slowPeriod + m.signalPeriod - 1
}

func (m *MACD) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if m.fastPeriod <= 0 || m.slowPeriod <= 0 || m.signalPeriod <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < m.Period() {
		return nil, ErrInsufficientData
	}

	closes := closePrices(candles)
	fastEMA := emaFrom(closes, 0, m.fastPeriod)
	slowEMA := emaFrom(closes, 0, m.slowPeriod)

	lineStart := m.slowPeriod - 1
	if m.fastPeriod > m.slowPeriod {
		lineStart = m.fastPeriod - 1
	}

	line := undefinedSeries(len(candles))
	for i := lineStart; i < len(candles); i++ {
		line[i] = fastEMA[i] - slowEMA[i]
	}

	signal := emaFrom(line, lineStart, m.signalPeriod)
	histogram := undefinedSeries(len(candles))
	for i := range histogram {
		if IsDefined(line[i]) && IsDefined(signal[i]) {
			histogram[i] = line[i] - signal[i]
		}
	}

	return map[string][]float64{
		"macd":      line,
		"signal":    signal,
		"histogram": histogram,
	}, nil
}

// ADX calculates the Average Directional Index with +DI and -DI.
type ADX struct {
	period int
}

// NewADX creates a new ADX indicator.
func NewADX(period int) *ADX {
	return &ADX{period: period}
}

func (a *ADX) Name() string {
	return fmt.Sprintf("ADX_%d", a.period)
}

func (a *ADX) Period() int {
	return 2 * a.period
}

func (a *ADX) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if err := checkPeriod(a.period, len(candles), a.Period()); err != nil {
		return nil, err
	}

	n := len(candles)
	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)

	for i := 1; i < n; i++ {
		tr[i] = trueRange(candles[i], candles[i-1])

		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	smoothTR := wilderSmooth(tr, 1, a.period)
	smoothPlus := wilderSmooth(plusDM, 1, a.period)
	smoothMinus := wilderSmooth(minusDM, 1, a.period)

	plusDI := undefinedSeries(n)
	minusDI := undefinedSeries(n)
	dx := make([]float64, n)

	for i := a.period; i < n; i++ {
		if smoothTR[i] > 0 {
			plusDI[i] = 100 * smoothPlus[i] / smoothTR[i]
			minusDI[i] = 100 * smoothMinus[i] / smoothTR[i]
		} else {
			plusDI[i] = 0
			minusDI[i] = 0
		}

		if total := plusDI[i] + minusDI[i]; total > 0 {
			dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / total
		}
	}

	return map[string][]float64{
		"adx":      wilderSmooth(dx, a.period, a.period),
		"plus_di":  plusDI,
		"minus_di": minusDI,
	}, nil
}
