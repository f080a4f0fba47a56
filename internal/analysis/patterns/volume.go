package patterns

import (
	"math"

	"marketpulse/internal/analysis"
	"marketpulse/internal/analysis/indicators"
	"marketpulse/internal/config"
	"marketpulse/internal/models"
)

// FlowAnalyzer measures buying versus selling pressure from volume, OBV and VWAP.
type FlowAnalyzer struct {
	lookback          int     // Trailing candles for pressure and OBV slope
	obvSlopeThreshold float64 // Normalized slope at or below which OBV is flat
	vwapBand          float64 // Relative distance treated as "at" VWAP
	spikeMultiplier   float64 // Last volume over trailing average that counts as a spike
	volumeMAPeriod    int     // Trailing average window for spike detection
	sessionVWAP       bool
}

// NewFlowAnalyzer creates a new money-flow analyzer.
func NewFlowAnalyzer(p config.FlowParams, sessionVWAP bool) *FlowAnalyzer {
	return &FlowAnalyzer{
		lookback:          p.Lookback,
		obvSlopeThreshold: p.OBVSlopeThreshold,
		vwapBand:          p.VWAPBand,
		spikeMultiplier:   p.SpikeMultiplier,
		volumeMAPeriod:    p.VolumeMAPeriod,
		sessionVWAP:       sessionVWAP,
	}
}

func (f *FlowAnalyzer) Name() string {
	return "FlowAnalyzer"
}

// Analyze returns the money-flow state at the latest candle.
func (f *FlowAnalyzer) Analyze(candles []models.Candle) analysis.MoneyFlowState {
	state := analysis.MoneyFlowState{
		OBVTrend:     analysis.OBVFlat,
		VWAPPosition: analysis.UnknownVWAP,
		VolumeTrend:  analysis.VolumeStable,
		Label:        analysis.NeutralFlow,
	}
	n := len(candles)
	if n == 0 {
		return state
	}

	size := f.lookback
	if size <= 0 || size > n {
		size = n
	}
	window := candles[n-size:]

	state.BuyPressure, state.SellPressure, state.FlatPressure = pressure(window)
	state.OBVSlope, state.OBVTrend = f.obvTrend(candles, size)
	state.VWAP, state.VWAPPosition = f.vwapPosition(candles)
	state.VolumeRatio, state.VolumeSpike = f.volumeSpike(candles)
	state.VolumeTrend = volumeTrend(window)
	state.Label = flowLabel(state.BuyPressure, state.SellPressure, state.OBVTrend)
	state.Available = true
	return state
}

// pressure splits window volume by candle direction into percentages that sum to 100.
func pressure(window []models.Candle) (buy, sell, flat float64) {
	var buyVol, sellVol, total float64
	for _, c := range window {
		total += c.Volume
		switch {
		case c.Close > c.Open:
			buyVol += c.Volume
		case c.Close < c.Open:
			sellVol += c.Volume
		}
	}
	if total == 0 {
		return 0, 0, 100
	}
	buy = buyVol / total * 100
	sell = sellVol / total * 100
	flat = math.Max(0, 100-buy-sell)
	return buy, sell, flat
}

// obvTrend fits a least-squares line through the trailing OBV values and
// expresses its slope in units of average volume per candle.
func (f *FlowAnalyzer) obvTrend(candles []models.Candle, size int) (float64, analysis.OBVTrend) {
	obv, err := indicators.NewOBV().Calculate(candles)
	if err != nil || size < 2 {
		return 0, analysis.OBVFlat
	}
	ys := obv[len(obv)-size:]

	var avgVol float64
	for _, c := range candles[len(candles)-size:] {
		avgVol += c.Volume
	}
	avgVol /= float64(size)
	if avgVol == 0 {
		return 0, analysis.OBVFlat
	}

	slope := olsSlope(ys) / avgVol
	switch {
	case slope > f.obvSlopeThreshold:
		return slope, analysis.OBVRising
	case slope < -f.obvSlopeThreshold:
		return slope, analysis.OBVFalling
	default:
		return slope, analysis.OBVFlat
	}
}

// olsSlope returns the least-squares slope of ys against 0..len-1.
func olsSlope(ys []float64) float64 {
	n := float64(len(ys))
	meanX := (n - 1) / 2
	var meanY float64
	for _, y := range ys {
		meanY += y
	}
	meanY /= n

	var num, den float64
	for i, y := range ys {
		dx := float64(i) - meanX
		num += dx * (y - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func (f *FlowAnalyzer) vwapPosition(candles []models.Candle) (float64, analysis.VWAPPosition) {
	values, err := indicators.NewVWAP(f.sessionVWAP).Calculate(candles)
	if err != nil {
		return 0, analysis.UnknownVWAP
	}
	vwap, ok := indicators.Last(values)
	if !ok || vwap <= 0 {
		return 0, analysis.UnknownVWAP
	}

	rel := (candles[len(candles)-1].Close - vwap) / vwap
	switch {
	case math.Abs(rel) <= f.vwapBand:
		return vwap, analysis.AtVWAP
	case rel > 0:
		return vwap, analysis.AboveVWAP
	default:
		return vwap, analysis.BelowVWAP
	}
}

// volumeSpike compares the last volume with the average of up to
// volumeMAPeriod preceding candles.
func (f *FlowAnalyzer) volumeSpike(candles []models.Candle) (float64, bool) {
	n := len(candles)
	period := f.volumeMAPeriod
	if period > n-1 {
		period = n - 1
	}
	if period <= 0 {
		return 0, false
	}

	var avg float64
	for _, c := range candles[n-1-period : n-1] {
		avg += c.Volume
	}
	avg /= float64(period)
	if avg == 0 {
		return 0, false
	}

	ratio := candles[n-1].Volume / avg
	return ratio, ratio > f.spikeMultiplier
}

// volumeTrend compares the average volume of the second half of the window with the first.
func volumeTrend(window []models.Candle) analysis.VolumeTrend {
	half := len(window) / 2
	if half == 0 {
		return analysis.VolumeStable
	}
	var first, second float64
	for _, c := range window[len(window)-2*half : len(window)-half] {
		first += c.Volume
	}
	for _, c := range window[len(window)-half:] {
		second += c.Volume
	}
	if first == 0 {
		return analysis.VolumeStable
	}

	ratio := second / first
	switch {
	case ratio > 1.2:
		return analysis.VolumeIncreasing
	case ratio < 0.8:
		return analysis.VolumeDecreasing
	default:
		return analysis.VolumeStable
	}
}

// flowLabel classifies the buy share of directional volume, confirmed by OBV
// for the strong labels.
func flowLabel(buy, sell float64, obv analysis.OBVTrend) analysis.FlowLabel {
	if buy+sell == 0 {
		return analysis.NeutralFlow
	}
	share := buy / (buy + sell) * 100
	switch {
	case share > 60 && obv == analysis.OBVRising:
		return analysis.StrongInflow
	case share > 55:
		return analysis.Inflow
	case share < 40 && obv == analysis.OBVFalling:
		return analysis.StrongOutflow
	case share < 45:
		return analysis.Outflow
	default:
		return analysis.NeutralFlow
	}
}
