// Package patterns provides candlestick, level and money-flow detection.
package patterns

import (
	"math"

	"marketpulse/internal/analysis"
	"marketpulse/internal/config"
	"marketpulse/internal/models"
)

// Window is the number of trailing candles the recognizer inspects.
const Window = 3

// Pattern names reported by CandlestickRecognizer.
const (
	PatternDoji               = "Doji"
	PatternHammer             = "Hammer"
	PatternHangingMan         = "Hanging Man"
	PatternShootingStar       = "Shooting Star"
	PatternBullishEngulfing   = "Bullish Engulfing"
	PatternBearishEngulfing   = "Bearish Engulfing"
	PatternMorningStar        = "Morning Star"
	PatternEveningStar        = "Evening Star"
	PatternThreeWhiteSoldiers = "Three White Soldiers"
	PatternThreeBlackCrows    = "Three Black Crows"
	PatternBullishPinBar      = "Bullish Pin Bar"
	PatternBearishPinBar      = "Bearish Pin Bar"
	PatternTweezerTop         = "Tweezer Top"
	PatternTweezerBottom      = "Tweezer Bottom"
)

// CandlestickRecognizer classifies the last few candles into named patterns.
type CandlestickRecognizer struct {
	p config.PatternParams
}

// NewCandlestickRecognizer creates a recognizer with the given thresholds.
func NewCandlestickRecognizer(p config.PatternParams) *CandlestickRecognizer {
	return &CandlestickRecognizer{p: p}
}

func (r *CandlestickRecognizer) Name() string {
	return "CandlestickRecognizer"
}

type window struct {
	candles []models.Candle // oldest first, at most Window long
	offset  int             // index of candles[0] in the full series
}

func (w window) last(back int) (models.Candle, bool) {
	i := len(w.candles) - 1 - back
	if i < 0 {
		return models.Candle{}, false
	}
	return w.candles[i], true
}

func (w window) match(name string, span int, bias analysis.Bias, strength float64) analysis.PatternMatch {
	end := w.offset + len(w.candles) - 1
	return analysis.PatternMatch{
		Name:       name,
		StartIndex: end - span + 1,
		EndIndex:   end,
		Bias:       bias,
		Strength:   strength,
	}
}

// Detect evaluates every predicate against the trailing candles, in a fixed
// order, and returns all matches. Predicates needing more candles than are
// present are skipped.
func (r *CandlestickRecognizer) Detect(candles []models.Candle) []analysis.PatternMatch {
	start := len(candles) - Window
	if start < 0 {
		start = 0
	}
	w := window{candles: candles[start:], offset: start}

	detectors := []func(window) *analysis.PatternMatch{
		r.detectDoji,
		r.detectHammer,
		r.detectHangingMan,
		r.detectShootingStar,
		r.detectBullishEngulfing,
		r.detectBearishEngulfing,
		r.detectMorningStar,
		r.detectEveningStar,
		r.detectThreeWhiteSoldiers,
		r.detectThreeBlackCrows,
		r.detectPinBar,
		r.detectTweezerTop,
		r.detectTweezerBottom,
	}

	var matches []analysis.PatternMatch
	for _, detect := range detectors {
		if m := detect(w); m != nil {
			matches = append(matches, *m)
		}
	}
	return matches
}

func (r *CandlestickRecognizer) detectDoji(w window) *analysis.PatternMatch {
	c, ok := w.last(0)
	if !ok || c.Range() <= 0 {
		return nil
	}
	ratio := c.Body() / c.Range()
	if ratio > r.p.DojiBodyRatio {
		return nil
	}
	m := w.match(PatternDoji, 1, analysis.Neutral, strengthBelow(ratio, r.p.DojiBodyRatio))
	return &m
}

// hammerShape reports a small body with a long lower wick and a short upper wick.
func (r *CandlestickRecognizer) hammerShape(c models.Candle) (float64, bool) {
	body := c.Body()
	if c.Range() <= 0 || body <= 0 || body/c.Range() > r.p.HammerMaxBodyRatio {
		return 0, false
	}
	wick := c.LowerShadow() / body
	if wick < r.p.HammerWickRatio || c.UpperShadow() > r.p.HammerMaxShadow*body {
		return 0, false
	}
	return strengthAbove(wick, r.p.HammerWickRatio, 2*r.p.HammerWickRatio), true
}

// invertedShape reports a small body with a long upper wick and a short lower wick.
func (r *CandlestickRecognizer) invertedShape(c models.Candle) (float64, bool) {
	body := c.Body()
	if c.Range() <= 0 || body <= 0 || body/c.Range() > r.p.HammerMaxBodyRatio {
		return 0, false
	}
	wick := c.UpperShadow() / body
	if wick < r.p.HammerWickRatio || c.LowerShadow() > r.p.HammerMaxShadow*body {
		return 0, false
	}
	return strengthAbove(wick, r.p.HammerWickRatio, 2*r.p.HammerWickRatio), true
}

// priorMove returns the close-to-close move of the two candles before the last.
func priorMove(w window) (float64, bool) {
	p, ok1 := w.last(1)
	pp, ok2 := w.last(2)
	if !ok1 || !ok2 {
		return 0, false
	}
	return p.Close - pp.Close, true
}

func (r *CandlestickRecognizer) detectHammer(w window) *analysis.PatternMatch {
	c, _ := w.last(0)
	move, ok := priorMove(w)
	if !ok || move >= 0 {
		return nil
	}
	strength, ok := r.hammerShape(c)
	if !ok {
		return nil
	}
	m := w.match(PatternHammer, 1, analysis.Bullish, strength)
	return &m
}

func (r *CandlestickRecognizer) detectHangingMan(w window) *analysis.PatternMatch {
	c, _ := w.last(0)
	move, ok := priorMove(w)
	if !ok || move <= 0 {
		return nil
	}
	strength, ok := r.hammerShape(c)
	if !ok {
		return nil
	}
	m := w.match(PatternHangingMan, 1, analysis.Bearish, strength)
	return &m
}

func (r *CandlestickRecognizer) detectShootingStar(w window) *analysis.PatternMatch {
	c, _ := w.last(0)
	move, ok := priorMove(w)
	if !ok || move <= 0 {
		return nil
	}
	strength, ok := r.invertedShape(c)
	if !ok {
		return nil
	}
	m := w.match(PatternShootingStar, 1, analysis.Bearish, strength)
	return &m
}

func (r *CandlestickRecognizer) detectBullishEngulfing(w window) *analysis.PatternMatch {
	c, ok1 := w.last(0)
	p, ok2 := w.last(1)
	if !ok1 || !ok2 || !p.IsBearish() || !c.IsBullish() {
		return nil
	}
	if c.Open > p.Close || c.Close < p.Open || c.Body() <= p.Body() {
		return nil
	}
	m := w.match(PatternBullishEngulfing, 2, analysis.Bullish, strengthAbove(c.Body()/p.Body(), 1, 2))
	return &m
}

func (r *CandlestickRecognizer) detectBearishEngulfing(w window) *analysis.PatternMatch {
	c, ok1 := w.last(0)
	p, ok2 := w.last(1)
	if !ok1 || !ok2 || !p.IsBullish() || !c.IsBearish() {
		return nil
	}
	if c.Open < p.Close || c.Close > p.Open || c.Body() <= p.Body() {
		return nil
	}
	m := w.match(PatternBearishEngulfing, 2, analysis.Bearish, strengthAbove(c.Body()/p.Body(), 1, 2))
	return &m
}

// starStrength checks both outer bodies dwarf the middle one.
func (r *CandlestickRecognizer) starStrength(first, middle, last models.Candle) (float64, bool) {
	outer := math.Min(first.Body(), last.Body())
	if middle.Body() == 0 {
		return 1, outer > 0
	}
	ratio := outer / middle.Body()
	if ratio < r.p.StarBodyRatio {
		return 0, false
	}
	return strengthAbove(ratio, r.p.StarBodyRatio, 2*r.p.StarBodyRatio), true
}

func (r *CandlestickRecognizer) detectMorningStar(w window) *analysis.PatternMatch {
	c, ok1 := w.last(0)
	mid, ok2 := w.last(1)
	first, ok3 := w.last(2)
	if !ok1 || !ok2 || !ok3 || !first.IsBearish() || !c.IsBullish() {
		return nil
	}
	if c.Close <= (first.Open+first.Close)/2 {
		return nil
	}
	strength, ok := r.starStrength(first, mid, c)
	if !ok {
		return nil
	}
	m := w.match(PatternMorningStar, 3, analysis.Bullish, strength)
	return &m
}

func (r *CandlestickRecognizer) detectEveningStar(w window) *analysis.PatternMatch {
	c, ok1 := w.last(0)
	mid, ok2 := w.last(1)
	first, ok3 := w.last(2)
	if !ok1 || !ok2 || !ok3 || !first.IsBullish() || !c.IsBearish() {
		return nil
	}
	if c.Close >= (first.Open+first.Close)/2 {
		return nil
	}
	strength, ok := r.starStrength(first, mid, c)
	if !ok {
		return nil
	}
	m := w.match(PatternEveningStar, 3, analysis.Bearish, strength)
	return &m
}

// minBodyRatio returns the smallest body/range ratio of the window, or false on a zero-range candle.
func minBodyRatio(candles []models.Candle) (float64, bool) {
	lowest := math.Inf(1)
	for _, c := range candles {
		if c.Range() <= 0 {
			return 0, false
		}
		lowest = math.Min(lowest, c.Body()/c.Range())
	}
	return lowest, true
}

func (r *CandlestickRecognizer) detectThreeWhiteSoldiers(w window) *analysis.PatternMatch {
	if len(w.candles) < 3 {
		return nil
	}
	for i, c := range w.candles {
		if !c.IsBullish() {
			return nil
		}
		if i > 0 {
			prev := w.candles[i-1]
			if c.Close <= prev.Close || c.Open < prev.Open || c.Open > prev.Close {
				return nil
			}
		}
	}
	ratio, ok := minBodyRatio(w.candles)
	if !ok || ratio < r.p.SoldierMinBodyRatio {
		return nil
	}
	m := w.match(PatternThreeWhiteSoldiers, 3, analysis.Bullish, strengthAbove(ratio, r.p.SoldierMinBodyRatio, 1))
	return &m
}

func (r *CandlestickRecognizer) detectThreeBlackCrows(w window) *analysis.PatternMatch {
	if len(w.candles) < 3 {
		return nil
	}
	for i, c := range w.candles {
		if !c.IsBearish() {
			return nil
		}
		if i > 0 {
			prev := w.candles[i-1]
			if c.Close >= prev.Close || c.Open > prev.Open || c.Open < prev.Close {
				return nil
			}
		}
	}
	ratio, ok := minBodyRatio(w.candles)
	if !ok || ratio < r.p.SoldierMinBodyRatio {
		return nil
	}
	m := w.match(PatternThreeBlackCrows, 3, analysis.Bearish, strengthAbove(ratio, r.p.SoldierMinBodyRatio, 1))
	return &m
}

func (r *CandlestickRecognizer) detectPinBar(w window) *analysis.PatternMatch {
	c, ok := w.last(0)
	if !ok || c.Range() <= 0 {
		return nil
	}
	lower := c.LowerShadow() / c.Range()
	upper := c.UpperShadow() / c.Range()

	var m analysis.PatternMatch
	switch {
	case lower >= r.p.PinBarWickRatio:
		m = w.match(PatternBullishPinBar, 1, analysis.Bullish, strengthAbove(lower, r.p.PinBarWickRatio, 1))
	case upper >= r.p.PinBarWickRatio:
		m = w.match(PatternBearishPinBar, 1, analysis.Bearish, strengthAbove(upper, r.p.PinBarWickRatio, 1))
	default:
		return nil
	}
	return &m
}

func (r *CandlestickRecognizer) tweezerTolerance(a, b models.Candle) float64 {
	return r.p.TweezerTolerance * math.Max(a.Range(), b.Range())
}

func (r *CandlestickRecognizer) detectTweezerTop(w window) *analysis.PatternMatch {
	c, ok1 := w.last(0)
	p, ok2 := w.last(1)
	if !ok1 || !ok2 || !p.IsBullish() || !c.IsBearish() {
		return nil
	}
	tol := r.tweezerTolerance(p, c)
	diff := math.Abs(c.High - p.High)
	if tol <= 0 || diff > tol {
		return nil
	}
	m := w.match(PatternTweezerTop, 2, analysis.Bearish, strengthBelow(diff, tol))
	return &m
}

func (r *CandlestickRecognizer) detectTweezerBottom(w window) *analysis.PatternMatch {
	c, ok1 := w.last(0)
	p, ok2 := w.last(1)
	if !ok1 || !ok2 || !p.IsBearish() || !c.IsBullish() {
		return nil
	}
	tol := r.tweezerTolerance(p, c)
	diff := math.Abs(c.Low - p.Low)
	if tol <= 0 || diff > tol {
		return nil
	}
	m := w.match(PatternTweezerBottom, 2, analysis.Bullish, strengthBelow(diff, tol))
	return &m
}

// strengthAbove scores a value that must reach threshold: 0.5 at the
// threshold rising to 1 at full.
func strengthAbove(value, threshold, full float64) float64 {
	if full <= threshold {
		return 1
	}
	return 0.5 + 0.5*clamp01((value-threshold)/(full-threshold))
}

// strengthBelow scores a value that must stay under threshold: 0.5 at the
// threshold rising to 1 at zero.
func strengthBelow(value, threshold float64) float64 {
	if threshold <= 0 {
		return 1
	}
	return 0.5 + 0.5*clamp01(1-value/threshold)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
