// Package mtf provides multi-timeframe trend confluence.
package mtf

import (
	"context"
	"math"
	"sync"

	"marketpulse/internal/analysis"
	"marketpulse/internal/analysis/indicators"
	"marketpulse/internal/config"
	"marketpulse/internal/models"
)

// Frame is the candle series for one timeframe.
type Frame struct {
	Timeframe models.Timeframe
	Candles   []models.Candle
}

// Result contains one snapshot per input frame, in frame order, and the
// fused trend verdict.
type Result struct {
	Snapshots  []indicators.Snapshot
	Confluence analysis.Confluence
}

// Analyzer performs multi-timeframe trend analysis.
type Analyzer struct {
	engine *indicators.Engine
	names  indicators.Names
	params config.TrendParams
}

// NewAnalyzer creates a new MTF analyzer over the given indicator engine.
func NewAnalyzer(engine *indicators.Engine, names indicators.Names, params config.TrendParams) *Analyzer {
	return &Analyzer{
		engine: engine,
		names:  names,
		params: params,
	}
}

// Analyze snapshots every frame concurrently, votes a trend per frame and
// fuses the votes. Frames keep their input order in the confluence.
func (a *Analyzer) Analyze(ctx context.Context, frames []Frame) Result {
	result := Result{Snapshots: make([]indicators.Snapshot, len(frames))}
	states := make([]analysis.TrendState, len(frames))

	var wg sync.WaitGroup

	for i, frame := range frames {
		wg.Add(1)
		go func(i int, frame Frame) {
			defer wg.Done()

			snap := a.engine.Snapshot(ctx, frame.Candles)
			state := analysis.TrendState{Timeframe: frame.Timeframe, Direction: analysis.Sideways}
			if n := len(frame.Candles); n > 0 {
				state = a.Vote(frame.Timeframe, snap, frame.Candles[n-1].Close)
			}

			result.Snapshots[i] = snap
			states[i] = state
		}(i, frame)
	}

	wg.Wait()

	result.Confluence = a.Fuse(states)
	return result
}

// Vote combines EMA alignment, price against the slow SMA and ADX direction
// into a single vote in [-1, 1]. Unavailable inputs are dropped and the
// remaining weights renormalized.
func (a *Analyzer) Vote(tf models.Timeframe, snap indicators.Snapshot, close float64) analysis.TrendState {
	state := analysis.TrendState{Timeframe: tf, Direction: analysis.Sideways}

	var weighted, total float64

	fast, okFast := snap.Value(a.names.EMAFast)
	slow, okSlow := snap.Value(a.names.EMASlow)
	if okFast && okSlow && slow != 0 {
		weighted += a.params.EMAWeight * a.gapVote(fast, slow)
		total += a.params.EMAWeight
	}

	if sma, ok := snap.Value(a.names.SMASlow); ok && sma != 0 {
		weighted += a.params.SMAWeight * a.gapVote(close, sma)
		total += a.params.SMAWeight
	}

	if vote, ok := a.adxVote(snap); ok {
		weighted += a.params.ADXWeight * vote
		total += a.params.ADXWeight
	}

	if total == 0 {
		return state
	}

	v := weighted / total
	state.Vote = v
	state.Strength = math.Abs(v)
	state.Available = true
	switch {
	case v >= a.params.DirectionThreshold:
		state.Direction = analysis.Up
	case v <= -a.params.DirectionThreshold:
		state.Direction = analysis.Down
	}
	return state
}

// gapVote is the sign of the relative gap between value and reference, or 0 inside the neutral band.
func (a *Analyzer) gapVote(value, reference float64) float64 {
	gap := (value - reference) / reference
	if math.Abs(gap) <= a.params.NeutralBand {
		return 0
	}
	if gap > 0 {
		return 1
	}
	return -1
}

// adxVote follows the dominant directional index once ADX reaches the
// threshold. Below it the reading counts as a zero vote.
func (a *Analyzer) adxVote(snap indicators.Snapshot) (float64, bool) {
	reading, ok := snap.Get(a.names.ADX)
	if !ok || !reading.Available() {
		return 0, false
	}
	adx, ok1 := reading.Value("adx")
	plus, ok2 := reading.Value("plus_di")
	minus, ok3 := reading.Value("minus_di")
	if !ok1 || !ok2 || !ok3 {
		return 0, false
	}
	if adx < a.params.ADXThreshold {
		return 0, true
	}
	switch {
	case plus > minus:
		return 1, true
	case minus > plus:
		return -1, true
	default:
		return 0, true
	}
}

// Fuse classifies how the available timeframes line up. A majority needs at
// least two frames pointing the same way.
func (a *Analyzer) Fuse(states []analysis.TrendState) analysis.Confluence {
	result := analysis.Confluence{
		Direction:  analysis.Sideways,
		Agreement:  analysis.Conflicted,
		Timeframes: states,
	}

	counts := make(map[analysis.Direction]int)
	available := 0
	for _, s := range states {
		if s.Available {
			counts[s.Direction]++
			available++
		}
	}
	if available == 0 {
		return result
	}

	// Iterate in a fixed order so ties resolve the same way every run.
	var leader analysis.Direction
	best := 0
	for _, d := range []analysis.Direction{analysis.Up, analysis.Down, analysis.Sideways} {
		if counts[d] > best {
			leader, best = d, counts[d]
		}
	}

	switch {
	case best == available && available >= 2:
		result.Agreement = analysis.AllAgree
	case best >= 2 && best*2 > available:
		result.Agreement = analysis.Majority
	default:
		return result
	}

	var strength float64
	for _, s := range states {
		if s.Available && s.Direction == leader {
			strength += s.Strength
		}
	}
	result.Direction = leader
	result.Strength = strength / float64(best)
	return result
}
