package patterns

import (
	"math"
	"sort"

	"marketpulse/internal/analysis"
	"marketpulse/internal/config"
	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/models"
)

// LevelDetector identifies support and resistance levels by clustering
// swing highs and lows.
type LevelDetector struct {
	pivotWindow int     // Number of bars on each side for pivot confirmation
	tolerance   float64 // Relative distance for clustering extrema
	minTouches  int     // Minimum touches to confirm a level
	lookback    int     // Trailing candles scanned, 0 for the whole series
}

// NewLevelDetector creates a new support/resistance level detector.
func NewLevelDetector(p config.LevelParams) *LevelDetector {
	return &LevelDetector{
		pivotWindow: p.PivotWindow,
		tolerance:   p.Tolerance,
		minTouches:  p.MinTouches,
		lookback:    p.Lookback,
	}
}

func (l *LevelDetector) Name() string {
	return "LevelDetector"
}

// extremum is a confirmed swing high or low.
type extremum struct {
	price  float64
	index  int
	volume float64
}

type cluster struct {
	sum     float64
	touches int
	volume  float64
}

func (c *cluster) mean() float64 {
	return c.sum / float64(c.touches)
}

func (c *cluster) absorb(e extremum) {
	c.sum += e.price
	c.touches++
	c.volume += e.volume
}

// Detect returns the levels around the latest close. The result does not
// depend on the order in which extrema are discovered.
func (l *LevelDetector) Detect(candles []models.Candle) (analysis.LevelSet, error) {
	start := 0
	if l.lookback > 0 && len(candles) > l.lookback {
		start = len(candles) - l.lookback
	}
	scan := candles[start:]

	if len(scan) < 2*l.pivotWindow+1 {
		return analysis.LevelSet{}, apperrors.Wrapf(apperrors.ErrInsufficientData,
			"levels need %d candles, have %d", 2*l.pivotWindow+1, len(scan))
	}

	var totalVolume float64
	rangeHigh, rangeLow := scan[0].High, scan[0].Low
	for _, c := range scan {
		totalVolume += c.Volume
		rangeHigh = math.Max(rangeHigh, c.High)
		rangeLow = math.Min(rangeLow, c.Low)
	}

	extrema := l.findExtrema(scan, start)
	clusters := l.clusterExtrema(extrema)

	current := candles[len(candles)-1].Close
	set := analysis.LevelSet{RangeHigh: rangeHigh, RangeLow: rangeLow, Available: true}
	for _, c := range clusters {
		if c.touches < l.minTouches {
			continue
		}
		level := analysis.Level{
			Price:      c.mean(),
			TouchCount: c.touches,
			Distance:   math.Abs(c.mean()-current) / current,
		}
		if totalVolume > 0 {
			level.VolumeWeight = c.volume / totalVolume
		}
		if level.Price > current {
			level.Kind = analysis.Resistance
			set.Resistance = append(set.Resistance, level)
		} else {
			level.Kind = analysis.Support
			set.Support = append(set.Support, level)
		}
	}

	sortNearest(set.Support)
	sortNearest(set.Resistance)
	return set, nil
}

// findExtrema returns pivot highs and lows. A pivot must be strictly beyond
// every other candle within the window on both sides.
func (l *LevelDetector) findExtrema(scan []models.Candle, offset int) []extremum {
	w := l.pivotWindow
	var out []extremum
	for i := w; i < len(scan)-w; i++ {
		isHigh, isLow := true, true
		for j := i - w; j <= i+w; j++ {
			if j == i {
				continue
			}
			if scan[j].High >= scan[i].High {
				isHigh = false
			}
			if scan[j].Low <= scan[i].Low {
				isLow = false
			}
		}
		if isHigh {
			out = append(out, extremum{price: scan[i].High, index: offset + i, volume: scan[i].Volume})
		}
		if isLow {
			out = append(out, extremum{price: scan[i].Low, index: offset + i, volume: scan[i].Volume})
		}
	}
	return out
}

// clusterExtrema groups extrema whose prices lie within the relative
// tolerance of a cluster's running mean.
func (l *LevelDetector) clusterExtrema(extrema []extremum) []*cluster {
	sorted := append([]extremum(nil), extrema...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].price != sorted[j].price {
			return sorted[i].price < sorted[j].price
		}
		return sorted[i].index < sorted[j].index
	})

	var clusters []*cluster
	for _, e := range sorted {
		best := l.nearestCluster(clusters, e.price)
		if best == nil {
			best = &cluster{}
			clusters = append(clusters, best)
		}
		best.absorb(e)
	}
	return clusters
}

// nearestCluster returns the cluster whose mean is relatively closest to
// price within tolerance, or nil. Equidistant clusters go to the one
// carrying more volume.
func (l *LevelDetector) nearestCluster(clusters []*cluster, price float64) *cluster {
	var best *cluster
	bestDist := math.Inf(1)
	for _, c := range clusters {
		dist := math.Abs(price-c.mean()) / c.mean()
		if dist > l.tolerance {
			continue
		}
		if dist < bestDist || (dist == bestDist && best != nil && c.volume > best.volume) {
			best = c
			bestDist = dist
		}
	}
	return best
}

func sortNearest(levels []analysis.Level) {
	sort.SliceStable(levels, func(i, j int) bool {
		if levels[i].Distance != levels[j].Distance {
			return levels[i].Distance < levels[j].Distance
		}
		return levels[i].Price < levels[j].Price
	})
}
