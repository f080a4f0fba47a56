package patterns

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/analysis"
	"marketpulse/internal/analysis/analysistest"
	"marketpulse/internal/config"
	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/models"
)

func newLevelDetector() *LevelDetector {
	return NewLevelDetector(config.DefaultAnalysisConfig().Levels)
}

func TestLevelDetectorFindsRepeatedResistance(t *testing.T) {
	base := analysistest.Uptrend(120, 0.005, models.Timeframe15m)
	resistance := base.Candles[len(base.Candles)-1].Close * 1.05
	series := analysistest.WithWicks(base, resistance, 40, 60)

	set, err := newLevelDetector().Detect(series.Candles)
	require.NoError(t, err)
	assert.True(t, set.Available)
	assert.Empty(t, set.Support)

	level, ok := set.NearestResistance()
	require.True(t, ok)
	assert.InDelta(t, resistance, level.Price, 1e-9)
	assert.Equal(t, 2, level.TouchCount)
	assert.Equal(t, analysis.Resistance, level.Kind)
	assert.InDelta(t, 0.05, level.Distance, 1e-9)
	assert.InDelta(t, 2.0/100, level.VolumeWeight, 1e-9)
	assert.Equal(t, resistance, set.RangeHigh)

	pos, ok := set.RangePosition(series.Candles[len(series.Candles)-1].Close)
	require.True(t, ok)
	assert.Greater(t, pos, 50.0)
	assert.Less(t, pos, 100.0)
}

func TestLevelDetectorDropsSingleTouch(t *testing.T) {
	base := analysistest.Uptrend(120, 0.005, models.Timeframe15m)
	series := analysistest.WithWicks(base, base.Candles[119].Close*1.05, 60)

	set, err := newLevelDetector().Detect(series.Candles)
	require.NoError(t, err)
	assert.Empty(t, set.Resistance)
	assert.Empty(t, set.Support)
}

func TestLevelDetectorSplitsSupportAndResistance(t *testing.T) {
	candles := analysistest.Flat(60, models.Timeframe15m).Candles
	for _, i := range []int{10, 30} {
		candles[i].High = 105
	}
	for _, i := range []int{20, 40} {
		candles[i].Low = 95
	}

	set, err := newLevelDetector().Detect(candles)
	require.NoError(t, err)
	require.Len(t, set.Resistance, 1)
	require.Len(t, set.Support, 1)
	assert.Equal(t, 105.0, set.Resistance[0].Price)
	assert.Equal(t, 95.0, set.Support[0].Price)
	assert.Equal(t, analysis.Support, set.Support[0].Kind)
}

func TestLevelDetectorInsufficientData(t *testing.T) {
	candles := analysistest.Uptrend(6, 0.01, models.Timeframe15m).Candles
	_, err := newLevelDetector().Detect(candles)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientData)
}

func TestNearestClusterBreaksTiesByVolume(t *testing.T) {
	p := config.DefaultAnalysisConfig().Levels
	p.Tolerance = 0.5
	d := NewLevelDetector(p)

	// 150 sits 50% from a mean of 100 and 50% from a mean of 300.
	light := &cluster{sum: 100, touches: 1, volume: 10}
	heavy := &cluster{sum: 600, touches: 2, volume: 50}

	assert.Same(t, heavy, d.nearestCluster([]*cluster{light, heavy}, 150))
	assert.Same(t, heavy, d.nearestCluster([]*cluster{heavy, light}, 150))

	light.volume, heavy.volume = 80, 50
	assert.Same(t, light, d.nearestCluster([]*cluster{light, heavy}, 150))
	assert.Same(t, light, d.nearestCluster([]*cluster{heavy, light}, 150))

	// Off the midpoint the nearer cluster wins whatever its volume.
	assert.Same(t, heavy, d.nearestCluster([]*cluster{light, heavy}, 160))

	assert.Nil(t, d.nearestCluster([]*cluster{light}, 151))
	assert.Nil(t, d.nearestCluster(nil, 150))
}

type clusterSummary struct {
	mean    float64
	touches int
}

func summarize(clusters []*cluster) []clusterSummary {
	out := make([]clusterSummary, len(clusters))
	for i, c := range clusters {
		out[i] = clusterSummary{mean: c.mean(), touches: c.touches}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].mean < out[j].mean })
	return out
}

func TestProperty_LevelClusteringIgnoresDiscoveryOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	d := newLevelDetector()
	properties.Property("shuffling extrema yields the same clusters", prop.ForAll(
		func(prices []float64, volumes []float64, seed int64) bool {
			extrema := make([]extremum, len(prices))
			for i, p := range prices {
				extrema[i] = extremum{price: p, index: i, volume: volumes[i%len(volumes)]}
			}
			shuffled := append([]extremum(nil), extrema...)
			rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})

			want := summarize(d.clusterExtrema(extrema))
			got := summarize(d.clusterExtrema(shuffled))
			if len(want) != len(got) {
				return false
			}
			for i := range want {
				if want[i] != got[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(30, gen.Float64Range(95, 105)),
		gen.SliceOfN(5, gen.Float64Range(0, 1000)),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
