// Package indicators provides technical indicator calculations with parallel processing.
package indicators

import (
	"context"
	"sort"
	"sync"

	"marketpulse/internal/config"
	"marketpulse/internal/models"
)

// Indicator defines the interface for single-value technical indicators.
// Calculate returns a series aligned with candles; positions before the
// lookback is satisfied hold Undefined.
type Indicator interface {
	Name() string
	Calculate(candles []models.Candle) ([]float64, error)
	Period() int
}

// MultiValueIndicator defines the interface for indicators that return multiple values.
type MultiValueIndicator interface {
	Name() string
	Calculate(candles []models.Candle) (map[string][]float64, error)
	Period() int
}

// ValueKey is the Reading key used by single-value indicators.
const ValueKey = "value"

// Reading is the latest output of one indicator.
type Reading struct {
	Name     string
	Values   map[string]float64 // latest value per output key
	Previous map[string]float64 // value one candle earlier, where defined
	Err      error              // non-nil when the indicator is unavailable
}

// Available reports whether the indicator produced a usable value.
func (r Reading) Available() bool {
	return r.Err == nil
}

// Value returns the latest value for key.
func (r Reading) Value(key string) (float64, bool) {
	if r.Err != nil {
		return 0, false
	}
	v, ok := r.Values[key]
	return v, ok
}

// Prev returns the value one candle earlier for key.
func (r Reading) Prev(key string) (float64, bool) {
	if r.Err != nil {
		return 0, false
	}
	v, ok := r.Previous[key]
	return v, ok
}

// Snapshot maps indicator names to their latest readings for one series.
// A snapshot is built once per run and never modified afterwards.
type Snapshot struct {
	Readings map[string]Reading
}

// Get returns the reading for an indicator name.
func (s Snapshot) Get(name string) (Reading, bool) {
	r, ok := s.Readings[name]
	return r, ok
}

// Value returns the latest value of a single-value indicator.
func (s Snapshot) Value(name string) (float64, bool) {
	return s.Field(name, ValueKey)
}

// Field returns one output of a multi-value indicator.
func (s Snapshot) Field(name, key string) (float64, bool) {
	r, ok := s.Readings[name]
	if !ok {
		return 0, false
	}
	return r.Value(key)
}

// Names returns the indicator names in sorted order.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s.Readings))
	for name := range s.Readings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unavailable returns the names of indicators that could not be computed.
func (s Snapshot) Unavailable() []string {
	var names []string
	for _, name := range s.Names() {
		if !s.Readings[name].Available() {
			names = append(names, name)
		}
	}
	return names
}

// Engine provides parallel indicator calculation using a worker pool.
type Engine struct {
	workers     int
	indicators  map[string]Indicator
	multiIndics map[string]MultiValueIndicator
	mu          sync.RWMutex
}

// NewEngine creates a new indicator engine with the specified number of workers.
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		workers:     workers,
		indicators:  make(map[string]Indicator),
		multiIndics: make(map[string]MultiValueIndicator),
	}
}

// RegisterIndicator registers a single-value indicator.
func (e *Engine) RegisterIndicator(ind Indicator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.indicators[ind.Name()] = ind
}

// RegisterMultiIndicator registers a multi-value indicator.
func (e *Engine) RegisterMultiIndicator(ind MultiValueIndicator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.multiIndics[ind.Name()] = ind
}

// Snapshot calculates all registered indicators in parallel and keeps the
// latest values. An indicator that fails, most often with
// ErrInsufficientData, is recorded as unavailable without affecting the others.
func (e *Engine) Snapshot(ctx context.Context, candles []models.Candle) Snapshot {
	e.mu.RLock()
	jobs := make([]func() Reading, 0, len(e.indicators)+len(e.multiIndics))
	for _, ind := range e.indicators {
		ind := ind
		jobs = append(jobs, func() Reading {
			values, err := ind.Calculate(candles)
			if err != nil {
				return Reading{Name: ind.Name(), Err: err}
			}
			return latest(ind.Name(), map[string][]float64{ValueKey: values})
		})
	}
	for _, ind := range e.multiIndics {
		ind := ind
		jobs = append(jobs, func() Reading {
			values, err := ind.Calculate(candles)
			if err != nil {
				return Reading{Name: ind.Name(), Err: err}
			}
			return latest(ind.Name(), values)
		})
	}
	e.mu.RUnlock()

	readings := make(map[string]Reading, len(jobs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	work := make(chan func() Reading, len(jobs))
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range work {
				if ctx.Err() != nil {
					continue
				}
				r := job()
				mu.Lock()
				readings[r.Name] = r
				mu.Unlock()
			}
		}()
	}

	for _, job := range jobs {
		work <- job
	}
	close(work)
	wg.Wait()

	return Snapshot{Readings: readings}
}

// latest reduces full series to their last (and second to last) values.
// A non-finite latest value marks the whole reading unavailable so NaN never
// reaches consumers.
func latest(name string, series map[string][]float64) Reading {
	r := Reading{
		Name:     name,
		Values:   make(map[string]float64, len(series)),
		Previous: make(map[string]float64, len(series)),
	}
	for key, values := range series {
		v, ok := Last(values)
		if !ok {
			return Reading{Name: name, Err: ErrInsufficientData}
		}
		r.Values[key] = v
		if len(values) > 1 && IsDefined(values[len(values)-2]) {
			r.Previous[key] = values[len(values)-2]
		}
	}
	return r
}

// Names identifies the snapshot keys of the standard indicator set.
type Names struct {
	SMAFast    string
	SMAMid     string
	SMASlow    string
	EMAFast    string
	EMASlow    string
	RSI        string
	MACD       string
	Bollinger  string
	ATR        string
	Stochastic string
	ADX        string
	VWAP       string
	OBV        string
}

// StandardNames returns the snapshot keys NewStandardEngine registers under.
func StandardNames(p config.IndicatorParams) Names {
	return Names{
		SMAFast:    NewSMA(p.SMAFast).Name(),
		SMAMid:     NewSMA(p.SMAMid).Name(),
		SMASlow:    NewSMA(p.SMASlow).Name(),
		EMAFast:    NewEMA(p.EMAFast).Name(),
		EMASlow:    NewEMA(p.EMASlow).Name(),
		RSI:        NewRSI(p.RSIPeriod).Name(),
		MACD:       NewMACD(p.MACDFast, p.MACDSlow, p.MACDSignal).Name(),
		Bollinger:  NewBollingerBands(p.BBPeriod, p.BBStdDev).Name(),
		ATR:        NewATR(p.ATRPeriod).Name(),
		Stochastic: NewStochastic(p.StochK, p.StochSmooth, p.StochD).Name(),
		ADX:        NewADX(p.ADXPeriod).Name(),
		VWAP:       NewVWAP(p.VWAPSessionReset).Name(),
		OBV:        NewOBV().Name(),
	}
}

// NewStandardEngine registers every indicator the analysis uses.
func NewStandardEngine(p config.IndicatorParams, workers int) *Engine {
	e := NewEngine(workers)

	e.RegisterIndicator(NewSMA(p.SMAFast))
	e.RegisterIndicator(NewSMA(p.SMAMid))
	e.RegisterIndicator(NewSMA(p.SMASlow))
	e.RegisterIndicator(NewEMA(p.EMAFast))
	e.RegisterIndicator(NewEMA(p.EMASlow))
	e.RegisterIndicator(NewRSI(p.RSIPeriod))
	e.RegisterIndicator(NewATR(p.ATRPeriod))
	e.RegisterIndicator(NewVWAP(p.VWAPSessionReset))
	e.RegisterIndicator(NewOBV())

	e.RegisterMultiIndicator(NewMACD(p.MACDFast, p.MACDSlow, p.MACDSignal))
	e.RegisterMultiIndicator(NewBollingerBands(p.BBPeriod, p.BBStdDev))
	e.RegisterMultiIndicator(NewStochastic(p.StochK, p.StochSmooth, p.StochD))
	e.RegisterMultiIndicator(NewADX(p.ADXPeriod))

	return e
}
