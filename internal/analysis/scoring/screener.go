package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"marketpulse/internal/analysis"
	"marketpulse/internal/analysis/indicators"
)

// FilterType represents the field a screener filter reads.
type FilterType string

const (
	FilterScore       FilterType = "score"
	FilterAbsScore    FilterType = "abs_score"
	FilterConfidence  FilterType = "confidence"
	FilterRSI         FilterType = "rsi"
	FilterVolumeRatio FilterType = "volume_ratio"
	FilterRiskReward  FilterType = "risk_reward"
)

// FilterOperator represents the comparison operator for a filter.
type FilterOperator string

const (
	OpGreaterThan      FilterOperator = ">"
	OpLessThan         FilterOperator = "<"
	OpGreaterThanEqual FilterOperator = ">="
	OpLessThanEqual    FilterOperator = "<="
)

// Filter represents a single screener filter condition.
type Filter struct {
	Type     FilterType
	Operator FilterOperator
	Value    float64
}

func (f Filter) String() string {
	return fmt.Sprintf("%s %s %.2f", f.Type, f.Operator, f.Value)
}

// ScreenerResult represents the result of screening a single symbol.
type ScreenerResult struct {
	Symbol  string
	Result  analysis.Result
	Matches map[string]float64 // Filter -> actual value
	Passed  bool
	Error   error
}

// Runner produces a full analysis for one symbol.
type Runner func(ctx context.Context, symbol string) (analysis.Result, error)

// Screener runs analyses for a watchlist concurrently and keeps the symbols
// that pass every filter.
type Screener struct {
	run         Runner
	names       indicators.Names
	concurrency int
}

// NewScreener creates a new watchlist screener.
func NewScreener(run Runner, names indicators.Names, concurrency int) *Screener {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Screener{
		run:         run,
		names:       names,
		concurrency: concurrency,
	}
}

// Scan analyzes the given symbols and applies the filters with AND logic.
// Results come back strongest absolute score first. Symbols that fail to
// analyze are returned with Error set and Passed false.
func (s *Screener) Scan(ctx context.Context, symbols []string, filters []Filter) []ScreenerResult {
	if len(symbols) == 0 {
		return nil
	}

	resultChan := make(chan ScreenerResult, len(symbols))
	workChan := make(chan string, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range workChan {
				if ctx.Err() != nil {
					resultChan <- ScreenerResult{Symbol: symbol, Error: ctx.Err()}
					continue
				}
				resultChan <- s.scanSymbol(ctx, symbol, filters)
			}
		}()
	}

	for _, symbol := range symbols {
		workChan <- symbol
	}
	close(workChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]ScreenerResult, 0, len(symbols))
	for result := range resultChan {
		results = append(results, result)
	}

	sortResultsByScore(results)
	return results
}

// scanSymbol analyzes a single symbol against all filters.
func (s *Screener) scanSymbol(ctx context.Context, symbol string, filters []Filter) ScreenerResult {
	result := ScreenerResult{
		Symbol:  symbol,
		Matches: make(map[string]float64),
		Passed:  true,
	}

	res, err := s.run(ctx, symbol)
	if err != nil {
		result.Error = err
		result.Passed = false
		return result
	}
	result.Result = res

	for _, filter := range filters {
		value, ok := s.filterValue(res, filter.Type)
		result.Matches[filter.String()] = value
		if !ok || !compareValues(value, filter.Operator, filter.Value) {
			result.Passed = false
			return result
		}
	}
	return result
}

func (s *Screener) filterValue(res analysis.Result, ft FilterType) (float64, bool) {
	switch ft {
	case FilterScore:
		return res.Score.Value, true
	case FilterAbsScore:
		return math.Abs(res.Score.Value), true
	case FilterConfidence:
		return res.Score.Confidence, true
	case FilterRSI:
		return res.PrimarySnapshot().Value(s.names.RSI)
	case FilterVolumeRatio:
		return res.MoneyFlow.VolumeRatio, res.MoneyFlow.Available
	case FilterRiskReward:
		if len(res.Scenarios) == 0 {
			return 0, false
		}
		return res.Scenarios[0].RiskReward.Value, res.Scenarios[0].RiskReward.Defined
	default:
		return 0, false
	}
}

// compareValues compares two values using the given operator.
func compareValues(actual float64, op FilterOperator, expected float64) bool {
	switch op {
	case OpGreaterThan:
		return actual > expected
	case OpLessThan:
		return actual < expected
	case OpGreaterThanEqual:
		return actual >= expected
	case OpLessThanEqual:
		return actual <= expected
	default:
		return false
	}
}

// sortResultsByScore orders passing results first, then by absolute score
// descending, then by symbol.
func sortResultsByScore(results []ScreenerResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Passed != b.Passed {
			return a.Passed
		}
		sa, sb := math.Abs(a.Result.Score.Value), math.Abs(b.Result.Score.Value)
		if sa != sb {
			return sa > sb
		}
		return a.Symbol < b.Symbol
	})
}

// PresetScreener represents a pre-built screener configuration.
type PresetScreener struct {
	Name        string
	Description string
	Filters     []Filter
}

// GetPresetScreeners returns all available pre-built screeners.
func GetPresetScreeners() []PresetScreener {
	return []PresetScreener{
		{
			Name:        "strong",
			Description: "Clear directional signal with conviction",
			Filters: []Filter{
				{Type: FilterAbsScore, Operator: OpGreaterThanEqual, Value: 30},
				{Type: FilterConfidence, Operator: OpGreaterThanEqual, Value: 40},
			},
		},
		{
			Name:        "bullish",
			Description: "Buy-side verdicts",
			Filters:     []Filter{{Type: FilterScore, Operator: OpGreaterThanEqual, Value: 10}},
		},
		{
			Name:        "bearish",
			Description: "Sell-side verdicts",
			Filters:     []Filter{{Type: FilterScore, Operator: OpLessThanEqual, Value: -10}},
		},
		{
			Name:        "oversold",
			Description: "RSI below 30",
			Filters:     []Filter{{Type: FilterRSI, Operator: OpLessThan, Value: 30}},
		},
		{
			Name:        "volume",
			Description: "Volume at least twice its trailing average",
			Filters:     []Filter{{Type: FilterVolumeRatio, Operator: OpGreaterThanEqual, Value: 2}},
		},
	}
}

// GetPresetByName returns a preset screener by name.
func GetPresetByName(name string) (*PresetScreener, error) {
	for _, p := range GetPresetScreeners() {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("preset screener not found: %s", name)
}

// MinScoreFilter keeps symbols whose absolute score reaches threshold.
func MinScoreFilter(threshold float64) Filter {
	return Filter{Type: FilterAbsScore, Operator: OpGreaterThanEqual, Value: threshold}
}
