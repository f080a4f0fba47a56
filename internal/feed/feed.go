// Package feed fetches OHLCV candles from exchanges and prepares the three
// timeframes an analysis run needs.
package feed

import (
	"context"
	"strings"
	"sync"

	"marketpulse/internal/analysis/pipeline"
	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/models"
)

// DefaultLimit is the number of candles fetched per timeframe.
const DefaultLimit = 200

// Source provides candle history for a symbol.
type Source interface {
	Fetch(ctx context.Context, symbol string, tf models.Timeframe, limit int) (models.Series, error)
}

// stableQuotes are pair suffixes that always mark a quoted pair, longest first.
var stableQuotes = []string{"FDUSD", "USDT", "USDC", "BUSD"}

// cryptoQuotes also end asset names such as WBTC or STETH, so they only count
// as a quote after one of knownBases.
var cryptoQuotes = []string{"BTC", "ETH", "BNB"}

var knownBases = map[string]bool{
	"BTC": true, "ETH": true, "BNB": true, "SOL": true, "XRP": true, "ADA": true,
	"DOGE": true, "DOT": true, "LINK": true, "LTC": true, "TRX": true, "AVAX": true,
	"MATIC": true, "POL": true, "ATOM": true, "UNI": true, "XLM": true, "BCH": true,
	"ETC": true, "FIL": true, "NEAR": true, "APT": true, "ARB": true, "OP": true,
	"SUI": true, "TON": true, "WBTC": true, "WBETH": true, "AAVE": true, "INJ": true,
}

// stockAliases maps equity tickers to their tokenized spot pairs.
var stockAliases = map[string]string{
	"AAPL": "AAPLUSDT",
	"TSLA": "TSLAUSDT",
	"COIN": "COINUSDT",
	"MSTR": "MSTRUSDT",
}

// NormalizeSymbol turns user input such as "btc", "BTC/USDT" or "eth-usdt"
// into an exchange pair like "BTCUSDT". Bare assets are quoted in USDT.
func NormalizeSymbol(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	s = strings.NewReplacer("/", "", "-", "", "_", "", " ", "").Replace(s)

	if s == "" || len(s) > 20 {
		return "", apperrors.Wrapf(apperrors.ErrUnknownSymbol, "%q", raw)
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", apperrors.Wrapf(apperrors.ErrUnknownSymbol, "%q", raw)
		}
	}

	if pair, ok := stockAliases[s]; ok {
		return pair, nil
	}
	for _, quote := range stableQuotes {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s, nil
		}
	}
	for _, quote := range cryptoQuotes {
		if base, ok := strings.CutSuffix(s, quote); ok && knownBases[base] {
			return s, nil
		}
	}
	return s + "USDT", nil
}

// FetchFrames fetches the primary timeframe plus 1h and 4h concurrently.
// The first error wins. A series with a missing candle is rejected with a
// SeriesError.
func FetchFrames(ctx context.Context, src Source, symbol string, primary models.Timeframe, limit int) (pipeline.Input, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	tfs := []models.Timeframe{primary, models.Timeframe1h, models.Timeframe4h}
	series := make([]models.Series, len(tfs))
	errs := make([]error, len(tfs))

	var wg sync.WaitGroup
	for i, tf := range tfs {
		wg.Add(1)
		go func(i int, tf models.Timeframe) {
			defer wg.Done()
			series[i], errs[i] = src.Fetch(ctx, symbol, tf, limit)
		}(i, tf)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return pipeline.Input{}, err
		}
	}
	for _, s := range series {
		if err := s.CheckSpacing(); err != nil {
			return pipeline.Input{}, err
		}
	}

	return pipeline.Input{
		Symbol:   symbol,
		Primary:  series[0],
		Hour:     series[1],
		FourHour: series[2],
	}, nil
}
