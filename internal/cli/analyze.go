package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"marketpulse/internal/analysis/scoring"
	"marketpulse/internal/models"
	"marketpulse/internal/report"
	"marketpulse/pkg/utils"
)

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Full technical analysis for a symbol",
		Long: `Analyze a pair on the primary timeframe plus 1h and 4h:
- Indicators (SMA, EMA, RSI, MACD, Bollinger, ATR, Stochastic, ADX, VWAP)
- Candlestick patterns
- Support and resistance levels
- Money flow and volume
- Multi-timeframe trend confluence
- Composite score, verdict and IF/THEN scenarios`,
		Example: `  marketpulse analyze BTC
  marketpulse analyze eth/usdt --tf 4h
  marketpulse analyze SOL --output yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			tf, err := timeframeFlag(cmd, app)
			if err != nil {
				return err
			}
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
				app.Config.Analysis.Lookback = limit
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			summary, err := app.Analyzer().Report(ctx, args[0], tf)
			if err != nil {
				return fmt.Errorf("analyzing %s: %w", args[0], err)
			}

			if output.Format() != FormatText {
				return output.Structured(summary)
			}
			output.Println(report.Terminal(summary))
			return nil
		},
	}

	cmd.Flags().String("tf", "", "primary timeframe: 1m, 5m, 15m, 30m, 1h, 4h, 1d (default from config)")
	cmd.Flags().Int("limit", 0, "candles fetched per timeframe (default from config)")
	cmd.Flags().StringP("output", "o", FormatText, "output format: text, json or yaml")
	return cmd
}

func newScanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [symbols...]",
		Short: "Screen a watchlist with a preset or a minimum score",
		Long: `Analyze several symbols concurrently and keep the ones that pass the
filters. Without symbols the configured watch list is scanned.

Presets:
` + presetHelp(),
		Example: `  marketpulse scan BTC ETH SOL
  marketpulse scan --preset oversold
  marketpulse scan --min-score 40 --tf 1h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			tf, err := timeframeFlag(cmd, app)
			if err != nil {
				return err
			}

			symbols := args
			if len(symbols) == 0 {
				symbols = app.Config.Watch.Symbols
			}
			filters, err := scanFilters(cmd)
			if err != nil {
				return err
			}
			concurrency, _ := cmd.Flags().GetInt("concurrency")
			showAll, _ := cmd.Flags().GetBool("all")

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			analyzer := app.Analyzer()
			results := analyzer.Screener(tf, concurrency).Scan(ctx, symbols, filters)

			if output.Format() != FormatText {
				rows := make([]scanRow, 0, len(results))
				for _, r := range results {
					if !r.Passed && !showAll {
						continue
					}
					row := scanRow{Symbol: r.Symbol, Passed: r.Passed}
					if r.Error != nil {
						row.Error = r.Error.Error()
					} else {
						s := analyzer.Summarize(r.Result)
						row.Summary = &s
					}
					rows = append(rows, row)
				}
				return output.Structured(rows)
			}

			renderScan(output, results, showAll)
			return nil
		},
	}

	cmd.Flags().String("tf", "", "primary timeframe (default from config)")
	cmd.Flags().String("preset", "", "preset screener name")
	cmd.Flags().Float64("min-score", 0, "minimum absolute score")
	cmd.Flags().Int("concurrency", 4, "symbols analyzed at once")
	cmd.Flags().Bool("all", false, "include symbols that did not pass")
	cmd.Flags().StringP("output", "o", FormatText, "output format: text, json or yaml")
	return cmd
}

type scanRow struct {
	Symbol  string          `json:"symbol" yaml:"symbol"`
	Passed  bool            `json:"passed" yaml:"passed"`
	Error   string          `json:"error,omitempty" yaml:"error,omitempty"`
	Summary *report.Summary `json:"summary,omitempty" yaml:"summary,omitempty"`
}

func timeframeFlag(cmd *cobra.Command, app *App) (models.Timeframe, error) {
	raw, _ := cmd.Flags().GetString("tf")
	if raw == "" {
		raw = app.Config.Analysis.PrimaryTimeframe
	}
	tf := models.Timeframe(strings.ToLower(raw))
	if !tf.Valid() {
		return "", fmt.Errorf("unsupported timeframe %q", raw)
	}
	return tf, nil
}

func scanFilters(cmd *cobra.Command) ([]scoring.Filter, error) {
	var filters []scoring.Filter
	if name, _ := cmd.Flags().GetString("preset"); name != "" {
		preset, err := scoring.GetPresetByName(name)
		if err != nil {
			return nil, err
		}
		filters = append(filters, preset.Filters...)
	}
	if minScore, _ := cmd.Flags().GetFloat64("min-score"); minScore > 0 {
		filters = append(filters, scoring.MinScoreFilter(minScore))
	}
	return filters, nil
}

func presetHelp() string {
	var b strings.Builder
	for _, p := range scoring.GetPresetScreeners() {
		fmt.Fprintf(&b, "  %-10s %s\n", p.Name, p.Description)
	}
	return b.String()
}

func renderScan(output *Output, results []scoring.ScreenerResult, showAll bool) {
	table := NewTable(output, "SYMBOL", "PRICE", "VERDICT", "SCORE", "CONF", "TREND", "NOTE")
	var shown, failed int
	for _, r := range results {
		if r.Error != nil {
			failed++
			if showAll {
				table.AddRow(r.Symbol, "-", "-", "-", "-", "-", output.ColoredString(ColorRed, r.Error.Error()))
			}
			continue
		}
		if !r.Passed && !showAll {
			continue
		}
		shown++
		score := r.Result.Score
		note := ""
		if len(r.Result.Scenarios) > 0 {
			top := r.Result.Scenarios[0]
			note = fmt.Sprintf("%s R:R %.1f", top.Kind, top.RiskReward.Value)
		}
		table.AddRow(
			r.Symbol,
			utils.FormatPrice(r.Result.Price),
			output.Verdict(string(score.Verdict), score.Value),
			output.ColoredString(output.ScoreColor(score.Value), utils.FormatSigned(score.Value, 0)),
			fmt.Sprintf("%.0f%%", score.Confidence),
			string(r.Result.Confluence.Direction),
			note,
		)
	}

	if shown == 0 && (failed == 0 || !showAll) {
		output.Warning("No symbols passed the filters (%d scanned, %d failed)", len(results), failed)
		return
	}
	table.Render()
	output.Dim("%d shown, %d scanned, %d failed", shown, len(results), failed)
}
