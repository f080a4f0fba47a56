package cli

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"marketpulse/internal/bot"
	"marketpulse/internal/models"
	"marketpulse/internal/notify"
	"marketpulse/internal/scheduler"
)

func newBotCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Long: `Answer /start, /help, /analyze <symbol> [tf] and /quick in Telegram.
Requires telegram.bot_token or TELEGRAM_BOT_TOKEN.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			token := app.Config.Telegram.BotToken
			if token == "" {
				return fmt.Errorf("telegram bot token not configured")
			}

			api, err := tgbotapi.NewBotAPI(token)
			if err != nil {
				return fmt.Errorf("connecting to telegram: %w", err)
			}
			api.Debug = app.Config.Telegram.Debug
			app.Logger.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

			analyzer := app.Analyzer()
			b := bot.New(api, analyzer.Report, models.Timeframe(app.Config.Analysis.PrimaryTimeframe), app.Logger)
			return b.Run(cmd.Context())
		},
	}
}

func newWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scan the watch list on a schedule and notify strong signals",
		Example: `  marketpulse watch
  marketpulse watch --once --min-score 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cfg := app.Config.Watch
			if v, _ := cmd.Flags().GetFloat64("min-score"); v > 0 {
				cfg.MinScore = v
			}
			if cmd.Flags().Changed("notify") {
				cfg.Notify, _ = cmd.Flags().GetBool("notify")
			}
			once, _ := cmd.Flags().GetBool("once")

			tf, err := timeframeFlag(cmd, app)
			if err != nil {
				return err
			}

			notifier, err := notify.FromConfig(app.Config.Telegram, app.Logger)
			if err != nil {
				return err
			}

			analyzer := app.Analyzer()
			sched := scheduler.New(cmd.Context(), analyzer.Screener(tf, app.Config.Analysis.Workers), analyzer.Summarize, notifier, cfg, app.Logger)

			if once {
				out := sched.RunOnce(cmd.Context())
				if output.Format() != FormatText {
					return output.Structured(out.Passed)
				}
				for _, s := range out.Passed {
					output.Printf("%-10s %s  score %s  conf %.0f%%\n", s.Symbol,
						output.Verdict(s.Verdict, s.Score), output.ColoredString(output.ScoreColor(s.Score), fmt.Sprintf("%+.0f", s.Score)), s.Confidence)
				}
				output.Dim("%d of %d symbols at |score| >= %.0f", len(out.Passed), out.Scanned, cfg.MinScore)
				return nil
			}

			if err := sched.Register(); err != nil {
				return err
			}
			sched.Start()
			output.Info("Watching %v on %s (next run %s)", cfg.Symbols, cfg.Schedule, sched.Next().Format("15:04:05 MST"))

			<-cmd.Context().Done()
			sched.Stop()
			return nil
		},
	}

	cmd.Flags().String("tf", "", "primary timeframe (default from config)")
	cmd.Flags().Float64("min-score", 0, "minimum absolute score (default from config)")
	cmd.Flags().Bool("notify", false, "send notifications for passing symbols")
	cmd.Flags().Bool("once", false, "run a single scan and exit")
	cmd.Flags().StringP("output", "o", FormatText, "output format for --once: text, json or yaml")
	return cmd
}
