// Package bot serves analysis reports over Telegram commands.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"marketpulse/internal/logging"
	"marketpulse/internal/models"
	"marketpulse/internal/notify"
	"marketpulse/internal/report"
)

// QuickSymbols are the symbols /quick scans when none are given.
var QuickSymbols = []string{"BTC", "ETH", "SOL", "XRP"}

const callbackPrefix = "analyze:"

// ReportFunc produces the report for one symbol and timeframe.
type ReportFunc func(ctx context.Context, symbol string, tf models.Timeframe) (report.Summary, error)

// Client is the part of the Telegram API the bot uses.
type Client interface {
	notify.Sender
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot dispatches chat commands to the analyzer.
type Bot struct {
	client    Client
	report    ReportFunc
	defaultTF models.Timeframe
	logger    zerolog.Logger
	wg        sync.WaitGroup
}

// New creates a bot answering with reports from fn.
func New(client Client, fn ReportFunc, defaultTF models.Timeframe, logger zerolog.Logger) *Bot {
	if !defaultTF.Valid() {
		defaultTF = models.Timeframe15m
	}
	return &Bot{
		client:    client,
		report:    fn,
		defaultTF: defaultTF,
		logger:    logger.With().Str("component", "bot").Logger(),
	}
}

// Run polls for updates until ctx is cancelled, handling each update in its
// own goroutine. It waits for in-flight handlers before returning.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := b.client.GetUpdatesChan(cfg)

	b.logger.Info().Msg("Bot started")
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.client.StopReceivingUpdates()
			b.logger.Info().Msg("Bot stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}

// HandleUpdate routes one update to its command or callback handler.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	ctx = logging.WithLogger(ctx, b.logger)
	switch {
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	command, args := parseCommand(msg.Text)
	chatID := msg.Chat.ID
	if command == "" {
		if symbol, ok := parseSymbol(msg.Text); ok {
			b.analyze(ctx, chatID, symbol, b.defaultTF, false)
		}
		return
	}
	ctx = logging.WithLogger(ctx, logging.WithOperation(logging.FromContext(ctx), command))

	switch command {
	case "start":
		b.reply(ctx, chatID, startText, symbolKeyboard(b.defaultTF))
	case "help":
		b.reply(ctx, chatID, helpText, nil)
	case "analyze":
		if len(args) == 0 {
			b.reply(ctx, chatID, "Pick a symbol or send <code>/analyze BTC 15m</code>", symbolKeyboard(b.defaultTF))
			return
		}
		tf := b.defaultTF
		if len(args) > 1 {
			tf = models.Timeframe(strings.ToLower(args[1]))
			if !tf.Valid() {
				b.reply(ctx, chatID, fmt.Sprintf("❌ Unknown timeframe <b>%s</b>\n\n%s", report.EscapeHTML(args[1]), timeframesLine), nil)
				return
			}
		}
		b.analyze(ctx, chatID, args[0], tf, false)
	case "quick":
		symbols := QuickSymbols
		if len(args) > 0 {
			symbols = args
		}
		b.reply(ctx, chatID, "⏳ <b>Quick scan starting…</b>", nil)
		for _, s := range symbols {
			b.analyze(ctx, chatID, s, b.defaultTF, true)
		}
	default:
		b.reply(ctx, chatID, "Unknown command. Try /help", nil)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.client.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.logger.Warn().Err(err).Msg("Callback acknowledge failed")
	}
	if q.Message == nil || !strings.HasPrefix(q.Data, callbackPrefix) {
		return
	}
	symbol, tf, ok := strings.Cut(strings.TrimPrefix(q.Data, callbackPrefix), ":")
	if !ok || !models.Timeframe(tf).Valid() {
		return
	}
	b.analyze(ctx, q.Message.Chat.ID, symbol, models.Timeframe(tf), false)
}

func (b *Bot) analyze(ctx context.Context, chatID int64, symbol string, tf models.Timeframe, quick bool) {
	ctx = logging.WithLogger(ctx, logging.WithSymbol(logging.FromContext(ctx), symbol))
	if !quick {
		b.reply(ctx, chatID, fmt.Sprintf("⏳ Analyzing <b>%s</b> on <b>%s</b>…", report.EscapeHTML(strings.ToUpper(symbol)), tf), nil)
	}

	s, err := b.report(ctx, symbol, tf)
	if err != nil {
		logger := logging.FromContext(ctx)
		logger.Error().Err(err).Str("timeframe", string(tf)).Msg("Analysis failed")
		b.reply(ctx, chatID, fmt.Sprintf("❌ <b>%s:</b> %s", report.EscapeHTML(strings.ToUpper(symbol)), report.EscapeHTML(err.Error())), nil)
		return
	}

	text := report.HTML(s)
	if quick {
		text = report.Quick(s)
	}
	b.reply(ctx, chatID, text, nil)
}

// reply sends HTML text, attaching markup to the last chunk.
func (b *Bot) reply(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	parts := report.Chunk(text, report.MaxMessageLength)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if markup != nil && i == len(parts)-1 {
			msg.ReplyMarkup = *markup
		}
		if _, err := b.client.Send(msg); err != nil {
			logger := logging.FromContext(ctx)
			logger.Error().Err(err).Int64("chat_id", chatID).Msg("Send failed")
			return
		}
	}
}

// parseCommand splits "/cmd@bot a b" into "cmd" and its arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	command := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	return strings.ToLower(command), fields[1:]
}

// parseSymbol accepts a bare pair like "BTC", "$sol" or "eth/usdt".
// Anything with spaces or other punctuation is treated as chatter.
func parseSymbol(text string) (string, bool) {
	symbol := strings.TrimPrefix(strings.TrimSpace(text), "$")
	if len(symbol) < 2 || len(symbol) > 20 {
		return "", false
	}
	letters := 0
	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
			letters++
		case r >= '0' && r <= '9', r == '/', r == '-':
		default:
			return "", false
		}
	}
	if letters == 0 {
		return "", false
	}
	return symbol, true
}

func symbolKeyboard(tf models.Timeframe) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, s := range QuickSymbols {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(s, callbackPrefix+s+":"+string(tf)))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	return &kb
}

const timeframesLine = "<b>Timeframes:</b> 1m, 5m, 15m, 30m, 1h, 4h, 1d"

const startText = "<b>🚀 Crypto Analysis Bot</b>\n\n" +
	"Technical analysis for any Binance pair.\n\n" +
	"<b>What you get:</b>\n" +
	"• RSI, MACD, Bollinger, Stochastic, ADX, VWAP\n" +
	"• Candlestick pattern recognition\n" +
	"• Multi-timeframe trend confluence\n" +
	"• Money-flow and volume analysis\n" +
	"• Composite signal score with confidence\n" +
	"• IF/THEN scenarios with risk-reward\n\n" +
	"Pick a symbol or send /help 👇"

const helpText = "<b>📖 Commands</b>\n\n" +
	"/start  Main menu\n" +
	"/analyze <code>SYMBOL [TF]</code>  Full analysis\n" +
	"  e.g. <code>/analyze BTC 15m</code>\n" +
	"  e.g. <code>/analyze ETH/USDT 4h</code>\n\n" +
	"/quick <code>[SYMBOL...]</code>  One-line scan (default BTC, ETH, SOL, XRP)\n" +
	"/help  This message\n\n" +
	"Or just send a symbol like <code>SOL</code>.\n\n" +
	timeframesLine
