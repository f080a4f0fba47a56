// Package notify delivers signal reports and watch alerts to their channels.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"marketpulse/internal/config"
	"marketpulse/internal/report"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendSignal(ctx context.Context, s report.Summary) error
	SendError(ctx context.Context, err error, context string) error
}

// NotificationChannel defines the interface for a notification channel.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message. Message is HTML.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationSignal NotificationType = "signal"
	NotificationError  NotificationType = "error"
	NotificationInfo   NotificationType = "info"
)

// NotificationLevel represents the notification level filter.
type NotificationLevel string

const (
	LevelAll         NotificationLevel = "all"
	LevelSignalsOnly NotificationLevel = "signals_only"
	LevelErrorsOnly  NotificationLevel = "errors_only"
)

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []NotificationChannel
	level    NotificationLevel
	mu       sync.RWMutex
}

// NewMultiNotifier creates a MultiNotifier with no channels.
func NewMultiNotifier(level NotificationLevel) *MultiNotifier {
	if level == "" {
		level = LevelAll
	}
	return &MultiNotifier{level: level}
}

// FromConfig builds the notifier for the configured channels. The log
// channel is always present; Telegram joins when enabled.
func FromConfig(cfg config.TelegramConfig, logger zerolog.Logger) (*MultiNotifier, error) {
	mn := NewMultiNotifier(LevelAll)
	mn.AddChannel(NewLogNotifier(logger))

	if cfg.Enabled {
		api, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			return nil, fmt.Errorf("creating telegram client: %w", err)
		}
		api.Debug = cfg.Debug
		mn.AddChannel(NewTelegramNotifier(api, cfg.ChatID))
	}
	return mn, nil
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch NotificationChannel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

func (mn *MultiNotifier) shouldSend(notifType NotificationType) bool {
	switch mn.level {
	case LevelSignalsOnly:
		return notifType == NotificationSignal
	case LevelErrorsOnly:
		return notifType == NotificationError
	default:
		return true
	}
}

// Send sends a notification to all enabled channels.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !mn.shouldSend(n.Type) {
		return nil
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if ch.IsEnabled() {
			if err := ch.Send(ctx, n); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendSignal sends the full report for one analyzed symbol.
func (mn *MultiNotifier) SendSignal(ctx context.Context, s report.Summary) error {
	return mn.Send(ctx, Notification{
		Type:    NotificationSignal,
		Title:   fmt.Sprintf("%s %s", s.Symbol, report.VerdictLabel(s.Verdict)),
		Message: report.HTML(s),
		Data: map[string]interface{}{
			"symbol":     s.Symbol,
			"timeframe":  s.Timeframe,
			"price":      s.Price,
			"verdict":    s.Verdict,
			"score":      s.Score,
			"confidence": s.Confidence,
		},
		Timestamp: s.AsOf,
	})
}

// SendError sends an error notification.
func (mn *MultiNotifier) SendError(ctx context.Context, err error, errContext string) error {
	message := fmt.Sprintf("Context: %s\nError: %s\nTime: %s",
		report.EscapeHTML(errContext), report.EscapeHTML(err.Error()), time.Now().UTC().Format("15:04:05 MST"))

	return mn.Send(ctx, Notification{
		Type:    NotificationError,
		Title:   "❌ Error Occurred",
		Message: message,
		Data: map[string]interface{}{
			"context": errContext,
			"error":   err.Error(),
		},
	})
}

// Sender is the part of the Telegram client used to deliver messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends notifications to one Telegram chat.
type TelegramNotifier struct {
	sender  Sender
	chatID  int64
	enabled bool
}

// NewTelegramNotifier creates a TelegramNotifier posting to chatID.
func NewTelegramNotifier(sender Sender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{
		sender:  sender,
		chatID:  chatID,
		enabled: sender != nil && chatID != 0,
	}
}

// Name returns the name of the notifier.
func (t *TelegramNotifier) Name() string {
	return "telegram"
}

// IsEnabled returns whether the notifier is enabled.
func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

// Send posts the notification, splitting it across messages when it is
// longer than Telegram allows.
func (t *TelegramNotifier) Send(ctx context.Context, n Notification) error {
	if !t.enabled {
		return nil
	}

	text := n.Message
	if n.Type != NotificationSignal {
		text = fmt.Sprintf("<b>%s</b>\n\n%s", report.EscapeHTML(n.Title), n.Message)
	}
	return SendHTML(ctx, t.sender, t.chatID, text)
}

// SendHTML sends text to chatID in HTML parse mode, chunked to the
// message size limit.
func SendHTML(ctx context.Context, sender Sender, chatID int64, text string) error {
	for _, part := range report.Chunk(text, report.MaxMessageLength) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := sender.Send(msg); err != nil {
			return fmt.Errorf("sending telegram message: %w", err)
		}
	}
	return nil
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("channel", "log").Logger()}
}

// Name returns the name of the notifier.
func (l *LogNotifier) Name() string {
	return "log"
}

// IsEnabled returns whether the notifier is enabled.
func (l *LogNotifier) IsEnabled() bool {
	return true
}

// Send logs the notification title and data fields.
func (l *LogNotifier) Send(_ context.Context, n Notification) error {
	event := l.logger.Info()
	if n.Type == NotificationError {
		event = l.logger.Error()
	}
	event.Str("type", string(n.Type)).Fields(n.Data).Time("at", n.Timestamp).Msg(n.Title)
	return nil
}

// NoOpNotifier is a notifier that does nothing.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Send does nothing.
func (n *NoOpNotifier) Send(ctx context.Context, notif Notification) error {
	return nil
}

// SendSignal does nothing.
func (n *NoOpNotifier) SendSignal(ctx context.Context, s report.Summary) error {
	return nil
}

// SendError does nothing.
func (n *NoOpNotifier) SendError(ctx context.Context, err error, context string) error {
	return nil
}
