package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender delivers HTML messages through the Bot API.
type TelegramSender struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

// NewTelegramSender authenticates token against endpoint (tgbotapi.APIEndpoint
// in production). Every request is bounded by timeout.
func NewTelegramSender(token, endpoint string, timeout time.Duration, logger *slog.Logger) (*TelegramSender, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	logger.Info("Telegram sender ready", "bot", bot.Self.UserName)
	return &TelegramSender{bot: bot, logger: logger}, nil
}

// Send posts text to the user's private chat. Failures come back as
// *SendFailure; a 403 means the user blocked the bot.
func (s *TelegramSender) Send(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return &SendFailure{UserID: userID, Reason: ReasonTransport, Err: err}
	}

	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := s.bot.Send(msg); err != nil {
		reason := ReasonTransport
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
			reason = ReasonBlocked
		}
		return &SendFailure{UserID: userID, Reason: reason, Err: err}
	}
	return nil
}

// DryRunSender logs messages instead of sending them.
type DryRunSender struct {
	logger *slog.Logger
}

// NewDryRunSender creates a sender for --dry-run and for deployments
// without a bot token.
func NewDryRunSender(logger *slog.Logger) *DryRunSender {
	return &DryRunSender{logger: logger}
}

func (s *DryRunSender) Send(_ context.Context, userID int64, text string) error {
	s.logger.Info("Dry run: message not sent", "user_id", userID, "chars", len([]rune(text)))
	s.logger.Debug("Dry run message body", "user_id", userID, "text", text)
	return nil
}
