package transport

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram delivers operator notifications and command replies through the
// Bot API. Destinations are numeric chat ids.
type Telegram struct {
	bot *tgbotapi.BotAPI
	log *slog.Logger
}

// NewTelegram authenticates against the Bot API with the given token.
func NewTelegram(token string, log *slog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, log: log}, nil
}

func (t *Telegram) Send(ctx context.Context, destination, text string) bool {
	chatID, err := strconv.ParseInt(destination, 10, 64)
	if err != nil {
		t.log.Error("invalid telegram chat id", slog.String("destination", destination))
		return false
	}

	// The Bot API client has no context hook; honor cancellation before the
	// blocking call at least.
	select {
	case <-ctx.Done():
		t.log.Warn("telegram send canceled", slog.String("destination", destination))
		return false
	default:
	}

	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		t.log.Error("telegram send failed",
			slog.String("destination", destination),
			slog.Any("err", err),
		)
		return false
	}
	return true
}
