package telegram

import (
	"context"
	"fmt"
	"time"

	"agent-scheduler/config"
	"agent-scheduler/pkg/logger"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// Notifier pushes operational alerts to a Telegram chat. It is optional:
// NewNotifier returns nil when no bot token is configured and all methods are
// nil-safe, so callers never have to branch on configuration.
type Notifier struct {
	bot     *telebot.Bot
	chatID  telebot.ChatID
	limiter *rate.Limiter
	timeout time.Duration
	log     *logger.Logger
}

func NewNotifier(cfg *config.TelegramConfig, log *logger.Logger) (*Notifier, error) {
	if cfg.BotToken == "" || cfg.ChatID == 0 {
		return nil, nil
	}

	bot, err := telebot.NewBot(telebot.Settings{
		Token: cfg.BotToken,
		OnError: func(err error, c telebot.Context) {
			log.Error("Telegram bot error", logger.ErrorField(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	perRequest := time.Minute / time.Duration(cfg.MaxAlertRequestPerMin)
	return &Notifier{
		bot:     bot,
		chatID:  telebot.ChatID(cfg.ChatID),
		limiter: rate.NewLimiter(rate.Every(perRequest), 1),
		timeout: cfg.TimeoutDuration,
		log:     log,
	}, nil
}

// Send delivers one alert message, honoring the rate limit. A nil receiver is
// a no-op.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if n == nil {
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.limiter.Wait(sendCtx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	if _, err := n.bot.Send(n.chatID, text); err != nil {
		return fmt.Errorf("failed to send telegram alert: %w", err)
	}
	return nil
}
