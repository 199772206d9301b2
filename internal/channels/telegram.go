package channels

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/coopco/deskclock/internal/bus"
	"github.com/coopco/deskclock/internal/config"
)

func init() {
	Register("telegram", newTelegramChannel)
}

// TelegramChannel mirrors notifications into one Telegram chat.
type TelegramChannel struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func newTelegramChannel(cfg json.RawMessage, deps Deps) (Channel, error) {
	var tcfg config.TelegramConfig
	if err := json.Unmarshal(cfg, &tcfg); err != nil {
		return nil, fmt.Errorf("failed to parse telegram config: %w", err)
	}
	if tcfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram: chatId is required")
	}
	token, err := resolveToken(deps, "telegram", tcfg.Token)
	if err != nil {
		return nil, err
	}
	endpoint := tcfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramChannel{bot: bot, chatID: tcfg.ChatID}, nil
}

func (c *TelegramChannel) Name() string                    { return "telegram" }
func (c *TelegramChannel) Start(ctx context.Context) error { return nil }
func (c *TelegramChannel) Stop() error                     { return nil }

func (c *TelegramChannel) Send(msg bus.OutboundMessage) error {
	m := tgbotapi.NewMessage(c.chatID, plainText(msg))
	m.DisableNotification = msg.Priority == "min" || msg.Priority == "low"
	if _, err := c.bot.Send(m); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}

func resolveToken(deps Deps, channel, configured string) (string, error) {
	if deps.Token == nil {
		if configured == "" {
			return "", fmt.Errorf("%s: no token configured", channel)
		}
		return configured, nil
	}
	return deps.Token(channel, configured)
}
