package config

import "time"

// Config is the top-level configuration
type Config struct {
	Store    StoreConfig    `json:"store"`
	Page     PageConfig     `json:"page"`
	Relay    RelayConfig    `json:"relay"`
	Channels ChannelsConfig `json:"channels"`
	Log      LogConfig      `json:"log"`
}

type StoreConfig struct {
	Path            string `json:"path"`            // empty = ~/.config/deskclock/deskclock.db
	WatchIntervalMs int    `json:"watchIntervalMs"` // cross-process change polling
}

// PageConfig describes the booking page and the toggle on it.
type PageConfig struct {
	URL                string `json:"url"`
	Selector           string `json:"selector"`
	Headless           bool   `json:"headless"`
	UserDataDir        string `json:"userDataDir"` // browser profile holding the login session
	ChromePath         string `json:"chromePath"`
	ElementTimeoutMs   int    `json:"elementTimeoutMs"`
	PollIntervalMs     int    `json:"pollIntervalMs"`
	SettleDelayMs      int    `json:"settleDelayMs"`
	RetrySettleDelayMs int    `json:"retrySettleDelayMs"`
}

func (p PageConfig) ElementTimeout() time.Duration {
	return time.Duration(p.ElementTimeoutMs) * time.Millisecond
}

func (p PageConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMs) * time.Millisecond
}

func (p PageConfig) SettleDelay() time.Duration {
	return time.Duration(p.SettleDelayMs) * time.Millisecond
}

func (p PageConfig) RetrySettleDelay() time.Duration {
	return time.Duration(p.RetrySettleDelayMs) * time.Millisecond
}

// RelayConfig configures the ntfy relay. Topic is only a fallback: the
// topic saved in the store (ntfyTopic) wins.
type RelayConfig struct {
	BaseURL        string `json:"baseUrl"`
	Topic          string `json:"topic"`
	CommandTopic   string `json:"commandTopic"` // empty = "<topic>-remote"
	SyncTopic      string `json:"syncTopic"`    // empty = command topic
	PollEvery      string `json:"pollEvery"`    // Go duration
	PollWindow     string `json:"pollWindow"`   // ntfy "since" for the first poll
	Mode           string `json:"mode"`         // "poll" or "ws"
	SyncOnChange   bool   `json:"syncOnChange"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
	Slack    SlackConfig    `json:"slack"`
	Email    EmailConfig    `json:"email"`
	Webhook  WebhookConfig  `json:"webhook"`
}

type TelegramConfig struct {
	Enabled     bool   `json:"enabled"`
	Token       string `json:"token"` // empty = read from the keyring
	ChatID      int64  `json:"chatId"`
	APIEndpoint string `json:"apiEndpoint,omitempty"` // self-hosted Bot API server
}

type DiscordConfig struct {
	Enabled   bool   `json:"enabled"`
	Token     string `json:"token"`
	ChannelID string `json:"channelId"`
}

type SlackConfig struct {
	Enabled   bool   `json:"enabled"`
	BotToken  string `json:"botToken"`
	ChannelID string `json:"channelId"`
	APIURL    string `json:"apiUrl,omitempty"`
}

type EmailConfig struct {
	Enabled    bool     `json:"enabled"`
	SMTPServer string   `json:"smtpServer"` // host:port
	Username   string   `json:"username"`
	Password   string   `json:"password"` // empty = read from the keyring
	From       string   `json:"from"`     // empty = username
	To         []string `json:"to"`
}

// WebhookConfig posts every notification as JSON to URL.
type WebhookConfig struct {
	Enabled        bool              `json:"enabled"`
	URL            string            `json:"url"`
	Headers        map[string]string `json:"headers,omitempty"`
	TimeoutSeconds int               `json:"timeoutSeconds"`
}

type LogConfig struct {
	Level string `json:"level"`
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			WatchIntervalMs: 1000,
		},
		Page: PageConfig{
			Selector:           ".PrivateSwitchBase-input",
			UserDataDir:        "~/.deskclock/chrome",
			ElementTimeoutMs:   10000,
			PollIntervalMs:     500,
			SettleDelayMs:      5000,
			RetrySettleDelayMs: 10000,
		},
		Relay: RelayConfig{
			BaseURL:        "https://ntfy.sh",
			PollEvery:      "1m",
			PollWindow:     "2m",
			Mode:           "poll",
			SyncOnChange:   true,
			TimeoutSeconds: 15,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
