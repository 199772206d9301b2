package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// DefaultPath returns ~/.deskclock/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".deskclock", "config.json"), nil
}

// Load loads config from the default path. A missing file is not an error:
// defaults and environment overrides still apply.
func Load(fsys afero.Fs) (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFromFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = DefaultConfig()
		applyEnvOverrides(cfg)
		expandPaths(cfg)
		return cfg, nil
	}
	return cfg, err
}

// LoadFromFile loads config from a specific file path.
func LoadFromFile(fsys afero.Fs, path string) (*Config, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader loads config from an io.Reader, applying defaults and env overrides.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	expandPaths(cfg)

	return cfg, nil
}

// Save writes cfg as indented JSON, creating the parent directory.
func Save(fsys afero.Fs, path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return afero.WriteFile(fsys, path, data, 0o600)
}

// applyEnvOverrides applies DESKCLOCK_-prefixed environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	envMap := map[string]*string{
		"DESKCLOCK_STORE_PATH":              &cfg.Store.Path,
		"DESKCLOCK_PAGE_URL":                &cfg.Page.URL,
		"DESKCLOCK_PAGE_SELECTOR":           &cfg.Page.Selector,
		"DESKCLOCK_PAGE_USERDATADIR":        &cfg.Page.UserDataDir,
		"DESKCLOCK_RELAY_BASEURL":           &cfg.Relay.BaseURL,
		"DESKCLOCK_RELAY_TOPIC":             &cfg.Relay.Topic,
		"DESKCLOCK_RELAY_COMMANDTOPIC":      &cfg.Relay.CommandTopic,
		"DESKCLOCK_RELAY_SYNCTOPIC":         &cfg.Relay.SyncTopic,
		"DESKCLOCK_RELAY_MODE":              &cfg.Relay.Mode,
		"DESKCLOCK_CHANNELS_TELEGRAM_TOKEN": &cfg.Channels.Telegram.Token,
		"DESKCLOCK_CHANNELS_DISCORD_TOKEN":  &cfg.Channels.Discord.Token,
		"DESKCLOCK_CHANNELS_SLACK_BOTTOKEN": &cfg.Channels.Slack.BotToken,
		"DESKCLOCK_CHANNELS_EMAIL_PASSWORD": &cfg.Channels.Email.Password,
		"DESKCLOCK_CHANNELS_WEBHOOK_URL":    &cfg.Channels.Webhook.URL,
		"DESKCLOCK_LOG_LEVEL":               &cfg.Log.Level,
	}

	for env, ptr := range envMap {
		if val := os.Getenv(env); val != "" {
			*ptr = val
		}
	}
}

// expandPaths expands a leading ~ in filesystem paths.
func expandPaths(cfg *Config) {
	for _, p := range []*string{&cfg.Store.Path, &cfg.Page.UserDataDir} {
		*p = expandHome(*p)
	}
}

func expandHome(p string) string {
	if len(p) >= 2 && p[0] == '~' && p[1] == '/' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

// LogLevel maps the configured level name to a slog.Level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CommandTopicFor returns the topic remote commands are pulled from.
func (r RelayConfig) CommandTopicFor(topic string) string {
	if r.CommandTopic != "" {
		return r.CommandTopic
	}
	if topic == "" {
		return ""
	}
	return topic + "-remote"
}

// SyncTopicFor returns the hidden topic status snapshots are pushed to.
func (r RelayConfig) SyncTopicFor(topic string) string {
	if r.SyncTopic != "" {
		return r.SyncTopic
	}
	return r.CommandTopicFor(topic)
}
