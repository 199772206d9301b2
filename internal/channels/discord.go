package channels

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/coopco/deskclock/internal/bus"
	"github.com/coopco/deskclock/internal/config"
)

func init() {
	Register("discord", newDiscordChannel)
}

// DiscordChannel mirrors notifications into one Discord channel through the
// REST API; no gateway connection is opened.
type DiscordChannel struct {
	session   *discordgo.Session
	channelID string
}

func newDiscordChannel(cfg json.RawMessage, deps Deps) (Channel, error) {
	var dcfg config.DiscordConfig
	if err := json.Unmarshal(cfg, &dcfg); err != nil {
		return nil, fmt.Errorf("failed to parse discord config: %w", err)
	}
	if dcfg.ChannelID == "" {
		return nil, fmt.Errorf("discord: channelId is required")
	}
	token, err := resolveToken(deps, "discord", dcfg.Token)
	if err != nil {
		return nil, err
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return &DiscordChannel{session: session, channelID: dcfg.ChannelID}, nil
}

func (c *DiscordChannel) Name() string                    { return "discord" }
func (c *DiscordChannel) Start(ctx context.Context) error { return nil }
func (c *DiscordChannel) Stop() error                     { return nil }

func (c *DiscordChannel) Send(msg bus.OutboundMessage) error {
	content := plainText(msg)
	if msg.Title != "" {
		content = "**" + msg.Title + "**\n" + msg.Content
	}
	if _, err := c.session.ChannelMessageSend(c.channelID, content); err != nil {
		return fmt.Errorf("discord: failed to send message: %w", err)
	}
	return nil
}
