package channels

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/coopco/deskclock/internal/bus"
	"github.com/coopco/deskclock/internal/config"
)

func init() {
	Register("slack", newSlackChannel)
}

// SlackChannel mirrors notifications into one Slack channel.
type SlackChannel struct {
	client    *slack.Client
	channelID string
}

func newSlackChannel(cfg json.RawMessage, deps Deps) (Channel, error) {
	var scfg config.SlackConfig
	if err := json.Unmarshal(cfg, &scfg); err != nil {
		return nil, fmt.Errorf("failed to parse slack config: %w", err)
	}
	if scfg.ChannelID == "" {
		return nil, fmt.Errorf("slack: channelId is required")
	}
	token, err := resolveToken(deps, "slack", scfg.BotToken)
	if err != nil {
		return nil, err
	}
	var opts []slack.Option
	if scfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(scfg.APIURL))
	}
	return &SlackChannel{client: slack.New(token, opts...), channelID: scfg.ChannelID}, nil
}

func (c *SlackChannel) Name() string                    { return "slack" }
func (c *SlackChannel) Start(ctx context.Context) error { return nil }
func (c *SlackChannel) Stop() error                     { return nil }

func (c *SlackChannel) Send(msg bus.OutboundMessage) error {
	text := plainText(msg)
	if msg.Title != "" {
		text = "*" + msg.Title + "*\n" + msg.Content
	}
	_, _, err := c.client.PostMessage(c.channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}
