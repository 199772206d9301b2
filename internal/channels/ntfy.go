package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coopco/deskclock/internal/bus"
	"github.com/coopco/deskclock/internal/relay"
)

func init() {
	Register("ntfy", newNtfyChannel)
}

type ntfyConfig struct {
	TimeoutSeconds int `json:"timeoutSeconds"`
}

// NtfyChannel pushes notifications to the user's ntfy topic.
type NtfyChannel struct {
	relay   *relay.Client
	topic   func() string
	timeout time.Duration
}

func newNtfyChannel(cfg json.RawMessage, deps Deps) (Channel, error) {
	var ncfg ntfyConfig
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &ncfg); err != nil {
			return nil, fmt.Errorf("failed to parse ntfy config: %w", err)
		}
	}
	if deps.Relay == nil || deps.Topic == nil {
		return nil, fmt.Errorf("ntfy: relay client and topic are required")
	}
	timeout := time.Duration(ncfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &NtfyChannel{relay: deps.Relay, topic: deps.Topic, timeout: timeout}, nil
}

func (c *NtfyChannel) Name() string                    { return "ntfy" }
func (c *NtfyChannel) Start(ctx context.Context) error { return nil }
func (c *NtfyChannel) Stop() error                     { return nil }

func (c *NtfyChannel) Send(msg bus.OutboundMessage) error {
	topic := c.topic()
	if topic == "" {
		return fmt.Errorf("ntfy: no topic configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.relay.Publish(ctx, topic, relay.Message{
		Title:    msg.Title,
		Body:     msg.Content,
		Priority: msg.Priority,
		Tags:     msg.Tags,
	})
}
