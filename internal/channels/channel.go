package channels

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/coopco/deskclock/internal/bus"
	"github.com/coopco/deskclock/internal/relay"
)

// Channel delivers outbound notifications to one destination.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Send(msg bus.OutboundMessage) error
}

// Deps are the shared collaborators handed to every channel factory.
type Deps struct {
	Relay *relay.Client
	// Topic resolves the ntfy topic at send time, so a topic saved while
	// running takes effect without a restart.
	Topic func() string
	// Token returns configured, or the token stored for the channel.
	Token func(channel, configured string) (string, error)
}

// ChannelFactory creates a Channel from its JSON config section.
type ChannelFactory func(cfg json.RawMessage, deps Deps) (Channel, error)

var registry = map[string]ChannelFactory{}

// Register adds a channel factory to the registry.
func Register(name string, factory ChannelFactory) {
	registry[name] = factory
}

// GetFactory returns the factory for a channel name.
func GetFactory(name string) (ChannelFactory, bool) {
	f, ok := registry[name]
	return f, ok
}

// RegisteredNames returns all registered channel names, sorted.
func RegisteredNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// plainText renders msg for chat platforms that have no title field.
func plainText(msg bus.OutboundMessage) string {
	if msg.Title == "" {
		return msg.Content
	}
	if msg.Content == "" {
		return msg.Title
	}
	return msg.Title + "\n" + msg.Content
}
