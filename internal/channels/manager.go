package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coopco/deskclock/internal/bus"
)

type Manager struct {
	channels []Channel
	bus      *bus.MessageBus
	deps     Deps
	mu       sync.Mutex
}

func NewManager(msgBus *bus.MessageBus, deps Deps) *Manager {
	m := &Manager{bus: msgBus, deps: deps}
	m.setupOutboundDispatch()
	return m
}

// AddChannel creates and adds a channel from config.
func (m *Manager) AddChannel(name string, cfgJSON json.RawMessage) error {
	factory, ok := GetFactory(name)
	if !ok {
		return fmt.Errorf("no factory registered for channel %q", name)
	}
	ch, err := factory(cfgJSON, m.deps)
	if err != nil {
		return fmt.Errorf("failed to create channel %q: %w", name, err)
	}
	m.mu.Lock()
	m.channels = append(m.channels, ch)
	m.mu.Unlock()
	slog.Info("channels: added", "channel", name)
	return nil
}

// Names returns the names of the added channels.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.channels))
	for i, ch := range m.channels {
		names[i] = ch.Name()
	}
	return names
}

// StartAll starts all added channels.
func (m *Manager) StartAll(ctx context.Context) error {
	for _, ch := range m.snapshot() {
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("failed to start channel %q: %w", ch.Name(), err)
		}
	}
	return nil
}

// StopAll stops all channels.
func (m *Manager) StopAll() error {
	var firstErr error
	for _, ch := range m.snapshot() {
		if err := ch.Stop(); err != nil {
			slog.Error("failed to stop channel", "channel", ch.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *Manager) snapshot() []Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	chs := make([]Channel, len(m.channels))
	copy(chs, m.channels)
	return chs
}

// setupOutboundDispatch routes outbound messages to the named channel, or
// to every channel when the message names none. Send failures are logged.
func (m *Manager) setupOutboundDispatch() {
	m.bus.Subscribe("", func(msg bus.OutboundMessage) {
		for _, ch := range m.snapshot() {
			if msg.Channel != "" && ch.Name() != msg.Channel {
				continue
			}
			if err := ch.Send(msg); err != nil {
				slog.Error("failed to send message", "channel", ch.Name(), "error", err)
			}
		}
	})
}
