package bus

import (
	"context"
	"log/slog"
	"sync"
)

// MessageBus is a hub-and-spoke message bus using Go channels. Results flow
// from the page session to the coordinator; outbound messages flow from the
// coordinator to the notification channels.
type MessageBus struct {
	results  chan Result
	outbound chan OutboundMessage
	subs     map[string][]func(OutboundMessage) // channel name -> subscribers
	mu       sync.RWMutex
	bufSize  int
}

// NewMessageBus creates a new MessageBus with the given buffer size.
// If bufSize is 0, defaults to 100.
func NewMessageBus(bufSize int) *MessageBus {
	if bufSize <= 0 {
		bufSize = 100
	}
	return &MessageBus{
		results:  make(chan Result, bufSize),
		outbound: make(chan OutboundMessage, bufSize),
		subs:     make(map[string][]func(OutboundMessage)),
		bufSize:  bufSize,
	}
}

// PublishResult hands a task result to the coordinator. Delivery is
// fire-and-forget: when nobody is draining the bus the result is dropped.
func (b *MessageBus) PublishResult(r Result) bool {
	select {
	case b.results <- r:
		return true
	default:
		slog.Warn("bus: result dropped, coordinator not draining", "result", r.String())
		return false
	}
}

// Results exposes the result stream for select loops.
func (b *MessageBus) Results() <-chan Result {
	return b.results
}

// PublishOutbound sends an outbound message onto the bus.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	b.outbound <- msg
}

// ConsumeOutbound blocks until an outbound message is available or ctx is
// cancelled. It competes with DispatchOutbound; use one or the other.
func (b *MessageBus) ConsumeOutbound(ctx context.Context) (OutboundMessage, error) {
	select {
	case msg, ok := <-b.outbound:
		if !ok {
			return OutboundMessage{}, context.Canceled
		}
		return msg, nil
	case <-ctx.Done():
		return OutboundMessage{}, ctx.Err()
	}
}

// Subscribe registers fn to receive outbound messages for the given channel.
// An empty channel string subscribes to ALL channels.
func (b *MessageBus) Subscribe(channel string, fn func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[channel] = append(b.subs[channel], fn)
}

// DispatchOutbound runs in a goroutine, reading outbound messages and
// delivering them to matching subscribers. Returns when ctx is cancelled
// or the outbound channel is closed.
func (b *MessageBus) DispatchOutbound(ctx context.Context) {
	for {
		msg, err := b.ConsumeOutbound(ctx)
		if err != nil {
			return
		}
		b.dispatch(msg)
	}
}

// dispatch delivers msg to all matching subscribers (channel-specific + wildcard).
func (b *MessageBus) dispatch(msg OutboundMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if msg.Channel != "" {
		for _, fn := range b.subs[msg.Channel] {
			fn(msg)
		}
	}
	for _, fn := range b.subs[""] {
		fn(msg)
	}
}

// Close closes both the result and outbound channels.
func (b *MessageBus) Close() {
	close(b.results)
	close(b.outbound)
}
