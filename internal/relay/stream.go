package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// websocketURL rewrites the topic URL to the ntfy websocket endpoint.
func (c *Client) websocketURL(topic, since string) (string, error) {
	u, err := url.Parse(c.topicURL(topic) + "/ws")
	if err != nil {
		return "", fmt.Errorf("relay: parse websocket url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	if since != "" {
		q := u.Query()
		q.Set("since", since)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Subscribe streams message events published to topic and calls fn for
// each, until ctx is cancelled or the connection drops. It returns nil
// only on cancellation.
func (c *Client) Subscribe(ctx context.Context, topic, since string, fn func(Envelope)) error {
	if topic == "" {
		return fmt.Errorf("relay: empty topic")
	}
	wsURL, err := c.websocketURL(topic, since)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("relay: dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	slog.Info("relay: subscribed", "topic", topic)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("relay: read stream: %w", err)
		}
		if env, ok := decodeEnvelope(data); ok {
			fn(env)
		}
	}
}
