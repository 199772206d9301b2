// Package relay talks to an ntfy server: plain-text pushes with
// presentation headers, JSON status pushes, and NDJSON or websocket pulls.
package relay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Message is a human-readable push.
type Message struct {
	Title    string
	Body     string
	Priority string
	Tags     []string
}

// Envelope is one line of the ntfy JSON stream.
type Envelope struct {
	ID      string `json:"id"`
	Time    int64  `json:"time"`
	Event   string `json:"event"`
	Topic   string `json:"topic"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the ntfy server at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) topicURL(topic string) string {
	return c.baseURL + "/" + url.PathEscape(topic)
}

// Publish posts msg as plain text to topic.
func (c *Client) Publish(ctx context.Context, topic string, msg Message) error {
	if topic == "" {
		return fmt.Errorf("relay: empty topic")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.topicURL(topic), strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("relay: build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	if msg.Priority != "" {
		req.Header.Set("Priority", msg.Priority)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	return c.do(req)
}

// PublishJSON posts a raw JSON document to topic.
func (c *Client) PublishJSON(ctx context.Context, topic string, body []byte) error {
	if topic == "" {
		return fmt.Errorf("relay: empty topic")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.topicURL(topic), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("relay: build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("relay: send status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Poll fetches the messages published to topic since the given marker,
// which may be a message id, a unix timestamp or a duration such as "2m".
// Lines that are not message events or fail to decode are skipped.
func (c *Client) Poll(ctx context.Context, topic, since string) ([]Envelope, error) {
	if topic == "" {
		return nil, fmt.Errorf("relay: empty topic")
	}
	q := url.Values{}
	q.Set("poll", "1")
	if since != "" {
		q.Set("since", since)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.topicURL(topic)+"/json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("relay: build poll request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay: poll: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("relay: poll status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}

	var out []Envelope
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if env, ok := decodeEnvelope(sc.Bytes()); ok {
			out = append(out, env)
		}
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("relay: read poll response: %w", err)
	}
	return out, nil
}

// decodeEnvelope returns the envelope on line if it is a message event.
func decodeEnvelope(line []byte) (Envelope, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Envelope{}, false
	}
	if !gjson.ValidBytes(line) {
		slog.Warn("relay: skipping malformed line", "line", string(line))
		return Envelope{}, false
	}
	if ev := gjson.GetBytes(line, "event").String(); ev != "" && ev != "message" {
		return Envelope{}, false
	}
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		slog.Warn("relay: skipping undecodable line", "error", err)
		return Envelope{}, false
	}
	return env, true
}
