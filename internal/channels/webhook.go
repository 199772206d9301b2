package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/sjson"

	"github.com/coopco/deskclock/internal/bus"
	"github.com/coopco/deskclock/internal/config"
)

func init() {
	Register("webhook", newWebhookChannel)
}

// WebhookChannel posts each notification as a JSON document to a URL.
type WebhookChannel struct {
	url     string
	headers map[string]string
	client  *http.Client
}

func newWebhookChannel(cfg json.RawMessage, deps Deps) (Channel, error) {
	var wcfg config.WebhookConfig
	if err := json.Unmarshal(cfg, &wcfg); err != nil {
		return nil, fmt.Errorf("failed to parse webhook config: %w", err)
	}
	if wcfg.URL == "" {
		return nil, fmt.Errorf("webhook: url is required")
	}
	timeout := time.Duration(wcfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WebhookChannel{
		url:     wcfg.URL,
		headers: wcfg.Headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *WebhookChannel) Name() string                    { return "webhook" }
func (c *WebhookChannel) Start(ctx context.Context) error { return nil }
func (c *WebhookChannel) Stop() error                     { return nil }

func (c *WebhookChannel) Send(msg bus.OutboundMessage) error {
	body, err := webhookBody(msg)
	if err != nil {
		return fmt.Errorf("webhook: encode: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook: send message status %d: %s", resp.StatusCode, b)
	}
	return nil
}

func webhookBody(msg bus.OutboundMessage) ([]byte, error) {
	doc := []byte(`{}`)
	var err error
	set := func(path string, v any) {
		if err == nil {
			doc, err = sjson.SetBytes(doc, path, v)
		}
	}
	set("title", msg.Title)
	set("content", msg.Content)
	set("priority", msg.Priority)
	tags := msg.Tags
	if tags == nil {
		tags = []string{}
	}
	set("tags", tags)
	for k, v := range msg.Metadata {
		set("metadata."+sjsonKey(k), v)
	}
	return doc, err
}

// sjsonKey escapes the path characters sjson treats specially.
func sjsonKey(k string) string {
	var b bytes.Buffer
	for _, r := range k {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
