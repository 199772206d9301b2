package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/coopco/deskclock/internal/bus"
	"github.com/coopco/deskclock/internal/config"
)

func init() {
	Register("email", newEmailChannel)
}

// EmailChannel mirrors notifications to a mailbox over SMTP.
type EmailChannel struct {
	server   string
	host     string
	username string
	password string
	from     string
	to       []string
	now      func() time.Time
}

func newEmailChannel(cfg json.RawMessage, deps Deps) (Channel, error) {
	var ecfg config.EmailConfig
	if err := json.Unmarshal(cfg, &ecfg); err != nil {
		return nil, fmt.Errorf("failed to parse email config: %w", err)
	}
	if ecfg.SMTPServer == "" {
		return nil, fmt.Errorf("email: smtpServer is required")
	}
	if len(ecfg.To) == 0 {
		return nil, fmt.Errorf("email: at least one recipient is required")
	}
	host, _, err := net.SplitHostPort(ecfg.SMTPServer)
	if err != nil {
		return nil, fmt.Errorf("email: smtpServer must be host:port: %w", err)
	}

	c := &EmailChannel{
		server:   ecfg.SMTPServer,
		host:     host,
		username: ecfg.Username,
		from:     ecfg.From,
		to:       ecfg.To,
		now:      time.Now,
	}
	if c.from == "" {
		c.from = ecfg.Username
	}
	if c.from == "" {
		return nil, fmt.Errorf("email: from or username is required")
	}
	if ecfg.Username != "" {
		c.password, err = resolveToken(deps, "email", ecfg.Password)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *EmailChannel) Name() string                    { return "email" }
func (c *EmailChannel) Start(ctx context.Context) error { return nil }
func (c *EmailChannel) Stop() error                     { return nil }

func (c *EmailChannel) Send(msg bus.OutboundMessage) error {
	var auth smtp.Auth
	if c.username != "" {
		auth = smtp.PlainAuth("", c.username, c.password, c.host)
	}
	if err := smtp.SendMail(c.server, auth, c.from, c.to, c.compose(msg)); err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	return nil
}

// compose renders msg as a plain-text RFC 5322 message.
func (c *EmailChannel) compose(msg bus.OutboundMessage) []byte {
	subject := msg.Title
	if subject == "" {
		subject = "Desk clock"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(c.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", headerSafe(subject))
	fmt.Fprintf(&b, "Date: %s\r\n", c.now().Format(time.RFC1123Z))
	if msg.Priority == "high" || msg.Priority == "urgent" {
		b.WriteString("X-Priority: 1\r\n")
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Content, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
