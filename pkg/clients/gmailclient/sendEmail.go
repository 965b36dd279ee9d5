package gmailclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
)

// EmailInterval is the minimum gap between two sends
const EmailInterval = 3 * time.Second

// SendEmail sends a plain text email. Sends are serialised and spaced by the
// client's interval to stay under Gmail API rate limits.
func (c *Client) SendEmail(ctx context.Context, to, subject, body string) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if !c.lastSendTime.IsZero() {
		if wait := c.interval - time.Since(c.lastSendTime); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	message := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(c.buildMessage(to, subject, body))),
	}

	if _, err := c.service.Users.Messages.Send("me", message).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	c.lastSendTime = time.Now()
	return nil
}

// buildMessage renders an RFC 2822 message
func (c *Client) buildMessage(to, subject, body string) string {
	var b strings.Builder
	if c.sender != "" {
		fmt.Fprintf(&b, "From: %s\r\n", c.sender)
	}
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(body)
	return b.String()
}
