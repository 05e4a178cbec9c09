package notification

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Dispatcher sends a notification email and returns the provider message id
type Dispatcher interface {
	Send(ctx context.Context, n Notification) (string, error)
}

// SendGridDispatcher relays notifications through the SendGrid v3 API
type SendGridDispatcher struct {
	client      *sendgrid.Client
	fromAddress string
	fromName    string
	replyTo     string
}

// NewSendGridDispatcher creates a dispatcher using the given API key and sender
func NewSendGridDispatcher(apiKey, fromAddress, fromName, replyTo string) *SendGridDispatcher {
	return &SendGridDispatcher{
		client:      sendgrid.NewSendClient(apiKey),
		fromAddress: fromAddress,
		fromName:    fromName,
		replyTo:     replyTo,
	}
}

// Send validates the notification, renders both bodies and performs one
// SendGrid send with a single personalization listing all recipients.
func (d *SendGridDispatcher) Send(ctx context.Context, n Notification) (string, error) {
	if err := n.Validate(); err != nil {
		return "", err
	}

	htmlBody, err := n.RenderHTML()
	if err != nil {
		return "", err
	}
	textBody := n.RenderText()

	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(d.fromName, d.fromAddress))
	if d.replyTo != "" {
		m.SetReplyTo(mail.NewEmail("", d.replyTo))
	}

	p := mail.NewPersonalization()
	for _, recipient := range n.Recipients {
		p.AddTos(mail.NewEmail("", recipient))
	}
	p.Subject = n.Subject
	m.AddPersonalizations(p)

	m.AddContent(
		mail.NewContent("text/plain", textBody),
		mail.NewContent("text/html", htmlBody),
	)

	resp, err := d.client.SendWithContext(ctx, m)
	if err != nil {
		return "", fmt.Errorf("error sending email: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}

	var messageID string
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		messageID = ids[0]
	}

	return messageID, nil
}
