package payment

import (
	"encoding/json"
	"fmt"
	"strconv"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// EventCheckoutCompleted is the only event type the webhook acts on
const EventCheckoutCompleted = "checkout.session.completed"

// CheckoutCompleted is the extract of a completed checkout session event
type CheckoutCompleted struct {
	SessionID       string
	PaymentIntentID string
	FormalityID     int64
}

// WebhookVerifier checks webhook payload signatures against the endpoint secret
type WebhookVerifier struct {
	secret string
}

// NewWebhookVerifier creates a verifier for the given endpoint secret
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// ParseEvent verifies the signature header against the raw payload and
// returns the decoded event. Verification failure means the payload must be
// discarded without side effects.
func (v *WebhookVerifier) ParseEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// ExtractCheckoutCompleted decodes the session object out of a
// checkout.session.completed event.
func ExtractCheckoutCompleted(event stripe.Event) (*CheckoutCompleted, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("error decoding checkout session: %w", err)
	}

	completed := &CheckoutCompleted{SessionID: sess.ID}
	if sess.PaymentIntent != nil {
		completed.PaymentIntentID = sess.PaymentIntent.ID
	}
	if raw := sess.Metadata["formalityId"]; raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			completed.FormalityID = id
		}
	}

	return completed, nil
}
