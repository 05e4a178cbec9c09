package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload builds a Stripe-Signature header for the payload using the
// t/v1 scheme.
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func completedSessionPayload() []byte {
	return []byte(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": "2023-10-16",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_abc123",
				"object": "checkout.session",
				"payment_intent": "pi_test_777",
				"metadata": {"formalityId": "42"}
			}
		}
	}`)
}

func TestParseEventValidSignature(t *testing.T) {
	verifier := NewWebhookVerifier(testWebhookSecret)
	payload := completedSessionPayload()

	event, err := verifier.ParseEvent(payload, signPayload(payload, testWebhookSecret, time.Now()))
	assert.NoError(t, err)
	assert.Equal(t, EventCheckoutCompleted, string(event.Type))
}

func TestParseEventInvalidSignature(t *testing.T) {
	verifier := NewWebhookVerifier(testWebhookSecret)
	payload := completedSessionPayload()

	// Signed with the wrong secret
	_, err := verifier.ParseEvent(payload, signPayload(payload, "whsec_wrong", time.Now()))
	assert.Error(t, err)

	// Garbage header
	_, err = verifier.ParseEvent(payload, "t=0,v1=deadbeef")
	assert.Error(t, err)

	// Missing header
	_, err = verifier.ParseEvent(payload, "")
	assert.Error(t, err)
}

func TestParseEventTamperedPayload(t *testing.T) {
	verifier := NewWebhookVerifier(testWebhookSecret)
	payload := completedSessionPayload()
	header := signPayload(payload, testWebhookSecret, time.Now())

	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = ' '

	_, err := verifier.ParseEvent(tampered, header)
	assert.Error(t, err)
}

func TestParseEventStaleTimestamp(t *testing.T) {
	verifier := NewWebhookVerifier(testWebhookSecret)
	payload := completedSessionPayload()

	// Outside the default tolerance window
	_, err := verifier.ParseEvent(payload, signPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour)))
	assert.Error(t, err)
}

func TestExtractCheckoutCompleted(t *testing.T) {
	verifier := NewWebhookVerifier(testWebhookSecret)
	payload := completedSessionPayload()

	event, err := verifier.ParseEvent(payload, signPayload(payload, testWebhookSecret, time.Now()))
	assert.NoError(t, err)

	completed, err := ExtractCheckoutCompleted(event)
	assert.NoError(t, err)
	assert.Equal(t, "cs_test_abc123", completed.SessionID)
	assert.Equal(t, "pi_test_777", completed.PaymentIntentID)
	assert.Equal(t, int64(42), completed.FormalityID)
}
