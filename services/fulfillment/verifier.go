package fulfillment

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

var ErrSignatureInvalid = errors.New("webhook signature invalid")

type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewWebhookVerifier(secret string, tolerance time.Duration) WebhookVerifier {
	return WebhookVerifier{
		secret:    secret,
		tolerance: tolerance,
	}
}

// Verify checks the signature over the exact payload bytes before anything is parsed.
func (v WebhookVerifier) Verify(payload []byte, signatureHeader string) (stripe.Event, error) {
	if signatureHeader == "" {
		return stripe.Event{}, fmt.Errorf("%w: missing signature header", ErrSignatureInvalid)
	}

	err := webhook.ValidatePayloadWithTolerance(payload, signatureHeader, v.secret, v.tolerance)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %s", ErrSignatureInvalid, err)
	}

	event := stripe.Event{}
	err = json.Unmarshal(payload, &event)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("error parsing signed event: %s", err)
	}
	if event.ID == "" {
		return stripe.Event{}, fmt.Errorf("signed event has no id")
	}
	return event, nil
}
