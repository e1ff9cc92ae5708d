package fulfillment

import "time"

const eventCheckoutSessionCompleted = "checkout.session.completed"

const signatureHeader = "Stripe-Signature"

type Config struct {
	WebhookSecret    string
	WebhookTolerance time.Duration
	OrderPrefix      string
}

type WebhookResponse struct {
	Received bool `json:"received"`
}
