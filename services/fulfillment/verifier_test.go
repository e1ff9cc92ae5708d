package fulfillment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookVerifier(t *testing.T) {
	verifier := NewWebhookVerifier(webhookSecret, 5*time.Minute)
	payload := completedEvent("evt_1", `"metadata":{"orderNumber":"SAR-20230227-1234"},`)

	t.Run("Valid signature", func(t *testing.T) {
		// when
		event, err := verifier.Verify(payload, sign(payload, time.Now()))

		// then
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, eventCheckoutSessionCompleted, string(event.Type))
		assert.NotEmpty(t, event.Data.Raw)
	})

	testCases := []struct {
		name      string
		payload   []byte
		signature string
	}{
		{
			name:      "Missing header",
			payload:   payload,
			signature: "",
		},
		{
			name:      "Garbage header",
			payload:   payload,
			signature: "not-a-signature",
		},
		{
			name:      "Signed with other secret",
			payload:   payload,
			signature: signWithSecret(payload, "whsec_other", time.Now()),
		},
		{
			name:      "Outside tolerance",
			payload:   payload,
			signature: sign(payload, time.Now().Add(-10*time.Minute)),
		},
		{
			name:      "Payload changed after signing",
			payload:   append([]byte(" "), payload...),
			signature: sign(payload, time.Now()),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			_, err := verifier.Verify(tc.payload, tc.signature)

			// then
			assert.True(t, errors.Is(err, ErrSignatureInvalid))
		})
	}

	t.Run("Signed event without id", func(t *testing.T) {
		// given
		anonymous := []byte(`{"object":"event","type":"checkout.session.completed"}`)

		// when
		_, err := verifier.Verify(anonymous, sign(anonymous, time.Now()))

		// then
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrSignatureInvalid))
	})
}
