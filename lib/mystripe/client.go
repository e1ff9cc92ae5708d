package mystripe

import (
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	"github.com/MarcGrol/storefront/lib/myhttpclient"
)

// NewClient returns a gateway client that never retries and gives up after timeout.
func NewClient(secretKey string, timeout time.Duration) *client.API {
	config := &stripe.BackendConfig{
		HTTPClient:        myhttpclient.New("stripe", timeout),
		MaxNetworkRetries: stripe.Int64(0),
	}

	sc := &client.API{}
	sc.Init(secretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, config),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, config),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, config),
	})
	return sc
}
