package checkout

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

//go:generate mockgen -source=payer.go -package checkout -destination payer_mock.go Payer
type Payer interface {
	LookupPrice(c context.Context, lookupKey string) (string, bool, error)
	CreateCheckoutSession(c context.Context, params stripe.CheckoutSessionParams) (stripe.CheckoutSession, error)
}

// stripePayer calls the gateway once per operation: no retries, no caching.
type stripePayer struct {
	sc *client.API
}

func NewPayer(sc *client.API) Payer {
	return &stripePayer{
		sc: sc,
	}
}

func (p *stripePayer) LookupPrice(c context.Context, lookupKey string) (string, bool, error) {
	params := &stripe.PriceListParams{
		LookupKeys: stripe.StringSlice([]string{lookupKey}),
		Active:     stripe.Bool(true),
	}
	params.Context = c
	params.Limit = stripe.Int64(1)

	iter := p.sc.Prices.List(params)
	if !iter.Next() {
		if err := iter.Err(); err != nil {
			return "", false, fmt.Errorf("error looking up price %s: %s", lookupKey, err)
		}
		return "", false, nil
	}
	return iter.Price().ID, true, nil
}

func (p *stripePayer) CreateCheckoutSession(c context.Context, params stripe.CheckoutSessionParams) (stripe.CheckoutSession, error) {
	params.Context = c
	session, err := p.sc.CheckoutSessions.New(&params)
	if err != nil {
		return stripe.CheckoutSession{}, fmt.Errorf("error creating checkout session: %s", err)
	}
	return *session, nil
}
