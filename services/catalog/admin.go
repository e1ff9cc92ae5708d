package catalog

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

//go:generate mockgen -source=admin.go -package catalog -destination admin_mock.go Admin
type Admin interface {
	PriceExists(c context.Context, lookupKey string) (bool, error)
	CreateOffer(c context.Context, offer Offer) error
}

type stripeAdmin struct {
	sc *client.API
}

func NewAdmin(sc *client.API) Admin {
	return &stripeAdmin{
		sc: sc,
	}
}

func (a *stripeAdmin) PriceExists(c context.Context, lookupKey string) (bool, error) {
	params := &stripe.PriceListParams{
		LookupKeys: stripe.StringSlice([]string{lookupKey}),
	}
	params.Context = c
	params.Limit = stripe.Int64(1)

	iter := a.sc.Prices.List(params)
	found := iter.Next()
	if err := iter.Err(); err != nil {
		return false, fmt.Errorf("error listing prices for %s: %s", lookupKey, err)
	}
	return found, nil
}

func (a *stripeAdmin) CreateOffer(c context.Context, offer Offer) error {
	productParams := &stripe.ProductParams{
		Name:        stripe.String(offer.Name),
		Description: stripe.String(offer.Description),
	}
	productParams.Context = c
	productParams.AddMetadata("offerKey", offer.Key)

	product, err := a.sc.Products.New(productParams)
	if err != nil {
		return fmt.Errorf("error creating product for %s: %s", offer.Key, err)
	}

	priceParams := &stripe.PriceParams{
		Product:           stripe.String(product.ID),
		UnitAmount:        stripe.Int64(offer.Amount),
		Currency:          stripe.String(offer.Currency),
		LookupKey:         stripe.String(offer.Key),
		TransferLookupKey: stripe.Bool(true),
	}
	priceParams.Context = c

	_, err = a.sc.Prices.New(priceParams)
	if err != nil {
		return fmt.Errorf("error creating price for %s: %s", offer.Key, err)
	}
	return nil
}
