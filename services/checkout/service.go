package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/stripe/stripe-go/v74"

	"github.com/MarcGrol/storefront/lib/myerrors"
	"github.com/MarcGrol/storefront/lib/myhttp"
	"github.com/MarcGrol/storefront/lib/mylog"
	"github.com/MarcGrol/storefront/lib/mypublisher"
	"github.com/MarcGrol/storefront/lib/mystore"
	"github.com/MarcGrol/storefront/lib/mytime"
	"github.com/MarcGrol/storefront/services/orderapi"
	"github.com/MarcGrol/storefront/services/orderevents"
)

const maxMintAttempts = 5

var errOrderNumberTaken = errors.New("order number taken")

type Config struct {
	SiteURL                  string
	OrderPrefix              string
	AllowedShippingCountries []string
}

type service struct {
	cfg        Config
	logger     mylog.Logger
	nower      mytime.Nower
	minter     orderapi.OrderNumberMinter
	payer      Payer
	orderStore mystore.Store[orderapi.OrderRecord]
	publisher  mypublisher.Publisher
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(cfg Config, logger mylog.Logger, nower mytime.Nower, minter orderapi.OrderNumberMinter, payer Payer, orderStore mystore.Store[orderapi.OrderRecord], publisher mypublisher.Publisher) *service {
	return &service{
		cfg:        cfg,
		logger:     logger,
		nower:      nower,
		minter:     minter,
		payer:      payer,
		orderStore: orderStore,
		publisher:  publisher,
	}
}

// startCheckout turns a cart into a gateway checkout session and returns its redirect url.
// Nothing is sent to the gateway unless every item resolves to a price.
func (s *service) startCheckout(c context.Context, req CheckoutRequest) (string, error) {
	err := validate(req)
	if err != nil {
		return "", myerrors.NewInvalidInputError(err)
	}

	items, err := s.resolvePrices(c, req.Items)
	if err != nil {
		return "", err
	}

	orderNumber, err := s.reserveOrderNumber(c, req, items)
	if err != nil {
		return "", err
	}

	s.logger.Log(c, orderNumber, mylog.SeverityInfo, "Start checkout for order %s (%d items)", orderNumber, len(items))

	params, err := s.sessionParams(orderNumber, req.Referrer, items)
	if err != nil {
		s.release(c, orderNumber)
		return "", myerrors.NewInternalError(err)
	}

	session, err := s.payer.CreateCheckoutSession(c, params)
	if err != nil {
		s.release(c, orderNumber)
		return "", myerrors.NewInternalError(fmt.Errorf("%w: %s", ErrGateway, err))
	}

	err = s.attachSession(c, orderNumber, req.Referrer, len(items), session.ID)
	if err != nil {
		// The session exists at the gateway; fulfillment will create the record if needed.
		s.logger.Log(c, orderNumber, mylog.SeverityError, "Error attaching session %s to order %s: %s", session.ID, orderNumber, err)
	}

	return session.URL, nil
}

func validate(req CheckoutRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidRequest)
	}
	for idx, item := range req.Items {
		if strings.TrimSpace(item.Key) == "" {
			return fmt.Errorf("%w: item %d has no key", ErrInvalidRequest, idx)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %s has quantity %d", ErrInvalidRequest, item.Key, item.Quantity)
		}
	}
	return nil
}

func (s *service) resolvePrices(c context.Context, items []Item) ([]resolvedItem, error) {
	resolved := []resolvedItem{}
	for _, item := range items {
		priceID, found, err := s.payer.LookupPrice(c, item.Key)
		if err != nil {
			return nil, myerrors.NewInternalError(fmt.Errorf("%w: %s", ErrGateway, err))
		}
		if !found {
			return nil, myerrors.NewNotFoundError(fmt.Errorf("%w: %s", ErrPriceNotFound, item.Key))
		}
		resolved = append(resolved, resolvedItem{
			Item:    item,
			PriceID: priceID,
		})
	}
	return resolved, nil
}

// reserveOrderNumber stores a pending order under a freshly minted number,
// minting again when the number is already in use.
func (s *service) reserveOrderNumber(c context.Context, req CheckoutRequest, items []resolvedItem) (string, error) {
	lines := []orderapi.OrderLine{}
	for _, item := range items {
		lines = append(lines, orderapi.OrderLine{
			ProductKey: item.Key,
			PriceID:    item.PriceID,
			Quantity:   item.Quantity,
		})
	}

	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		now := s.nower.Now()
		orderNumber := s.minter.Mint(now)

		err := s.orderStore.RunInTransaction(c, func(c context.Context) error {
			// must be idempotent
			_, exists, err := s.orderStore.Get(c, orderNumber)
			if err != nil {
				return fmt.Errorf("error fetching order %s: %s", orderNumber, err)
			}
			if exists {
				return errOrderNumberTaken
			}

			return s.orderStore.Put(c, orderNumber, orderapi.OrderRecord{
				OrderNumber: orderNumber,
				Status:      orderapi.StatusPending,
				CreatedAt:   now,
				Referrer:    req.Referrer,
				Lines:       lines,
			})
		})
		if errors.Is(err, errOrderNumberTaken) {
			s.logger.Log(c, orderNumber, mylog.SeverityWarn, "Order number %s already taken, minting another", orderNumber)
			continue
		}
		if err != nil {
			return "", myerrors.NewInternalError(fmt.Errorf("error reserving order number: %s", err))
		}
		return orderNumber, nil
	}

	return "", myerrors.NewInternalError(fmt.Errorf("no free order number after %d attempts", maxMintAttempts))
}

func (s *service) release(c context.Context, orderNumber string) {
	err := s.orderStore.Delete(c, orderNumber)
	if err != nil {
		s.logger.Log(c, orderNumber, mylog.SeverityWarn, "Error releasing order %s: %s", orderNumber, err)
	}
}

func (s *service) sessionParams(orderNumber string, referrer string, items []resolvedItem) (stripe.CheckoutSessionParams, error) {
	successURL, err := myhttp.AddQueryParams(s.cfg.SiteURL+"/", url.Values{
		"success":     []string{"true"},
		"orderNumber": []string{orderNumber},
	}, map[string]string{"session_id": "{CHECKOUT_SESSION_ID}"})
	if err != nil {
		return stripe.CheckoutSessionParams{}, fmt.Errorf("error composing success url: %s", err)
	}

	cancelURL, err := myhttp.AddQueryParams(s.cfg.SiteURL+"/", url.Values{
		"canceled":    []string{"true"},
		"orderNumber": []string{orderNumber},
	}, nil)
	if err != nil {
		return stripe.CheckoutSessionParams{}, fmt.Errorf("error composing cancel url: %s", err)
	}

	lineItems := []*stripe.CheckoutSessionLineItemParams{}
	for _, item := range items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(item.PriceID),
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := stripe.CheckoutSessionParams{
		Params: stripe.Params{
			Metadata:       metadata(orderNumber, referrer),
			IdempotencyKey: stripe.String(orderNumber),
		},
		LineItems:         lineItems,
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(orderNumber),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			// Survives when the session level metadata is dropped downstream
			Metadata: metadata(orderNumber, referrer),
		},
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(s.cfg.AllowedShippingCountries),
		},
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		PhoneNumberCollection: &stripe.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripe.Bool(true),
		},
		AutomaticTax: &stripe.CheckoutSessionAutomaticTaxParams{
			Enabled: stripe.Bool(true),
		},
	}
	return params, nil
}

func metadata(orderNumber string, referrer string) map[string]string {
	m := map[string]string{
		orderapi.MetadataOrderNumber: orderNumber,
	}
	if referrer != "" {
		m[metadataReferrer] = referrer
	}
	return m
}

func (s *service) attachSession(c context.Context, orderNumber string, referrer string, lineCount int, sessionID string) error {
	now := s.nower.Now()

	return s.orderStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		order, exists, err := s.orderStore.Get(c, orderNumber)
		if err != nil {
			return fmt.Errorf("error fetching order %s: %s", orderNumber, err)
		}
		if !exists || order.IsFulfilled() {
			return nil
		}

		order.SessionID = sessionID
		order.LastModified = &now
		err = s.orderStore.Put(c, orderNumber, order)
		if err != nil {
			return fmt.Errorf("error storing order %s: %s", orderNumber, err)
		}

		err = s.publisher.Publish(c, orderevents.TopicName, orderevents.CheckoutStarted{
			OrderNumber: orderNumber,
			SessionID:   sessionID,
			Referrer:    referrer,
			LineCount:   lineCount,
		})
		if err != nil {
			return fmt.Errorf("error publishing event: %s", err)
		}

		return nil
	})
}
