package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v74"

	"github.com/MarcGrol/storefront/lib/myerrors"
	"github.com/MarcGrol/storefront/lib/mylog"
	"github.com/MarcGrol/storefront/lib/mypublisher"
	"github.com/MarcGrol/storefront/lib/mystore"
	"github.com/MarcGrol/storefront/lib/mytime"
	"github.com/MarcGrol/storefront/services/notification"
	"github.com/MarcGrol/storefront/services/orderapi"
	"github.com/MarcGrol/storefront/services/orderevents"
)

type service struct {
	logger     mylog.Logger
	nower      mytime.Nower
	minter     orderapi.OrderNumberMinter
	ledger     EventLedger
	orderStore mystore.Store[orderapi.OrderRecord]
	publisher  mypublisher.Publisher
	notifier   Notifier
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(logger mylog.Logger, nower mytime.Nower, minter orderapi.OrderNumberMinter, ledger EventLedger, orderStore mystore.Store[orderapi.OrderRecord], publisher mypublisher.Publisher, notifier Notifier) *service {
	return &service{
		logger:     logger,
		nower:      nower,
		minter:     minter,
		ledger:     ledger,
		orderStore: orderStore,
		publisher:  publisher,
		notifier:   notifier,
	}
}

// handleEvent fulfills an order at most once per gateway event id.
// Only storage failures are returned, so the gateway redelivers; notification outcome never is.
func (s *service) handleEvent(c context.Context, event stripe.Event) error {
	if string(event.Type) != eventCheckoutSessionCompleted {
		s.logger.Log(c, event.ID, mylog.SeverityInfo, "Ignoring event %s of type %s", event.ID, event.Type)
		return nil
	}

	session := stripe.CheckoutSession{}
	if event.Data == nil || json.Unmarshal(event.Data.Raw, &session) != nil {
		s.logger.Log(c, event.ID, mylog.SeverityError, "Event %s carries no readable checkout session", event.ID)
		return nil
	}

	first, err := s.ledger.MarkProcessed(c, event.ID)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error marking event %s: %s", event.ID, err))
	}
	if !first {
		s.logger.Log(c, event.ID, mylog.SeverityInfo, "Event %s already processed", event.ID)
		return nil
	}

	orderNumber, degraded := s.resolveOrderNumber(c, event.ID, session)

	notify, err := s.fulfill(c, event.ID, orderNumber, degraded, session)
	if err != nil {
		releaseErr := s.ledger.Release(c, event.ID)
		if releaseErr != nil {
			s.logger.Log(c, orderNumber, mylog.SeverityError, "Error releasing event %s: %s", event.ID, releaseErr)
		}
		return myerrors.NewInternalError(fmt.Errorf("error fulfilling order %s: %s", orderNumber, err))
	}
	if !notify {
		return nil
	}

	order := toNotificationOrder(orderNumber, session)
	if order.Email == "" {
		s.logger.Log(c, orderNumber, mylog.SeverityWarn, "%s: order %s has no customer email", notification.ErrNotificationFailed, orderNumber)
		return nil
	}
	s.notifier.Dispatch(c, order)

	return nil
}

// resolveOrderNumber prefers the metadata we attached at checkout, then the client reference.
// Without either, a fallback number is minted and the event is flagged as degraded.
func (s *service) resolveOrderNumber(c context.Context, eventID string, session stripe.CheckoutSession) (string, bool) {
	if orderNumber := session.Metadata[orderapi.MetadataOrderNumber]; orderNumber != "" {
		return orderNumber, false
	}
	if session.ClientReferenceID != "" {
		s.logger.Log(c, session.ClientReferenceID, mylog.SeverityWarn, "Degraded metadata: event %s has no order number in metadata, using client reference %s", eventID, session.ClientReferenceID)
		return session.ClientReferenceID, true
	}

	orderNumber := s.minter.MintFallback(s.nower.Now())
	s.logger.Log(c, orderNumber, mylog.SeverityWarn, "Degraded metadata: event %s (session %s) has no order number, using fallback %s", eventID, session.ID, orderNumber)
	return orderNumber, true
}

func (s *service) fulfill(c context.Context, eventID string, orderNumber string, degraded bool, session stripe.CheckoutSession) (bool, error) {
	now := s.nower.Now()
	details := toNotificationOrder(orderNumber, session)

	notify := false
	err := s.orderStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		notify = false

		order, exists, err := s.orderStore.Get(c, orderNumber)
		if err != nil {
			return fmt.Errorf("error fetching order %s: %s", orderNumber, err)
		}
		if exists && order.IsFulfilled() {
			s.logger.Log(c, orderNumber, mylog.SeverityInfo, "Order %s already fulfilled by event %s", orderNumber, order.EventID)
			return nil
		}
		if !exists {
			s.logger.Log(c, orderNumber, mylog.SeverityWarn, "Order %s unknown, creating it from event %s", orderNumber, eventID)
			order = orderapi.OrderRecord{
				OrderNumber: orderNumber,
				CreatedAt:   now,
			}
		}

		order.Status = orderapi.StatusFulfilled
		order.LastModified = &now
		order.EventID = eventID
		if order.SessionID == "" {
			order.SessionID = session.ID
		}
		order.AmountTotal = session.AmountTotal
		order.Currency = string(session.Currency)
		order.CustomerEmail = details.Email
		order.CustomerName = details.DisplayName()
		order.ShippingAddress = details.DisplayAddress()
		order.Phone = details.DisplayPhone()
		order.Degraded = degraded

		err = s.orderStore.Put(c, orderNumber, order)
		if err != nil {
			return fmt.Errorf("error storing order %s: %s", orderNumber, err)
		}

		err = s.publisher.Publish(c, orderevents.TopicName, orderevents.OrderFulfilled{
			OrderNumber:   orderNumber,
			EventID:       eventID,
			AmountTotal:   session.AmountTotal,
			Currency:      string(session.Currency),
			CustomerEmail: details.Email,
			Degraded:      degraded,
		})
		if err != nil {
			return fmt.Errorf("error publishing event: %s", err)
		}

		notify = true
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Log(c, orderNumber, mylog.SeverityInfo, "Order %s fulfilled by event %s", orderNumber, eventID)

	return notify, nil
}

func toNotificationOrder(orderNumber string, session stripe.CheckoutSession) notification.Order {
	order := notification.Order{
		OrderNumber: orderNumber,
		AmountTotal: session.AmountTotal,
		Currency:    string(session.Currency),
		Email:       session.CustomerEmail,
	}
	if session.ShippingDetails != nil {
		order.Shipping = &notification.Contact{
			Name:    session.ShippingDetails.Name,
			Phone:   session.ShippingDetails.Phone,
			Address: toAddress(session.ShippingDetails.Address),
		}
	}
	if session.CustomerDetails != nil {
		if session.CustomerDetails.Email != "" {
			order.Email = session.CustomerDetails.Email
		}
		order.Customer = &notification.Contact{
			Name:    session.CustomerDetails.Name,
			Phone:   session.CustomerDetails.Phone,
			Address: toAddress(session.CustomerDetails.Address),
		}
	}
	return order
}

func toAddress(a *stripe.Address) *notification.Address {
	if a == nil {
		return nil
	}
	return &notification.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		PostalCode: a.PostalCode,
		City:       a.City,
		State:      a.State,
		Country:    a.Country,
	}
}
