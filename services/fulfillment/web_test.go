package fulfillment

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74/webhook"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/storefront/lib/mypublisher"
	"github.com/MarcGrol/storefront/lib/mystore"
	"github.com/MarcGrol/storefront/lib/mytime"
	"github.com/MarcGrol/storefront/lib/myuuid"
	"github.com/MarcGrol/storefront/services/notification"
	"github.com/MarcGrol/storefront/services/orderapi"
	"github.com/MarcGrol/storefront/services/orderevents"
)

const webhookSecret = "whsec_test_secret"

var fallbackPattern = regexp.MustCompile(`^SAR-\d{8}-X\d{4}$`)

func TestPaymentWebhook(t *testing.T) {

	t.Run("Completed checkout fulfills order and notifies", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, orderStore, publisher, notifier := setup(t, ctrl, nil)

		// given
		_ = orderStore.Put(ctx, "SAR-20230227-1234", orderapi.OrderRecord{
			OrderNumber: "SAR-20230227-1234",
			Status:      orderapi.StatusPending,
			SessionID:   "cs_test_456",
		})
		publisher.EXPECT().Publish(gomock.Any(), orderevents.TopicName, orderevents.OrderFulfilled{
			OrderNumber:   "SAR-20230227-1234",
			EventID:       "evt_1",
			AmountTotal:   1999,
			Currency:      "eur",
			CustomerEmail: "jean@example.com",
		}).Return(nil)
		notifier.EXPECT().Dispatch(gomock.Any(), notification.Order{
			OrderNumber: "SAR-20230227-1234",
			AmountTotal: 1999,
			Currency:    "eur",
			Email:       "jean@example.com",
			Shipping: &notification.Contact{
				Name:    "Jean Dupont",
				Phone:   "+33612345678",
				Address: &notification.Address{Line1: "12 rue des Lilas", PostalCode: "69001", City: "Lyon", Country: "FR"},
			},
			Customer: &notification.Contact{
				Name:  "Jean Dupont",
				Phone: "+33612345678",
			},
		})

		// when
		response := deliver(t, router, completedEvent("evt_1", `"metadata":{"orderNumber":"SAR-20230227-1234"},"client_reference_id":"SAR-20230227-1234",`))

		// then
		assert.Equal(t, 200, response.Code)
		assert.JSONEq(t, `{"received":true}`, response.Body.String())

		order, exists, _ := orderStore.Get(ctx, "SAR-20230227-1234")
		assert.True(t, exists)
		assert.Equal(t, orderapi.StatusFulfilled, order.Status)
		assert.Equal(t, "evt_1", order.EventID)
		assert.Equal(t, "cs_test_456", order.SessionID)
		assert.Equal(t, "12 rue des Lilas, 69001 Lyon, FR", order.ShippingAddress)
		assert.False(t, order.Degraded)
	})

	t.Run("Duplicate event id notifies once", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, publisher, notifier := setup(t, ctrl, nil)

		// given
		publisher.EXPECT().Publish(gomock.Any(), orderevents.TopicName, gomock.Any()).Return(nil).Times(1)
		notifier.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Times(1)
		payload := completedEvent("evt_1", `"metadata":{"orderNumber":"SAR-20230227-1234"},`)

		// when
		first := deliver(t, router, payload)
		second := deliver(t, router, payload)

		// then
		assert.Equal(t, 200, first.Code)
		assert.Equal(t, 200, second.Code)
		assert.JSONEq(t, `{"received":true}`, second.Body.String())
	})

	t.Run("Other event for an already fulfilled order does not notify again", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, publisher, notifier := setup(t, ctrl, nil)

		// given
		publisher.EXPECT().Publish(gomock.Any(), orderevents.TopicName, gomock.Any()).Return(nil).Times(1)
		notifier.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Times(1)

		// when
		first := deliver(t, router, completedEvent("evt_1", `"metadata":{"orderNumber":"SAR-20230227-1234"},`))
		second := deliver(t, router, completedEvent("evt_2", `"metadata":{"orderNumber":"SAR-20230227-1234"},`))

		// then
		assert.Equal(t, 200, first.Code)
		assert.Equal(t, 200, second.Code)
	})

	t.Run("Invalid signature is rejected before anything is read", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, orderStore, _, _ := setup(t, ctrl, nil)

		// given
		payload := completedEvent("evt_1", `"metadata":{"orderNumber":"SAR-20230227-1234"},`)
		forged := signWithSecret(payload, "whsec_wrong", time.Now())

		// when
		response := deliverWithSignature(t, router, payload, forged)

		// then
		assert.Equal(t, 400, response.Code)
		assert.NotContains(t, response.Body.String(), "jean@example.com")
		assert.NotContains(t, response.Body.String(), "SAR-20230227-1234")
		orders, _ := orderStore.List(ctx)
		assert.Empty(t, orders)
	})

	t.Run("Tampered payload", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _, _ := setup(t, ctrl, nil)

		// given
		payload := completedEvent("evt_1", `"metadata":{"orderNumber":"SAR-20230227-1234"},`)
		signature := sign(payload, time.Now())
		tampered := []byte(strings.Replace(string(payload), "1999", "0001", 1))

		// when
		response := deliverWithSignature(t, router, tampered, signature)

		// then
		assert.Equal(t, 400, response.Code)
	})

	t.Run("Missing signature header", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _, _ := setup(t, ctrl, nil)

		// when
		response := deliverWithSignature(t, router, completedEvent("evt_1", ""), "")

		// then
		assert.Equal(t, 400, response.Code)
	})

	t.Run("Malformed unsigned payload", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _, _ := setup(t, ctrl, nil)

		// when
		response := deliverWithSignature(t, router, []byte(`{not json`), "t=1,v1=abc")

		// then
		assert.Equal(t, 400, response.Code)
	})

	t.Run("Stale timestamp", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _, _ := setup(t, ctrl, nil)

		// given
		payload := completedEvent("evt_1", `"metadata":{"orderNumber":"SAR-20230227-1234"},`)

		// when
		response := deliverWithSignature(t, router, payload, sign(payload, time.Now().Add(-time.Hour)))

		// then
		assert.Equal(t, 400, response.Code)
	})

	t.Run("Wrong method", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _, _ := setup(t, ctrl, nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/payment-webhook", nil)
		require.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 405, response.Code)
		assert.Equal(t, "application/json", response.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"Method not allowed"}`, response.Body.String())
	})

	t.Run("Other event types are acknowledged and ignored", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, orderStore, _, _ := setup(t, ctrl, nil)

		// given
		payload := []byte(`{"id":"evt_9","object":"event","type":"payment_intent.created","data":{"object":{"id":"pi_1","object":"payment_intent","metadata":{"orderNumber":"SAR-20230227-1234"}}}}`)

		// when
		response := deliver(t, router, payload)

		// then
		assert.Equal(t, 200, response.Code)
		assert.JSONEq(t, `{"received":true}`, response.Body.String())
		orders, _ := orderStore.List(ctx)
		assert.Empty(t, orders)
	})

	t.Run("Missing order number falls back and still succeeds", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, orderStore, publisher, notifier := setup(t, ctrl, nil)

		// given
		var dispatched notification.Order
		publisher.EXPECT().Publish(gomock.Any(), orderevents.TopicName, gomock.Any()).Return(nil)
		notifier.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Do(func(c context.Context, order notification.Order) {
			dispatched = order
		})

		// when
		response := deliver(t, router, completedEvent("evt_1", ""))

		// then
		assert.Equal(t, 200, response.Code)
		assert.Regexp(t, fallbackPattern, dispatched.OrderNumber)
		order, exists, _ := orderStore.Get(ctx, dispatched.OrderNumber)
		assert.True(t, exists)
		assert.True(t, order.Degraded)
		assert.Equal(t, orderapi.StatusFulfilled, order.Status)
	})

	t.Run("Client reference used when metadata is dropped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, publisher, notifier := setup(t, ctrl, nil)

		// given
		publisher.EXPECT().Publish(gomock.Any(), orderevents.TopicName, gomock.Any()).DoAndReturn(func(c context.Context, topic string, event orderevents.OrderFulfilled) error {
			assert.Equal(t, "SAR-20230227-1234", event.OrderNumber)
			assert.True(t, event.Degraded)
			return nil
		})
		notifier.EXPECT().Dispatch(gomock.Any(), gomock.Any())

		// when
		response := deliver(t, router, completedEvent("evt_1", `"client_reference_id":"SAR-20230227-1234",`))

		// then
		assert.Equal(t, 200, response.Code)
	})

	t.Run("Ledger failure asks for redelivery", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ledger := NewMockEventLedger(ctrl)
		_, router, _, _, _ := setup(t, ctrl, ledger)

		// given
		ledger.EXPECT().MarkProcessed(gomock.Any(), "evt_1").Return(false, fmt.Errorf("redis down"))

		// when
		response := deliver(t, router, completedEvent("evt_1", `"metadata":{"orderNumber":"SAR-20230227-1234"},`))

		// then
		assert.Equal(t, 500, response.Code)
		assert.NotContains(t, response.Body.String(), "redis")
	})

	t.Run("Storage failure releases the event for redelivery", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, orderStore, publisher, notifier := setup(t, ctrl, nil)

		// given
		gomock.InOrder(
			publisher.EXPECT().Publish(gomock.Any(), orderevents.TopicName, gomock.Any()).Return(fmt.Errorf("outbox unavailable")),
			publisher.EXPECT().Publish(gomock.Any(), orderevents.TopicName, gomock.Any()).Return(nil),
		)
		notifier.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Times(1)
		payload := completedEvent("evt_1", `"metadata":{"orderNumber":"SAR-20230227-1234"},`)

		// when
		failed := deliver(t, router, payload)
		_, existsAfterFailure, _ := orderStore.Get(ctx, "SAR-20230227-1234")
		redelivered := deliver(t, router, payload)

		// then
		assert.Equal(t, 500, failed.Code)
		assert.False(t, existsAfterFailure)
		assert.Equal(t, 200, redelivered.Code)
	})

	t.Run("Notification failure still acknowledges", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c := context.TODO()
		orderStore, _, _ := mystore.NewInMemoryStore[orderapi.OrderRecord](c)
		processedStore, _, _ := mystore.NewInMemoryStore[ProcessedEvent](c)
		publisher := mypublisher.NewMockPublisher(ctrl)
		sender := notification.NewMockSender(ctrl)
		uuider := myuuid.NewMockUUIDer(ctrl)
		dispatcher := notification.NewDispatcher(sender, uuider, time.Second)
		sut := NewWebService(Config{WebhookSecret: webhookSecret, WebhookTolerance: 5 * time.Minute, OrderPrefix: "SAR"},
			NewStoreLedger(processedStore, mytime.RealNower{}), mytime.RealNower{}, orderStore, publisher, dispatcher)
		router := mux.NewRouter()
		sut.RegisterEndpoints(c, router)

		// given
		publisher.EXPECT().Publish(gomock.Any(), orderevents.TopicName, gomock.Any()).Return(nil)
		uuider.EXPECT().Create().Return("abc-123")
		sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(fmt.Errorf("535 authentication failed"))

		// when
		response := deliver(t, router, completedEvent("evt_1", `"metadata":{"orderNumber":"SAR-20230227-1234"},`))

		// then
		assert.Equal(t, 200, response.Code)
		assert.JSONEq(t, `{"received":true}`, response.Body.String())
		assert.NoError(t, dispatcher.Shutdown(c))
	})
}

func setup(t *testing.T, ctrl *gomock.Controller, ledger EventLedger) (context.Context, *mux.Router, mystore.Store[orderapi.OrderRecord], *mypublisher.MockPublisher, *MockNotifier) {
	c := context.TODO()
	orderStore, _, _ := mystore.NewInMemoryStore[orderapi.OrderRecord](c)
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()
	if ledger == nil {
		processedStore, _, _ := mystore.NewInMemoryStore[ProcessedEvent](c)
		ledger = NewStoreLedger(processedStore, nower)
	}
	publisher := mypublisher.NewMockPublisher(ctrl)
	notifier := NewMockNotifier(ctrl)

	sut := NewWebService(Config{
		WebhookSecret:    webhookSecret,
		WebhookTolerance: 5 * time.Minute,
		OrderPrefix:      "SAR",
	}, ledger, nower, orderStore, publisher, notifier)
	router := mux.NewRouter()
	sut.RegisterEndpoints(c, router)

	return c, router, orderStore, publisher, notifier
}

// completedEvent renders a checkout.session.completed event; extra is spliced into the session object.
func completedEvent(eventID string, extra string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "api_version": "2023-10-16",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_456",
      "object": "checkout.session",
      %s
      "amount_total": 1999,
      "currency": "eur",
      "customer_details": {
        "email": "jean@example.com",
        "name": "Jean Dupont",
        "phone": "+33612345678"
      },
      "shipping_details": {
        "name": "Jean Dupont",
        "phone": "+33612345678",
        "address": {"line1": "12 rue des Lilas", "postal_code": "69001", "city": "Lyon", "country": "FR"}
      }
    }
  }
}`, eventID, extra))
}

func sign(payload []byte, at time.Time) string {
	return signWithSecret(payload, webhookSecret, at)
}

func signWithSecret(payload []byte, secret string, at time.Time) string {
	signature := webhook.ComputeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(signature))
}

func deliver(t *testing.T, router *mux.Router, payload []byte) *httptest.ResponseRecorder {
	return deliverWithSignature(t, router, payload, sign(payload, time.Now()))
}

func deliverWithSignature(t *testing.T, router *mux.Router, payload []byte, signature string) *httptest.ResponseRecorder {
	request, err := http.NewRequest(http.MethodPost, "/payment-webhook", strings.NewReader(string(payload)))
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	if signature != "" {
		request.Header.Set(signatureHeader, signature)
	}
	request.Host = "localhost:8888"
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func TestWebhookResponseShape(t *testing.T) {
	body, err := json.Marshal(WebhookResponse{Received: true})
	require.NoError(t, err)
	assert.Equal(t, `{"received":true}`, string(body))
}
