package mypublisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/storefront/lib/myevents"
	"github.com/MarcGrol/storefront/lib/myqueue"
	"github.com/MarcGrol/storefront/lib/mystore"
	"github.com/MarcGrol/storefront/lib/mytime"
)

type orderPlaced struct {
	OrderNumber string
}

func (e orderPlaced) GetEventTypeName() string { return "order.placed" }
func (e orderPlaced) GetAggregateName() string { return e.OrderNumber }

type recordingPubSub struct {
	published map[string][]string
}

func (ps *recordingPubSub) Publish(c context.Context, topic string, data string) error {
	ps.published[topic] = append(ps.published[topic], data)
	return nil
}

func (ps *recordingPubSub) CreateTopic(c context.Context, topic string) error { return nil }

type recordingQueue struct {
	tasks []myqueue.Task
}

func (q *recordingQueue) Enqueue(c context.Context, task myqueue.Task) error {
	q.tasks = append(q.tasks, task)
	return nil
}

type fixedNower struct{}

func (n fixedNower) Now() time.Time { return mytime.ExampleTime }

func TestTransactionalPublisher(t *testing.T) {
	c := context.TODO()

	setup := func() (*transactionalPublisher, *mystore.InMemoryStore[myevents.EventEnvelope], *recordingPubSub, *recordingQueue, *mux.Router) {
		outbox, _, _ := mystore.NewInMemoryStore[myevents.EventEnvelope](c)
		ps := &recordingPubSub{published: map[string][]string{}}
		queue := &recordingQueue{}
		sut := New(outbox, ps, queue, fixedNower{})
		router := mux.NewRouter()
		sut.RegisterEndpoints(c, router)
		return sut, outbox, ps, queue, router
	}

	t.Run("Publish stores envelope and queues trigger", func(t *testing.T) {
		sut, outbox, ps, queue, _ := setup()

		err := sut.Publish(c, "order", orderPlaced{OrderNumber: "SAR-20230227-1234"})
		assert.NoError(t, err)

		envelopes, _ := outbox.List(c)
		assert.Len(t, envelopes, 1)
		assert.Equal(t, "order.placed", envelopes[0].EventTypeName)
		assert.Equal(t, "SAR-20230227-1234", envelopes[0].AggregateUID)
		assert.False(t, envelopes[0].Published)
		assert.Len(t, queue.tasks, 1)
		assert.Equal(t, "/pubsub/order/"+envelopes[0].UID, queue.tasks[0].WebhookURLPath)
		assert.Empty(t, ps.published)
	})

	t.Run("Same event yields same envelope", func(t *testing.T) {
		sut, outbox, _, _, _ := setup()

		_ = sut.Publish(c, "order", orderPlaced{OrderNumber: "SAR-20230227-1234"})
		_ = sut.Publish(c, "order", orderPlaced{OrderNumber: "SAR-20230227-1234"})

		envelopes, _ := outbox.List(c)
		assert.Len(t, envelopes, 1)
	})

	t.Run("Trigger publishes pending envelopes once", func(t *testing.T) {
		sut, outbox, ps, queue, router := setup()
		_ = sut.Publish(c, "order", orderPlaced{OrderNumber: "SAR-20230227-1234"})

		for i := 0; i < 2; i++ {
			request, err := http.NewRequest(http.MethodPut, queue.tasks[0].WebhookURLPath, nil)
			assert.NoError(t, err)
			response := httptest.NewRecorder()
			router.ServeHTTP(response, request)
			assert.Equal(t, 200, response.Code)
		}

		assert.Len(t, ps.published["order"], 1)
		envelopes, _ := outbox.List(c)
		assert.True(t, envelopes[0].Published)

		parsed := myevents.EventEnvelope{}
		err := json.Unmarshal([]byte(ps.published["order"][0]), &parsed)
		assert.NoError(t, err)
		assert.Equal(t, mytime.ExampleTime, parsed.CreatedAt.UTC())
		assert.Equal(t, `{"OrderNumber":"SAR-20230227-1234"}`, parsed.EventPayload)
	})
}
