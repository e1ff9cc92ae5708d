package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/MarcGrol/storefront/lib/mylog"
	"github.com/MarcGrol/storefront/lib/myuuid"
)

// Dispatcher sends order confirmations. Failures are logged, never retried in-band
// and never reported back to the webhook that triggered them.
type Dispatcher struct {
	logger  mylog.Logger
	sender  Sender
	uuider  myuuid.UUIDer
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[struct{}]

	mu       sync.Mutex
	closed   bool
	inFlight sync.WaitGroup
}

func NewDispatcher(sender Sender, uuider myuuid.UUIDer, timeout time.Duration) *Dispatcher {
	logger := mylog.New("notification")
	return &Dispatcher{
		logger:  logger,
		sender:  sender,
		uuider:  uuider,
		timeout: timeout,
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "mail",
			MaxRequests: 1,
			Timeout:     time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Log(context.Background(), name, mylog.SeverityWarn, "Circuit breaker %s: %s -> %s", name, from, to)
			},
		}),
	}
}

// Dispatch sends the confirmation in the background, detached from the caller's cancellation.
func (d *Dispatcher) Dispatch(c context.Context, order Order) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Log(c, order.OrderNumber, mylog.SeverityError, "%s: dispatcher closed, confirmation for %s dropped", ErrNotificationFailed, order.OrderNumber)
		return
	}
	d.inFlight.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.inFlight.Done()

		c, cancel := context.WithTimeout(context.WithoutCancel(c), d.timeout)
		defer cancel()

		_, err := d.Send(c, order)
		if err != nil {
			d.logger.Log(c, order.OrderNumber, mylog.SeverityError, "Error sending confirmation for %s: %s", order.OrderNumber, err)
			return
		}
		d.logger.Log(c, order.OrderNumber, mylog.SeverityInfo, "Sent confirmation for %s", order.OrderNumber)
	}()
}

// Send composes and sends synchronously, returning the message id.
func (d *Dispatcher) Send(c context.Context, order Order) (string, error) {
	if order.Email == "" {
		return "", fmt.Errorf("%w: order %s has no recipient", ErrNotificationFailed, order.OrderNumber)
	}

	msg, err := Compose(order)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotificationFailed, err)
	}
	msg.MessageID = d.uuider.Create()

	_, err = d.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, d.sender.Send(c, msg)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotificationFailed, err)
	}
	return msg.MessageID, nil
}

// Shutdown refuses new work and waits for in-flight sends or until c expires.
func (d *Dispatcher) Shutdown(c context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-c.Done():
		return fmt.Errorf("error draining notifications: %s", c.Err())
	}
}
