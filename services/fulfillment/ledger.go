package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/MarcGrol/storefront/lib/mystore"
	"github.com/MarcGrol/storefront/lib/mytime"
)

// EventLedger remembers which gateway events have been processed.
//
//go:generate mockgen -source=ledger.go -package fulfillment -destination ledger_mock.go EventLedger
type EventLedger interface {
	// MarkProcessed returns true only for the first caller marking eventID.
	MarkProcessed(c context.Context, eventID string) (bool, error)
	// Release forgets eventID so a redelivery is processed again.
	Release(c context.Context, eventID string) error
}

type ProcessedEvent struct {
	EventID     string
	ProcessedAt time.Time
}

type storeLedger struct {
	store mystore.Store[ProcessedEvent]
	nower mytime.Nower
}

func NewStoreLedger(store mystore.Store[ProcessedEvent], nower mytime.Nower) EventLedger {
	return &storeLedger{
		store: store,
		nower: nower,
	}
}

func (l *storeLedger) MarkProcessed(c context.Context, eventID string) (bool, error) {
	first := false
	err := l.store.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		first = false
		_, exists, err := l.store.Get(c, eventID)
		if err != nil {
			return fmt.Errorf("error fetching processed event %s: %s", eventID, err)
		}
		if exists {
			return nil
		}

		err = l.store.Put(c, eventID, ProcessedEvent{
			EventID:     eventID,
			ProcessedAt: l.nower.Now(),
		})
		if err != nil {
			return fmt.Errorf("error storing processed event %s: %s", eventID, err)
		}
		first = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return first, nil
}

func (l *storeLedger) Release(c context.Context, eventID string) error {
	return l.store.Delete(c, eventID)
}
