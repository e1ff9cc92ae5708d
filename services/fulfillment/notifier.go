package fulfillment

import (
	"context"

	"github.com/MarcGrol/storefront/services/notification"
)

//go:generate mockgen -source=notifier.go -package fulfillment -destination notifier_mock.go Notifier
type Notifier interface {
	Dispatch(c context.Context, order notification.Order)
}
