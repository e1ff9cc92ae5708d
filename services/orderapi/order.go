package orderapi

import "time"

// MetadataOrderNumber is echoed verbatim by the gateway on the completion event.
const MetadataOrderNumber = "orderNumber"

type Status string

const (
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
)

type OrderLine struct {
	ProductKey string
	PriceID    string
	Quantity   int64
}

// OrderRecord is keyed by order number; StatusFulfilled is terminal.
type OrderRecord struct {
	OrderNumber     string
	Status          Status
	CreatedAt       time.Time
	LastModified    *time.Time
	SessionID       string
	Referrer        string
	Lines           []OrderLine `datastore:",noindex"`
	EventID         string
	AmountTotal     int64
	Currency        string
	CustomerEmail   string
	CustomerName    string
	ShippingAddress string `datastore:",noindex"`
	Phone           string
	Degraded        bool
}

func (o OrderRecord) IsFulfilled() bool {
	return o.Status == StatusFulfilled
}
