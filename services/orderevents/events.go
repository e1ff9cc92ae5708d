package orderevents

const (
	TopicName           = "order"
	checkoutStartedName = TopicName + ".checkout.started"
	orderFulfilledName  = TopicName + ".fulfilled"
)

type CheckoutStarted struct {
	OrderNumber string
	SessionID   string
	Referrer    string
	LineCount   int
}

func (e CheckoutStarted) GetEventTypeName() string {
	return checkoutStartedName
}

func (e CheckoutStarted) GetAggregateName() string {
	return e.OrderNumber
}

type OrderFulfilled struct {
	OrderNumber   string
	EventID       string
	AmountTotal   int64
	Currency      string
	CustomerEmail string
	Degraded      bool
}

func (e OrderFulfilled) GetEventTypeName() string {
	return orderFulfilledName
}

func (e OrderFulfilled) GetAggregateName() string {
	return e.OrderNumber
}
