package checkout

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid checkout request")
	ErrPriceNotFound  = errors.New("price not found")
	ErrGateway        = errors.New("payment gateway error")
)

const metadataReferrer = "referrer"

type Item struct {
	Key      string `json:"key"`
	Quantity int64  `json:"quantity"`
}

type CheckoutRequest struct {
	Items    []Item `json:"items"`
	Referrer string `json:"referrer,omitempty"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

type resolvedItem struct {
	Item
	PriceID string
}
