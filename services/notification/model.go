package notification

import (
	"errors"
	"strings"
)

var ErrNotificationFailed = errors.New("notification failed")

const (
	fallbackName    = "Client Sarphotar"
	fallbackAddress = "Non renseignée"
	fallbackPhone   = "Non renseigné"
)

type Address struct {
	Line1      string
	Line2      string
	PostalCode string
	City       string
	State      string
	Country    string
}

func (a Address) String() string {
	parts := []string{}
	for _, p := range []string{a.Line1, a.Line2, strings.TrimSpace(a.PostalCode + " " + a.City), a.State, a.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

type Contact struct {
	Name    string
	Phone   string
	Address *Address
}

// Order carries what the confirmation needs. Shipping details take precedence over customer details.
type Order struct {
	OrderNumber string
	AmountTotal int64 // minor units
	Currency    string
	Email       string
	Shipping    *Contact
	Customer    *Contact
}

func (o Order) DisplayName() string {
	for _, contact := range []*Contact{o.Shipping, o.Customer} {
		if contact != nil && strings.TrimSpace(contact.Name) != "" {
			return strings.TrimSpace(contact.Name)
		}
	}
	return fallbackName
}

func (o Order) DisplayAddress() string {
	for _, contact := range []*Contact{o.Shipping, o.Customer} {
		if contact != nil && contact.Address != nil {
			if formatted := contact.Address.String(); formatted != "" {
				return formatted
			}
		}
	}
	return fallbackAddress
}

func (o Order) DisplayPhone() string {
	for _, contact := range []*Contact{o.Shipping, o.Customer} {
		if contact != nil && strings.TrimSpace(contact.Phone) != "" {
			return strings.TrimSpace(contact.Phone)
		}
	}
	return fallbackPhone
}

type Message struct {
	MessageID string
	To        string
	Subject   string
	HTML      string
}

type TestEmailResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}
