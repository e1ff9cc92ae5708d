package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
)

//go:embed templates/confirmation.html
var templates embed.FS

var confirmationTemplate = template.Must(template.ParseFS(templates, "templates/confirmation.html"))

type confirmationData struct {
	Name        string
	OrderNumber string
	Amount      string
	Address     string
	Phone       string
}

func Subject(orderNumber string) string {
	return fmt.Sprintf("Confirmation de commande Sarphotar – %s", orderNumber)
}

// FormatAmount renders minor units with two decimals; EUR gets its symbol, other currencies their ISO code.
func FormatAmount(amount int64, currency string) string {
	symbol := strings.ToUpper(currency)
	if symbol == "EUR" {
		symbol = "€"
	}
	return fmt.Sprintf("%s %s", decimal.New(amount, -2).StringFixed(2), symbol)
}

func Compose(order Order) (Message, error) {
	body := bytes.Buffer{}
	err := confirmationTemplate.Execute(&body, confirmationData{
		Name:        order.DisplayName(),
		OrderNumber: order.OrderNumber,
		Amount:      FormatAmount(order.AmountTotal, order.Currency),
		Address:     order.DisplayAddress(),
		Phone:       order.DisplayPhone(),
	})
	if err != nil {
		return Message{}, fmt.Errorf("error rendering confirmation for %s: %s", order.OrderNumber, err)
	}

	return Message{
		To:      order.Email,
		Subject: Subject(order.OrderNumber),
		HTML:    body.String(),
	}, nil
}
