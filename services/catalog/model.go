package catalog

import "github.com/shopspring/decimal"

type Offer struct {
	Key         string
	Name        string
	Description string
	Amount      int64 // minor units
	Currency    string
}

func (o Offer) UnitPrice() decimal.Decimal {
	return decimal.New(o.Amount, -2)
}

var offers = []Offer{
	{
		Key:         "novelec-pistol",
		Name:        "Pistolet NovElec™",
		Description: "100% Électrique - Portée 10m",
		Amount:      1999,
		Currency:    "EUR",
	},
	{
		Key:         "ciovelec-rifle",
		Name:        "Fusil CiovElec™",
		Description: "L'Avantage Tactique - Portée 12m",
		Amount:      2999,
		Currency:    "EUR",
	},
	{
		Key:         "novelec-gatling",
		Name:        "Gatling NovElec™",
		Description: "Domination Totale - Rafale Auto",
		Amount:      9999,
		Currency:    "EUR",
	},
}

func Offers() []Offer {
	return append([]Offer{}, offers...)
}

func FindOffer(key string) (Offer, bool) {
	for _, o := range offers {
		if o.Key == key {
			return o, true
		}
	}
	return Offer{}, false
}

type InitResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Logs    []string `json:"logs"`
}
