package cart

import "github.com/shopspring/decimal"

type Product struct {
	Key       string
	Name      string
	UnitPrice decimal.Decimal
	Currency  string
}

type Line struct {
	ProductKey string          `json:"key"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Currency   string          `json:"currency"`
	Quantity   int             `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	Lines []Line `json:"lines"`
}

// Add increments the quantity of an existing line, otherwise appends one with quantity 1.
func (c *Cart) Add(p Product) {
	for i := range c.Lines {
		if c.Lines[i].ProductKey == p.Key {
			c.Lines[i].Quantity++
			return
		}
	}
	c.Lines = append(c.Lines, Line{
		ProductKey: p.Key,
		Name:       p.Name,
		UnitPrice:  p.UnitPrice,
		Currency:   p.Currency,
		Quantity:   1,
	})
}

// Remove deletes the whole line, whatever its quantity.
func (c *Cart) Remove(productKey string) {
	lines := []Line{}
	for _, l := range c.Lines {
		if l.ProductKey != productKey {
			lines = append(lines, l)
		}
	}
	c.Lines = lines
}

func (c *Cart) Clear() {
	c.Lines = []Line{}
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c Cart) Count() int {
	count := 0
	for _, l := range c.Lines {
		count += l.Quantity
	}
	return count
}

func (c Cart) valid() bool {
	seen := map[string]bool{}
	for _, l := range c.Lines {
		if l.ProductKey == "" || l.Quantity < 1 || seen[l.ProductKey] {
			return false
		}
		seen[l.ProductKey] = true
	}
	return true
}

type View struct {
	Lines []Line `json:"lines"`
	Total string `json:"total"`
	Count int    `json:"count"`
}

func (c Cart) View() View {
	lines := c.Lines
	if lines == nil {
		lines = []Line{}
	}
	return View{
		Lines: lines,
		Total: c.Total().StringFixed(2),
		Count: c.Count(),
	}
}

type AddItemRequest struct {
	Key string `form:"key"`
}
