package orderapi

import (
	"fmt"
	"math/rand"
	"time"
)

// OrderNumberMinter produces PREFIX-YYYYMMDD-#### tokens.
type OrderNumberMinter struct {
	prefix string
	intN   func(n int) int
}

func NewOrderNumberMinter(prefix string) OrderNumberMinter {
	return NewOrderNumberMinterWithSource(prefix, rand.Intn)
}

// NewOrderNumberMinterWithSource draws the random part from intN, which must return values in [0,n).
func NewOrderNumberMinterWithSource(prefix string, intN func(n int) int) OrderNumberMinter {
	return OrderNumberMinter{
		prefix: prefix,
		intN:   intN,
	}
}

func (m OrderNumberMinter) Mint(now time.Time) string {
	return fmt.Sprintf("%s-%s-%04d", m.prefix, now.UTC().Format("20060102"), 1000+m.intN(9000))
}

// MintFallback is used when a completion event carries no order number of ours.
func (m OrderNumberMinter) MintFallback(now time.Time) string {
	return fmt.Sprintf("%s-%s-X%04d", m.prefix, now.UTC().Format("20060102"), 1000+m.intN(9000))
}
