package cart

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/MarcGrol/storefront/lib/mylog"
)

// Store wraps a cart and writes every mutation through to its storage.
type Store struct {
	logger  mylog.Logger
	storage Storage
	cart    Cart
}

// Open loads the persisted cart; an unreadable blob is discarded and yields an empty cart.
func Open(c context.Context, logger mylog.Logger, storage Storage) *Store {
	s := &Store{
		logger:  logger,
		storage: storage,
	}

	blob, found := storage.Load(c)
	if !found {
		return s
	}
	cart, err := decode(blob)
	if err != nil {
		logger.Log(c, "", mylog.SeverityWarn, "Discarding unreadable cart: %s", err)
		return s
	}
	s.cart = cart
	return s
}

func (s *Store) Add(c context.Context, p Product) error {
	s.cart.Add(p)
	return s.persist(c)
}

func (s *Store) Remove(c context.Context, productKey string) error {
	s.cart.Remove(productKey)
	return s.persist(c)
}

func (s *Store) Clear(c context.Context) error {
	s.cart.Clear()
	return s.storage.Remove(c)
}

func (s *Store) Total() decimal.Decimal {
	return s.cart.Total()
}

func (s *Store) Count() int {
	return s.cart.Count()
}

func (s *Store) Cart() Cart {
	return Cart{Lines: append([]Line{}, s.cart.Lines...)}
}

func (s *Store) persist(c context.Context) error {
	blob, err := encode(s.cart)
	if err != nil {
		return err
	}
	return s.storage.Save(c, blob)
}
