package cart

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const CookieName = "novelec_cart"

type Storage interface {
	Load(c context.Context) (string, bool)
	Save(c context.Context, blob string) error
	Remove(c context.Context) error
}

func encode(cart Cart) (string, error) {
	jsonBytes, err := json.Marshal(cart)
	if err != nil {
		return "", fmt.Errorf("error marshalling cart: %s", err)
	}
	return base64.RawURLEncoding.EncodeToString(jsonBytes), nil
}

func decode(blob string) (Cart, error) {
	jsonBytes, err := base64.RawURLEncoding.DecodeString(blob)
	if err != nil {
		return Cart{}, fmt.Errorf("error decoding cart: %s", err)
	}
	cart := Cart{}
	err = json.Unmarshal(jsonBytes, &cart)
	if err != nil {
		return Cart{}, fmt.Errorf("error unmarshalling cart: %s", err)
	}
	if !cart.valid() {
		return Cart{}, fmt.Errorf("cart contains invalid lines")
	}
	return cart, nil
}

// cookieStorage keeps the cart on the client; the server holds no cart state.
type cookieStorage struct {
	r *http.Request
	w http.ResponseWriter
}

func NewCookieStorage(w http.ResponseWriter, r *http.Request) Storage {
	return &cookieStorage{
		r: r,
		w: w,
	}
}

func (s *cookieStorage) Load(c context.Context) (string, bool) {
	cookie, err := s.r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (s *cookieStorage) Save(c context.Context, blob string) error {
	http.SetCookie(s.w, &http.Cookie{
		Name:     CookieName,
		Value:    blob,
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *cookieStorage) Remove(c context.Context) error {
	http.SetCookie(s.w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
