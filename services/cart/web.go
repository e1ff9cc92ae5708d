package cart

import (
	"context"
	"fmt"
	"net/http"

	formcodec "github.com/go-playground/form/v4"
	"github.com/gorilla/mux"

	"github.com/MarcGrol/storefront/lib/mycontext"
	"github.com/MarcGrol/storefront/lib/myerrors"
	"github.com/MarcGrol/storefront/lib/myhttp"
	"github.com/MarcGrol/storefront/lib/mylog"
	"github.com/MarcGrol/storefront/services/catalog"
)

type webService struct {
	logger mylog.Logger
}

func NewWebService() *webService {
	return &webService{
		logger: mylog.New("cart"),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/cart", s.getCartPage()).Methods("GET")
	router.HandleFunc("/cart", s.clearCartPage()).Methods("DELETE")
	router.HandleFunc("/cart/items", s.addItemPage()).Methods("POST")
	router.HandleFunc("/cart/items/{key}", s.removeItemPage()).Methods("DELETE")
}

func (s *webService) getCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		store := Open(c, s.logger, NewCookieStorage(w, r))

		errorWriter.Write(c, w, http.StatusOK, store.Cart().View())
	}
}

func (s *webService) addItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := r.ParseForm()
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}
		req := AddItemRequest{}
		err = formcodec.NewDecoder().Decode(&req, r.Form)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err)))
			return
		}
		if req.Key == "" {
			errorWriter.WriteError(c, w, 3, myerrors.NewInvalidInputErrorf("missing product key"))
			return
		}

		offer, found := catalog.FindOffer(req.Key)
		if !found {
			errorWriter.WriteError(c, w, 4, myerrors.NewNotFoundError(fmt.Errorf("product %s not found", req.Key)))
			return
		}

		store := Open(c, s.logger, NewCookieStorage(w, r))
		err = store.Add(c, Product{
			Key:       offer.Key,
			Name:      offer.Name,
			UnitPrice: offer.UnitPrice(),
			Currency:  offer.Currency,
		})
		if err != nil {
			errorWriter.WriteError(c, w, 5, myerrors.NewInternalError(err))
			return
		}

		s.logger.Log(c, req.Key, mylog.SeverityInfo, "Added %s to cart", req.Key)

		errorWriter.Write(c, w, http.StatusOK, store.Cart().View())
	}
}

func (s *webService) removeItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		key := mux.Vars(r)["key"]

		store := Open(c, s.logger, NewCookieStorage(w, r))
		err := store.Remove(c, key)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInternalError(err))
			return
		}

		errorWriter.Write(c, w, http.StatusOK, store.Cart().View())
	}
}

func (s *webService) clearCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		store := Open(c, s.logger, NewCookieStorage(w, r))
		err := store.Clear(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInternalError(err))
			return
		}

		errorWriter.Write(c, w, http.StatusOK, store.Cart().View())
	}
}
