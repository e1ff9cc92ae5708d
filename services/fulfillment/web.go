package fulfillment

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/storefront/lib/mycontext"
	"github.com/MarcGrol/storefront/lib/myerrors"
	"github.com/MarcGrol/storefront/lib/myhttp"
	"github.com/MarcGrol/storefront/lib/mylog"
	"github.com/MarcGrol/storefront/lib/mypublisher"
	"github.com/MarcGrol/storefront/lib/mystore"
	"github.com/MarcGrol/storefront/lib/mytime"
	"github.com/MarcGrol/storefront/services/orderapi"
)

const maxPayloadSize = 65536

type webService struct {
	logger   mylog.Logger
	verifier WebhookVerifier
	service  *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(cfg Config, ledger EventLedger, nower mytime.Nower, orderStore mystore.Store[orderapi.OrderRecord], publisher mypublisher.Publisher, notifier Notifier) *webService {
	logger := mylog.New("fulfillment")
	return &webService{
		logger:   logger,
		verifier: NewWebhookVerifier(cfg.WebhookSecret, cfg.WebhookTolerance),
		service:  newService(logger, nower, orderapi.NewOrderNumberMinter(cfg.OrderPrefix), ledger, orderStore, publisher, notifier),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	// method is checked by the handler to answer with a json 405
	router.HandleFunc("/payment-webhook", s.webhookPage())
}

func (s *webService) webhookPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		if r.Method != http.MethodPost {
			errorWriter.WriteError(c, w, 1, myerrors.NewMethodNotAllowedError(fmt.Errorf("method %s not allowed", r.Method)))
			return
		}

		// The signature covers these exact bytes
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadSize))
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(fmt.Errorf("error reading payload: %s", err)))
			return
		}

		event, err := s.verifier.Verify(payload, r.Header.Get(signatureHeader))
		if err != nil {
			errorWriter.WriteError(c, w, 3, myerrors.NewInvalidInputError(err))
			return
		}

		err = s.service.handleEvent(c, event)
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, WebhookResponse{
			Received: true,
		})
	}
}
