package notification

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/storefront/lib/mycontext"
	"github.com/MarcGrol/storefront/lib/myerrors"
	"github.com/MarcGrol/storefront/lib/myhttp"
	"github.com/MarcGrol/storefront/lib/mylog"
)

type webService struct {
	logger           mylog.Logger
	bootstrapToken   string
	defaultRecipient string
	dispatcher       *Dispatcher
}

func NewWebService(bootstrapToken string, defaultRecipient string, dispatcher *Dispatcher) *webService {
	return &webService{
		logger:           mylog.New("notification"),
		bootstrapToken:   bootstrapToken,
		defaultRecipient: defaultRecipient,
		dispatcher:       dispatcher,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/test-email", s.testEmailPage()).Methods("GET")
}

// testEmailPage sends a confirmation for a simulated order, synchronously.
func (s *webService) testEmailPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		if !myhttp.HasBearerToken(r, s.bootstrapToken) {
			errorWriter.WriteError(c, w, 1, myerrors.NewUnauthorizedError(fmt.Errorf("missing or invalid bootstrap token")))
			return
		}

		recipient := r.URL.Query().Get("to")
		if recipient == "" {
			recipient = s.defaultRecipient
		}

		order := simulatedOrder(recipient)
		messageID, err := s.dispatcher.Send(c, order)
		if err != nil {
			s.logger.Log(c, order.OrderNumber, mylog.SeverityError, "Error sending test email: %s", err)
			errorWriter.Write(c, w, http.StatusInternalServerError, TestEmailResponse{
				Success: false,
				Error:   myhttp.PublicMessage(http.StatusInternalServerError),
			})
			return
		}

		errorWriter.Write(c, w, http.StatusOK, TestEmailResponse{
			Success:   true,
			Message:   fmt.Sprintf("Test email for %s sent to %s", order.OrderNumber, recipient),
			MessageID: messageID,
		})
	}
}

func simulatedOrder(recipient string) Order {
	return Order{
		OrderNumber: fmt.Sprintf("SAR-SIM-%06d", 100000+rand.Intn(900000)),
		AmountTotal: 2999,
		Currency:    "eur",
		Email:       recipient,
		Shipping: &Contact{
			Name:  "Client Test",
			Phone: "+33 6 00 00 00 00",
			Address: &Address{
				Line1:      "1 rue de la Paix",
				PostalCode: "75002",
				City:       "Paris",
				Country:    "FR",
			},
		},
	}
}
