package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/storefront/lib/mycontext"
	"github.com/MarcGrol/storefront/lib/myerrors"
	"github.com/MarcGrol/storefront/lib/myhttp"
	"github.com/MarcGrol/storefront/lib/mylog"
)

type webService struct {
	logger         mylog.Logger
	bootstrapToken string
	service        *service
}

func NewWebService(bootstrapToken string, admin Admin) *webService {
	logger := mylog.New("catalog")
	return &webService{
		logger:         logger,
		bootstrapToken: bootstrapToken,
		service:        newService(logger, admin),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/init-catalog", s.initCatalogPage()).Methods("GET", "POST")
}

func (s *webService) initCatalogPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		if !myhttp.HasBearerToken(r, s.bootstrapToken) {
			errorWriter.WriteError(c, w, 1, myerrors.NewUnauthorizedError(fmt.Errorf("missing or invalid bootstrap token")))
			return
		}

		logs, err := s.service.initCatalog(c)
		if err != nil {
			s.logger.Log(c, "", mylog.SeverityError, "Error initializing catalog: %s", err)
			errorWriter.Write(c, w, http.StatusInternalServerError, InitResponse{
				Success: false,
				Error:   myhttp.PublicMessage(http.StatusInternalServerError),
				Logs:    logs,
			})
			return
		}

		errorWriter.Write(c, w, http.StatusOK, InitResponse{
			Success: true,
			Logs:    logs,
		})
	}
}
