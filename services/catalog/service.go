package catalog

import (
	"context"
	"fmt"

	"github.com/MarcGrol/storefront/lib/mylog"
)

type service struct {
	logger mylog.Logger
	admin  Admin
}

func newService(logger mylog.Logger, admin Admin) *service {
	return &service{
		logger: logger,
		admin:  admin,
	}
}

// initCatalog creates the missing gateway prices; existing lookup keys are left alone.
// The returned logs cover the offers handled before any failure.
func (s *service) initCatalog(c context.Context) ([]string, error) {
	logs := []string{}

	for _, offer := range Offers() {
		exists, err := s.admin.PriceExists(c, offer.Key)
		if err != nil {
			return logs, fmt.Errorf("error checking offer %s: %s", offer.Key, err)
		}
		if exists {
			logs = append(logs, fmt.Sprintf("[SKIP] %s already exists", offer.Key))
			continue
		}

		err = s.admin.CreateOffer(c, offer)
		if err != nil {
			return logs, fmt.Errorf("error creating offer %s: %s", offer.Key, err)
		}
		logs = append(logs, fmt.Sprintf("[CREATED] %s created", offer.Key))
		s.logger.Log(c, offer.Key, mylog.SeverityInfo, "Created offer %s", offer.Key)
	}

	return logs, nil
}
