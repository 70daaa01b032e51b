package controllers

import (
	"context"
	"net/http"

	ordercontrollers "github.com/angelmondragon/rentmarket-backend/api/controllers/orders"
	"github.com/angelmondragon/rentmarket-backend/api/responses"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
)

type paymentMethodLister interface {
	ListActive(ctx context.Context) ([]models.PaymentMethod, error)
}

// PaymentMethods lists the settlement channels offered at checkout.
func PaymentMethods(repo paymentMethodLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment methods unavailable"))
			return
		}
		methods, err := repo.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods"))
			return
		}
		out := make([]ordercontrollers.PaymentMethodResponse, 0, len(methods))
		for _, method := range methods {
			out = append(out, ordercontrollers.NewPaymentMethodResponse(method))
		}
		responses.WriteSuccess(w, out)
	}
}
