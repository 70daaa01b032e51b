package webhooks

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/angelmondragon/rentmarket-backend/api/responses"
	"github.com/angelmondragon/rentmarket-backend/api/validators"
	gatewaywebhook "github.com/angelmondragon/rentmarket-backend/internal/webhooks/gateway"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/gateway"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
)

type notificationHandler interface {
	Handle(ctx context.Context, n gateway.Notification) (*gatewaywebhook.Result, error)
}

// PaymentNotification receives asynchronous gateway status updates. Anything
// other than a bad signature or an internal failure is acknowledged so the
// gateway stops retrying.
func PaymentNotification(svc notificationHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		var n gateway.Notification
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes)).Decode(&n); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification payload"))
			return
		}
		if n.OrderID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required"))
			return
		}

		if _, err := svc.Handle(ctx, n); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
