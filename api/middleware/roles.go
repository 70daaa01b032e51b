package middleware

import (
	"net/http"

	"github.com/angelmondragon/rentmarket-backend/api/responses"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
)

func guard(logg *logger.Logger, allow func(*http.Request) bool, msg string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(r) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, msg))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole admits only callers whose token carries role.
func RequireRole(role enums.ActorRole, logg *logger.Logger) func(http.Handler) http.Handler {
	return guard(logg, func(r *http.Request) bool {
		return RoleFromContext(r.Context()) == string(role)
	}, role.String()+" role required")
}

// VendorContext admits only requests whose token named a vendor.
func VendorContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return guard(logg, func(r *http.Request) bool {
		return VendorIDFromContext(r.Context()) != ""
	}, "vendor context missing")
}
