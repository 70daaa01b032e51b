package middleware

import (
	"context"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxVendorID contextKey = "vendor_id"
)

func UserIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxRole)
}

func VendorIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxVendorID)
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, ctxUserID, userID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	return withValue(ctx, ctxRole, role)
}

// WithVendorID injects the vendor identifier into the context for downstream handlers.
func WithVendorID(ctx context.Context, vendorID string) context.Context {
	return withValue(ctx, ctxVendorID, vendorID)
}

// RequireUserID returns the authenticated user as a UUID.
func RequireUserID(ctx context.Context) (uuid.UUID, error) {
	return requireUUID(ctx, ctxUserID, pkgerrors.CodeUnauthorized, "user context missing")
}

// RequireVendorID returns the vendor the caller acts for.
func RequireVendorID(ctx context.Context) (uuid.UUID, error) {
	return requireUUID(ctx, ctxVendorID, pkgerrors.CodeForbidden, "vendor context missing")
}

func requireUUID(ctx context.Context, key contextKey, code pkgerrors.Code, msg string) (uuid.UUID, error) {
	raw := strings.TrimSpace(stringFromContext(ctx, key))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(code, msg)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(code, err, msg)
	}
	return id, nil
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}
