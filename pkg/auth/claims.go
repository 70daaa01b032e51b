package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
)

var (
	errUserIDRequired   = errors.New("token missing user_id")
	errVendorIDRequired = errors.New("vendor tokens require vendor_id")
)

// AccessTokenPayload is the input for minting a token.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	VendorID *uuid.UUID
	Role     enums.ActorRole
	JTI      string
}

// AccessTokenClaims is the token body issued by the identity service.
type AccessTokenClaims struct {
	UserID   uuid.UUID       `json:"user_id"`
	VendorID *uuid.UUID      `json:"vendor_id,omitempty"`
	Role     enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate enforces the marketplace rules on top of the registered claims.
// jwt/v5 calls it after the standard checks pass.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errUserIDRequired
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid actor role %q", c.Role)
	}
	if c.Role == enums.RoleVendor && (c.VendorID == nil || *c.VendorID == uuid.Nil) {
		return errVendorIDRequired
	}
	return nil
}

// IsVendor reports whether the caller acts for a vendor.
func (c AccessTokenClaims) IsVendor() bool {
	return c.Role == enums.RoleVendor && c.VendorID != nil
}
