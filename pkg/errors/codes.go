package errors

import "net/http"

// Code is the stable machine readable error identifier returned to clients.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeSignature     Code = "INVALID_SIGNATURE"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Rendering flags per code.
const (
	retryable uint8 = 1 << iota
	withDetails
	exposeMessage
)

type codeSpec struct {
	status int
	public string
	flags  uint8
}

var specs = map[Code]codeSpec{
	CodeValidation:    {http.StatusBadRequest, "validation failed", withDetails | exposeMessage},
	CodeUnauthorized:  {http.StatusUnauthorized, "authentication required", exposeMessage},
	CodeForbidden:     {http.StatusForbidden, "access denied", exposeMessage},
	CodeSignature:     {http.StatusForbidden, "invalid signature", 0},
	CodeNotFound:      {http.StatusNotFound, "resource not found", exposeMessage},
	CodeConflict:      {http.StatusConflict, "conflict detected", exposeMessage},
	CodeStateConflict: {http.StatusUnprocessableEntity, "state transition disallowed", withDetails | exposeMessage},
	CodeIdempotency:   {http.StatusConflict, "idempotency key reused", withDetails | exposeMessage},
	CodeRateLimit:     {http.StatusTooManyRequests, "rate limit exceeded", exposeMessage},
	CodeInternal:      {http.StatusInternalServerError, "internal server error", retryable},
	CodeDependency:    {http.StatusServiceUnavailable, "dependency unavailable", retryable | withDetails},
}

// meta falls back to CodeInternal for unknown codes.
func (c Code) meta() codeSpec {
	if s, ok := specs[c]; ok {
		return s
	}
	return specs[CodeInternal]
}

func (c Code) Known() bool {
	_, ok := specs[c]
	return ok
}

// HTTPStatus is the response status rendered for c.
func (c Code) HTTPStatus() int { return c.meta().status }

// PublicMessage is the generic client message for c.
func (c Code) PublicMessage() string { return c.meta().public }

// Retryable reports whether a client may retry the same request unchanged.
func (c Code) Retryable() bool { return c.meta().flags&retryable != 0 }

// DetailsAllowed reports whether details may be returned to clients.
func (c Code) DetailsAllowed() bool { return c.meta().flags&withDetails != 0 }

// ExposesMessage reports whether the typed message replaces PublicMessage.
func (c Code) ExposesMessage() bool { return c.meta().flags&exposeMessage != 0 }
