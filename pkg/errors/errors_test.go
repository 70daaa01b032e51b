package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeRendering(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeSignature, status: http.StatusForbidden, publicMsg: "invalid signature"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.True(t, tt.code.Known())
			assert.Equal(t, tt.status, tt.code.HTTPStatus())
			assert.Equal(t, tt.publicMsg, tt.code.PublicMessage())
			assert.Equal(t, tt.retryable, tt.code.Retryable())
			assert.Equal(t, tt.detailsOK, tt.code.DetailsAllowed())
		})
	}
}

func TestUnknownCodeRendersAsInternal(t *testing.T) {
	unknown := Code("SOMETHING_UNKNOWN")
	assert.False(t, unknown.Known())
	assert.Equal(t, http.StatusInternalServerError, unknown.HTTPStatus())
	assert.Equal(t, "internal server error", New(unknown, "secret").PublicMessage())
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load: %w", New(CodeNotFound, "order not found"))

	assert.ErrorIs(t, err, New(CodeNotFound, ""))
	assert.ErrorIs(t, err, New(CodeNotFound, "order not found"))
	assert.NotErrorIs(t, err, New(CodeNotFound, "voucher not found"))
	assert.NotErrorIs(t, err, New(CodeConflict, ""))
}

func TestConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	assert.Equal(t, CodeValidation, base.Code())
	assert.Equal(t, "missing foo", base.Message())
	assert.Nil(t, base.Details())

	base.WithDetails(map[string]any{"field": "foo"})
	assert.NotNil(t, base.Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
	assert.Equal(t, "CONFLICT: ctx: boom", wrapped.Error())

	assert.Equal(t, "order ORD-1 not found", Newf(CodeNotFound, "order %s not found", "ORD-1").Message())
}

func TestPublicRendering(t *testing.T) {
	state := New(CodeStateConflict, "cannot move from paid to pending").WithDetails(map[string]any{"from": "paid"})
	assert.Equal(t, "cannot move from paid to pending", state.PublicMessage())
	assert.NotNil(t, state.PublicDetails())

	internal := Wrap(CodeInternal, stdErrors.New("pq: relation missing"), "load order").WithDetails(map[string]any{"sql": "x"})
	assert.Equal(t, "internal server error", internal.PublicMessage())
	assert.Nil(t, internal.PublicDetails())

	sig := New(CodeSignature, "sha512 mismatch for ORD-1").WithDetails("expected abc")
	assert.Equal(t, "invalid signature", sig.PublicMessage())
	assert.Nil(t, sig.PublicDetails())
}

func TestAsAndCodeOf(t *testing.T) {
	require.NotNil(t, As(New(CodeForbidden, "no entry")))
	assert.Nil(t, As(nil))
	assert.Nil(t, As(stdErrors.New("plain")))

	assert.Equal(t, CodeInternal, CodeOf(stdErrors.New("plain")))

	inner := New(CodeNotFound, "cart entry not found")
	outer := fmt.Errorf("load cart: %w", inner)
	assert.Equal(t, CodeNotFound, CodeOf(outer))
	assert.True(t, IsCode(outer, CodeNotFound))
	assert.False(t, IsCode(nil, CodeNotFound))
	assert.Equal(t, "cart entry not found", MessageOf(outer))
	assert.Equal(t, "plain", MessageOf(stdErrors.New("plain")))
}

func TestPostgresUnderstandsBothDrivers(t *testing.T) {
	pgxErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "ux_orders_order_number", TableName: "orders"})
	pg, ok := Postgres(pgxErr)
	require.True(t, ok)
	assert.Equal(t, "orders", pg.Table)
	assert.Equal(t, "23505", PGCode(pgxErr))
	assert.Equal(t, "ux_orders_order_number", PGConstraint(pgxErr))

	pqErr := Wrap(CodeInternal, &pq.Error{Code: "23503", Constraint: "fk_order_items_order"}, "insert item")
	assert.Equal(t, "23503", PGCode(pqErr))
	assert.Equal(t, "fk_order_items_order", PGConstraint(pqErr))

	_, ok = Postgres(stdErrors.New("plain"))
	assert.False(t, ok)
}

func TestDumpWalksChain(t *testing.T) {
	err := Wrap(CodeInternal, fmt.Errorf("repo: %w", &pgconn.PgError{Code: "40001"}), "create order")
	dump := Dump(err)
	assert.Equal(t, CodeInternal, dump.Code)
	assert.Equal(t, "40001", dump.PGError.Code)
	assert.GreaterOrEqual(t, len(dump.Chain), 3)
	assert.Equal(t, ErrorDump{}, Dump(nil))
}
