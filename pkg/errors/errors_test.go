package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{CodeValidation, http.StatusBadRequest, false, true},
		{CodeUnauthorized, http.StatusUnauthorized, false, false},
		{CodeForbidden, http.StatusForbidden, false, false},
		{CodeNotFound, http.StatusNotFound, false, false},
		{CodeConflict, http.StatusConflict, false, false},
		{CodeStateConflict, http.StatusUnprocessableEntity, false, true},
		{CodeInsufficientFunds, http.StatusPaymentRequired, true, true},
		{CodeIdempotency, http.StatusConflict, false, true},
		{CodeRateLimit, http.StatusTooManyRequests, false, false},
		{CodeDataIntegrity, http.StatusInternalServerError, false, false},
		{CodeInternal, http.StatusInternalServerError, true, false},
		{CodeDependency, http.StatusServiceUnavailable, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			m := MetadataFor(tt.code)
			assert.Equal(t, tt.status, m.HTTPStatus)
			assert.Equal(t, tt.retryable, m.Retryable)
			assert.Equal(t, tt.detailsOK, m.DetailsAllowed)
			assert.NotEmpty(t, m.PublicMessage)
		})
	}
	assert.Equal(t, "insufficient wallet balance", MetadataFor(CodeInsufficientFunds).PublicMessage)
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing serviceType")
	assert.Equal(t, CodeValidation, base.Code())
	assert.Equal(t, "missing serviceType", base.Message())
	assert.Nil(t, base.Details())
	assert.Equal(t, "VALIDATION_ERROR: missing serviceType", base.Error())

	base.WithDetails(map[string]any{"field": "serviceType"})
	assert.NotNil(t, base.Details())

	formatted := Newf(CodeNotFound, "booking %s not found", "b-1")
	assert.Equal(t, "booking b-1 not found", formatted.Message())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "gate code taken")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
	assert.Equal(t, "CONFLICT: gate code taken: boom", wrapped.Error())
	assert.Nil(t, Wrap(CodeInternal, nil, "x").Unwrap())
}

func TestNilErrorIsSafe(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Empty(t, e.Message())
	assert.Nil(t, e.Details())
	assert.Nil(t, e.WithDetails("x"))
	assert.Empty(t, e.Error())
}

func TestAsAndIsCodeWalkChain(t *testing.T) {
	inner := New(CodeInsufficientFunds, "balance too low")
	outer := fmt.Errorf("processing payment: %w", inner)

	require.NotNil(t, As(outer))
	assert.True(t, IsCode(outer, CodeInsufficientFunds))
	assert.False(t, IsCode(outer, CodeNotFound))
	assert.False(t, IsCode(nil, CodeInternal))
	assert.Nil(t, As(nil))
	assert.Nil(t, As(stdErrors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(stdErrors.New("untyped")))
	assert.True(t, IsRetryable(fmt.Errorf("wrap: %w", New(CodeInsufficientFunds, "low"))))
	assert.False(t, IsRetryable(New(CodeValidation, "bad")))
}

func TestDumpIncludesCodeChainAndPostgresFields(t *testing.T) {
	err := fmt.Errorf("checkout: %w", Wrap(CodeInternal, stdErrors.New("db gone"), "create order"))
	d := Dump(err)
	assert.Equal(t, CodeInternal, d.Code)
	assert.Len(t, d.Chain, 3)

	pg := &pgconn.PgError{Code: "23505", ConstraintName: "ux_orders_order_number", TableName: "orders"}
	d = Dump(Wrap(CodeConflict, pg, "duplicate order number"))
	require.NotNil(t, d.Postgres)
	assert.Equal(t, "23505", d.Postgres.Code)
	assert.Equal(t, "ux_orders_order_number", d.Postgres.Constraint)
	assert.Equal(t, "orders", d.Postgres.Table)
	assert.Empty(t, Dump(nil).Message)
}

func TestDumpFollowsJoinedErrors(t *testing.T) {
	joined := stdErrors.Join(stdErrors.New("first"), Wrap(CodeNotFound, stdErrors.New("missing"), "lookup"))
	d := Dump(joined)
	assert.Equal(t, CodeNotFound, d.Code)
	assert.Len(t, d.Chain, 4)
	assert.Nil(t, d.Postgres)
}
