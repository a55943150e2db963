package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		code   ErrorCode
		status int
	}{
		{"not found", NotFound("share"), ErrNotFound, http.StatusNotFound},
		{"forbidden", Forbidden("not yours"), ErrForbidden, http.StatusForbidden},
		{"conflict", Conflict("already deleted"), ErrConflict, http.StatusConflict},
		{"validation", ValidationError("amount_lamports", "must be positive"), ErrValidation, http.StatusUnprocessableEntity},
		{"bad request", BadRequest("bad json"), ErrBadRequest, http.StatusBadRequest},
		{"dependency", Dependency("load shares", stderrors.New("conn refused")), ErrDependency, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
		})
	}
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "content not found", NotFound("content").Message)
}

func TestValidationErrorString(t *testing.T) {
	err := ValidationError("wallet_address", "wallet_address is required")
	assert.Equal(t, "VALIDATION_ERROR: wallet_address is required (field: wallet_address)", err.Error())
}

func TestDependencyUnwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Dependency("update earnings", cause)

	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Message, "connection reset")
}

func TestAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("distribute: %w", Conflict("request id reused"))

	apiErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrConflict, apiErr.Code)
	assert.True(t, HasCode(wrapped, ErrConflict))
	assert.False(t, HasCode(wrapped, ErrNotFound))
}

func TestFromPlainError(t *testing.T) {
	err := From(stderrors.New("boom"))
	assert.Equal(t, ErrInternalError, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Nil(t, From(nil))
}

func TestUnknownCodeDefaultsTo500(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, ErrorCode("SOMETHING_ELSE").StatusCode())
}
