package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lockboxapp/lockbox-server/internal/errors"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := errors.PasswordRequired("archive backup_1_enc.zip is encrypted")

	assert.True(t, errors.Is(err, errors.ErrPasswordRequired))
	assert.False(t, errors.Is(err, errors.ErrWrongPassword))

	wrapped := fmt.Errorf("restore: %w", err)
	assert.True(t, errors.Is(wrapped, errors.ErrPasswordRequired))
}

func TestError_WithCauseKeepsChain(t *testing.T) {
	cause := stderrors.New("dial tcp: connection refused")
	err := errors.Transport("Cannot reach the backup server").WithCause(cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "Cannot reach the backup server: dial tcp: connection refused", err.Error())

	var domainErr *errors.Error
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &domainErr))
	assert.Equal(t, errors.CodeTransport, domainErr.Code)
}

func TestError_WithDetailsDoesNotMutate(t *testing.T) {
	base := errors.Validation("bad input")
	detailed := base.WithDetails(map[string]string{"field": "preferences"})

	assert.Nil(t, base.Details)
	assert.NotNil(t, detailed.Details)
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.CodeValidation, http.StatusBadRequest},
		{errors.CodePasswordRequired, http.StatusPreconditionRequired},
		{errors.CodeWrongPassword, http.StatusUnprocessableEntity},
		{errors.CodeCorruptArchive, http.StatusUnprocessableEntity},
		{errors.CodeTransport, http.StatusBadGateway},
		{errors.CodeNotFound, http.StatusNotFound},
		{errors.CodeUnauthorized, http.StatusUnauthorized},
		{errors.CodeRateLimited, http.StatusTooManyRequests},
		{errors.CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}
