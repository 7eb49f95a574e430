package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/lockboxapp/lockbox-server/internal/backup"
	"github.com/lockboxapp/lockbox-server/internal/backup/envelope"
	domainerrors "github.com/lockboxapp/lockbox-server/internal/errors"
	"github.com/lockboxapp/lockbox-server/internal/transport"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return &APIError{
					status:  domainErr.HTTPStatus(),
					Code:    string(domainErr.Code),
					Message: domainErr.Message,
					Details: domainErr.Details,
				}
			}
		}

		apiErr := &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		}
		// Surface request validation failures from huma itself.
		if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest {
			details := make([]string, 0, len(errs))
			for _, err := range errs {
				if err != nil {
					details = append(details, err.Error())
				}
			}
			if len(details) > 0 {
				apiErr.Details = details
			}
		}
		return apiErr
	}
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	default:
		return string(domainerrors.CodeInternal)
	}
}

// engineError translates an engine failure into an API error. Server-side
// failures are logged with their cause since the response hides it.
func (s *Server) engineError(op string, err error) error {
	de := domainError(err)
	if de.HTTPStatus() >= http.StatusInternalServerError {
		s.logger.Error("request failed", "op", op, "code", de.Code, "error", err)
	}
	return apiError(de)
}

// apiError hands a domain error to huma, which renders it via
// RegisterErrorHandler.
func apiError(err *domainerrors.Error) error {
	return huma.NewError(err.HTTPStatus(), err.Message, err)
}

// domainError maps engine sentinels to their domain codes. Classified
// transport failures keep their user-facing message and report the kind
// in details.
func domainError(err error) *domainerrors.Error {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var te *transport.Error
	switch {
	case errors.Is(err, backup.ErrNoCategories),
		errors.Is(err, backup.ErrEncryptionPassword),
		errors.Is(err, backup.ErrInvalidName),
		errors.Is(err, envelope.ErrEmptyPassword):
		return domainerrors.Validation(err.Error()).WithCause(err)
	case errors.Is(err, backup.ErrPasswordRequired):
		return domainerrors.PasswordRequired("The backup is encrypted. Provide its password.").WithCause(err)
	case errors.Is(err, envelope.ErrWrongPassword):
		return domainerrors.WrongPassword("The password does not match this backup.").WithCause(err)
	case errors.Is(err, envelope.ErrCorrupt), errors.Is(err, backup.ErrCorruptArchive):
		return domainerrors.CorruptArchive("The backup file is damaged or not a backup.").WithCause(err)
	case errors.Is(err, backup.ErrBackupNotFound):
		return domainerrors.NotFound("Backup not found").WithCause(err)
	case errors.As(err, &te):
		return domainerrors.Transport(te.Kind.Message()).
			WithDetails(map[string]string{"kind": te.Kind.String(), "op": te.Op}).
			WithCause(err)
	default:
		return domainerrors.Internal("internal server error").WithCause(err)
	}
}
