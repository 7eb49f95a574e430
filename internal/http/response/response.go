// Package response writes JSON responses for handlers that sit outside the
// huma operation layer, such as router middleware. Error bodies share the
// shape of API operation errors.
package response

import (
	"encoding/json/v2"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	domainerrors "github.com/lockboxapp/lockbox-server/internal/errors"
)

// Problem is the error body every endpoint returns.
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes body as JSON with the given status code using json/v2.
func JSON(w http.ResponseWriter, status int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.MarshalWrite(w, body); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// Error writes a domain error with its mapped status code.
func Error(w http.ResponseWriter, err *domainerrors.Error, logger *slog.Logger) {
	JSON(w, err.HTTPStatus(), Problem{
		Code:    string(err.Code),
		Message: err.Message,
		Details: err.Details,
	}, logger)
}

// HandleError writes err, mapping domain errors to their status codes.
// Anything else becomes a 500 without leaking its text.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		Error(w, domainErr, logger)
		return
	}
	if logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	Error(w, domainerrors.Internal("internal server error"), logger)
}

// Unauthorized writes a 401 with a bearer challenge.
func Unauthorized(w http.ResponseWriter, message string, logger *slog.Logger) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="lockbox"`)
	Error(w, domainerrors.Unauthorized(message), logger)
}

// TooManyRequests writes a 429. A positive retryAfter sets Retry-After,
// rounded up to whole seconds.
func TooManyRequests(w http.ResponseWriter, message string, retryAfter time.Duration, logger *slog.Logger) {
	if retryAfter > 0 {
		secs := int((retryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	JSON(w, http.StatusTooManyRequests, Problem{
		Code:    string(domainerrors.CodeRateLimited),
		Message: message,
	}, logger)
}
