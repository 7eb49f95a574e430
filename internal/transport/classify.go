package transport

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"os"
	"syscall"
)

// statusCoder is implemented by HTTP-based client errors, including the
// AWS SDK's request failures.
type statusCoder interface {
	StatusCode() int
}

// Classify maps an error from any transport into a Kind. Errors already
// classified keep their kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		if k := statusKind(sc.StatusCode()); k != KindUnknown {
			return k
		}
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindPermissionDenied
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindUnreachable
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ECONNRESET) {
		return KindUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindUnreachable
	}

	return KindUnknown
}

// statusKind maps HTTP status codes the transports surface.
func statusKind(code int) Kind {
	switch code {
	case http.StatusUnauthorized:
		return KindAuthRejected
	case http.StatusForbidden:
		return KindPermissionDenied
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusMethodNotAllowed:
		return KindMethodNotAllowed
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return KindUnreachable
	default:
		return KindUnknown
	}
}
