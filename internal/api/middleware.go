package api

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	domainerrors "github.com/lockboxapp/lockbox-server/internal/errors"
	"github.com/lockboxapp/lockbox-server/internal/http/response"
)

const (
	apiPrefix  = "/api/v1/"
	healthPath = "/api/v1/health"
)

// requireToken rejects /api/v1 requests that do not carry the configured
// bearer token. The health check and CORS preflights stay open. An empty
// token disables the check.
func requireToken(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		want := []byte(token)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions ||
				!strings.HasPrefix(r.URL.Path, apiPrefix) ||
				r.URL.Path == healthPath {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header", logger)
				return
			}

			scheme, got, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				response.Unauthorized(w, "Invalid authorization header format", logger)
				return
			}

			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				logger.Warn("rejected API token", "path", r.URL.Path, "remote", r.RemoteAddr)
				response.Unauthorized(w, "Invalid API token", logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs one line per request once the response is written.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				level := slog.LevelInfo
				if ww.Status() >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				logger.Log(r.Context(), level, "http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// recoverer turns a handler panic into a 500 with the usual error body.
func recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				response.HandleError(w, fmt.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec), logger)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func notFound(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, domainerrors.NotFoundf("no route for %s", r.URL.Path), logger)
	}
}
