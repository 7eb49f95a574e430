// Package api provides the HTTP admin API over the backup engine.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lockboxapp/lockbox-server/internal/backup"
	"github.com/lockboxapp/lockbox-server/internal/ratelimit"
	"github.com/lockboxapp/lockbox-server/internal/settings"
	"github.com/lockboxapp/lockbox-server/internal/validation"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Backups is the engine surface the API drives.
type Backups interface {
	List(ctx context.Context) ([]backup.BackupFile, error)
	Stat(ctx context.Context, name string) (backup.BackupFile, error)
	Create(ctx context.Context, prefs backup.BackupPreferences) (*backup.BackupReport, error)
	Delete(ctx context.Context, name string) error
	Restore(ctx context.Context, file backup.BackupFile, opts backup.RestoreOptions) (*backup.RestoreReport, error)
	TestConnection(ctx context.Context) error
}

// Pinger checks that a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Schedule reports when the auto-backup check runs next.
type Schedule interface {
	Next() time.Time
}

// Options configures the server.
type Options struct {
	// APIToken, when set, must be presented as a bearer token on /api/v1.
	APIToken    string
	CORSOrigins []string
	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Limiter throttles mutating requests per client. Nil disables it.
	Limiter *ratelimit.KeyedRateLimiter
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	backups  Backups
	settings *settings.Manager
	database Pinger
	schedule Schedule
	opts     Options
	router   *chi.Mux
	api      huma.API
	validate *validation.Validator
	logger   *slog.Logger
	now      func() time.Time
}

// NewServer creates a server with all routes configured. database and
// schedule may be nil.
func NewServer(backups Backups, mgr *settings.Manager, database Pinger, schedule Schedule, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		backups:  backups,
		settings: mgr,
		database: database,
		schedule: schedule,
		opts:     opts,
		router:   chi.NewRouter(),
		validate: validation.New(),
		logger:   logger,
		now:      time.Now,
	}

	s.setupMiddleware()
	s.router.NotFound(notFound(s.logger))

	humaConfig := huma.DefaultConfig("Lockbox Backup API", Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:   "http",
			Scheme: "bearer",
		},
	}
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerBackupRoutes()
	s.registerSettingsRoutes()
	s.registerRemoteRoutes()

	if opts.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures the middleware stack. chi requires every
// middleware to be in place before the first route is added.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(recoverer(s.logger))

	if len(s.opts.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	s.router.Use(requireToken(s.opts.APIToken, s.logger))
	if s.opts.Limiter != nil {
		s.router.Use(RateLimitMiddleware(s.opts.Limiter, s.logger))
	}
}

// bearer marks an operation as requiring the API token in the OpenAPI document.
var bearer = []map[string][]string{{"bearer": {}}}
