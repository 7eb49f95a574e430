package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"

	"github.com/lockboxapp/lockbox-server/internal/api"
	"github.com/lockboxapp/lockbox-server/internal/backup"
	"github.com/lockboxapp/lockbox-server/internal/config"
	"github.com/lockboxapp/lockbox-server/internal/logger"
	"github.com/lockboxapp/lockbox-server/internal/ratelimit"
	"github.com/lockboxapp/lockbox-server/internal/settings"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	defer h.limiter.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server, already listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	svc := do.MustInvoke[*backup.Service](i)
	mgr := do.MustInvoke[*settings.Manager](i)
	sched := do.MustInvoke[*SchedulerHandle](i)

	// Ten mutating calls a minute per client, five at once.
	limiter := api.NewRateLimiter(10, time.Minute, 5)

	if cfg.Server.APIToken == "" {
		log.Warn("API_TOKEN is not set; the admin API is unauthenticated")
	}

	handler := api.NewServer(svc, mgr, storeHandle.Store, sched.Scheduler, api.Options{
		APIToken:    cfg.Server.APIToken,
		CORSOrigins: cfg.Server.CORSOrigins,
		Gatherer:    prometheus.DefaultGatherer,
		Limiter:     limiter,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, limiter: limiter}, nil
}
