package providers

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"

	"github.com/lockboxapp/lockbox-server/internal/backup"
	"github.com/lockboxapp/lockbox-server/internal/config"
	"github.com/lockboxapp/lockbox-server/internal/logger"
	"github.com/lockboxapp/lockbox-server/internal/metrics"
	"github.com/lockboxapp/lockbox-server/internal/settings"
	"github.com/lockboxapp/lockbox-server/internal/transport"
)

// TransportHandle wraps the remote store, closing connections on shutdown.
type TransportHandle struct {
	transport.Transport
}

// Shutdown implements do.Shutdownable.
func (h *TransportHandle) Shutdown() error {
	if c, ok := h.Transport.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ProvideTransport opens the configured remote store.
func ProvideTransport(i do.Injector) (*TransportHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	remote, err := transport.Open(cfg.TransportConfig())
	if err != nil {
		return nil, fmt.Errorf("open %s remote: %w", cfg.Remote.Kind, err)
	}
	log.Info("Remote store configured",
		"kind", cfg.Remote.Kind,
		"dir", cfg.Remote.Dir,
		"rate_limit", cfg.Remote.RateLimit,
	)
	return &TransportHandle{Transport: remote}, nil
}

// ProvideMetrics provides the Prometheus recorder on the default registry,
// which also carries the Go runtime and process collectors.
func ProvideMetrics(i do.Injector) (*metrics.Recorder, error) {
	return metrics.New(prometheus.DefaultRegisterer), nil
}

// ProvideBackupService provides the backup engine.
func ProvideBackupService(i do.Injector) (*backup.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	remote := do.MustInvoke[*TransportHandle](i)
	mgr := do.MustInvoke[*settings.Manager](i)
	recorder := do.MustInvoke[*metrics.Recorder](i)

	svc := backup.NewService(storeHandle.Store, remote.Transport, mgr, backup.Config{
		RemoteDir: cfg.Remote.Dir,
		ImageDir:  cfg.Data.ImagePath(),
		WorkDir:   cfg.Data.WorkPath(),
	}, log.Logger)
	svc.SetObserver(recorder)
	return svc, nil
}
