// Package di provides dependency injection configuration for the lockbox server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/lockboxapp/lockbox-server/internal/backup"
	"github.com/lockboxapp/lockbox-server/internal/config"
	"github.com/lockboxapp/lockbox-server/internal/di/providers"
	"github.com/lockboxapp/lockbox-server/internal/logger"
	"github.com/lockboxapp/lockbox-server/internal/settings"
)

// NewContainer creates and configures the DI container with all providers.
// Configuration is loaded by the caller so each binary can parse its own flags.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)

	// Persistence
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSettingsRepository)
	do.Provide(injector, providers.ProvideSettingsManager)

	// Engine
	do.Provide(injector, providers.ProvideTransport)
	do.Provide(injector, providers.ProvideMetrics)
	do.Provide(injector, providers.ProvideBackupService)

	// Workers
	do.Provide(injector, providers.ProvideScheduler)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Engine resolves what one-shot commands need: the backup engine and the
// settings behind it. Nothing is started in the background.
func Engine(injector *do.RootScope) (*backup.Service, *settings.Manager, error) {
	svc, err := do.Invoke[*backup.Service](injector)
	if err != nil {
		return nil, nil, err
	}
	mgr, err := do.Invoke[*settings.Manager](injector)
	if err != nil {
		return nil, nil, err
	}
	return svc, mgr, nil
}

// Bootstrap initializes all services for the long-running server and
// returns once the scheduler and HTTP server are running.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*logger.Logger](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, _, err := Engine(injector); err != nil {
		return err
	}

	// Workers
	if _, err := do.Invoke[*providers.SchedulerHandle](injector); err != nil {
		return err
	}

	// Server
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	return nil
}
