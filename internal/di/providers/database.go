package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/lockboxapp/lockbox-server/internal/config"
	"github.com/lockboxapp/lockbox-server/internal/logger"
	"github.com/lockboxapp/lockbox-server/internal/settings"
	"github.com/lockboxapp/lockbox-server/internal/store/sqlite"
)

// StoreHandle wraps the record store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite record store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := sqlite.Open(cfg.Data.DatabasePath(), log.Logger)
	if err != nil {
		return nil, err
	}
	return &StoreHandle{Store: db}, nil
}

// SettingsHandle wraps the Badger settings repository with shutdown capability.
type SettingsHandle struct {
	*settings.BadgerRepository
}

// Shutdown implements do.Shutdownable.
func (h *SettingsHandle) Shutdown() error {
	return h.Close()
}

// ProvideSettingsRepository provides the persistent settings repository.
func ProvideSettingsRepository(i do.Injector) (*SettingsHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	repo, err := settings.OpenBadger(cfg.Data.SettingsPath(), log.Logger)
	if err != nil {
		return nil, err
	}
	log.Info("Settings database initialized", "path", cfg.Data.SettingsPath())
	return &SettingsHandle{BadgerRepository: repo}, nil
}

// ProvideSettingsManager loads the persisted engine settings.
func ProvideSettingsManager(i do.Injector) (*settings.Manager, error) {
	repo := do.MustInvoke[*SettingsHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return settings.NewManager(context.Background(), repo.BadgerRepository, log.Logger)
}
