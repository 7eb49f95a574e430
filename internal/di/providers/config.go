package providers

import (
	"github.com/samber/do/v2"

	"github.com/lockboxapp/lockbox-server/internal/config"
	"github.com/lockboxapp/lockbox-server/internal/logger"
)

// ProvideLogger provides the structured logger. The caller closes it after
// the container has shut down so shutdown itself is still logged.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
		File:        logger.FileConfig{Path: cfg.Logger.File},
	})

	log.Debug("Logger ready",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"log_file", cfg.Logger.File,
	)

	return log, nil
}
