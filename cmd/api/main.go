// Package main provides the entry point for the lockbox backup server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/lockboxapp/lockbox-server/internal/config"
	"github.com/lockboxapp/lockbox-server/internal/di"
	"github.com/lockboxapp/lockbox-server/internal/logger"
)

func main() {
	cfg, _, err := config.Load("lockbox-server", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(2)
	}

	// Create DI container
	injector := di.NewContainer(cfg)

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		_ = injector.Shutdown()
		os.Exit(1)
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*logger.Logger](injector)
	log.Info("Lockbox server running",
		"environment", cfg.App.Environment,
		"data_path", cfg.Data.BasePath,
		"remote", cfg.Remote.Kind,
		"schedule", cfg.Backup.Schedule,
	)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// The DI container shuts handles down in reverse dependency order:
	// HTTP server, scheduler, engine, then the databases.
	if err := injector.Shutdown(); err != nil {
		log.WithError(err).Error("Shutdown error")
	}

	log.Info("Shutdown complete")
	_ = log.Close()
}
