// Command lockbox is the operator CLI for the backup engine: take a backup,
// list and delete remote archives, and restore from a remote or local file.
//
// Usage:
//
//	lockbox [config flags] <command> [command flags] [args]
//
// Commands:
//
//	backup                          take a backup with the saved preferences
//	list                            list remote archives, newest first
//	restore [-password p] <name>    restore a remote archive
//	restore-file [-password p] <path>
//	                                restore an archive on this machine
//	delete <name>                   delete a remote archive
//	due                             report whether an automatic backup is due
//	test                            check the remote store is reachable
package main

import (
	"context"
	"errors"
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
	os.Exit(realMain())
}

func realMain() int {
	cfg, args, err := config.Load("lockbox", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "lockbox: %v\n", err)
		return exitUsage
	}
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	injector := di.NewContainer(cfg)
	svc, mgr, err := di.Engine(injector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lockbox: %v\n", err)
		_ = injector.Shutdown()
		return exitFailure
	}
	log := do.MustInvoke[*logger.Logger](injector)
	defer func() {
		_ = injector.Shutdown()
		_ = log.Close()
	}()

	cli := &app{backups: svc, settings: mgr, out: os.Stdout}
	err = cli.run(ctx, args)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errIssues):
		return exitIssues
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "lockbox: %v\n\n%s", err, usage)
		return exitUsage
	default:
		fmt.Fprintf(os.Stderr, "lockbox: %s\n", describe(err))
		return exitFailure
	}
}
