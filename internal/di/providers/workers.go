package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/lockboxapp/lockbox-server/internal/backup"
	"github.com/lockboxapp/lockbox-server/internal/config"
	"github.com/lockboxapp/lockbox-server/internal/logger"
	"github.com/lockboxapp/lockbox-server/internal/scheduler"
	"github.com/lockboxapp/lockbox-server/internal/settings"
)

// SchedulerHandle wraps the auto-backup scheduler with shutdown capability.
type SchedulerHandle struct {
	*scheduler.Scheduler
}

// Shutdown implements do.Shutdownable. A backup in flight is canceled.
func (h *SchedulerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Stop(ctx)
}

// ProvideScheduler provides the auto-backup scheduler, already started.
func ProvideScheduler(i do.Injector) (*SchedulerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	svc := do.MustInvoke[*backup.Service](i)
	mgr := do.MustInvoke[*settings.Manager](i)

	sched, err := scheduler.New(cfg.Backup.Schedule, svc, mgr, log.With("component", "scheduler"))
	if err != nil {
		return nil, err
	}
	sched.Start(context.Background())

	return &SchedulerHandle{Scheduler: sched}, nil
}
