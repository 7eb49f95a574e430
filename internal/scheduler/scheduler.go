// Package scheduler runs automatic backups on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lockboxapp/lockbox-server/internal/backup"
)

// DefaultSchedule checks hourly whether a backup is due.
const DefaultSchedule = "@hourly"

// Backupper creates a backup.
type Backupper interface {
	Create(ctx context.Context, prefs backup.BackupPreferences) (*backup.BackupReport, error)
}

// State exposes the persisted settings a tick consults.
type State interface {
	AutoBackup() bool
	Preferences() backup.BackupPreferences
	LastBackupAt() time.Time
}

// Outcome says what a tick did.
type Outcome int

const (
	// Disabled means auto-backup is off.
	Disabled Outcome = iota
	// NotDue means the last backup is recent enough.
	NotDue
	// Busy means another run was still in flight.
	Busy
	// Ran means a backup was attempted.
	Ran
)

func (o Outcome) String() string {
	switch o {
	case Disabled:
		return "disabled"
	case NotDue:
		return "not_due"
	case Busy:
		return "busy"
	case Ran:
		return "ran"
	default:
		return "unknown"
	}
}

// Scheduler checks on every cron tick whether a backup is due and runs at
// most one at a time.
type Scheduler struct {
	cron    *cron.Cron
	entry   cron.EntryID
	backups Backupper
	state   State
	logger  *slog.Logger
	now     func() time.Time
	running atomic.Bool

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler for the cron expression schedule. Standard five-field
// expressions and descriptors such as @hourly are accepted.
func New(schedule string, backups Backupper, state State, logger *slog.Logger) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		backups: backups,
		state:   state,
		logger:  logger,
		now:     time.Now,
		ctx:     context.Background(),
	}
	s.cron = cron.New(cron.WithChain(cron.Recover(cronLogger{logger})))
	id, err := s.cron.AddFunc(schedule, func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		s.Tick(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("parse auto-backup schedule %q: %w", schedule, err)
	}
	s.entry = id
	return s, nil
}

// Start begins running ticks in the background. Ticks use a context that
// is canceled by Stop or when ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("auto-backup scheduler started", "next", s.Next())
}

// Stop halts the schedule, cancels a running backup and waits for it.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next scheduled tick, zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Tick runs one check: when auto-backup is on and a backup is due, it
// creates one with the persisted preferences. A tick that finds a run in
// flight does nothing.
func (s *Scheduler) Tick(ctx context.Context) Outcome {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("auto-backup skipped, previous run still in flight")
		return Busy
	}
	defer s.running.Store(false)

	if !s.state.AutoBackup() {
		return Disabled
	}
	last := s.state.LastBackupAt()
	if !backup.IsDue(last, s.now()) {
		s.logger.Debug("auto-backup not due", "last_backup_at", last)
		return NotDue
	}

	s.logger.Info("auto-backup starting", "last_backup_at", last)
	report, err := s.backups.Create(ctx, s.state.Preferences())
	switch {
	case err != nil:
		s.logger.Error("auto-backup failed", "error", err)
	case report.HasIssues():
		s.logger.Warn("auto-backup finished with issues",
			"archive", report.ArchiveName,
			"failed", len(report.Failed),
			"warnings", len(report.Warnings))
	default:
		s.logger.Info("auto-backup finished", "archive", report.ArchiveName)
	}
	return Ran
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
