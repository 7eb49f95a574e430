package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/lockboxapp/lockbox-server/internal/backup"
	"github.com/lockboxapp/lockbox-server/internal/backup/envelope"
	"github.com/lockboxapp/lockbox-server/internal/transport"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	// exitIssues means the run finished but the report lists failures or warnings.
	exitIssues = 3
)

const usage = `Usage: lockbox [config flags] <command> [command flags] [args]

Commands:
  backup                              take a backup with the saved preferences
  list                                list remote archives, newest first
  restore [-password p] <name>        restore a remote archive
  restore-file [-password p] <path>   restore an archive on this machine
  delete <name>                       delete a remote archive
  due                                 report whether an automatic backup is due
  test                                check the remote store is reachable
`

var (
	errUsage  = errors.New("invalid usage")
	errIssues = errors.New("finished with issues")
)

// Backups is the engine surface the CLI drives.
type Backups interface {
	List(ctx context.Context) ([]backup.BackupFile, error)
	Stat(ctx context.Context, name string) (backup.BackupFile, error)
	Create(ctx context.Context, prefs backup.BackupPreferences) (*backup.BackupReport, error)
	Delete(ctx context.Context, name string) error
	Restore(ctx context.Context, file backup.BackupFile, opts backup.RestoreOptions) (*backup.RestoreReport, error)
	RestoreFile(ctx context.Context, path string, opts backup.RestoreOptions) (*backup.RestoreReport, error)
	TestConnection(ctx context.Context) error
}

// State is the persisted settings the CLI reads.
type State interface {
	Preferences() backup.BackupPreferences
	AutoBackup() bool
	LastBackupAt() time.Time
}

type app struct {
	backups  Backups
	settings State
	out      io.Writer
	now      func() time.Time
}

func (a *app) run(ctx context.Context, args []string) error {
	if a.now == nil {
		a.now = time.Now
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "backup":
		return a.backup(ctx, rest)
	case "list":
		return a.list(ctx, rest)
	case "restore":
		return a.restore(ctx, rest, false)
	case "restore-file":
		return a.restore(ctx, rest, true)
	case "delete":
		return a.delete(ctx, rest)
	case "due":
		return a.due(rest)
	case "test":
		return a.test(ctx, rest)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func noArgs(cmd string, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: %s takes no arguments", errUsage, cmd)
	}
	return nil
}

func (a *app) backup(ctx context.Context, args []string) error {
	if err := noArgs("backup", args); err != nil {
		return err
	}
	report, err := a.backups.Create(ctx, a.settings.Preferences())
	if err != nil {
		if report != nil {
			fmt.Fprint(a.out, report.Summary())
		}
		return err
	}
	if report.HasIssues() {
		fmt.Fprint(a.out, report.Summary())
		return errIssues
	}
	fmt.Fprintf(a.out, "Backup %s uploaded (%d items).\n", report.ArchiveName, report.Succeeded.Total())
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	if err := noArgs("list", args); err != nil {
		return err
	}
	files, err := a.backups.List(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No backups found.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\tENCRYPTED")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%t\n", f.Name, f.Size, f.ModTime.Local().Format(time.DateTime), f.IsEncrypted())
	}
	return tw.Flush()
}

func (a *app) restore(ctx context.Context, args []string, local bool) error {
	name := "restore"
	if local {
		name = "restore-file"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	password := fs.String("password", "", "Archive password (default: the configured encryption password)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: %s needs exactly one archive", errUsage, name)
	}
	target := fs.Arg(0)
	opts := backup.RestoreOptions{Password: *password}

	var report *backup.RestoreReport
	var err error
	if local {
		report, err = a.backups.RestoreFile(ctx, target, opts)
	} else {
		var file backup.BackupFile
		if file, err = a.backups.Stat(ctx, target); err != nil {
			return err
		}
		report, err = a.backups.Restore(ctx, file, opts)
	}
	if err != nil {
		return err
	}

	if report.HasIssues() {
		fmt.Fprint(a.out, report.Summary())
		return errIssues
	}
	fmt.Fprintf(a.out, "Restored %d items from %s (%d already present).\n",
		report.Restored.Total(), report.ArchiveName, report.Skipped.Total())
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: delete needs exactly one archive", errUsage)
	}
	if err := a.backups.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s.\n", args[0])
	return nil
}

func (a *app) due(args []string) error {
	if err := noArgs("due", args); err != nil {
		return err
	}
	last := a.settings.LastBackupAt()
	lastText := "never"
	if !last.IsZero() {
		lastText = last.Local().Format(time.DateTime)
	}
	fmt.Fprintf(a.out, "auto-backup: %t\nlast backup: %s\ndue: %t\n",
		a.settings.AutoBackup(), lastText, backup.IsDue(last, a.now()))
	return nil
}

func (a *app) test(ctx context.Context, args []string) error {
	if err := noArgs("test", args); err != nil {
		return err
	}
	if err := a.backups.TestConnection(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Remote store reachable.")
	return nil
}

// describe turns engine errors into operator guidance.
func describe(err error) string {
	var te *transport.Error
	switch {
	case errors.Is(err, backup.ErrPasswordRequired):
		return "the archive is encrypted; rerun with -password"
	case errors.Is(err, envelope.ErrWrongPassword):
		return "the password does not match this archive"
	case errors.Is(err, backup.ErrBackupNotFound):
		return "no such backup; run 'lockbox list'"
	case errors.As(err, &te):
		return fmt.Sprintf("%s (%v)", te.Kind.Message(), err)
	default:
		return err.Error()
	}
}
