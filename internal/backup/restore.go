package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lockboxapp/lockbox-server/internal/backup/archive"
	"github.com/lockboxapp/lockbox-server/internal/backup/codec"
	"github.com/lockboxapp/lockbox-server/internal/backup/envelope"
	"github.com/lockboxapp/lockbox-server/internal/backup/legacy"
	"github.com/lockboxapp/lockbox-server/internal/domain"
	"github.com/lockboxapp/lockbox-server/internal/id"
	"github.com/lockboxapp/lockbox-server/internal/transport"
)

// Restore downloads file from the remote backup directory and restores its
// records into the live store.
//
// An encrypted archive with no password given or configured stops with
// ErrPasswordRequired; calling again with a password is expected. A wrong
// password yields envelope.ErrWrongPassword.
func (s *Service) Restore(ctx context.Context, file BackupFile, opts RestoreOptions) (report *RestoreReport, err error) {
	start := s.now()
	defer func() { s.observer.RestoreFinished(report, time.Since(start), err) }()

	if !validName(file.Name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, file.Name)
	}
	runID := id.NewRunID()
	log := s.logger.With("op", "restore", "run_id", runID, "archive", file.Name)

	ws, err := archive.NewWorkspace(s.cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	defer closeWorkspace(ws, log)

	downloaded := ws.Path("download.zip")
	if err := s.download(ctx, file, downloaded); err != nil {
		return nil, err
	}
	log.Info("archive downloaded")

	return s.restoreArchive(ctx, ws, downloaded, file.Name, runID, opts, log)
}

// RestoreFile restores records from an archive on the local filesystem.
func (s *Service) RestoreFile(ctx context.Context, path string, opts RestoreOptions) (report *RestoreReport, err error) {
	start := s.now()
	defer func() { s.observer.RestoreFinished(report, time.Since(start), err) }()

	runID := id.NewRunID()
	name := filepath.Base(path)
	log := s.logger.With("op", "restore", "run_id", runID, "archive", name)

	ws, err := archive.NewWorkspace(s.cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	defer closeWorkspace(ws, log)

	return s.restoreArchive(ctx, ws, path, name, runID, opts, log)
}

func closeWorkspace(ws *archive.Workspace, log *slog.Logger) {
	if err := ws.Close(); err != nil {
		log.Warn("workspace cleanup failed", "error", err)
	}
}

func (s *Service) download(ctx context.Context, file BackupFile, dest string) error {
	p := file.Path
	if p == "" {
		p = transport.Join(s.cfg.RemoteDir, file.Name)
	}
	rc, err := s.remote.Get(ctx, p)
	if err != nil {
		return fmt.Errorf("download %s: %w", file.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("download %s: %w", file.Name, err)
	}
	return out.Close()
}

func (s *Service) restoreArchive(ctx context.Context, ws *archive.Workspace, path, name, runID string, opts RestoreOptions, log *slog.Logger) (*RestoreReport, error) {
	encrypted, err := envelope.IsEncryptedFile(path)
	if err != nil {
		return nil, fmt.Errorf("inspect archive: %w", err)
	}

	zipPath := path
	if encrypted {
		password := opts.Password
		if password == "" {
			password = s.settings.Encryption().Password
		}
		if password == "" {
			log.Info("archive is encrypted, password required")
			return nil, ErrPasswordRequired
		}
		zipPath = ws.Path("decrypted.zip")
		if err := envelope.DecryptFile(path, zipPath, password); err != nil {
			return nil, fmt.Errorf("decrypt %s: %w", name, err)
		}
		log.Info("archive decrypted")
	}

	zr, err := archive.Open(zipPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	defer zr.Close()

	report := &RestoreReport{
		RunID:       runID,
		ArchiveName: name,
		Failed:      []FailedItem{},
		Warnings:    []string{},
	}
	r := &restorer{records: s.records, imageDir: s.cfg.ImageDir, report: report, logger: log}
	if err := r.run(ctx, zr); err != nil {
		return nil, err
	}

	report.Success = len(report.Failed) == 0
	log.Info("restore finished", "success", report.Success, "restored", report.Restored.String(),
		"skipped", report.Skipped.String(), "failed", len(report.Failed), "warnings", len(report.Warnings))
	return report, nil
}

// restorer routes the entries of one archive and writes their records.
type restorer struct {
	records  RecordStore
	imageDir string
	report   *RestoreReport
	logger   *slog.Logger
}

func (r *restorer) fail(cat Category, title string, err error) {
	r.report.Failed = append(r.report.Failed, FailedItem{Category: cat, Title: title, Reason: err.Error()})
	r.logger.Warn("item not restored", "category", cat, "title", title, "error", err)
}

func (r *restorer) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.report.Warnings = append(r.report.Warnings, msg)
	r.logger.Warn(msg)
}

// run processes entries in archive order. The legacy password CSV is held
// back and only read when no JSON password decoded. Only context
// cancellation and live store read failures abort.
func (r *restorer) run(ctx context.Context, zr *archive.Reader) error {
	var legacyCSV *archive.Entry
	jsonPasswords := 0

	for e, err := range zr.Entries() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			r.warn("skipped archive entry: %v", err)
			continue
		}

		kind := routeEntry(e)
		switch kind {
		case entryIgnored:
			r.logger.Debug("ignored archive entry", "entry", e.Name)
		case entryPasswordJSON:
			if r.passwordJSON(ctx, e) {
				jsonPasswords++
			}
		case entryNoteJSON:
			r.noteJSON(ctx, e)
		case entryLegacyPasswords:
			if legacyCSV == nil {
				legacyCSV = e
			} else {
				r.logger.Debug("extra legacy password csv ignored", "entry", e.Name)
			}
		case entrySecureCSV:
			r.secureCSV(ctx, e)
		case entryHistory:
			r.history(ctx, e)
		case entryImage:
			r.image(e)
		}
	}

	if legacyCSV != nil && jsonPasswords == 0 {
		r.logger.Info("no JSON passwords, reading legacy csv", "entry", legacyCSV.Name)
		r.legacyPasswords(ctx, legacyCSV)
	}
	return nil
}

// passwordJSON restores one password file and reports whether it decoded.
func (r *restorer) passwordJSON(ctx context.Context, e *archive.Entry) bool {
	r.report.Contained.Passwords++
	data, err := e.ReadAll()
	if err != nil {
		r.fail(CategoryPassword, e.Base(), err)
		return false
	}
	p, err := codec.DecodePassword(data)
	if err != nil {
		r.fail(CategoryPassword, e.Base(), err)
		return false
	}
	r.writePassword(ctx, &p)
	return true
}

func (r *restorer) legacyPasswords(ctx context.Context, e *archive.Entry) {
	rc, err := e.Open()
	if err != nil {
		r.warn("legacy password csv %s not read: %v", e.Name, err)
		return
	}
	defer rc.Close()

	res, err := legacy.ParsePasswords(rc)
	if res != nil {
		for _, w := range res.Warnings {
			r.warn("%s: %s", e.Name, w)
		}
	}
	if err != nil {
		r.warn("legacy password csv %s not read: %v", e.Name, err)
	}
	if res == nil {
		return
	}
	r.logger.Debug("legacy password csv detected", "dialect", res.Detection.Dialect.String(), "detector", res.Detection.Detector)
	for i := range res.Entries {
		r.report.Contained.Passwords++
		r.writePassword(ctx, &res.Entries[i])
	}
}

func (r *restorer) writePassword(ctx context.Context, p *domain.PasswordEntry) {
	p.ID = 0
	exists, err := r.records.PasswordExists(ctx, p.Title, p.Username, p.Website)
	if err != nil {
		r.fail(CategoryPassword, p.DisplayName(), err)
		return
	}
	if exists {
		r.report.Skipped.Passwords++
		return
	}
	if _, err := r.records.CreatePassword(ctx, p); err != nil {
		r.fail(CategoryPassword, p.DisplayName(), err)
		return
	}
	r.report.Restored.Passwords++
}

func (r *restorer) noteJSON(ctx context.Context, e *archive.Entry) {
	r.report.Contained.Notes++
	data, err := e.ReadAll()
	if err != nil {
		r.fail(CategoryNote, e.Base(), err)
		return
	}
	item, err := codec.DecodeNote(data)
	if err != nil {
		r.fail(CategoryNote, e.Base(), err)
		return
	}
	r.writeSecureItem(ctx, &item)
}

func (r *restorer) secureCSV(ctx context.Context, e *archive.Entry) {
	rc, err := e.Open()
	if err != nil {
		r.warn("%s not read: %v", e.Name, err)
		return
	}
	defer rc.Close()

	res, err := legacy.ParseSecureItems(rc)
	if res != nil {
		for _, w := range res.Warnings {
			r.warn("%s: %s", e.Name, w)
		}
	}
	if err != nil {
		r.warn("%s not read: %v", e.Name, err)
	}
	if res == nil {
		return
	}
	for i := range res.Items {
		r.report.Contained.Add(itemCategory(res.Items[i].ItemType), 1)
		r.writeSecureItem(ctx, &res.Items[i])
	}
}

func (r *restorer) writeSecureItem(ctx context.Context, item *domain.SecureItem) {
	item.ID = 0
	cat := itemCategory(item.ItemType)
	exists, err := r.records.SecureItemExists(ctx, item.ItemType, item.Title)
	if err != nil {
		r.fail(cat, item.Title, err)
		return
	}
	if exists {
		r.report.Skipped.Add(cat, 1)
		return
	}
	if _, err := r.records.CreateSecureItem(ctx, item); err != nil {
		r.fail(cat, item.Title, err)
		return
	}
	r.report.Restored.Add(cat, 1)
}

// history restores generator history. It is auxiliary: problems are warnings.
func (r *restorer) history(ctx context.Context, e *archive.Entry) {
	data, err := e.ReadAll()
	if err != nil {
		r.warn("generator history not restored: %v", err)
		return
	}
	entries, err := codec.DecodeHistory(data)
	if err != nil {
		r.warn("generator history not restored: %v", err)
		return
	}
	r.report.Contained.GeneratorHistory += len(entries)
	for i := range entries {
		g := &entries[i]
		exists, err := r.records.HistoryExists(ctx, g.Password, g.CreatedAt)
		if err == nil && exists {
			r.report.Skipped.GeneratorHistory++
			continue
		}
		if err == nil {
			err = r.records.AddGeneratorHistory(ctx, g)
		}
		if err != nil {
			r.warn("generator history entry not restored: %v", err)
			continue
		}
		r.report.Restored.GeneratorHistory++
	}
}

// image extracts a blob into the image directory. A file already present
// under the same name is kept.
func (r *restorer) image(e *archive.Entry) {
	r.report.Contained.Images++
	name := e.Base()
	dest := filepath.Join(r.imageDir, name)

	if _, err := os.Stat(dest); err == nil {
		r.report.Skipped.Images++
		return
	} else if !errors.Is(err, fs.ErrNotExist) {
		r.warn("image %s not restored: %v", name, err)
		return
	}
	if err := e.ExtractTo(dest); err != nil {
		r.warn("image %s not restored: %v", name, err)
		return
	}
	r.report.Restored.Images++
}
