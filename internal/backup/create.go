package backup

import (
	"bytes"
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

const treeDir = "tree"

// snapshot accumulates one backup's tree and report.
type snapshot struct {
	ws     *archive.Workspace
	prefix string
	report *BackupReport
	logger *slog.Logger
}

func (b *snapshot) fail(id int64, cat Category, title string, err error) {
	b.report.Failed = append(b.report.Failed, FailedItem{ID: id, Category: cat, Title: title, Reason: err.Error()})
	b.logger.Warn("item not backed up", "category", cat, "id", id, "title", title, "error", err)
}

func (b *snapshot) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	b.report.Warnings = append(b.report.Warnings, msg)
	b.logger.Warn(msg)
}

func (b *snapshot) write(rel string, data []byte) error {
	return b.ws.WriteFile(treeDir+"/"+rel, data)
}

// Create takes a snapshot of the selected categories, packs it, encrypts it
// when encryption is enabled and uploads it to the remote backup directory.
//
// Failures of single records are reported in the BackupReport and do not
// stop the run. A non-nil error means the run was rejected before any work
// or aborted; when the upload itself failed the report is returned as well,
// with Success false and the counts gathered so far.
func (s *Service) Create(ctx context.Context, prefs BackupPreferences) (report *BackupReport, err error) {
	start := s.now()
	defer func() { s.observer.BackupFinished(report, time.Since(start), err) }()

	if !prefs.AnyEnabled() {
		return nil, ErrNoCategories
	}
	enc := s.settings.Encryption()
	if enc.Enabled && enc.Password == "" {
		return nil, ErrEncryptionPassword
	}

	runID := id.NewRunID()
	report = &BackupReport{
		RunID:       runID,
		ArchiveName: RemoteName(start, enc.Enabled),
		Failed:      []FailedItem{},
		Warnings:    []string{},
	}
	log := s.logger.With("op", "backup", "run_id", runID, "archive", report.ArchiveName)
	log.Info("backup started", "encrypted", enc.Enabled)

	ws, err := archive.NewWorkspace(s.cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			log.Warn("workspace cleanup failed", "error", cerr)
		}
	}()

	b := &snapshot{ws: ws, prefix: entryPrefix(start), report: report, logger: log}
	if err := s.serialize(ctx, b, prefs); err != nil {
		return nil, err
	}
	log.Info("snapshot serialized", "total", report.Total.String(), "failed", len(report.Failed))

	plain := ws.Path("archive.zip")
	if err := os.MkdirAll(ws.Path(treeDir), 0o700); err != nil {
		return nil, fmt.Errorf("create snapshot tree: %w", err)
	}
	files, err := archive.Pack(ws.Path(treeDir), plain)
	if err != nil {
		return nil, fmt.Errorf("package archive: %w", err)
	}
	log.Info("archive packed", "files", files)

	upload := plain
	if enc.Enabled {
		upload = ws.Path("archive.enc")
		if err := envelope.EncryptFile(plain, upload, enc.Password); err != nil {
			return nil, fmt.Errorf("encrypt archive: %w", err)
		}
		log.Info("archive encrypted")
	}

	if err := s.upload(ctx, upload, report.ArchiveName); err != nil {
		report.Success = false
		log.Error("upload failed", "error", err, "kind", transport.Classify(err))
		return report, err
	}
	log.Info("archive uploaded")

	if err := s.settings.RecordBackup(ctx, start); err != nil {
		b.warn("last backup time not saved: %v", err)
	}

	report.Success = len(report.Failed) == 0
	log.Info("backup finished", "success", report.Success, "succeeded", report.Succeeded.String(),
		"failed", len(report.Failed), "warnings", len(report.Warnings))
	return report, nil
}

func (s *Service) upload(ctx context.Context, path, name string) error {
	if err := s.ensureRemoteDir(ctx); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}
	if err := s.remote.Put(ctx, transport.Join(s.cfg.RemoteDir, name), f, info.Size()); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}

// serialize writes every selected record into the workspace tree. Only a
// failure to read the live store or to write the workspace aborts.
func (s *Service) serialize(ctx context.Context, b *snapshot, prefs BackupPreferences) error {
	if prefs.Passwords {
		passwords, err := s.records.ListPasswords(ctx)
		if err != nil {
			return fmt.Errorf("read passwords: %w", err)
		}
		b.passwords(passwords)
	}

	var included []domain.SecureItem
	if prefs.secureItems() || prefs.Images {
		items, err := s.records.ListSecureItems(ctx)
		if err != nil {
			return fmt.Errorf("read secure items: %w", err)
		}
		included = filterSecureItems(items, prefs)
		if err := b.secureItems(included); err != nil {
			return err
		}
	}

	if prefs.Images {
		b.images(included, s.cfg.ImageDir)
	}

	if prefs.GeneratorHistory {
		history, err := s.records.ListGeneratorHistory(ctx)
		if err != nil {
			b.warn("generator history not exported: %v", err)
		} else {
			b.history(history)
		}
	}
	return ctx.Err()
}

func filterSecureItems(items []domain.SecureItem, prefs BackupPreferences) []domain.SecureItem {
	out := make([]domain.SecureItem, 0, len(items))
	for _, it := range items {
		var keep bool
		switch it.ItemType {
		case domain.ItemTypeTOTP:
			keep = prefs.Authenticators
		case domain.ItemTypeDocument:
			keep = prefs.Documents
		case domain.ItemTypeBankCard:
			keep = prefs.BankCards
		case domain.ItemTypeNote:
			keep = prefs.Notes
		}
		if keep {
			out = append(out, it)
		}
	}
	return out
}

func (b *snapshot) passwords(entries []domain.PasswordEntry) {
	b.report.Total.Passwords = len(entries)
	if len(entries) == 0 {
		return
	}
	for i := range entries {
		p := &entries[i]
		data, err := codec.EncodePassword(p)
		if err == nil {
			err = b.write("passwords/"+codec.FileName(codec.CategoryPassword, p.ID, p.CreatedAt), data)
		}
		if err != nil {
			b.fail(p.ID, CategoryPassword, p.DisplayName(), err)
			continue
		}
		b.report.Succeeded.Passwords++
	}

	var buf bytes.Buffer
	if err := legacy.WritePasswords(&buf, entries); err != nil {
		b.warn("legacy password csv not written: %v", err)
		return
	}
	if err := b.write(b.prefix+"_password.csv", buf.Bytes()); err != nil {
		b.warn("legacy password csv not written: %v", err)
	}
}

func (b *snapshot) secureItems(items []domain.SecureItem) error {
	var totp, cardsDocs, notes []domain.SecureItem
	for _, it := range items {
		switch it.ItemType {
		case domain.ItemTypeTOTP:
			totp = append(totp, it)
		case domain.ItemTypeBankCard, domain.ItemTypeDocument:
			cardsDocs = append(cardsDocs, it)
		case domain.ItemTypeNote:
			notes = append(notes, it)
		}
	}

	if err := b.secureCSV(b.prefix+"_totp.csv", totp); err != nil {
		return err
	}
	if err := b.secureCSV(b.prefix+"_cards_docs.csv", cardsDocs); err != nil {
		return err
	}

	b.report.Total.Notes = len(notes)
	for i := range notes {
		n := &notes[i]
		data, err := codec.EncodeNote(n)
		if err == nil {
			err = b.write("notes/"+codec.FileName(codec.CategoryNote, n.ID, n.CreatedAt), data)
		}
		if err != nil {
			b.fail(n.ID, CategoryNote, n.Title, err)
			continue
		}
		b.report.Succeeded.Notes++
	}
	return nil
}

// secureCSV writes one aggregate CSV. The file is all or nothing, so an
// encoding failure marks every item in it as failed.
func (b *snapshot) secureCSV(name string, items []domain.SecureItem) error {
	for _, it := range items {
		b.report.Total.Add(itemCategory(it.ItemType), 1)
	}
	if len(items) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := legacy.WriteSecureItems(&buf, items); err != nil {
		for _, it := range items {
			b.fail(it.ID, itemCategory(it.ItemType), it.Title, err)
		}
		return nil
	}
	if err := b.write(name, buf.Bytes()); err != nil {
		return err
	}
	for _, it := range items {
		b.report.Succeeded.Add(itemCategory(it.ItemType), 1)
	}
	return nil
}

// images copies every encrypted blob referenced by items. A missing blob is
// a warning; the metadata backup still succeeds.
func (b *snapshot) images(items []domain.SecureItem, dir string) {
	seen := make(map[string]bool)
	for i := range items {
		for _, name := range items[i].EncryptedImages() {
			if seen[name] || filepath.Base(name) != name {
				continue
			}
			seen[name] = true
			b.report.Total.Images++

			err := copyFile(filepath.Join(dir, name), b.ws.Path(treeDir, "images", name))
			switch {
			case errors.Is(err, fs.ErrNotExist):
				b.warn("image file missing: %s", name)
			case err != nil:
				b.fail(items[i].ID, CategoryImage, name, err)
			default:
				b.report.Succeeded.Images++
			}
		}
	}
}

func (b *snapshot) history(entries []domain.GeneratedPassword) {
	b.report.Total.GeneratorHistory = len(entries)
	if len(entries) == 0 {
		return
	}
	data, err := codec.EncodeHistory(entries)
	if err == nil {
		err = b.write(b.prefix+"_generated_history.json", data)
	}
	if err != nil {
		b.warn("generator history not exported: %v", err)
		return
	}
	b.report.Succeeded.GeneratorHistory = len(entries)
}

func itemCategory(t domain.ItemType) Category {
	switch t {
	case domain.ItemTypeTOTP:
		return CategoryTOTP
	case domain.ItemTypeBankCard:
		return CategoryBankCard
	case domain.ItemTypeDocument:
		return CategoryDocument
	default:
		return CategoryNote
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
