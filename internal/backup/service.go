package backup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lockboxapp/lockbox-server/internal/transport"
)

// DefaultRemoteDir is the remote directory archives live in.
const DefaultRemoteDir = "Lockbox_Backups"

// Config locates the engine's directories.
type Config struct {
	// RemoteDir is the backup directory on the remote store.
	RemoteDir string
	// ImageDir holds the encrypted image blobs records reference.
	ImageDir string
	// WorkDir is the parent of per-run temporary workspaces.
	WorkDir string
}

// Service creates, lists, deletes and restores backups. Each call runs
// sequentially in its own workspace; concurrent calls are not serialized.
type Service struct {
	records  RecordStore
	remote   transport.Transport
	settings Settings
	cfg      Config
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// NewService creates a Service.
func NewService(records RecordStore, remote transport.Transport, settings Settings, cfg Config, logger *slog.Logger) *Service {
	if cfg.RemoteDir == "" {
		cfg.RemoteDir = DefaultRemoteDir
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		records:  records,
		remote:   remote,
		settings: settings,
		cfg:      cfg,
		logger:   logger,
		observer: noopObserver{},
		now:      time.Now,
	}
}

// SetObserver installs o to receive run outcomes.
func (s *Service) SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	s.observer = o
}

// RemoteDir returns the remote backup directory.
func (s *Service) RemoteDir() string {
	return s.cfg.RemoteDir
}

// List returns the archives in the remote backup directory, newest first.
// A missing directory yields an empty list.
func (s *Service) List(ctx context.Context) ([]BackupFile, error) {
	entries, err := s.remote.List(ctx, s.cfg.RemoteDir)
	if err != nil {
		if transport.IsNotFound(err) {
			return []BackupFile{}, nil
		}
		return nil, fmt.Errorf("list backups: %w", err)
	}

	files := make([]BackupFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir || !strings.HasSuffix(strings.ToLower(e.Name), ".zip") {
			continue
		}
		files = append(files, BackupFile{Name: e.Name, Path: e.Path, Size: e.Size, ModTime: e.ModTime})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.After(files[j].ModTime)
		}
		return files[i].Name > files[j].Name
	})
	return files, nil
}

// Delete removes the named archive.
func (s *Service) Delete(ctx context.Context, name string) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	err := s.remote.Delete(ctx, transport.Join(s.cfg.RemoteDir, name))
	if err != nil {
		if transport.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrBackupNotFound, name)
		}
		return fmt.Errorf("delete backup: %w", err)
	}
	s.logger.Info("backup deleted", "archive", name)
	return nil
}

// Stat finds the named archive in the remote listing.
func (s *Service) Stat(ctx context.Context, name string) (BackupFile, error) {
	if !validName(name) {
		return BackupFile{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	files, err := s.List(ctx)
	if err != nil {
		return BackupFile{}, err
	}
	for _, f := range files {
		if f.Name == name {
			return f, nil
		}
	}
	return BackupFile{}, fmt.Errorf("%w: %s", ErrBackupNotFound, name)
}

// TestConnection checks that the remote store is reachable and that the
// backup directory exists, creating it if needed.
func (s *Service) TestConnection(ctx context.Context) error {
	return s.ensureRemoteDir(ctx)
}

func (s *Service) ensureRemoteDir(ctx context.Context) error {
	ok, err := s.remote.Exists(ctx, s.cfg.RemoteDir)
	if err != nil {
		return fmt.Errorf("check backup directory: %w", err)
	}
	if ok {
		return nil
	}
	if err := s.remote.Mkdir(ctx, s.cfg.RemoteDir); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	return nil
}
