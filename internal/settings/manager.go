package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lockboxapp/lockbox-server/internal/backup"
)

// Manager holds the current Settings and writes every change through the
// Repository before it becomes visible. It implements backup.Settings.
type Manager struct {
	mu      sync.RWMutex
	repo    Repository
	current Settings
	logger  *slog.Logger
}

var _ backup.Settings = (*Manager)(nil)

// NewManager loads the persisted settings from repo.
func NewManager(ctx context.Context, repo Repository, logger *slog.Logger) (*Manager, error) {
	s, err := repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{repo: repo, current: s, logger: logger}, nil
}

// Get returns a copy of the current settings.
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Encryption implements backup.Settings.
func (m *Manager) Encryption() backup.EncryptionConfig {
	return m.Get().Encryption
}

// Preferences returns the persisted backup preferences.
func (m *Manager) Preferences() backup.BackupPreferences {
	return m.Get().Preferences
}

// AutoBackup reports whether scheduled backups are on.
func (m *Manager) AutoBackup() bool {
	return m.Get().AutoBackup
}

// LastBackupAt returns the time of the last successful backup, zero if none.
func (m *Manager) LastBackupAt() time.Time {
	return m.Get().LastBackupAt
}

// SetEncryption replaces the encryption setting. Enabling encryption needs
// a password. Disabling it keeps any stored password so archives made
// earlier can still be restored without prompting.
func (m *Manager) SetEncryption(ctx context.Context, cfg backup.EncryptionConfig) error {
	if cfg.Enabled && cfg.Password == "" {
		return backup.ErrEncryptionPassword
	}
	return m.update(ctx, "encryption", func(s *Settings) {
		if !cfg.Enabled && cfg.Password == "" {
			cfg.Password = s.Encryption.Password
		}
		s.Encryption = cfg
	})
}

// SetPreferences replaces the backup preferences.
func (m *Manager) SetPreferences(ctx context.Context, p backup.BackupPreferences) error {
	return m.update(ctx, "preferences", func(s *Settings) {
		s.Preferences = p
	})
}

// SetAutoBackup turns scheduled backups on or off.
func (m *Manager) SetAutoBackup(ctx context.Context, enabled bool) error {
	return m.update(ctx, "auto_backup", func(s *Settings) {
		s.AutoBackup = enabled
	})
}

// RecordBackup implements backup.Settings.
func (m *Manager) RecordBackup(ctx context.Context, at time.Time) error {
	return m.update(ctx, "last_backup_at", func(s *Settings) {
		s.LastBackupAt = at
	})
}

// update applies fn to a copy of the current settings, saves the copy and
// only then swaps it in, so a failed save changes nothing.
func (m *Manager) update(ctx context.Context, field string, fn func(*Settings)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.current
	fn(&next)
	if err := m.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("save %s setting: %w", field, err)
	}
	m.current = next
	m.logger.Debug("setting saved", "field", field)
	return nil
}
