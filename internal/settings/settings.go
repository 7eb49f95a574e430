// Package settings persists the engine's mutable configuration: encryption,
// backup preferences, the auto-backup switch and the last backup time.
package settings

import (
	"context"
	"time"

	"github.com/lockboxapp/lockbox-server/internal/backup"
)

// Settings is the persisted engine configuration.
type Settings struct {
	Encryption   backup.EncryptionConfig  `json:"encryption"`
	Preferences  backup.BackupPreferences `json:"preferences"`
	AutoBackup   bool                     `json:"auto_backup"`
	LastBackupAt time.Time                `json:"last_backup_at,omitzero"`
}

// Defaults returns settings for a fresh install: every category selected,
// encryption and auto-backup off.
func Defaults() Settings {
	return Settings{Preferences: backup.DefaultPreferences()}
}

// Repository loads and saves Settings. Load returns Defaults when nothing
// has been saved yet.
type Repository interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}
