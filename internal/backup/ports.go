package backup

import (
	"context"
	"time"

	"github.com/lockboxapp/lockbox-server/internal/domain"
)

// RecordStore is the live record store capability the engine borrows: read
// everything for a backup, write and check for duplicates during a restore.
// Create methods ignore the incoming ID and return the one the store assigns.
type RecordStore interface {
	ListPasswords(ctx context.Context) ([]domain.PasswordEntry, error)
	ListSecureItems(ctx context.Context) ([]domain.SecureItem, error)
	ListGeneratorHistory(ctx context.Context) ([]domain.GeneratedPassword, error)

	CreatePassword(ctx context.Context, p *domain.PasswordEntry) (int64, error)
	CreateSecureItem(ctx context.Context, item *domain.SecureItem) (int64, error)
	AddGeneratorHistory(ctx context.Context, g *domain.GeneratedPassword) error

	// PasswordExists matches on title, username and website.
	PasswordExists(ctx context.Context, title, username, website string) (bool, error)
	// SecureItemExists matches on item type and title.
	SecureItemExists(ctx context.Context, itemType domain.ItemType, title string) (bool, error)
	// HistoryExists matches on password and creation time.
	HistoryExists(ctx context.Context, password string, createdAt time.Time) (bool, error)
}

// Settings is the slice of persisted configuration the engine reads and the
// backup tracker it notifies after a successful upload.
type Settings interface {
	Encryption() EncryptionConfig
	RecordBackup(ctx context.Context, at time.Time) error
}

// Observer receives the outcome of every run. Reports may be nil when a run
// failed validation.
type Observer interface {
	BackupFinished(report *BackupReport, elapsed time.Duration, err error)
	RestoreFinished(report *RestoreReport, elapsed time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) BackupFinished(*BackupReport, time.Duration, error)   {}
func (noopObserver) RestoreFinished(*RestoreReport, time.Duration, error) {}
