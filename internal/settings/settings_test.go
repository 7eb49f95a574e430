package settings_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockboxapp/lockbox-server/internal/backup"
	"github.com/lockboxapp/lockbox-server/internal/settings"
)

func openBadger(t *testing.T, dir string) *settings.BadgerRepository {
	t.Helper()
	repo, err := settings.OpenBadger(dir, nil)
	require.NoError(t, err)
	return repo
}

func TestBadgerRepository_DefaultsWhenEmpty(t *testing.T) {
	repo := openBadger(t, t.TempDir())
	defer repo.Close()

	s, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), s)
	assert.True(t, s.Preferences.Passwords)
	assert.False(t, s.Encryption.Enabled)
}

func TestBadgerRepository_SurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "settings")
	ctx := context.Background()
	last := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	repo := openBadger(t, dir)
	want := settings.Settings{
		Encryption:   backup.EncryptionConfig{Enabled: true, Password: "hunter2"},
		Preferences:  backup.BackupPreferences{Passwords: true, Notes: true},
		AutoBackup:   true,
		LastBackupAt: last,
	}
	require.NoError(t, repo.Save(ctx, want))
	require.NoError(t, repo.Close())

	repo = openBadger(t, dir)
	defer repo.Close()
	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Encryption, got.Encryption)
	assert.Equal(t, want.Preferences, got.Preferences)
	assert.True(t, got.AutoBackup)
	assert.True(t, last.Equal(got.LastBackupAt))
}

func TestBadgerRepository_CanceledContext(t *testing.T) {
	repo := openBadger(t, t.TempDir())
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, repo.Save(ctx, settings.Defaults()), context.Canceled)
}

func TestManager_SettersPersistImmediately(t *testing.T) {
	ctx := context.Background()
	repo := settings.NewMemoryRepository()
	m, err := settings.NewManager(ctx, repo, nil)
	require.NoError(t, err)

	require.NoError(t, m.SetEncryption(ctx, backup.EncryptionConfig{Enabled: true, Password: "pw"}))
	require.NoError(t, m.SetPreferences(ctx, backup.BackupPreferences{Authenticators: true}))
	require.NoError(t, m.SetAutoBackup(ctx, true))
	at := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, m.RecordBackup(ctx, at))

	saved, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.Get(), saved)
	assert.Equal(t, backup.EncryptionConfig{Enabled: true, Password: "pw"}, m.Encryption())
	assert.Equal(t, backup.BackupPreferences{Authenticators: true}, m.Preferences())
	assert.True(t, m.AutoBackup())
	assert.Equal(t, at, m.LastBackupAt())
}

func TestManager_LoadsExisting(t *testing.T) {
	ctx := context.Background()
	repo := settings.NewMemoryRepository()
	require.NoError(t, repo.Save(ctx, settings.Settings{AutoBackup: true}))

	m, err := settings.NewManager(ctx, repo, nil)
	require.NoError(t, err)
	assert.True(t, m.AutoBackup())
}

func TestManager_SetEncryption(t *testing.T) {
	ctx := context.Background()
	m, err := settings.NewManager(ctx, settings.NewMemoryRepository(), nil)
	require.NoError(t, err)

	err = m.SetEncryption(ctx, backup.EncryptionConfig{Enabled: true})
	assert.ErrorIs(t, err, backup.ErrEncryptionPassword)
	assert.False(t, m.Encryption().Enabled)

	require.NoError(t, m.SetEncryption(ctx, backup.EncryptionConfig{Enabled: true, Password: "pw"}))
	require.NoError(t, m.SetEncryption(ctx, backup.EncryptionConfig{Enabled: false}))
	assert.Equal(t, backup.EncryptionConfig{Enabled: false, Password: "pw"}, m.Encryption(),
		"disabling keeps the password for restoring older archives")
}

func TestManager_FailedSaveChangesNothing(t *testing.T) {
	ctx := context.Background()
	repo := settings.NewMemoryRepository()
	m, err := settings.NewManager(ctx, repo, nil)
	require.NoError(t, err)

	repo.SaveErr = errors.New("disk full")
	err = m.SetAutoBackup(ctx, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, m.AutoBackup())
}
