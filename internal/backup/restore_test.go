package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockboxapp/lockbox-server/internal/backup/archive"
	"github.com/lockboxapp/lockbox-server/internal/backup/envelope"
	"github.com/lockboxapp/lockbox-server/internal/domain"
)

// freshTarget shares env's remote but has an empty store and image directory.
func freshTarget(t *testing.T, env *testEnv) *testEnv {
	t.Helper()
	return newTestEnvWithRemote(t, env.remote, env.remoteFS)
}

func createdFile(t *testing.T, env *testEnv, prefs BackupPreferences) BackupFile {
	t.Helper()
	_, err := env.svc.Create(context.Background(), prefs)
	require.NoError(t, err)
	files, err := env.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	return files[0]
}

func withoutIDs[T any](items []T, clear func(*T)) []T {
	out := make([]T, len(items))
	for i := range items {
		out[i] = items[i]
		clear(&out[i])
	}
	return out
}

func TestRestore_RoundTrip(t *testing.T) {
	src := newTestEnv(t)
	seed(t, src)
	file := createdFile(t, src, DefaultPreferences())

	dst := freshTarget(t, src)
	report, err := dst.svc.Restore(context.Background(), file, RestoreOptions{})
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.False(t, report.HasIssues(), report.Summary())
	want := ItemCounts{Passwords: 2, Notes: 1, TOTP: 1, BankCards: 1, Documents: 1, Images: 1, GeneratorHistory: 1}
	assert.Equal(t, want, report.Contained)
	assert.Equal(t, want, report.Restored)
	assert.Equal(t, ItemCounts{}, report.Skipped)

	clearPassword := func(p *domain.PasswordEntry) { p.ID = 0 }
	clearItem := func(it *domain.SecureItem) { it.ID = 0 }
	assert.ElementsMatch(t, withoutIDs(src.store.passwords, clearPassword), withoutIDs(dst.store.passwords, clearPassword))
	assert.ElementsMatch(t, withoutIDs(src.store.items, clearItem), withoutIDs(dst.store.items, clearItem))
	assert.Equal(t, src.store.history, dst.store.history)

	blob, err := os.ReadFile(filepath.Join(dst.imageDir, "card_front.enc"))
	require.NoError(t, err)
	assert.Equal(t, "blob", string(blob))

	assert.True(t, dst.settings.lastBackup.IsZero(), "restore does not record a backup")
	assertWorkspaceClean(t, dst)
}

func TestRestore_ByNameOnly(t *testing.T) {
	src := newTestEnv(t)
	seed(t, src)
	file := createdFile(t, src, DefaultPreferences())

	dst := freshTarget(t, src)
	report, err := dst.svc.Restore(context.Background(), BackupFile{Name: file.Name}, RestoreOptions{})
	require.NoError(t, err)

	assert.True(t, report.Success, report.Summary())
	assert.Equal(t, 2, report.Restored.Passwords)
}

func TestRestore_Idempotent(t *testing.T) {
	src := newTestEnv(t)
	seed(t, src)
	file := createdFile(t, src, DefaultPreferences())
	dst := freshTarget(t, src)

	_, err := dst.svc.Restore(context.Background(), file, RestoreOptions{})
	require.NoError(t, err)

	again, err := dst.svc.Restore(context.Background(), file, RestoreOptions{})
	require.NoError(t, err)

	assert.True(t, again.Success)
	assert.Equal(t, ItemCounts{}, again.Restored)
	assert.Equal(t, again.Contained, again.Skipped)
	assert.Empty(t, again.Failed)
	assert.Len(t, dst.store.passwords, 2)
	assert.Len(t, dst.store.items, 4)
	assert.Len(t, dst.store.history, 1)
}

func TestRestore_Encrypted(t *testing.T) {
	src := newTestEnv(t)
	seed(t, src)
	src.settings.encryption = EncryptionConfig{Enabled: true, Password: "X"}
	file := createdFile(t, src, BackupPreferences{Passwords: true})
	require.True(t, file.IsEncrypted())

	t.Run("no password", func(t *testing.T) {
		dst := freshTarget(t, src)
		report, err := dst.svc.Restore(context.Background(), file, RestoreOptions{})
		require.ErrorIs(t, err, ErrPasswordRequired)
		assert.Nil(t, report)
		assert.Empty(t, dst.store.passwords)
		assertWorkspaceClean(t, dst)
	})

	t.Run("wrong password", func(t *testing.T) {
		dst := freshTarget(t, src)
		_, err := dst.svc.Restore(context.Background(), file, RestoreOptions{Password: "Y"})
		require.ErrorIs(t, err, envelope.ErrWrongPassword)
		assert.NotErrorIs(t, err, envelope.ErrCorrupt)
		assert.Empty(t, dst.store.passwords)
	})

	t.Run("supplied password", func(t *testing.T) {
		dst := freshTarget(t, src)
		report, err := dst.svc.Restore(context.Background(), file, RestoreOptions{Password: "X"})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Restored.Passwords)
	})

	t.Run("configured password", func(t *testing.T) {
		dst := freshTarget(t, src)
		dst.settings.encryption = EncryptionConfig{Password: "X"}
		report, err := dst.svc.Restore(context.Background(), file, RestoreOptions{})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Restored.Passwords)
	})
}

func TestRestore_StoreFailuresAreItemized(t *testing.T) {
	src := newTestEnv(t)
	seed(t, src)
	file := createdFile(t, src, DefaultPreferences())

	dst := freshTarget(t, src)
	dst.store.rejectTitles["Mail"] = true
	dst.store.rejectTitles["Visa"] = true

	report, err := dst.svc.Restore(context.Background(), file, RestoreOptions{})
	require.NoError(t, err)

	assert.False(t, report.Success)
	assert.Equal(t, 1, report.Restored.Passwords)
	assert.Equal(t, 0, report.Restored.BankCards)
	require.Len(t, report.Failed, 2)
	titles := []string{report.Failed[0].Title, report.Failed[1].Title}
	assert.ElementsMatch(t, []string{"Mail", "Visa"}, titles)
	assert.Contains(t, report.Summary(), "Failed items (2)")
}

// packTree writes files into a directory and packs it as a local archive.
func packTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, "tree", filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o700))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	dest := filepath.Join(root, "legacy.zip")
	_, err := archive.Pack(filepath.Join(root, "tree"), dest)
	require.NoError(t, err)
	return dest
}

const legacyPasswordCSV = "\ufeffname,url,username,password,note\n" +
	"Forum,forum.example,neo,redpill,\"old account\n\n[MonicaMeta]isFavorite=true|createdAt=1600000000000|updatedAt=1600000000000\"\n" +
	"Shop,shop.example,trin,\"a,b\",\n"

func TestRestoreFile_LegacyPasswordFallback(t *testing.T) {
	env := newTestEnv(t)
	path := packTree(t, map[string]string{
		"Monica_20240101_101010_password.csv": legacyPasswordCSV,
		"readme.txt":                          "ignored",
	})

	report, err := env.svc.RestoreFile(context.Background(), path, RestoreOptions{})
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, 2, report.Contained.Passwords)
	assert.Equal(t, 2, report.Restored.Passwords)
	require.Len(t, env.store.passwords, 2)

	forum := env.store.passwords[0]
	assert.Equal(t, "Forum", forum.Title)
	assert.Equal(t, "old account", forum.Notes)
	assert.True(t, forum.IsFavorite)
	assert.Equal(t, int64(1600000000000), forum.CreatedAt.UnixMilli())
	assert.Equal(t, "a,b", env.store.passwords[1].Password)
}

func TestRestoreFile_JSONPasswordsWinOverLegacyCSV(t *testing.T) {
	env := newTestEnv(t)
	path := packTree(t, map[string]string{
		"Lockbox_20260101_000000_password.csv": legacyPasswordCSV,
		"passwords/password_7_1700000000000.json": `{"id":7,"title":"Only","username":"u","password":"p",` +
			`"website":"w","notes":"","isFavorite":false,"createdAt":1700000000000,"updatedAt":1700000000000,"future":1}`,
	})

	report, err := env.svc.RestoreFile(context.Background(), path, RestoreOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Contained.Passwords)
	require.Len(t, env.store.passwords, 1)
	assert.Equal(t, "Only", env.store.passwords[0].Title)
	assert.Equal(t, int64(1), env.store.passwords[0].ID, "the store assigns ids")
}

func TestRestoreFile_CorruptJSONPasswordsFallBackToLegacyCSV(t *testing.T) {
	env := newTestEnv(t)
	path := packTree(t, map[string]string{
		"passwords/password_1_1.json":         "{not json",
		"Monica_20240101_101010_password.csv": legacyPasswordCSV,
	})

	report, err := env.svc.RestoreFile(context.Background(), path, RestoreOptions{})
	require.NoError(t, err)

	assert.False(t, report.Success)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "password_1_1.json", report.Failed[0].Title)
	assert.Equal(t, 3, report.Contained.Passwords)
	assert.Equal(t, 2, report.Restored.Passwords)
	require.Len(t, env.store.passwords, 2)
	assert.Equal(t, "Forum", env.store.passwords[0].Title)
}

func TestRestoreFile_BadEntriesAreItemized(t *testing.T) {
	env := newTestEnv(t)
	path := packTree(t, map[string]string{
		"passwords/password_1_1.json": "{not json",
		"notes/note_2_2.json":         `{"title":"Kept","notes":"n","createdAt":5,"updatedAt":5}`,
		"backup.csv":                  "id,itemType,title,itemData,notes,isFavorite,imagePaths,createdAt,updatedAt\n1,PASSKEY,Odd,,,,,1,1\n",
	})

	report, err := env.svc.RestoreFile(context.Background(), path, RestoreOptions{})
	require.NoError(t, err)

	assert.False(t, report.Success)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, CategoryPassword, report.Failed[0].Category)
	assert.Equal(t, "password_1_1.json", report.Failed[0].Title)
	assert.Equal(t, 1, report.Restored.Notes)
	require.Len(t, report.Warnings, 1)
	assert.True(t, strings.HasPrefix(report.Warnings[0], "backup.csv: "), report.Warnings[0])
}

func TestRestoreFile_KeepsExistingImages(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(env.imageDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(env.imageDir, "a.enc"), []byte("local"), 0o600))

	path := packTree(t, map[string]string{
		"images/a.enc": "from archive",
		"images/b.enc": "new",
		"c.enc":        "root level",
	})

	report, err := env.svc.RestoreFile(context.Background(), path, RestoreOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Contained.Images)
	assert.Equal(t, 2, report.Restored.Images)
	assert.Equal(t, 1, report.Skipped.Images)

	kept, _ := os.ReadFile(filepath.Join(env.imageDir, "a.enc"))
	assert.Equal(t, "local", string(kept))
	added, _ := os.ReadFile(filepath.Join(env.imageDir, "c.enc"))
	assert.Equal(t, "root level", string(added))
}

func TestRestoreFile_NotAnArchive(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "junk.zip")
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04 truncated"), 0o600))

	_, err := env.svc.RestoreFile(context.Background(), path, RestoreOptions{})
	assert.ErrorIs(t, err, ErrCorruptArchive)
}
