package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockboxapp/lockbox-server/internal/transport"
)

func putRemote(t *testing.T, env *testEnv, name string, mod time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.remote.Mkdir(ctx, DefaultRemoteDir))
	require.NoError(t, env.remote.Put(ctx, transport.Join(DefaultRemoteDir, name), strings.NewReader("PK\x05\x06"), 4))
	require.NoError(t, os.Chtimes(filepath.Join(env.remoteFS, DefaultRemoteDir, name), mod, mod))
}

func TestList_MissingDirectory(t *testing.T) {
	env := newTestEnv(t)

	files, err := env.svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestList_NewestFirstZipOnly(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	putRemote(t, env, "backup_20260101_000000.zip", base)
	putRemote(t, env, "backup_20260103_000000_enc.zip", base.Add(48*time.Hour))
	putRemote(t, env, "backup_20260102_000000.zip", base.Add(24*time.Hour))
	putRemote(t, env, "notes.txt", base.Add(72*time.Hour))
	require.NoError(t, env.remote.Mkdir(context.Background(), DefaultRemoteDir+"/old.zip"))

	files, err := env.svc.List(context.Background())
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"backup_20260103_000000_enc.zip",
		"backup_20260102_000000.zip",
		"backup_20260101_000000.zip",
	}, names)
	assert.Equal(t, DefaultRemoteDir+"/backup_20260102_000000.zip", files[1].Path)
	assert.Equal(t, int64(4), files[1].Size)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	putRemote(t, env, "backup_20260101_000000.zip", time.Now())
	ctx := context.Background()

	require.NoError(t, env.svc.Delete(ctx, "backup_20260101_000000.zip"))
	files, err := env.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)

	assert.ErrorIs(t, env.svc.Delete(ctx, "backup_20260101_000000.zip"), ErrBackupNotFound)
	assert.ErrorIs(t, env.svc.Delete(ctx, "../etc/passwd.zip"), ErrInvalidName)
}

func TestStat(t *testing.T) {
	env := newTestEnv(t)
	putRemote(t, env, "backup_20260101_000000.zip", time.Now())

	f, err := env.svc.Stat(context.Background(), "backup_20260101_000000.zip")
	require.NoError(t, err)
	assert.Equal(t, "backup_20260101_000000.zip", f.Name)

	_, err = env.svc.Stat(context.Background(), "backup_19990101_000000.zip")
	assert.ErrorIs(t, err, ErrBackupNotFound)
}

func TestTestConnection_CreatesDirectory(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.svc.TestConnection(context.Background()))
	info, err := os.Stat(filepath.Join(env.remoteFS, DefaultRemoteDir))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, env.svc.TestConnection(context.Background()), "existing directory is fine")
}
