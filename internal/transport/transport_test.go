package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseTransport runs the same contract checks against any implementation.
func exerciseTransport(t *testing.T, tr Transport) {
	t.Helper()
	ctx := context.Background()

	ok, err := tr.Exists(ctx, "Lockbox_Backups")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tr.Mkdir(ctx, "Lockbox_Backups"))
	ok, err = tr.Exists(ctx, "Lockbox_Backups")
	require.NoError(t, err)
	assert.True(t, ok)

	payload := []byte("PK\x03\x04 archive bytes")
	require.NoError(t, tr.Put(ctx, "Lockbox_Backups/backup_20260101_120000.zip", bytes.NewReader(payload), int64(len(payload))))
	require.NoError(t, tr.Put(ctx, "Lockbox_Backups/backup_20260102_120000_enc.zip", bytes.NewReader([]byte("LBX1")), 4))

	// Overwrite keeps a single object with the new content.
	require.NoError(t, tr.Put(ctx, "Lockbox_Backups/backup_20260101_120000.zip", bytes.NewReader(payload), int64(len(payload))))

	entries, err := tr.List(ctx, "Lockbox_Backups")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "backup_20260101_120000.zip", entries[0].Name)
	assert.Equal(t, "Lockbox_Backups/backup_20260101_120000.zip", entries[0].Path)
	assert.Equal(t, int64(len(payload)), entries[0].Size)
	assert.False(t, entries[0].IsDir)

	rc, err := tr.Get(ctx, "Lockbox_Backups/backup_20260101_120000.zip")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, payload, got)

	_, err = tr.Get(ctx, "Lockbox_Backups/missing.zip")
	require.Error(t, err)
	assert.True(t, IsNotFound(err), "got %v", err)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, tr.Delete(ctx, "Lockbox_Backups/backup_20260101_120000.zip"))
	err = tr.Delete(ctx, "Lockbox_Backups/backup_20260101_120000.zip")
	assert.True(t, IsNotFound(err), "got %v", err)

	entries, err = tr.List(ctx, "Lockbox_Backups")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "backup_20260102_120000_enc.zip", entries[0].Name)

	_, err = tr.Get(ctx, "../outside.zip")
	assert.Error(t, err)
}

func TestLocal_Contract(t *testing.T) {
	tr, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	exerciseTransport(t, tr)
}

func TestLocal_CanceledContext(t *testing.T) {
	tr, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Exists(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a/b.zip", Join("a", "b.zip"))
	assert.Equal(t, "b.zip", Join("", "b.zip"))
	assert.Equal(t, "a/b", Join("/a/", "b"))
}

func TestCleanPath(t *testing.T) {
	got, err := cleanPath("dir\\sub/./file.zip")
	require.NoError(t, err)
	assert.Equal(t, "dir/sub/file.zip", got)

	_, err = cleanPath("dir/../../etc/passwd")
	assert.Error(t, err)

	got, err = cleanPath("")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}
