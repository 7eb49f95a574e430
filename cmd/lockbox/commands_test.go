package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockboxapp/lockbox-server/internal/backup"
	"github.com/lockboxapp/lockbox-server/internal/domain"
	"github.com/lockboxapp/lockbox-server/internal/settings"
	"github.com/lockboxapp/lockbox-server/internal/store/sqlite"
	"github.com/lockboxapp/lockbox-server/internal/transport"
)

type testCLI struct {
	*app
	buf      *bytes.Buffer
	store    *sqlite.Store
	settings *settings.Manager
	remote   string
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(root, "lockbox.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	remoteRoot := filepath.Join(root, "remote")
	remote, err := transport.NewLocal(remoteRoot)
	require.NoError(t, err)

	mgr, err := settings.NewManager(context.Background(), settings.NewMemoryRepository(), logger)
	require.NoError(t, err)

	svc := backup.NewService(st, remote, mgr, backup.Config{
		ImageDir: filepath.Join(root, "images"),
		WorkDir:  filepath.Join(root, "work"),
	}, logger)

	buf := &bytes.Buffer{}
	return &testCLI{
		app:      &app{backups: svc, settings: mgr, out: buf},
		buf:      buf,
		store:    st,
		settings: mgr,
		remote:   remoteRoot,
	}
}

func (c *testCLI) seed(t *testing.T, titles ...string) {
	t.Helper()
	now := time.Now()
	for _, title := range titles {
		_, err := c.store.CreatePassword(context.Background(), &domain.PasswordEntry{
			Title:     title,
			Username:  "me",
			Password:  "pw",
			CreatedAt: now,
			UpdatedAt: now,
		})
		require.NoError(t, err)
	}
}

// exec runs one command and returns its output.
func (c *testCLI) exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c.buf.Reset()
	err := c.run(context.Background(), args)
	return c.buf.String(), err
}

func archiveName(t *testing.T, out string) string {
	t.Helper()
	for _, field := range strings.Fields(out) {
		if strings.HasPrefix(field, "backup_") {
			return field
		}
	}
	t.Fatalf("no archive name in %q", out)
	return ""
}

func TestBackupListRestoreDelete(t *testing.T) {
	cli := newTestCLI(t)
	cli.seed(t, "Mail", "Bank")

	out, err := cli.exec(t, "backup")
	require.NoError(t, err)
	assert.Contains(t, out, "uploaded (2 items)")
	name := archiveName(t, out)

	out, err = cli.exec(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, name)

	out, err = cli.exec(t, "restore", name)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("Restored 0 items from %s (2 already present).\n", name), out)

	out, err = cli.exec(t, "restore-file", filepath.Join(cli.remote, backup.DefaultRemoteDir, name))
	require.NoError(t, err)
	assert.Contains(t, out, "2 already present")

	out, err = cli.exec(t, "delete", name)
	require.NoError(t, err)
	assert.Equal(t, "Deleted "+name+".\n", out)

	out, err = cli.exec(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "No backups found.\n", out)
}

func TestRestore_EncryptedNeedsPassword(t *testing.T) {
	cli := newTestCLI(t)
	cli.seed(t, "Mail")
	ctx := context.Background()
	require.NoError(t, cli.settings.SetEncryption(ctx, backup.EncryptionConfig{Enabled: true, Password: "pw1"}))

	out, err := cli.exec(t, "backup")
	require.NoError(t, err)
	name := archiveName(t, out)
	assert.True(t, backup.IsEncryptedName(name))
	path := filepath.Join(cli.remote, backup.DefaultRemoteDir, name)

	// Another machine without the password configured.
	other := newTestCLI(t)
	_, err = other.exec(t, "restore-file", path)
	require.ErrorIs(t, err, backup.ErrPasswordRequired)
	assert.Equal(t, "the archive is encrypted; rerun with -password", describe(err))

	_, err = other.exec(t, "restore-file", "-password", "wrong", path)
	assert.Equal(t, "the password does not match this archive", describe(err))

	out, err = other.exec(t, "restore-file", "-password", "pw1", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Restored 1 items")
}

func TestDue(t *testing.T) {
	cli := newTestCLI(t)
	cli.now = func() time.Time { return time.Date(2026, 4, 2, 10, 0, 0, 0, time.Local) }

	out, err := cli.exec(t, "due")
	require.NoError(t, err)
	assert.Contains(t, out, "last backup: never")
	assert.Contains(t, out, "due: true")

	require.NoError(t, cli.settings.RecordBackup(context.Background(), time.Date(2026, 4, 2, 8, 0, 0, 0, time.Local)))
	out, err = cli.exec(t, "due")
	require.NoError(t, err)
	assert.Contains(t, out, "due: false")
}

func TestTestConnection(t *testing.T) {
	cli := newTestCLI(t)

	out, err := cli.exec(t, "test")
	require.NoError(t, err)
	assert.Equal(t, "Remote store reachable.\n", out)
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown command", args: []string{"explode"}},
		{name: "list with args", args: []string{"list", "extra"}},
		{name: "restore without name", args: []string{"restore"}},
		{name: "restore with two names", args: []string{"restore", "a.zip", "b.zip"}},
		{name: "restore unknown flag", args: []string{"restore", "-force", "a.zip"}},
		{name: "delete without name", args: []string{"delete"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := newTestCLI(t)
			_, err := cli.exec(t, tt.args...)
			assert.ErrorIs(t, err, errUsage)
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "no such backup; run 'lockbox list'",
		describe(fmt.Errorf("stat: %w", backup.ErrBackupNotFound)))
	assert.Equal(t, "boom", describe(errors.New("boom")))

	te := &transport.Error{Op: "list", Path: "/x", Kind: transport.KindAuthRejected, Err: errors.New("401")}
	assert.True(t, strings.HasPrefix(describe(te), transport.KindAuthRejected.Message()))
}
