package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_CloseRemovesEverything(t *testing.T) {
	base := t.TempDir()
	ws, err := NewWorkspace(base)
	require.NoError(t, err)

	require.NoError(t, ws.WriteFile("tree/passwords/password_1_1.json", []byte("{}")))
	require.NoError(t, ws.WriteFile("tree/notes/note_1_1.json", []byte("{}")))

	assert.DirExists(t, ws.Path("tree", "passwords"))

	require.NoError(t, ws.Close())
	assert.NoDirExists(t, ws.Dir())
	require.NoError(t, ws.Close())

	left, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestWorkspace_Unique(t *testing.T) {
	base := t.TempDir()
	a, err := NewWorkspace(base)
	require.NoError(t, err)
	b, err := NewWorkspace(base)
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	assert.NotEqual(t, a.Dir(), b.Dir())
}

func TestPack_DeterministicOrderAndContent(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	defer ws.Close()

	files := map[string]string{
		"tree/passwords/password_2_20.json": `{"id":2}`,
		"tree/passwords/password_1_10.json": `{"id":1}`,
		"tree/notes/note_5_50.json":         `{"id":5}`,
		"tree/Lockbox_x_totp.csv":           "id,itemType\n",
		"tree/images/a.enc":                 "blob",
	}
	for name, body := range files {
		require.NoError(t, ws.WriteFile(name, []byte(body)))
	}
	require.NoError(t, os.MkdirAll(ws.Path("tree", "empty"), 0o700))

	dest := ws.Path("out.zip")
	n, err := Pack(ws.Path("tree"), dest)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.NoFileExists(t, dest+".tmp")

	r, err := Open(dest)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for e, err := range r.Entries() {
		require.NoError(t, err)
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{
		"Lockbox_x_totp.csv",
		"images/a.enc",
		"notes/note_5_50.json",
		"passwords/password_1_10.json",
		"passwords/password_2_20.json",
	}, names)

	e := findEntry(t, r, "passwords/password_2_20.json")
	assert.Equal(t, "passwords", e.Dir())
	assert.Equal(t, "password_2_20.json", e.Base())
	data, err := e.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, `{"id":2}`, string(data))
}

func findEntry(t *testing.T, r *Reader, name string) *Entry {
	t.Helper()
	for e, err := range r.Entries() {
		require.NoError(t, err)
		if e.Name == name {
			return e
		}
	}
	require.FailNow(t, "entry not found", name)
	return nil
}

func TestEntry_ExtractTo(t *testing.T) {
	dir := t.TempDir()
	zipPath := writeRawZip(t, dir, map[string]string{"images/scan.enc": "encrypted-bytes"})

	r, err := Open(zipPath)
	require.NoError(t, err)
	defer r.Close()

	e := findEntry(t, r, "images/scan.enc")

	dest := filepath.Join(dir, "restored", "scan.enc")
	require.NoError(t, e.ExtractTo(dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "encrypted-bytes", string(got))

	leftovers, err := filepath.Glob(filepath.Join(dir, "restored", ".extract-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestEntries_RejectsUnsafeNames(t *testing.T) {
	dir := t.TempDir()
	zipPath := writeRawZip(t, dir, map[string]string{
		"../escape.txt":        "x",
		"/abs.txt":             "x",
		"notes\\note_1_1.json": "{}",
	})

	r, err := Open(zipPath)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	var unsafe int
	for e, err := range r.Entries() {
		if err != nil {
			assert.True(t, errors.Is(err, ErrUnsafePath))
			unsafe++
			continue
		}
		names = append(names, e.Name)
	}
	assert.Equal(t, 2, unsafe)
	assert.Equal(t, []string{"notes/note_1_1.json"}, names)
}

func TestOpen_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.zip")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a zip"), 0o600))

	_, err := Open(path)
	assert.Error(t, err)
}

// writeRawZip builds a zip with exact entry names, bypassing Pack's cleaning.
func writeRawZip(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "raw.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}
