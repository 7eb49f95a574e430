// Package archive lays out backup trees on disk and packs them into zip
// archives, and reads those archives back entry by entry.
package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lockboxapp/lockbox-server/internal/id"
)

// Workspace is a private temporary directory owned by one backup or restore
// invocation. Close removes it and everything under it.
type Workspace struct {
	dir string
}

// NewWorkspace creates a fresh directory under base, or under the system
// temporary directory when base is empty.
func NewWorkspace(base string) (*Workspace, error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace base: %w", err)
	}
	name, err := id.Generate("ws")
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(base, name)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace root.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path joins elem onto the workspace root.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.dir}, elem...)...)
}

// WriteFile writes data at a slash-separated path relative to the workspace,
// creating parent directories.
func (w *Workspace) WriteFile(rel string, data []byte) error {
	path := w.Path(filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// Close removes the workspace. It is safe to call more than once.
func (w *Workspace) Close() error {
	if w == nil || w.dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}
