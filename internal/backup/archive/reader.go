package archive

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// MaxEntrySize bounds how much of a single entry ReadAll will load.
const MaxEntrySize = 64 << 20

var (
	// ErrUnsafePath marks an entry whose name escapes the archive root.
	ErrUnsafePath = errors.New("unsafe entry path")
	// ErrEntryTooLarge marks an entry larger than MaxEntrySize.
	ErrEntryTooLarge = errors.New("archive entry too large")
)

// Reader reads a zip archive from disk.
type Reader struct {
	zr *zip.ReadCloser
}

// Open opens the zip archive at path.
func Open(path string) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return &Reader{zr: zr}, nil
}

// Close releases the archive.
func (r *Reader) Close() error {
	return r.zr.Close()
}

// Entry is one file inside an archive.
type Entry struct {
	// Name is the cleaned slash-separated path inside the archive.
	Name string
	Size int64
	f    *zip.File
}

// Base returns the last element of the entry name.
func (e *Entry) Base() string {
	return path.Base(e.Name)
}

// Dir returns the top-level directory of the entry, or "" for root files.
func (e *Entry) Dir() string {
	dir, _, found := strings.Cut(e.Name, "/")
	if !found {
		return ""
	}
	return dir
}

// Open opens the entry for reading.
func (e *Entry) Open() (io.ReadCloser, error) {
	return e.f.Open()
}

// ReadAll loads the entry into memory, refusing entries over MaxEntrySize.
func (e *Entry) ReadAll() ([]byte, error) {
	rc, err := e.f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", e.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.Name, err)
	}
	if len(data) > MaxEntrySize {
		return nil, fmt.Errorf("%s: %w", e.Name, ErrEntryTooLarge)
	}
	return data, nil
}

// ExtractTo copies the entry to dest through a temporary file and a rename,
// so dest is either absent or complete.
func (e *Entry) ExtractTo(dest string) error {
	rc, err := e.f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", e.Name, err)
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".extract-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return fmt.Errorf("extract %s: %w", e.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("extract %s: %w", e.Name, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("extract %s: %w", e.Name, err)
	}
	return nil
}

// Entries iterates the archive's files in archive order. Directory entries
// are skipped. An entry with an unsafe name is yielded as an error and
// iteration continues.
func (r *Reader) Entries() iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		for _, f := range r.zr.File {
			if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
				continue
			}
			name, ok := cleanName(f.Name)
			if !ok {
				if !yield(nil, fmt.Errorf("%w: %q", ErrUnsafePath, f.Name)) {
					return
				}
				continue
			}
			if !yield(&Entry{Name: name, Size: int64(f.UncompressedSize64), f: f}, nil) {
				return
			}
		}
	}
}

// cleanName normalizes backslashes and rejects absolute paths and any name
// that climbs out of the archive root.
func cleanName(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") {
		return "", false
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}
