package transport

import (
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"time"

	"github.com/studio-b12/gowebdav"
)

// WebDAVConfig addresses a WebDAV collection.
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

// WebDAV stores archives on a WebDAV server.
type WebDAV struct {
	client *gowebdav.Client
}

// NewWebDAV creates a client. It does not contact the server.
func NewWebDAV(cfg WebDAVConfig) *WebDAV {
	c := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	return &WebDAV{client: c}
}

// davError classifies gowebdav failures, which carry the HTTP status inside
// an *os.PathError.
func davError(op, p string, err error) error {
	if err == nil {
		return nil
	}
	var se gowebdav.StatusError
	if errors.As(err, &se) {
		if k := statusKind(se.Status); k != KindUnknown {
			return withKind(op, p, k, err)
		}
	}
	return wrap(op, p, err)
}

// Exists reports whether p exists.
func (w *WebDAV) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	clean, err := cleanPath(p)
	if err != nil {
		return false, err
	}
	if _, err := w.client.Stat("/" + clean); err != nil {
		err = davError("stat", p, err)
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Mkdir creates the collection p and any missing parents. Servers answer
// MKCOL on an existing collection with 405, so existence is checked first.
func (w *WebDAV) Mkdir(ctx context.Context, p string) error {
	ok, err := w.Exists(ctx, p)
	if err != nil || ok {
		return err
	}
	clean, err := cleanPath(p)
	if err != nil {
		return err
	}
	return davError("mkdir", p, w.client.MkdirAll("/"+clean, 0o755))
}

// List returns the members of the collection dir sorted by name.
func (w *WebDAV) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanPath(dir)
	if err != nil {
		return nil, err
	}
	infos, err := w.client.ReadDir("/" + clean)
	if err != nil {
		return nil, davError("list", dir, err)
	}
	return fileInfoEntries(clean, infos), nil
}

// Put uploads r to p.
func (w *WebDAV) Put(ctx context.Context, p string, r io.Reader, _ int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := cleanPath(p)
	if err != nil {
		return err
	}
	return davError("put", p, w.client.WriteStream("/"+clean, r, 0o644))
}

// Get downloads p.
func (w *WebDAV) Get(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanPath(p)
	if err != nil {
		return nil, err
	}
	rc, err := w.client.ReadStream("/" + clean)
	if err != nil {
		return nil, davError("get", p, err)
	}
	return rc, nil
}

// Delete removes p. A missing p is reported as not found.
func (w *WebDAV) Delete(ctx context.Context, p string) error {
	ok, err := w.Exists(ctx, p)
	if err != nil {
		return err
	}
	if !ok {
		return withKind("delete", p, KindNotFound, ErrNotFound)
	}
	clean, _ := cleanPath(p)
	return davError("delete", p, w.client.Remove("/"+clean))
}

func fileInfoEntries(dir string, infos []os.FileInfo) []Entry {
	entries := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, Entry{
			Name:    fi.Name(),
			Path:    Join(dir, fi.Name()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
			IsDir:   fi.IsDir(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}
