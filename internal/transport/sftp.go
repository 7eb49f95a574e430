package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPConfig addresses a directory on an SSH server.
type SFTPConfig struct {
	Addr           string
	Username       string
	Password       string
	KnownHostsPath string
	Root           string
	Timeout        time.Duration
}

// SFTP stores archives over SSH.
type SFTP struct {
	conn   *ssh.Client
	client *sftp.Client
	root   string
}

// DialSFTP connects and authenticates. The server's host key must be listed
// in cfg.KnownHostsPath.
func DialSFTP(cfg SFTPConfig) (*SFTP, error) {
	if cfg.KnownHostsPath == "" {
		return nil, errors.New("sftp: known_hosts path is required")
	}
	hostKeys, err := knownhosts.New(cfg.KnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("sftp: load known_hosts: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	conn, err := ssh.Dial("tcp", cfg.Addr, &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	})
	if err != nil {
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, withKind("connect", cfg.Addr, KindAuthRejected, err)
		}
		return nil, wrap("connect", cfg.Addr, err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, wrap("connect", cfg.Addr, err)
	}
	s := NewSFTP(client, cfg.Root)
	s.conn = conn
	return s, nil
}

// NewSFTP wraps an established client rooted at root.
func NewSFTP(client *sftp.Client, root string) *SFTP {
	if root == "" {
		root = "."
	}
	return &SFTP{client: client, root: root}
}

// Close ends the SFTP session and the SSH connection.
func (s *SFTP) Close() error {
	err := s.client.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *SFTP) resolve(p string) (string, error) {
	clean, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	return path.Join(s.root, clean), nil
}

// Exists reports whether p exists.
func (s *SFTP) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	full, err := s.resolve(p)
	if err != nil {
		return false, err
	}
	if _, err := s.client.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, wrap("stat", p, err)
	}
	return true, nil
}

// Mkdir creates p and any missing parents.
func (s *SFTP) Mkdir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	return wrap("mkdir", p, s.client.MkdirAll(full))
}

// List returns the entries of dir sorted by name.
func (s *SFTP) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(dir)
	if err != nil {
		return nil, err
	}
	infos, err := s.client.ReadDir(full)
	if err != nil {
		return nil, wrap("list", dir, err)
	}
	clean, _ := cleanPath(dir)
	return fileInfoEntries(clean, infos), nil
}

// Put writes r to a temporary name and renames it over p.
func (s *SFTP) Put(ctx context.Context, p string, r io.Reader, _ int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	tmp := path.Join(path.Dir(full), ".upload-"+path.Base(full))
	f, err := s.client.Create(tmp)
	if err != nil {
		return wrap("put", p, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		s.client.Remove(tmp)
		return wrap("put", p, err)
	}
	if err := f.Close(); err != nil {
		s.client.Remove(tmp)
		return wrap("put", p, err)
	}
	if err := s.client.PosixRename(tmp, full); err != nil {
		// Servers without the posix-rename extension refuse to overwrite.
		s.client.Remove(full)
		if err := s.client.Rename(tmp, full); err != nil {
			s.client.Remove(tmp)
			return wrap("put", p, err)
		}
	}
	return nil
}

// Get opens p for reading.
func (s *SFTP) Get(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	f, err := s.client.Open(full)
	if err != nil {
		return nil, wrap("get", p, err)
	}
	return f, nil
}

// Delete removes p.
func (s *SFTP) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if _, err := s.client.Stat(full); err != nil {
		return wrap("delete", p, err)
	}
	return wrap("delete", p, s.client.Remove(full))
}
