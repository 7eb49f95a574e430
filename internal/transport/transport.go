// Package transport moves backup archives to and from a remote file store.
//
// Every implementation exposes the same path namespace: slash-separated
// paths relative to the store's root, such as "Lockbox_Backups/backup_x.zip".
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Entry is one item of a directory listing.
type Entry struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Transport is the remote store capability the backup engine consumes.
// Calls are blocking and are not issued concurrently by one invocation.
type Transport interface {
	Exists(ctx context.Context, p string) (bool, error)
	Mkdir(ctx context.Context, p string) error
	List(ctx context.Context, dir string) ([]Entry, error)
	Put(ctx context.Context, p string, r io.Reader, size int64) error
	Get(ctx context.Context, p string) (io.ReadCloser, error)
	Delete(ctx context.Context, p string) error
}

// Kinds of transport failure, each with its own user-facing message.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnreachable
	KindTimeout
	KindAuthRejected
	KindNotFound
	KindPermissionDenied
	KindMethodNotAllowed
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindTimeout:
		return "timeout"
	case KindAuthRejected:
		return "auth_rejected"
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "unknown"
	}
}

// Message is the text shown to a user when an operation fails this way.
func (k Kind) Message() string {
	switch k {
	case KindUnreachable:
		return "Cannot reach the backup server. Check the address and the network connection."
	case KindTimeout:
		return "The backup server did not respond in time."
	case KindAuthRejected:
		return "The backup server rejected the username or password."
	case KindNotFound:
		return "The backup path does not exist on the server."
	case KindPermissionDenied:
		return "The backup server denied access to the backup path."
	case KindMethodNotAllowed:
		return "The server does not allow this operation. Check that the address points to a file store endpoint."
	default:
		return "The backup server returned an error."
	}
}

// ErrNotFound is returned, wrapped, when a path does not exist.
var ErrNotFound = errors.New("remote path not found")

// Error is a classified transport failure.
type Error struct {
	Op   string
	Path string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s (%v)", e.Op, e.Path, e.Kind.Message(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrNotFound) match classified not-found failures.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Kind == KindNotFound
}

// wrap classifies err for op on p. A nil err stays nil and an *Error is
// returned as is.
func wrap(op, p string, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	return &Error{Op: op, Path: p, Kind: Classify(err), Err: err}
}

// withKind builds an *Error with a kind the caller already knows.
func withKind(op, p string, kind Kind, err error) error {
	return &Error{Op: op, Path: p, Kind: kind, Err: err}
}

// IsNotFound reports whether err means the remote path does not exist.
func IsNotFound(err error) bool {
	return Classify(err) == KindNotFound
}

// Join builds a transport path from elements.
func Join(elem ...string) string {
	return strings.TrimPrefix(path.Join(elem...), "/")
}

// cleanPath normalizes p and rejects any ".." segment.
func cleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	for seg := range strings.SplitSeq(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("invalid remote path %q", p)
		}
	}
	return strings.TrimPrefix(path.Clean("/"+p), "/"), nil
}
