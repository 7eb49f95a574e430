package transport

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// Limited spaces out calls to a remote store so scheduled runs stay within
// a provider's request quota.
type Limited struct {
	next    Transport
	limiter *rate.Limiter
}

// NewLimited wraps next with a token bucket of rps requests per second.
// A non-positive rps returns next unchanged.
func NewLimited(next Transport, rps float64, burst int) Transport {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Exists waits for a token, then delegates.
func (l *Limited) Exists(ctx context.Context, p string) (bool, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return false, err
	}
	return l.next.Exists(ctx, p)
}

// Mkdir waits for a token, then delegates.
func (l *Limited) Mkdir(ctx context.Context, p string) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	return l.next.Mkdir(ctx, p)
}

// List waits for a token, then delegates.
func (l *Limited) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.List(ctx, dir)
}

// Put waits for a token, then delegates.
func (l *Limited) Put(ctx context.Context, p string, r io.Reader, size int64) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	return l.next.Put(ctx, p, r, size)
}

// Get waits for a token, then delegates.
func (l *Limited) Get(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.Get(ctx, p)
}

// Delete waits for a token, then delegates.
func (l *Limited) Delete(ctx context.Context, p string) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	return l.next.Delete(ctx, p)
}

// Close closes the wrapped transport when it holds a connection.
func (l *Limited) Close() error {
	if c, ok := l.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
