package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lockboxapp/lockbox-server/internal/domain"
	"github.com/lockboxapp/lockbox-server/internal/transport"
)

// memStore is an in-memory RecordStore.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	passwords []domain.PasswordEntry
	items     []domain.SecureItem
	history   []domain.GeneratedPassword
	// rejectTitles makes creation fail for these titles.
	rejectTitles map[string]bool
}

func newMemStore() *memStore {
	return &memStore{rejectTitles: map[string]bool{}}
}

func (m *memStore) ListPasswords(context.Context) ([]domain.PasswordEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PasswordEntry(nil), m.passwords...), nil
}

func (m *memStore) ListSecureItems(context.Context) ([]domain.SecureItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SecureItem(nil), m.items...), nil
}

func (m *memStore) ListGeneratorHistory(context.Context) ([]domain.GeneratedPassword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.GeneratedPassword(nil), m.history...), nil
}

func (m *memStore) CreatePassword(_ context.Context, p *domain.PasswordEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejectTitles[p.Title] {
		return 0, errors.New("constraint failed")
	}
	m.nextID++
	cp := *p
	cp.ID = m.nextID
	m.passwords = append(m.passwords, cp)
	return cp.ID, nil
}

func (m *memStore) CreateSecureItem(_ context.Context, item *domain.SecureItem) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejectTitles[item.Title] {
		return 0, errors.New("constraint failed")
	}
	m.nextID++
	cp := *item
	cp.ID = m.nextID
	m.items = append(m.items, cp)
	return cp.ID, nil
}

func (m *memStore) AddGeneratorHistory(_ context.Context, g *domain.GeneratedPassword) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, *g)
	return nil
}

func (m *memStore) PasswordExists(_ context.Context, title, username, website string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.passwords {
		if p.Title == title && p.Username == username && p.Website == website {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) SecureItemExists(_ context.Context, itemType domain.ItemType, title string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.ItemType == itemType && it.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) HistoryExists(_ context.Context, password string, createdAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.history {
		if g.Password == password && g.CreatedAt.UnixMilli() == createdAt.UnixMilli() {
			return true, nil
		}
	}
	return false, nil
}

// memSettings is an in-memory Settings.
type memSettings struct {
	mu         sync.Mutex
	encryption EncryptionConfig
	lastBackup time.Time
}

func (m *memSettings) Encryption() EncryptionConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.encryption
}

func (m *memSettings) RecordBackup(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastBackup = at
	return nil
}

// failingPut rejects uploads the way an unreachable server would.
type failingPut struct {
	transport.Transport
}

func (f failingPut) Put(_ context.Context, p string, _ io.Reader, _ int64) error {
	return &transport.Error{Op: "put", Path: p, Kind: transport.KindUnreachable, Err: fmt.Errorf("dial tcp: connection refused")}
}

// recordingObserver remembers the last outcomes it saw.
type recordingObserver struct {
	backups, restores int
	lastErr           error
}

func (o *recordingObserver) BackupFinished(_ *BackupReport, _ time.Duration, err error) {
	o.backups++
	o.lastErr = err
}

func (o *recordingObserver) RestoreFinished(_ *RestoreReport, _ time.Duration, err error) {
	o.restores++
	o.lastErr = err
}

type testEnv struct {
	svc      *Service
	store    *memStore
	settings *memSettings
	remote   transport.Transport
	remoteFS string
	imageDir string
	workDir  string
}

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// newTestEnv wires a Service over an in-memory store and a local remote.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	remoteFS := filepath.Join(root, "remote")
	remote, err := transport.NewLocal(remoteFS)
	require.NoError(t, err)
	return newTestEnvWithRemote(t, remote, remoteFS)
}

func newTestEnvWithRemote(t *testing.T, remote transport.Transport, remoteFS string) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		store:    newMemStore(),
		settings: &memSettings{},
		remote:   remote,
		remoteFS: remoteFS,
		imageDir: filepath.Join(root, "images"),
		workDir:  filepath.Join(root, "work"),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.svc = NewService(env.store, remote, env.settings, Config{
		ImageDir: env.imageDir,
		WorkDir:  env.workDir,
	}, logger)
	env.svc.now = func() time.Time { return testNow }
	return env
}

func ms(v int64) time.Time {
	return time.UnixMilli(v)
}

func int64Ptr(v int64) *int64 {
	return &v
}
