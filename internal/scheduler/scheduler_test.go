package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockboxapp/lockbox-server/internal/backup"
)

type fakeState struct {
	auto  bool
	last  time.Time
	prefs backup.BackupPreferences
}

func (f *fakeState) AutoBackup() bool                      { return f.auto }
func (f *fakeState) Preferences() backup.BackupPreferences { return f.prefs }
func (f *fakeState) LastBackupAt() time.Time               { return f.last }

type fakeBackupper struct {
	mu      sync.Mutex
	calls   []backup.BackupPreferences
	block   chan struct{}
	started chan struct{}
	err     error
}

func (f *fakeBackupper) Create(_ context.Context, prefs backup.BackupPreferences) (*backup.BackupReport, error) {
	f.mu.Lock()
	f.calls = append(f.calls, prefs)
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &backup.BackupReport{Success: true, ArchiveName: "backup_x.zip"}, nil
}

func newTestScheduler(t *testing.T, b Backupper, st State, now time.Time) *Scheduler {
	t.Helper()
	s, err := New("", b, st, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return s
}

func TestTick(t *testing.T) {
	now := time.Date(2026, 7, 1, 15, 0, 0, 0, time.UTC)
	prefs := backup.BackupPreferences{Passwords: true}

	tests := []struct {
		name  string
		state fakeState
		want  Outcome
		calls int
	}{
		{"disabled", fakeState{auto: false}, Disabled, 0},
		{"never backed up", fakeState{auto: true, prefs: prefs}, Ran, 1},
		{"recent", fakeState{auto: true, last: now.Add(-time.Hour), prefs: prefs}, NotDue, 0},
		{"yesterday", fakeState{auto: true, last: now.Add(-20 * time.Hour), prefs: prefs}, Ran, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackupper{}
			s := newTestScheduler(t, b, &tt.state, now)

			assert.Equal(t, tt.want, s.Tick(context.Background()))
			require.Len(t, b.calls, tt.calls)
			if tt.calls > 0 {
				assert.Equal(t, prefs, b.calls[0])
			}
		})
	}
}

func TestTick_FailureStillCountsAsRun(t *testing.T) {
	b := &fakeBackupper{err: errors.New("unreachable")}
	s := newTestScheduler(t, b, &fakeState{auto: true}, time.Now())

	assert.Equal(t, Ran, s.Tick(context.Background()))
	assert.Equal(t, Ran, s.Tick(context.Background()), "a failed run does not hold the slot")
}

func TestTick_SingleFlight(t *testing.T) {
	b := &fakeBackupper{block: make(chan struct{}), started: make(chan struct{})}
	s := newTestScheduler(t, b, &fakeState{auto: true}, time.Now())

	done := make(chan Outcome)
	go func() { done <- s.Tick(context.Background()) }()
	<-b.started

	assert.Equal(t, Busy, s.Tick(context.Background()))
	close(b.block)
	assert.Equal(t, Ran, <-done)
	assert.Len(t, b.calls, 1)
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New("every tuesday", &fakeBackupper{}, &fakeState{}, nil)
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s, err := New("*/5 * * * *", &fakeBackupper{}, &fakeState{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.True(t, s.Next().IsZero())

	s.Start(context.Background())
	assert.False(t, s.Next().IsZero())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "not_due", NotDue.String())
	assert.Equal(t, "busy", Busy.String())
}
