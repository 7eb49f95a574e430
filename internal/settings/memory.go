package settings

import (
	"context"
	"sync"
)

// MemoryRepository keeps Settings in memory. It backs tests and the
// one-shot CLI when no data directory is configured.
type MemoryRepository struct {
	mu    sync.Mutex
	saved *Settings
	// SaveErr, when set, is returned by every Save.
	SaveErr error
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Load implements Repository.
func (m *MemoryRepository) Load(ctx context.Context) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return Defaults(), nil
	}
	return *m.saved, nil
}

// Save implements Repository.
func (m *MemoryRepository) Save(ctx context.Context, s Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.saved = &s
	return nil
}
