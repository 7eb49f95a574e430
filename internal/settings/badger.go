package settings

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

const keySettings = "settings:engine"

// BadgerRepository stores Settings as one JSON value in a Badger database.
type BadgerRepository struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadger opens or creates the settings database at path.
func OpenBadger(path string, logger *slog.Logger) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("settings database opened", "path", path)
	return &BadgerRepository{db: db, logger: logger}, nil
}

// Load implements Repository.
func (r *BadgerRepository) Load(ctx context.Context) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}

	s := Defaults()
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keySettings))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &s)
		})
	})
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return s, nil
}

// Save implements Repository.
func (r *BadgerRepository) Save(ctx context.Context, s Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keySettings), data)
	})
}

// Close closes the database.
func (r *BadgerRepository) Close() error {
	r.logger.Info("closing settings database")
	return r.db.Close()
}
