// Package storage is the local persistence capability used for quiz progress
// snapshots. Every backend is a flat key-value store; last write wins.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-player/internal/config"
	"github.com/stemsi/exstem-player/internal/database"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is the {get, set, remove} capability injected into controllers.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Open builds the Store selected by cfg.StorageDriver. The returned close
// function releases any connection the backend holds.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StorageDriver {
	case config.StorageMemory:
		return NewMemoryStore(), noop, nil

	case config.StorageFile, "":
		s, err := NewFileStore(cfg.StorageDir)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil

	case config.StorageSQLite:
		s, err := NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.StorageRedis:
		rdb, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(rdb, cfg.SnapshotTTL), rdb.Close, nil

	case config.StoragePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresStore(pool), func() error { pool.Close(); return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
