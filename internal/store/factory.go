// internal/store/factory.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
)

// Open builds the history store selected by cfg.Backend. The returned close
// function releases any connection pool and is always safe to call.
func Open(ctx context.Context, cfg config.HistoryConfig, logger *zap.Logger) (schemas.HistoryStore, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case config.HistoryBackendMemory:
		return NewMemoryStore(cfg.MaxEntries), noop, nil

	case config.HistoryBackendFile, "":
		path, err := homedir.Expand(cfg.Path)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to expand history path %q: %w", cfg.Path, err)
		}
		return NewFileStore(path, cfg.MaxEntries), noop, nil

	case config.HistoryBackendPostgres:
		if cfg.DSN == "" {
			return nil, noop, fmt.Errorf("%w: history.dsn is required for the postgres backend", schemas.ErrConfiguration)
		}
		poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, noop, fmt.Errorf("unable to parse PGX pool config: %w", err)
		}
		// One writer per process; a small pool is plenty.
		poolConfig.MaxConns = 4
		poolConfig.MinConns = 1
		poolConfig.MaxConnLifetime = 1 * time.Hour
		poolConfig.MaxConnIdleTime = 30 * time.Minute

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, noop, fmt.Errorf("unable to create PGX connection pool: %w", err)
		}
		s, err := NewPostgres(ctx, pool, cfg.MaxEntries, logger)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return s, pool.Close, nil

	default:
		return nil, noop, fmt.Errorf("%w: unsupported history backend %q", schemas.ErrConfiguration, cfg.Backend)
	}
}
