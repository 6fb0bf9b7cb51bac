// internal/store/postgres.go
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
)

// DBPool is the subset of pgxpool.Pool the store uses, so tests can swap in
// a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS command_history (
	id TEXT PRIMARY KEY,
	command TEXT NOT NULL,
	actions TEXT NOT NULL,
	success BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps history in a command_history table. Rows use the same
// flattened action column as the file store.
type PostgresStore struct {
	pool       DBPool
	log        *zap.Logger
	maxEntries int
}

var _ schemas.HistoryStore = (*PostgresStore)(nil)

// NewPostgres verifies the connection and ensures the table exists.
func NewPostgres(ctx context.Context, pool DBPool, maxEntries int, logger *zap.Logger) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create command_history table: %w", err)
	}
	return &PostgresStore{
		pool:       pool,
		log:        logger.Named("store"),
		maxEntries: maxEntries,
	}, nil
}

func (s *PostgresStore) Append(ctx context.Context, entry schemas.HistoryEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO command_history (id, command, actions, success, created_at) VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.Command, JoinActions(entry.Actions), entry.Success, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	if s.maxEntries > 0 {
		tag, err := s.pool.Exec(ctx,
			`DELETE FROM command_history WHERE id NOT IN (SELECT id FROM command_history ORDER BY created_at DESC LIMIT $1)`,
			s.maxEntries,
		)
		if err != nil {
			// The insert already succeeded; the next append trims again.
			s.log.Warn("Failed to trim command history.", zap.Error(err))
		} else if tag.RowsAffected() > 0 {
			s.log.Debug("Trimmed command history.", zap.Int64("removed", tag.RowsAffected()))
		}
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]schemas.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, command, actions, success, created_at FROM command_history ORDER BY created_at DESC LIMIT $1`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []schemas.HistoryEntry
	for rows.Next() {
		var r fileRow
		if err := rows.Scan(&r.ID, &r.Command, &r.Actions, &r.Success, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, r.entry())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM command_history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
