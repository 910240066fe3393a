// Package sqlite implements internal/storage.Backend on top of a single
// modernc.org/sqlite file, following the teacher's single-writer,
// WAL-mode, MaxOpenConns(1) discipline (internal/storage/sqlite in
// steveyegge-beads, and the migration-file comment on avoiding deadlocks
// under MaxOpenConns(1)).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/rs/zerolog"

	"github.com/cortexdb/cortex/internal/storage"
)

// Store is the sqlite-backed storage.Backend. A single *sql.DB with
// MaxOpenConns(1) gives CORTEX its single in-process writer; View
// transactions use that same single connection, so reads and writes run
// one at a time.
//
// reconnectMu guards db against concurrent use during Reconnect: every
// WithTx/View holds a read lock for the duration of its transaction,
// and Reconnect takes the write lock so no in-flight transaction has its
// connection swapped out from under it (the teacher's
// internal/storage/sqlite reconnectMu pattern, decision_points.go).
type Store struct {
	reconnectMu sync.RWMutex
	db          *sql.DB
	path        string
	logger      zerolog.Logger
}

// Open creates or opens the database at path, applies pragmas, and runs
// schema migrations.
func Open(ctx context.Context, path string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, logger: logger}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: apply %q: %w", pragma, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	logger.Debug().Str("path", path).Msg("sqlite store opened")
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Reconnect closes and reopens the database handle at the same path,
// reapplying pragmas and migrations. It exists for internal/engine's
// fsnotify watch on db_path's directory (spec's ambient stack): if the
// backend file is externally replaced (a restore, a copy-in), the stale
// *sql.DB handle would otherwise keep reading/writing the old inode.
// Reconnect takes the write lock so no transaction is in flight when the
// handle is swapped (decision_points.go's reconnectMu pattern).
func (s *Store) Reconnect(ctx context.Context) error {
	s.reconnectMu.Lock()
	defer s.reconnectMu.Unlock()

	if err := s.db.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("sqlite: close stale handle during reconnect")
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("sqlite: reopen %s: %w", s.path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("sqlite: apply %q on reconnect: %w", pragma, err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite: migrate on reconnect: %w", err)
	}

	s.db = db
	s.logger.Info().Str("path", s.path).Msg("sqlite store reconnected")
	return nil
}

// WithTx runs fn inside a single write transaction, rolling back on any
// returned error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.reconnectMu.RLock()
	defer s.reconnectMu.RUnlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}

	t := &txImpl{tx: sqlTx}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit tx: %w", err)
	}
	committed = true
	return nil
}

// View runs fn against a read-only transaction. sqlite has no true
// read-only transaction mode over database/sql, so View uses the same
// BeginTx machinery as WithTx and simply never calls a mutating method;
// the transaction is always rolled back, never committed.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.reconnectMu.RLock()
	defer s.reconnectMu.RUnlock()

	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: false})
	if err != nil {
		return fmt.Errorf("sqlite: begin view: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	t := &txImpl{tx: sqlTx}
	return fn(ctx, t)
}

// txImpl implements storage.Tx over a *sql.Tx. Every Tx method in this
// package hangs off txImpl; see facts.go, ledger.go, agents.go, votes.go,
// embeddings.go, config.go.
type txImpl struct {
	tx *sql.Tx
}
