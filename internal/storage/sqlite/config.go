package sqlite

import (
	"context"
	"database/sql"
	"errors"
)

// SetConfig stores a persistent engine-level key/value pair, used by
// internal/consensus to record a per-(fact, transition) reward marker so
// a transition rewards its voters only once. Adapted from the
// teacher's config table (internal/storage/sqlite/config.go) with the
// issue-tracker-specific orphan-handling/custom-type helpers dropped.
func (t *txImpl) SetConfig(ctx context.Context, key, value string) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	return wrapDBError("set config", err)
}

// GetConfig fetches a stored key. The bool return reports presence,
// distinguishing a genuinely empty value from an absent key.
func (t *txImpl) GetConfig(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := t.tx.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, wrapDBError("get config", err)
	}
	return value, true, nil
}
