package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cortexdb/cortex/internal/cortexerr"
)

// wrapDBError wraps a database error with operation context, converting
// known sqlite conditions to cortexerr sentinels: sql.ErrNoRows becomes
// ErrNotFound, and a UNIQUE constraint violation becomes ErrConflict.
// Mirrors the teacher's wrapDBError (internal/storage/sqlite/errors.go)
// generalized to CORTEX's shared sentinel set.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, cortexerr.ErrNotFound)
	}
	if isUniqueConstraint(err) {
		return fmt.Errorf("%s: %w", op, cortexerr.ErrConflict)
	}
	return fmt.Errorf("%s: %w: %v", op, cortexerr.ErrBackend, err)
}

// isUniqueConstraint reports whether err is a sqlite UNIQUE/PRIMARY KEY
// constraint violation. modernc.org/sqlite surfaces these as plain
// *sqlite.Error values whose message contains "UNIQUE constraint failed"
// or "constraint failed: UNIQUE", so string matching is the only portable
// check without importing the driver's internal error codes.
func isUniqueConstraint(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "constraint failed: UNIQUE")
}
