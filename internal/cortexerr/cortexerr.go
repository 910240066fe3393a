// Package cortexerr defines the error-kind sentinels shared by every
// component, mirroring the sentinel + wrap style of the teacher's
// internal/storage/sqlite/errors.go: package-level errors.New values,
// wrapped with "%s: %w" at call sites, and matched with errors.Is.
package cortexerr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for malformed input: empty project, oversize
	// content, unknown fact_type, an out-of-range vote value, and similar.
	ErrValidation = errors.New("validation")

	// ErrNotFound is returned when a fact, agent, or ledger entry does not
	// exist in the requested scope.
	ErrNotFound = errors.New("not found")

	// ErrScopeViolation is returned when an operation attempts to read or
	// mutate a row outside the caller's tenant.
	ErrScopeViolation = errors.New("scope violation")

	// ErrBackend is returned for storage/I-O failures. Callers may retry.
	ErrBackend = errors.New("backend")

	// ErrIntegrity is returned when the ledger's invariants cannot be
	// maintained: a broken hash chain, or a canonical-form mismatch. Always
	// surfaced, never silently recovered.
	ErrIntegrity = errors.New("integrity")

	// ErrEmbedderUnavailable is returned when embedding a fact failed for a
	// known non-fatal reason. The triggering write still commits.
	ErrEmbedderUnavailable = errors.New("embedder unavailable")

	// ErrConflict is returned when a concurrent mutation changed the row the
	// caller intended to modify.
	ErrConflict = errors.New("conflict")
)

// Wrap attaches an operation label to err, preserving errors.Is matching
// against the sentinels above. Returns nil if err is nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Wrapf is Wrap with a formatted operation label.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether err wraps target, delegating to errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
