package sqlite

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

// newTestStore opens an isolated, private in-memory database per test,
// following the teacher's test-isolation rationale in
// internal/storage/sqlite/test_helpers.go: the bare ":memory:" DSN shares
// one database across every connection in the process, which is exactly
// what a private-cache file DSN avoids.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	dsn := "file:" + t.Name() + "?mode=memory&cache=private"
	store, err := Open(ctx, dsn, zerolog.Nop())
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close test store: %v", err)
		}
	})
	return store
}
