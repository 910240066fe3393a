package engine

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cortexdb/cortex/internal/telemetry"
)

// Reconnector is the subset of sqlite.Store that Watch needs: reopening
// the database handle when the backing file is externally replaced.
// Declared locally, narrow-interface style, so internal/engine doesn't
// import internal/storage/sqlite directly.
type Reconnector interface {
	Reconnect(ctx context.Context) error
}

// watchDebounce coalesces a burst of filesystem events into one
// reconnect attempt, mirroring the teacher's show_watch debounce
// pattern (cmd/bd/show_display.go) rather than reconnecting on every
// individual write.
const watchDebounce = 200 * time.Millisecond

// Watch watches dbPath's parent directory and calls reconnector.Reconnect
// whenever the database file itself is replaced (a restore, an external
// copy-in) — spec's ambient-stack fsnotify entry. It blocks until ctx is
// canceled; callers run it in its own goroutine.
func Watch(ctx context.Context, dbPath string, reconnector Reconnector) error {
	logger := telemetry.NewLogger("engine.watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(dbPath)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	base := filepath.Base(dbPath)

	var debounce *time.Timer
	reconnect := func() {
		if err := reconnector.Reconnect(ctx); err != nil {
			logger.Error().Err(err).Msg("reconnect after external file change failed")
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if name != base && !strings.HasPrefix(name, base) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, reconnect)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watch error")
		}
	}
}
