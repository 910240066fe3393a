package cortex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpen_StoreRecallAndVerify(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Open(ctx, dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &Fact{TenantID: "t1", Project: "p", Content: "cortex persists facts locally", FactType: FactKnowledge}
	stored, err := db.Store(ctx, f)
	require.NoError(t, err)
	require.NotZero(t, stored.ID)

	recalled, err := db.Recall(ctx, "t1", "p", 10)
	require.NoError(t, err)
	require.Len(t, recalled, 1)

	require.NoError(t, db.VerifyLedger(ctx, 0, 0))
}

func TestOpen_UsesProvidedConfig(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	cfg := Default()
	cfg.DBPath = "custom.db"
	cfg.AutoEmbed = false

	db, err := Open(ctx, dir, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &Fact{TenantID: "t1", Project: "p", Content: "no embedder configured", FactType: FactKnowledge}
	stored, err := db.Store(ctx, f)
	require.NoError(t, err)
	require.True(t, stored.EmbeddingPending)
}

func TestWatch_StopsWhenContextCancelled(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Open(ctx, dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	watchCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	err = db.Watch(watchCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
