package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cortexdb/cortex/internal/config"
	"github.com/cortexdb/cortex/internal/embedding"
	"github.com/cortexdb/cortex/internal/model"
	"github.com/cortexdb/cortex/internal/storage/sqlite"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	store, err := sqlite.Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=private", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Default()
	return New(store, cfg, embedding.NewLocal(), nil, zerolog.Nop())
}

func TestEngine_StoreRecallSearchRoundTrip(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	f := &model.Fact{TenantID: "t1", Project: "p", Content: "the sky is blue", FactType: model.FactKnowledge}
	stored, err := eng.Store(ctx, f)
	require.NoError(t, err)
	require.NotZero(t, stored.ID)
	require.False(t, stored.EmbeddingPending)

	recalled, err := eng.Recall(ctx, "t1", "p", 10)
	require.NoError(t, err)
	require.Len(t, recalled, 1)

	hits, err := eng.Search(ctx, "t1", "p", "sky", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Equal(t, stored.ID, hits[0].FactID)
}

func TestEngine_VoteAndStats(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	f := &model.Fact{TenantID: "t1", Project: "p", Content: "claim", FactType: model.FactKnowledge}
	stored, err := eng.Store(ctx, f)
	require.NoError(t, err)

	_, err = eng.Vote(ctx, "t1", stored.ID, "agent-1", 1, "")
	require.NoError(t, err)

	stats, err := eng.Stats(ctx, "t1")
	require.NoError(t, err)
	require.GreaterOrEqual(t, stats.LedgerLength, int64(2))
	require.Equal(t, 1, stats.AgentCount)
}

func TestEngine_VerifyLedgerAndVerifyFact(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	f := &model.Fact{TenantID: "t1", Project: "p", Content: "claim", FactType: model.FactKnowledge}
	stored, err := eng.Store(ctx, f)
	require.NoError(t, err)

	require.NoError(t, eng.VerifyLedger(ctx, 0, 0))

	_, err = eng.Checkpoint(ctx)
	require.NoError(t, err)

	// force a checkpoint regardless of window by swapping in a config with a tiny window
	cfg := config.Default()
	cfg.CheckpointWindow = 1
	cfg.CheckpointMinAgeSecond = 0
	eng.cfg = cfg
	cp, err := eng.Checkpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, cp)

	proof, err := eng.VerifyFact(ctx, "t1", stored.ID)
	require.NoError(t, err)
	require.NotNil(t, proof)
}

func TestEngine_UpdateAndHistory(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	f := &model.Fact{TenantID: "t1", Project: "p", Content: "v1", FactType: model.FactKnowledge}
	stored, err := eng.Store(ctx, f)
	require.NoError(t, err)

	updated, err := eng.Update(ctx, "t1", stored.ID, "v2", nil)
	require.NoError(t, err)
	require.Equal(t, stored.LineageID, updated.LineageID)

	lineage, err := eng.Lineage(ctx, "t1", "p", stored.ID)
	require.NoError(t, err)
	require.Len(t, lineage, 2)

	timeline, err := eng.History(ctx, "t1", "p", time.Time{})
	require.NoError(t, err)
	require.Len(t, timeline, 2)
}

func TestEngine_Bootstrap_RepopulatesIndexFromStorage(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	f := &model.Fact{TenantID: "t1", Project: "p", Content: "rebuild me", FactType: model.FactKnowledge}
	stored, err := eng.Store(ctx, f)
	require.NoError(t, err)

	eng.index.Remove("t1", stored.ID) // simulate a fresh process with an empty index
	require.NoError(t, eng.Bootstrap(ctx, "t1"))

	hits, err := eng.Search(ctx, "t1", "p", "rebuild", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
}
