package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cortexdb/cortex/internal/model"
	"github.com/cortexdb/cortex/internal/storage"
)

func TestStore_InsertAndGetFact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	f := &model.Fact{
		TenantID:       "tenant-a",
		Project:        "proj",
		Content:        "water boils at 100C",
		FactType:       model.FactKnowledge,
		Tags:           []string{"physics", "water"},
		Confidence:     model.ConfidenceStated,
		ValidFrom:      time.Now().UTC(),
		ConsensusScore: model.DefaultConsensusScore,
	}

	var id int64
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		id, err = tx.InsertFact(ctx, f)
		return err
	}))
	require.NotZero(t, id)

	var fetched *model.Fact
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		fetched, err = tx.GetFact(ctx, "tenant-a", id)
		return err
	}))
	require.NotNil(t, fetched)
	require.Equal(t, f.Content, fetched.Content)
	require.ElementsMatch(t, []string{"physics", "water"}, fetched.Tags)
}

func TestStore_ScanFactsExcludesInactiveByDefault(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)

	active := &model.Fact{TenantID: "t1", Project: "p", Content: "active", FactType: model.FactKnowledge, Confidence: model.ConfidenceStated, ValidFrom: past, ConsensusScore: 1.0}
	expired := &model.Fact{TenantID: "t1", Project: "p", Content: "expired", FactType: model.FactKnowledge, Confidence: model.ConfidenceStated, ValidFrom: past, ValidUntil: &past, ConsensusScore: 1.0}

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.InsertFact(ctx, active); err != nil {
			return err
		}
		_, err := tx.InsertFact(ctx, expired)
		return err
	}))

	var facts []*model.Fact
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		facts, err = tx.ScanFacts(ctx, storage.FactFilter{TenantID: "t1", Project: "p"})
		return err
	}))
	require.Len(t, facts, 1)
	require.Equal(t, "active", facts[0].Content)
}

func TestStore_LedgerAppendAndLast(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx1 := &model.Transaction{TenantID: "t1", Project: "p", Action: model.ActionStore, Detail: map[string]interface{}{"fact_id": 1}, Timestamp: time.Now().UTC(), PrevHash: "genesis", Hash: "h1"}

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.AppendTransaction(ctx, tx1)
		return err
	}))

	var last *model.Transaction
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		last, err = tx.LastTransaction(ctx)
		return err
	}))
	require.NotNil(t, last)
	require.Equal(t, "h1", last.Hash)
}

func TestStore_LastTransactionEmptyChain(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var last *model.Transaction
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		last, err = tx.LastTransaction(ctx)
		return err
	}))
	require.Nil(t, last)
}

func TestStore_VoteUpsertIsIdempotentPerAgent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v := &model.Vote{ID: "v1", FactID: 1, AgentID: "agent-1", Value: 0.5, VoteWeight: 1.0, DecayFactor: 1.0, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertVote(ctx, v)
	}))

	v.Value = -0.5
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertVote(ctx, v)
	}))

	var votes []*model.Vote
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		votes, err = tx.VotesForFact(ctx, 1)
		return err
	}))
	require.Len(t, votes, 1)
	require.Equal(t, -0.5, votes[0].Value)
}

func TestStore_ConfigRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.SetConfig(ctx, "last_checkpoint_tx_id", "42")
	}))

	var value string
	var ok bool
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		value, ok, err = tx.GetConfig(ctx, "last_checkpoint_tx_id")
		return err
	}))
	require.True(t, ok)
	require.Equal(t, "42", value)

	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, ok, err := tx.GetConfig(ctx, "missing")
		require.False(t, ok)
		return err
	}))
}
