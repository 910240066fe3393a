package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cortexdb/cortex/internal/cortexerr"
	"github.com/cortexdb/cortex/internal/model"
	"github.com/cortexdb/cortex/internal/storage"
	"github.com/cortexdb/cortex/internal/storage/sqlite"
)

func appendN(t *testing.T, store *sqlite.Store, tenantID string, n int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		for i := 0; i < n; i++ {
			if _, err := Append(ctx, tx, tenantID, "p", model.ActionStore, map[string]interface{}{"fact_id": float64(i)}); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestCheckpoint_NoOpBelowWindow(t *testing.T) {
	store := newTestBackend(t)
	ctx := context.Background()
	appendN(t, store, "t1", 3)

	var cp *model.Checkpoint
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		cp, err = Checkpoint(ctx, tx, 10, 0)
		return err
	}))
	require.Nil(t, cp)
}

func TestCheckpoint_BuildsRootAboveWindow(t *testing.T) {
	store := newTestBackend(t)
	ctx := context.Background()
	appendN(t, store, "t1", 5)

	var cp *model.Checkpoint
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		cp, err = Checkpoint(ctx, tx, 3, 0)
		return err
	}))
	require.NotNil(t, cp)
	require.Equal(t, 5, cp.LeafCount)
	require.NotEmpty(t, cp.RootHash)
}

func TestCheckpoint_NoOpWhenBatchYoungerThanMinAge(t *testing.T) {
	store := newTestBackend(t)
	ctx := context.Background()
	appendN(t, store, "t1", 5)

	var cp *model.Checkpoint
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		cp, err = Checkpoint(ctx, tx, 3, time.Hour)
		return err
	}))
	require.Nil(t, cp)
}

func TestVerifyFact_RoundTripsAfterCheckpoint(t *testing.T) {
	store := newTestBackend(t)
	ctx := context.Background()
	appendN(t, store, "t1", 4)

	var txs []*model.Transaction
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		txs, err = tx.ScanTransactions(ctx, 1, maxTxID)
		return err
	}))
	require.Len(t, txs, 4)

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := Checkpoint(ctx, tx, 4, 0)
		return err
	}))

	var incl *model.InclusionProof
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		incl, err = VerifyFact(ctx, tx, txs[2].ID)
		return err
	}))
	require.NotNil(t, incl)

	var lastCP *model.Checkpoint
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		lastCP, err = tx.LastCheckpoint(ctx)
		return err
	}))
	ok, err := VerifyInclusionProof(incl, lastCP.RootHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyFact_NotYetCheckpointed(t *testing.T) {
	store := newTestBackend(t)
	ctx := context.Background()
	appendN(t, store, "t1", 2)

	var txs []*model.Transaction
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		txs, err = tx.ScanTransactions(ctx, 1, maxTxID)
		return err
	}))

	err := store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := VerifyFact(ctx, tx, txs[0].ID)
		return err
	})
	require.True(t, errors.Is(err, cortexerr.ErrNotFound))
}

// TestVerifyFact_FindsEarlierNonLastCheckpoint rolls the chain past two
// checkpoint windows and confirms a fact whose creating transaction
// falls in the FIRST (non-last) checkpoint's range still verifies —
// VerifyFact must look up the checkpoint containing txID, not assume
// it's always the most recent one.
func TestVerifyFact_FindsEarlierNonLastCheckpoint(t *testing.T) {
	store := newTestBackend(t)
	ctx := context.Background()

	appendN(t, store, "t1", 3)
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := Checkpoint(ctx, tx, 3, 0)
		return err
	}))

	appendN(t, store, "t1", 3)
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := Checkpoint(ctx, tx, 3, 0)
		return err
	}))

	var txs []*model.Transaction
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		txs, err = tx.ScanTransactions(ctx, 1, maxTxID)
		return err
	}))
	require.Len(t, txs, 6)

	firstCheckpointTxID := txs[0].ID
	var firstCP *model.Checkpoint
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		firstCP, err = tx.CheckpointForTx(ctx, firstCheckpointTxID)
		return err
	}))
	require.NotNil(t, firstCP)

	var lastCP *model.Checkpoint
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		lastCP, err = tx.LastCheckpoint(ctx)
		return err
	}))
	require.NotEqual(t, firstCP.ID, lastCP.ID, "test requires two distinct checkpoints")

	var incl *model.InclusionProof
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		incl, err = VerifyFact(ctx, tx, firstCheckpointTxID)
		return err
	}))
	require.NotNil(t, incl)

	ok, err := VerifyInclusionProof(incl, firstCP.RootHash)
	require.NoError(t, err)
	require.True(t, ok)
}
