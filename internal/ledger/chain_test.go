package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cortexdb/cortex/internal/model"
	"github.com/cortexdb/cortex/internal/storage"
	"github.com/cortexdb/cortex/internal/storage/sqlite"
)

func newTestBackend(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=private", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGenesisHash_MatchesKnownVector(t *testing.T) {
	require.Equal(t, "901131d838b17aac0f7885b81e03cbdc9f5157a00343d30ab22083685ed1416a", GenesisHash())
}

func TestAppend_ChainsHashes(t *testing.T) {
	store := newTestBackend(t)
	ctx := context.Background()

	var first, second *model.Transaction
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		first, err = Append(ctx, tx, "t1", "p", model.ActionStore, map[string]interface{}{"fact_id": float64(1)})
		if err != nil {
			return err
		}
		second, err = Append(ctx, tx, "t1", "p", model.ActionStore, map[string]interface{}{"fact_id": float64(2)})
		return err
	}))

	require.Equal(t, GenesisHash(), first.PrevHash)
	require.Equal(t, first.Hash, second.PrevHash)
	require.NotEqual(t, first.Hash, second.Hash)
}

func TestVerifyChain_AcceptsCleanChain(t *testing.T) {
	store := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := Append(ctx, tx, "t1", "p", model.ActionStore, map[string]interface{}{"fact_id": float64(1)}); err != nil {
			return err
		}
		_, err := Append(ctx, tx, "t1", "p", model.ActionStore, map[string]interface{}{"fact_id": float64(2)})
		return err
	}))

	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		return VerifyChain(ctx, tx, 0, 0)
	}))
}

// TestAppend_ChainsAcrossTenantsGlobally confirms prev_hash links to
// whichever entry precedes it globally by id, regardless of which
// tenant wrote either entry — the chain is one sequence shared by every
// tenant, not one chain per tenant.
func TestAppend_ChainsAcrossTenantsGlobally(t *testing.T) {
	store := newTestBackend(t)
	ctx := context.Background()

	var t1First, t2Second *model.Transaction
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		t1First, err = Append(ctx, tx, "t1", "p", model.ActionStore, map[string]interface{}{"fact_id": float64(1)})
		if err != nil {
			return err
		}
		t2Second, err = Append(ctx, tx, "t2", "p", model.ActionStore, map[string]interface{}{"fact_id": float64(2)})
		return err
	}))

	require.Equal(t, t1First.Hash, t2Second.PrevHash)

	require.NoError(t, store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		return VerifyChain(ctx, tx, 0, 0)
	}))
}

func TestVerifyChain_DetectsTamperedHash(t *testing.T) {
	store := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := Append(ctx, tx, "t1", "p", model.ActionStore, map[string]interface{}{"fact_id": float64(1)})
		return err
	}))

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		bad := &model.Transaction{TenantID: "t1", Project: "p", Action: model.ActionStore, Timestamp: time.Now().UTC(), PrevHash: "not-the-real-prev-hash", Hash: "deadbeef"}
		_, err := tx.AppendTransaction(ctx, bad)
		return err
	}))

	err := store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		return VerifyChain(ctx, tx, 0, 0)
	})
	require.Error(t, err)
}
