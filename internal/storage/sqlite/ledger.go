package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cortexdb/cortex/internal/canon"
	"github.com/cortexdb/cortex/internal/model"
)

// AppendTransaction inserts the next ledger entry. internal/ledger
// computes Hash/PrevHash before calling this; the row is otherwise
// append-only (spec §4.4 — no UPDATE/DELETE ever targets this table).
func (t *txImpl) AppendTransaction(ctx context.Context, tx *model.Transaction) (int64, error) {
	detail, err := canon.Encode(tx.Detail)
	if err != nil {
		return 0, fmt.Errorf("encode transaction detail: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO transactions (tenant_id, project, action, detail, timestamp, prev_hash, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, tx.TenantID, tx.Project, string(tx.Action), string(detail), canon.Timestamp(tx.Timestamp), tx.PrevHash, tx.Hash)
	if err != nil {
		return 0, wrapDBError("append transaction", err)
	}
	return result.LastInsertId()
}

// LastTransaction returns the chain's most recent entry, or nil if it's
// empty (the caller then hashes against the genesis seed, spec §4.4).
// The chain is global across tenants (spec §2, §5(3): "totally ordered
// globally by id"), so this is not scoped to a tenant_id.
func (t *txImpl) LastTransaction(ctx context.Context) (*model.Transaction, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, tenant_id, project, action, detail, timestamp, prev_hash, hash
		FROM transactions ORDER BY id DESC LIMIT 1
	`)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapDBError("last transaction", err)
	}
	return tx, nil
}

// ScanTransactions returns every transaction in [fromID, toID], ordered
// by id ascending, across all tenants — the global range internal/ledger
// both verifies and hashes into a checkpoint's Merkle tree.
func (t *txImpl) ScanTransactions(ctx context.Context, fromID, toID int64) ([]*model.Transaction, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, tenant_id, project, action, detail, timestamp, prev_hash, hash
		FROM transactions WHERE id >= ? AND id <= ? ORDER BY id ASC
	`, fromID, toID)
	if err != nil {
		return nil, wrapDBError("scan transactions", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, wrapDBError("scan transaction row", err)
		}
		out = append(out, tx)
	}
	return out, wrapDBError("iterate transaction rows", rows.Err())
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var tx model.Transaction
	var action, detailRaw, timestamp string

	if err := row.Scan(&tx.ID, &tx.TenantID, &tx.Project, &action, &detailRaw, &timestamp, &tx.PrevHash, &tx.Hash); err != nil {
		return nil, err
	}
	tx.Action = model.Action(action)

	if detailRaw != "" {
		if err := json.Unmarshal([]byte(detailRaw), &tx.Detail); err != nil {
			return nil, fmt.Errorf("unmarshal detail: %w", err)
		}
	}

	parsed, err := time.Parse("2006-01-02T15:04:05.000Z", timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	tx.Timestamp = parsed

	return &tx, nil
}

// InsertCheckpoint records a Merkle checkpoint over a global transaction
// range — one checkpoint series for the whole chain, not one per tenant.
func (t *txImpl) InsertCheckpoint(ctx context.Context, c *model.Checkpoint) (int64, error) {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO checkpoints (from_tx_id, to_tx_id, root_hash, leaf_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.FromTxID, c.ToTxID, c.RootHash, c.LeafCount, canon.Timestamp(c.CreatedAt))
	if err != nil {
		return 0, wrapDBError("insert checkpoint", err)
	}
	return result.LastInsertId()
}

// LastCheckpoint returns the most recent checkpoint, or nil if none
// exists yet.
func (t *txImpl) LastCheckpoint(ctx context.Context) (*model.Checkpoint, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, from_tx_id, to_tx_id, root_hash, leaf_count, created_at
		FROM checkpoints ORDER BY id DESC LIMIT 1
	`)
	c, err := scanCheckpoint(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapDBError("last checkpoint", err)
	}
	return c, nil
}

// CheckpointForTx returns the checkpoint whose [from_tx_id, to_tx_id]
// range covers txID, or nil if no checkpoint covers it yet (verify_fact,
// spec §4.4: "identify the checkpoint containing it" — not necessarily
// the last one, once the chain has rolled past more than one window).
func (t *txImpl) CheckpointForTx(ctx context.Context, txID int64) (*model.Checkpoint, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, from_tx_id, to_tx_id, root_hash, leaf_count, created_at
		FROM checkpoints WHERE from_tx_id <= ? AND to_tx_id >= ? ORDER BY to_tx_id ASC LIMIT 1
	`, txID, txID)
	c, err := scanCheckpoint(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapDBError("checkpoint for tx", err)
	}
	return c, nil
}

func scanCheckpoint(row rowScanner) (*model.Checkpoint, error) {
	var c model.Checkpoint
	var createdAt string
	if err := row.Scan(&c.ID, &c.FromTxID, &c.ToTxID, &c.RootHash, &c.LeafCount, &createdAt); err != nil {
		return nil, err
	}
	parsed, err := time.Parse("2006-01-02T15:04:05.000Z", createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse checkpoint created_at: %w", err)
	}
	c.CreatedAt = parsed
	return &c, nil
}
