package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/cortexdb/cortex/internal/cortexerr"
	"github.com/cortexdb/cortex/internal/model"
	"github.com/cortexdb/cortex/internal/storage"
)

// leafHash is the Merkle leaf for one transaction: the raw bytes of its
// chain Hash (already a SHA-256 digest), decoded from hex.
func leafHash(tx *model.Transaction) ([]byte, error) {
	b, err := hex.DecodeString(tx.Hash)
	if err != nil {
		return nil, fmt.Errorf("ledger: decode transaction hash %q: %w", tx.Hash, err)
	}
	return b, nil
}

// Checkpoint builds a Merkle tree over every transaction since the last
// checkpoint (or the start of the chain) and persists the root, the
// periodic-checkpoint operation spec §4.4 describes. It is a no-op,
// returning (nil, nil), when fewer than window new transactions exist,
// or when the newest of those transactions is younger than minAge — a
// checkpoint built mid-burst would just be rebuilt again moments later,
// so the job waits for the batch to settle before rooting it.
func Checkpoint(ctx context.Context, tx storage.Tx, window int, minAge time.Duration) (*model.Checkpoint, error) {
	last, err := tx.LastCheckpoint(ctx)
	if err != nil {
		return nil, cortexerr.Wrap("ledger: load last checkpoint", err)
	}
	fromID := int64(1)
	if last != nil {
		fromID = last.ToTxID + 1
	}

	txs, err := tx.ScanTransactions(ctx, fromID, maxTxID)
	if err != nil {
		return nil, cortexerr.Wrap("ledger: scan transactions for checkpoint", err)
	}
	if len(txs) < window {
		return nil, nil
	}
	if minAge > 0 && time.Since(txs[len(txs)-1].Timestamp) < minAge {
		return nil, nil
	}

	leaves := make([][]byte, 0, len(txs))
	for _, entry := range txs {
		leaf, err := leafHash(entry)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf)
	}

	tree, err := buildMerkleTree(leaves)
	if err != nil {
		return nil, cortexerr.Wrap("ledger: build checkpoint tree", err)
	}

	cp := &model.Checkpoint{
		FromTxID:  txs[0].ID,
		ToTxID:    txs[len(txs)-1].ID,
		RootHash:  tree.RootHex(),
		LeafCount: len(leaves),
		CreatedAt: time.Now().UTC(),
	}
	id, err := tx.InsertCheckpoint(ctx, cp)
	if err != nil {
		return nil, cortexerr.Wrap("ledger: insert checkpoint", err)
	}
	cp.ID = id
	return cp, nil
}

// VerifyFact builds an inclusion proof for the transaction that created
// or last mutated a fact and verifies it against the checkpoint covering
// that transaction, the verify_fact operation (spec §4.4: "identify the
// checkpoint containing it"). It looks up the covering checkpoint by
// tx-range rather than assuming the last checkpoint, so a transaction
// from an earlier window still verifies once the chain has rolled past
// it. It returns cortexerr.ErrNotFound if no checkpoint covers txID yet —
// the transaction is valid by virtue of chain membership (VerifyChain),
// just not yet checkpoint-anchored. On success it returns the inclusion
// proof the caller can hand back to an auditor; the proof is nil whenever
// err is non-nil.
func VerifyFact(ctx context.Context, tx storage.Tx, txID int64) (*model.InclusionProof, error) {
	last, err := tx.CheckpointForTx(ctx, txID)
	if err != nil {
		return nil, cortexerr.Wrap("ledger: load checkpoint", err)
	}
	if last == nil {
		return nil, cortexerr.ErrNotFound
	}

	txs, err := tx.ScanTransactions(ctx, last.FromTxID, last.ToTxID)
	if err != nil {
		return nil, cortexerr.Wrap("ledger: scan checkpoint range", err)
	}

	leaves := make([][]byte, 0, len(txs))
	targetIdx := -1
	for i, entry := range txs {
		leaf, err := leafHash(entry)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf)
		if entry.ID == txID {
			targetIdx = i
		}
	}
	if targetIdx < 0 {
		return nil, cortexerr.ErrNotFound
	}

	tree, err := buildMerkleTree(leaves)
	if err != nil {
		return nil, cortexerr.Wrap("ledger: rebuild checkpoint tree", err)
	}
	if tree.RootHex() != last.RootHash {
		return nil, fmt.Errorf("checkpoint %d: rebuilt root mismatch: %w", last.ID, cortexerr.ErrIntegrity)
	}

	path, err := tree.proof(targetIdx)
	if err != nil {
		return nil, err
	}
	rootBytes, err := hex.DecodeString(last.RootHash)
	if err != nil {
		return nil, fmt.Errorf("ledger: decode checkpoint root: %w", err)
	}

	if !verifyProof(leaves[targetIdx], path, rootBytes) {
		return nil, fmt.Errorf("transaction %d: inclusion proof failed against checkpoint %d: %w", txID, last.ID, cortexerr.ErrIntegrity)
	}

	return toInclusionProof(leaves[targetIdx], targetIdx, path), nil
}

// VerifyInclusionProof independently checks a previously issued
// model.InclusionProof against a known root, without access to storage —
// useful for an external auditor who only received the proof and the
// checkpoint's RootHash.
func VerifyInclusionProof(p *model.InclusionProof, rootHash string) (bool, error) {
	leaf, path, err := fromInclusionProof(p)
	if err != nil {
		return false, err
	}
	root, err := hex.DecodeString(rootHash)
	if err != nil {
		return false, fmt.Errorf("ledger: decode root: %w", err)
	}
	return verifyProof(leaf, path, root), nil
}
