package model

import "time"

// Checkpoint is a Merkle root over a contiguous run of ledger transactions,
// taken periodically so verify_fact can prove one transaction's inclusion
// without the whole leaf set (spec §4.4); verify_ledger does not use
// checkpoints and rehashes every entry in its range. The ledger is a single
// global chain (spec §2, §5(3)), so checkpoints are global too — there is
// one checkpoint series for the whole store, not one per tenant.
type Checkpoint struct {
	ID        int64     `json:"id"`
	FromTxID  int64     `json:"from_tx_id"`
	ToTxID    int64     `json:"to_tx_id"`
	RootHash  string    `json:"root_hash"`
	LeafCount int       `json:"leaf_count"`
	CreatedAt time.Time `json:"created_at"`
}

// InclusionProof lets a caller verify that a single transaction hash is
// covered by a Checkpoint's RootHash without holding the whole leaf set,
// adapted from the sibling-path proof shape used for Merkle trees
// throughout the pack (spec §4.4, verify_fact).
type InclusionProof struct {
	LeafHash string   `json:"leaf_hash"`
	LeafIdx  int      `json:"leaf_index"`
	Siblings []string `json:"siblings"`
}
