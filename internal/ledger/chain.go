// Package ledger implements CORTEX's append-only, hash-chained audit log
// (spec §4.4): every mutating operation appends a Transaction whose Hash
// commits to the previous entry, and a Checkpoint periodically roots a
// Merkle tree over a contiguous run of entries so verify_fact can prove a
// single entry's inclusion; verify_ledger rehashes every entry in the
// range it checks.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/cortexdb/cortex/internal/canon"
	"github.com/cortexdb/cortex/internal/cortexerr"
	"github.com/cortexdb/cortex/internal/model"
	"github.com/cortexdb/cortex/internal/storage"
)

// chainEntry is the value canon.Encode hashes to produce a Transaction's
// Hash (spec §4.4: hash = SHA256(prev_hash || tenant_id || project ||
// action || detail || timestamp)).
type chainEntry struct {
	PrevHash  string                 `json:"prev_hash"`
	TenantID  string                 `json:"tenant_id"`
	Project   string                 `json:"project"`
	Action    string                 `json:"action"`
	Detail    map[string]interface{} `json:"detail"`
	Timestamp string                 `json:"timestamp"`
}

// Append computes the next transaction's hash and persists it inside tx.
// Callers (internal/facts, internal/consensus) invoke this from within
// the same storage.Tx that mutates the fact/vote rows it records, so the
// ledger entry and the state it describes commit atomically. PrevHash is
// taken from the chain's single global last entry (spec §2, §5(3)), not
// from the last entry for tenantID: the chain is one sequence shared by
// every tenant, so an entry's prev_hash must equal whichever entry
// actually precedes it globally by id, regardless of which tenant wrote
// either one.
func Append(ctx context.Context, tx storage.Tx, tenantID, project string, action model.Action, detail map[string]interface{}) (*model.Transaction, error) {
	prev, err := tx.LastTransaction(ctx)
	if err != nil {
		return nil, cortexerr.Wrap("ledger: load last transaction", err)
	}
	prevHash := GenesisHash()
	if prev != nil {
		prevHash = prev.Hash
	}

	now := time.Now().UTC()
	entry := chainEntry{
		PrevHash:  prevHash,
		TenantID:  tenantID,
		Project:   project,
		Action:    string(action),
		Detail:    detail,
		Timestamp: canon.Timestamp(now),
	}
	hash, err := canon.HashValue(entry)
	if err != nil {
		return nil, cortexerr.Wrap("ledger: hash entry", err)
	}

	record := &model.Transaction{
		TenantID:  tenantID,
		Project:   project,
		Action:    action,
		Detail:    detail,
		Timestamp: now,
		PrevHash:  prevHash,
		Hash:      hash,
	}

	id, err := tx.AppendTransaction(ctx, record)
	if err != nil {
		return nil, cortexerr.Wrap("ledger: append transaction", err)
	}
	record.ID = id
	return record, nil
}

// GenesisHash is the hash chain's fixed starting PrevHash, SHA-256 of the
// literal string "GENESIS" (spec §4.4).
func GenesisHash() string {
	return canon.Hash([]byte(model.GenesisSeed))
}

// maxTxID bounds a "scan the whole chain" query; storage.Tx has no
// dedicated scan-all method, so verify_ledger and checkpoint building
// pass this as an effectively-unbounded upper end.
const maxTxID = int64(1) << 62

// VerifyChain recomputes every transaction's hash across the whole
// global chain in [fromID, toID] and confirms it is unbroken, the
// verify_ledger(from?, to?) operation (spec §4.4, §6). fromID <= 0 means
// from the start of the chain; toID <= 0 means through the newest entry.
// It returns the first offending transaction ID on failure.
func VerifyChain(ctx context.Context, tx storage.Tx, fromID, toID int64) error {
	if fromID <= 0 {
		fromID = 1
	}
	if toID <= 0 {
		toID = maxTxID
	}

	prevHash := GenesisHash()
	if fromID > 1 {
		seed, err := tx.ScanTransactions(ctx, fromID-1, fromID-1)
		if err != nil {
			return cortexerr.Wrap("ledger: load chain seed", err)
		}
		if len(seed) == 0 {
			return fmt.Errorf("transaction %d: missing predecessor: %w", fromID, cortexerr.ErrIntegrity)
		}
		prevHash = seed[0].Hash
	}

	txs, err := tx.ScanTransactions(ctx, fromID, toID)
	if err != nil {
		return cortexerr.Wrap("ledger: scan chain", err)
	}

	for _, entry := range txs {
		if entry.PrevHash != prevHash {
			return fmt.Errorf("transaction %d: prev_hash mismatch: %w", entry.ID, cortexerr.ErrIntegrity)
		}
		wantHash, err := canon.HashValue(chainEntry{
			PrevHash:  entry.PrevHash,
			TenantID:  entry.TenantID,
			Project:   entry.Project,
			Action:    string(entry.Action),
			Detail:    entry.Detail,
			Timestamp: canon.Timestamp(entry.Timestamp),
		})
		if err != nil {
			return cortexerr.Wrap("ledger: rehash transaction", err)
		}
		if wantHash != entry.Hash {
			return fmt.Errorf("transaction %d: hash mismatch: %w", entry.ID, cortexerr.ErrIntegrity)
		}
		prevHash = entry.Hash
	}
	return nil
}
