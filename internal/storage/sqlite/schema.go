package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements is applied in order against a fresh or existing
// database. Every statement uses IF NOT EXISTS so migrate is safe to run
// on every Open call, mirroring the teacher's migrations package style
// (internal/storage/sqlite/migrations).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS facts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id TEXT NOT NULL,
		project TEXT NOT NULL,
		content TEXT NOT NULL,
		fact_type TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '',
		confidence TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		valid_from TEXT NOT NULL,
		valid_until TEXT,
		consensus_score REAL NOT NULL DEFAULT 1.0,
		created_tx_id INTEGER NOT NULL,
		embedding_pending_at TEXT,
		lineage_id INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_facts_scope ON facts(tenant_id, project, fact_type)`,
	`CREATE INDEX IF NOT EXISTS idx_facts_lineage ON facts(tenant_id, lineage_id)`,
	`CREATE INDEX IF NOT EXISTS idx_facts_active ON facts(tenant_id, project, valid_until)`,

	// transactions is CORTEX's single, global, hash-chained ledger (spec
	// §2, §5(3): "totally ordered globally by id"): tenant_id/project are
	// per-entry metadata folded into each entry's hash, not a scan scope.
	`CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id TEXT NOT NULL,
		project TEXT NOT NULL,
		action TEXT NOT NULL,
		detail TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		prev_hash TEXT NOT NULL,
		hash TEXT NOT NULL
	)`,

	// checkpoints roots one global series over the transactions chain
	// above — not one series per tenant.
	`CREATE TABLE IF NOT EXISTS checkpoints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_tx_id INTEGER NOT NULL,
		to_tx_id INTEGER NOT NULL,
		root_hash TEXT NOT NULL,
		leaf_count INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_checkpoints_range ON checkpoints(from_tx_id, to_tx_id)`,

	`CREATE TABLE IF NOT EXISTS agents (
		id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		reputation REAL NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (tenant_id, id)
	)`,

	`CREATE TABLE IF NOT EXISTS votes (
		id TEXT PRIMARY KEY,
		fact_id INTEGER NOT NULL,
		agent_id TEXT NOT NULL,
		value REAL NOT NULL,
		vote_weight REAL NOT NULL,
		decay_factor REAL NOT NULL,
		reputation_at_vote REAL NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (fact_id, agent_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_fact ON votes(fact_id)`,

	`CREATE TABLE IF NOT EXISTS embeddings (
		fact_id INTEGER PRIMARY KEY,
		vector BLOB NOT NULL,
		provider TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}
