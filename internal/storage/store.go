// Package storage defines the narrow backend interface CORTEX's engine
// depends on (spec §4.2): open/close, a transactional unit-of-work
// closure, range scans over facts, and atomic multi-row insert. The only
// implementation is internal/storage/sqlite; the interface exists so
// internal/engine and internal/facts never import database/sql directly,
// mirroring how the teacher's internal/storage package sits in front of
// its sqlite/dolt/ephemeral/memory backends.
package storage

import (
	"context"
	"time"

	"github.com/cortexdb/cortex/internal/model"
)

// FactFilter narrows a Scan/History call to a tenant/project scope and an
// optional point in time (spec §4.3). Zero AsOf means "now".
type FactFilter struct {
	TenantID string
	Project  string
	FactType model.FactType // empty means any
	AsOf     time.Time
	IncludeInactive bool
}

// Backend is the storage contract the engine is built against. A single
// embedded relational store with WAL and a single in-process writer is
// the only backend spec.md calls for (§4.2); the interface is kept
// narrow deliberately rather than exposing raw SQL.
type Backend interface {
	// WithTx runs fn inside a single write transaction. CORTEX has one
	// logical writer per process; WithTx serializes callers onto it.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// View runs fn in a transaction that is never committed. The sqlite
	// backend holds a single connection, so Views and WithTx calls run
	// one at a time rather than concurrently.
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Close() error
}

// Tx is the set of operations available inside a unit of work. Both
// WithTx and View hand the caller a Tx; read-only callers simply never
// call the mutating methods.
type Tx interface {
	InsertFact(ctx context.Context, f *model.Fact) (int64, error)
	InsertFacts(ctx context.Context, facts []*model.Fact) ([]int64, error)
	UpdateFact(ctx context.Context, f *model.Fact) error
	GetFact(ctx context.Context, tenantID string, id int64) (*model.Fact, error)
	ScanFacts(ctx context.Context, filter FactFilter) ([]*model.Fact, error)
	HistoryFacts(ctx context.Context, tenantID, project string, id int64) ([]*model.Fact, error)

	// The ledger is a single global chain across tenants (spec §2, §5(3)):
	// these are not scoped to a tenant_id.
	AppendTransaction(ctx context.Context, tx *model.Transaction) (int64, error)
	LastTransaction(ctx context.Context) (*model.Transaction, error)
	ScanTransactions(ctx context.Context, fromID, toID int64) ([]*model.Transaction, error)

	InsertCheckpoint(ctx context.Context, c *model.Checkpoint) (int64, error)
	LastCheckpoint(ctx context.Context) (*model.Checkpoint, error)
	CheckpointForTx(ctx context.Context, txID int64) (*model.Checkpoint, error)

	UpsertAgent(ctx context.Context, a *model.Agent) error
	GetAgent(ctx context.Context, tenantID, agentID string) (*model.Agent, error)
	ListAgents(ctx context.Context, tenantID string) ([]*model.Agent, error)

	InsertVote(ctx context.Context, v *model.Vote) error
	VotesForFact(ctx context.Context, factID int64) ([]*model.Vote, error)

	UpsertEmbedding(ctx context.Context, e *model.Embedding) error
	PendingEmbeddings(ctx context.Context, tenantID string, limit int) ([]*model.Fact, error)
	AllEmbeddings(ctx context.Context, tenantID string) ([]*model.Embedding, error)

	SetConfig(ctx context.Context, key, value string) error
	GetConfig(ctx context.Context, key string) (string, bool, error)
}
