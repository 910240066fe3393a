// Package facts implements CORTEX's Fact Store (spec §4.3): the
// temporal-validity CRUD surface (store, store_many, deprecate, update,
// recall, history) atop storage.Tx, wiring every mutation through
// internal/ledger and, when configured, through an embedder and vector
// index.
package facts

import (
	"context"
	"fmt"
	"time"

	"github.com/cortexdb/cortex/internal/cortexerr"
	"github.com/cortexdb/cortex/internal/ledger"
	"github.com/cortexdb/cortex/internal/model"
	"github.com/cortexdb/cortex/internal/storage"
)

// Embedder produces a fact's semantic vector. Accepted as a narrow
// interface so this package doesn't need to import internal/embedding's
// concrete providers.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Indexer is the subset of internal/vectorindex.Index the Fact Store
// needs to keep the vector index in step with fact lifecycle (spec
// §4.3, §4.6).
type Indexer interface {
	Insert(tenantID, project string, factID int64, vector []float32)
	Remove(tenantID string, factID int64)
}

// Store is the Fact Store. Embedder/Index may be nil, meaning embedding
// is disabled (spec §6's `auto_embed = false`) — store/update then just
// flag the new fact embedding_pending rather than calling anything.
type Store struct {
	Embedder Embedder
	Index    Indexer
}

// New returns a Fact Store wired to the given embedder and vector index.
func New(embedder Embedder, index Indexer) *Store {
	return &Store{Embedder: embedder, Index: index}
}

// prepareNew fills in a new fact's defaults and validates it, enforcing
// that callers may not set a consensus-only confidence directly (spec
// §3: "verified/disputed are set only by the consensus engine").
func prepareNew(f *model.Fact) error {
	if f.Confidence == "" {
		f.Confidence = model.ConfidenceStated
	}
	if !f.Confidence.CallerSettable() {
		return fmt.Errorf("confidence %q may only be set by the consensus engine: %w", f.Confidence, cortexerr.ErrValidation)
	}
	f.Tags = model.NormalizeTags(f.Tags)
	if f.ValidFrom.IsZero() {
		f.ValidFrom = time.Now().UTC()
	}
	if f.ConsensusScore == 0 {
		f.ConsensusScore = model.DefaultConsensusScore
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%w: %v", cortexerr.ErrValidation, err)
	}
	return nil
}

// Store inserts a new fact, appends its ledger entry, and — if an
// embedder is configured — computes and indexes its embedding, the
// store() operation (spec §4.3). A failed embedding attempt degrades to
// embedding_pending rather than aborting the write (spec §4.5).
func (s *Store) Store(ctx context.Context, tx storage.Tx, f *model.Fact) (*model.Transaction, error) {
	if err := prepareNew(f); err != nil {
		return nil, err
	}

	id, err := tx.InsertFact(ctx, f)
	if err != nil {
		return nil, cortexerr.Wrap("facts: insert", err)
	}
	f.ID = id
	f.LineageID = id

	txn, err := ledger.Append(ctx, tx, f.TenantID, f.Project, model.ActionStore, map[string]interface{}{
		"fact_id":   float64(id),
		"fact_type": string(f.FactType),
		"content":   f.Content,
	})
	if err != nil {
		return nil, err
	}
	f.CreatedTxID = txn.ID

	s.embed(ctx, tx, f)
	if err := tx.UpdateFact(ctx, f); err != nil {
		return nil, cortexerr.Wrap("facts: persist created_tx_id/embedding state", err)
	}

	return txn, nil
}

// StoreMany inserts facts as a single atomic unit, preserving their
// ordering in the ledger (spec §4.3 store_many).
func (s *Store) StoreMany(ctx context.Context, tx storage.Tx, facts []*model.Fact) ([]int64, error) {
	ids := make([]int64, 0, len(facts))
	for _, f := range facts {
		txn, err := s.Store(ctx, tx, f)
		if err != nil {
			return nil, err
		}
		_ = txn
		ids = append(ids, f.ID)
	}
	return ids, nil
}

// embed best-efforts an embedding for f, marking it embedding_pending on
// any failure instead of propagating the error (spec §4.5's
// EmbedderUnavailable degrade path).
func (s *Store) embed(ctx context.Context, tx storage.Tx, f *model.Fact) {
	if s.Embedder == nil {
		f.EmbeddingPending = true
		return
	}

	vec, err := s.Embedder.Embed(ctx, f.Content)
	if err != nil {
		f.EmbeddingPending = true
		return
	}

	embedding := &model.Embedding{FactID: f.ID, Vector: vec, Provider: "unspecified", CreatedAt: time.Now().UTC()}
	if err := tx.UpsertEmbedding(ctx, embedding); err != nil {
		f.EmbeddingPending = true
		return
	}
	f.EmbeddingPending = false
	if s.Index != nil {
		s.Index.Insert(f.TenantID, f.Project, f.ID, vec)
	}
}

// Deprecate soft-deletes a fact by setting valid_until if not already
// set, idempotently (spec §4.3).
func (s *Store) Deprecate(ctx context.Context, tx storage.Tx, tenantID string, factID int64, reason string) error {
	f, err := tx.GetFact(ctx, tenantID, factID)
	if err != nil {
		return cortexerr.Wrap("facts: load for deprecate", err)
	}
	if f == nil {
		return fmt.Errorf("fact %d: %w", factID, cortexerr.ErrNotFound)
	}
	if !f.Active() {
		return nil // already deprecated: idempotent no-op, spec §4.3
	}

	now := time.Now().UTC()
	f.ValidUntil = &now
	if err := tx.UpdateFact(ctx, f); err != nil {
		return cortexerr.Wrap("facts: deprecate", err)
	}

	detail := map[string]interface{}{"fact_id": float64(factID)}
	if reason != "" {
		detail["reason"] = reason
	}
	if _, err := ledger.Append(ctx, tx, tenantID, f.Project, model.ActionDeprecate, detail); err != nil {
		return err
	}

	if s.Index != nil {
		s.Index.Remove(tenantID, factID)
	}
	return nil
}

// Update atomically deprecates factID (reason "superseded") and creates
// a new version with newContent, carrying forward fact_type, tags,
// confidence, source and metadata unless overrides sets the corresponding
// field, returning the new fact (spec §4.3). The new row's LineageID is
// copied forward from the deprecated row so Lineage can still find every
// version with one filter.
func (s *Store) Update(ctx context.Context, tx storage.Tx, tenantID string, factID int64, newContent string, overrides *model.Fact) (*model.Fact, error) {
	old, err := tx.GetFact(ctx, tenantID, factID)
	if err != nil {
		return nil, cortexerr.Wrap("facts: load for update", err)
	}
	if old == nil {
		return nil, fmt.Errorf("fact %d: %w", factID, cortexerr.ErrNotFound)
	}

	if old.Active() {
		now := time.Now().UTC()
		old.ValidUntil = &now
		if err := tx.UpdateFact(ctx, old); err != nil {
			return nil, cortexerr.Wrap("facts: deprecate superseded fact", err)
		}
		if _, err := ledger.Append(ctx, tx, tenantID, old.Project, model.ActionDeprecate, map[string]interface{}{
			"fact_id": float64(factID),
			"reason":  "superseded",
		}); err != nil {
			return nil, err
		}
		if s.Index != nil {
			s.Index.Remove(tenantID, factID)
		}
	}

	next := &model.Fact{
		TenantID:   tenantID,
		Project:    old.Project,
		Content:    newContent,
		FactType:   old.FactType,
		Tags:       old.Tags,
		Confidence: old.Confidence,
		Source:     old.Source,
		Metadata:   old.Metadata,
		LineageID:  old.LineageID,
	}
	if overrides != nil {
		if overrides.FactType != "" {
			next.FactType = overrides.FactType
		}
		if overrides.Tags != nil {
			next.Tags = overrides.Tags
		}
		if overrides.Confidence != "" {
			next.Confidence = overrides.Confidence
		}
		if overrides.Source != "" {
			next.Source = overrides.Source
		}
		if overrides.Metadata != nil {
			next.Metadata = overrides.Metadata
		}
	}
	if !next.Confidence.CallerSettable() {
		next.Confidence = old.Confidence
	}

	if err := prepareNew(next); err != nil {
		return nil, err
	}
	next.LineageID = old.LineageID // prepareNew doesn't touch LineageID, but keep intent explicit

	id, err := tx.InsertFact(ctx, next)
	if err != nil {
		return nil, cortexerr.Wrap("facts: insert updated version", err)
	}
	next.ID = id

	txn, err := ledger.Append(ctx, tx, tenantID, next.Project, model.ActionUpdate, map[string]interface{}{
		"fact_id":       float64(id),
		"superseded_id": float64(factID),
		"content":       next.Content,
	})
	if err != nil {
		return nil, err
	}
	next.CreatedTxID = txn.ID

	s.embed(ctx, tx, next)
	if err := tx.UpdateFact(ctx, next); err != nil {
		return nil, cortexerr.Wrap("facts: persist updated version state", err)
	}

	return next, nil
}

// Recall returns currently active facts in scope, ordered by
// consensus_score descending, then fact_type, then valid_from (the
// fact's creation time) descending (spec §4.3). limit <= 0 means
// unbounded.
func (s *Store) Recall(ctx context.Context, tx storage.Tx, tenantID, project string, limit int) ([]*model.Fact, error) {
	facts, err := tx.ScanFacts(ctx, storage.FactFilter{TenantID: tenantID, Project: project})
	if err != nil {
		return nil, cortexerr.Wrap("facts: recall", err)
	}
	if limit > 0 && len(facts) > limit {
		facts = facts[:limit]
	}
	return facts, nil
}

// History implements the history() operation (spec §4.3, P4): with asOf
// set, it returns every fact in (tenantID, project) active at that
// instant (valid_from <= asOf < valid_until); with asOf zero, it returns
// the full scope timeline, including deprecated rows. It scans the
// whole timeline once and applies Fact.ActiveAt itself rather than
// pushing the asOf predicate into two places.
func (s *Store) History(ctx context.Context, tx storage.Tx, tenantID, project string, asOf time.Time) ([]*model.Fact, error) {
	facts, err := tx.ScanFacts(ctx, storage.FactFilter{TenantID: tenantID, Project: project, IncludeInactive: true})
	if err != nil {
		return nil, cortexerr.Wrap("facts: history", err)
	}
	if asOf.IsZero() {
		return facts, nil
	}

	out := make([]*model.Fact, 0, len(facts))
	for _, f := range facts {
		if f.ActiveAt(asOf) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Lineage returns every version sharing factID's lineage, oldest first —
// the by-id version-history lookup history() was narrowed from before
// P4 called for the project-scoped, as_of form above. Kept as a
// supporting helper for callers that already have one fact's id and want
// its full edit history rather than the whole project's timeline.
func (s *Store) Lineage(ctx context.Context, tx storage.Tx, tenantID, project string, factID int64) ([]*model.Fact, error) {
	versions, err := tx.HistoryFacts(ctx, tenantID, project, factID)
	if err != nil {
		return nil, cortexerr.Wrap("facts: lineage", err)
	}
	return versions, nil
}
