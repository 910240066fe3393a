// Package engine is CORTEX's facade (spec §4.8): it composes
// internal/storage, internal/ledger, internal/facts, internal/consensus,
// internal/embedding, and internal/vectorindex into the public operation
// set a host process (an MCP server, a CLI, an HTTP handler — none of
// which spec.md itself names) calls. It mirrors the role the teacher's
// top-level internal/beads package plays in front of internal/storage
// and internal/issues.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cortexdb/cortex/internal/config"
	"github.com/cortexdb/cortex/internal/consensus"
	"github.com/cortexdb/cortex/internal/cortexerr"
	"github.com/cortexdb/cortex/internal/embedding"
	"github.com/cortexdb/cortex/internal/facts"
	"github.com/cortexdb/cortex/internal/ledger"
	"github.com/cortexdb/cortex/internal/model"
	"github.com/cortexdb/cortex/internal/storage"
	"github.com/cortexdb/cortex/internal/vectorindex"
)

// Engine is the long-lived object a host process constructs once per
// data directory and calls for every operation.
type Engine struct {
	backend storage.Backend
	cfg     *config.EngineConfig
	logger  zerolog.Logger

	facts    *facts.Store
	index    *vectorindex.Index
	embedder facts.Embedder
}

// New wires a backend and config into a ready Engine. embedder may be
// nil (auto_embed disabled, spec §6); idx defaults to a fresh in-memory
// vectorindex.Index when nil.
func New(backend storage.Backend, cfg *config.EngineConfig, embedder embedding.Embedder, idx *vectorindex.Index, logger zerolog.Logger) *Engine {
	if idx == nil {
		idx = vectorindex.New()
	}
	var fe facts.Embedder
	if embedder != nil {
		fe = embedder
	}
	return &Engine{
		backend:  backend,
		cfg:      cfg,
		logger:   logger,
		facts:    facts.New(fe, idx),
		index:    idx,
		embedder: fe,
	}
}

// Bootstrap loads every non-deprecated embedding for tenantID into the
// vector index, since the index itself is in-memory and must be rebuilt
// from storage on process start (spec §4.6).
func (e *Engine) Bootstrap(ctx context.Context, tenantID string) error {
	return e.backend.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		embeddings, err := tx.AllEmbeddings(ctx, tenantID)
		if err != nil {
			return cortexerr.Wrap("engine: bootstrap embeddings", err)
		}
		items := make([]vectorindex.Item, 0, len(embeddings))
		for _, emb := range embeddings {
			f, err := tx.GetFact(ctx, tenantID, emb.FactID)
			if err != nil {
				return cortexerr.Wrap("engine: bootstrap fact lookup", err)
			}
			if f == nil || !f.Active() {
				continue
			}
			items = append(items, vectorindex.Item{FactID: f.ID, Project: f.Project, Vector: emb.Vector})
		}
		e.index.LoadAll(tenantID, items)
		return nil
	})
}

// Store implements the store() operation.
func (e *Engine) Store(ctx context.Context, f *model.Fact) (*model.Fact, error) {
	var result *model.Fact
	err := e.backend.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := e.facts.Store(ctx, tx, f)
		result = f
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StoreMany implements the store_many() operation.
func (e *Engine) StoreMany(ctx context.Context, fs []*model.Fact) ([]int64, error) {
	var ids []int64
	err := e.backend.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		ids, err = e.facts.StoreMany(ctx, tx, fs)
		return err
	})
	return ids, err
}

// Deprecate implements the deprecate() operation.
func (e *Engine) Deprecate(ctx context.Context, tenantID string, factID int64, reason string) error {
	return e.backend.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return e.facts.Deprecate(ctx, tx, tenantID, factID, reason)
	})
}

// Update implements the update() operation.
func (e *Engine) Update(ctx context.Context, tenantID string, factID int64, newContent string, overrides *model.Fact) (*model.Fact, error) {
	var updated *model.Fact
	err := e.backend.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		updated, err = e.facts.Update(ctx, tx, tenantID, factID, newContent, overrides)
		return err
	})
	return updated, err
}

// Recall implements the recall() operation.
func (e *Engine) Recall(ctx context.Context, tenantID, project string, limit int) ([]*model.Fact, error) {
	var out []*model.Fact
	err := e.backend.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = e.facts.Recall(ctx, tx, tenantID, project, limit)
		return err
	})
	return out, err
}

// History implements the history() operation (spec §4.3, §6): with asOf
// zero it returns the full project timeline including deprecated facts;
// otherwise it returns every fact active at that instant.
func (e *Engine) History(ctx context.Context, tenantID, project string, asOf time.Time) ([]*model.Fact, error) {
	var out []*model.Fact
	err := e.backend.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = e.facts.History(ctx, tx, tenantID, project, asOf)
		return err
	})
	return out, err
}

// Lineage returns every version sharing factID's lineage, oldest first —
// a by-id complement to History for callers that already have one
// fact's id and want its own edit history rather than the whole
// project's timeline.
func (e *Engine) Lineage(ctx context.Context, tenantID, project string, factID int64) ([]*model.Fact, error) {
	var out []*model.Fact
	err := e.backend.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = e.facts.Lineage(ctx, tx, tenantID, project, factID)
		return err
	})
	return out, err
}

// Search implements the semantic search() operation (spec §4.6):
// embed the query with the same embedder used at store time, then
// consult the in-memory vector index.
func (e *Engine) Search(ctx context.Context, tenantID, project, query string, k int) ([]model.Neighbor, error) {
	if e.embedder == nil {
		return nil, fmt.Errorf("search requires an embedder: %w", cortexerr.ErrEmbedderUnavailable)
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("engine: embed query: %w", err)
	}
	return e.index.Search(ctx, tenantID, project, vec, k)
}

// Vote implements the vote() operation.
func (e *Engine) Vote(ctx context.Context, tenantID string, factID int64, agentID string, value float64, reason string) (*model.ConsensusOutcome, error) {
	var outcome *model.ConsensusOutcome
	err := e.backend.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		outcome, err = consensus.Vote(ctx, tx, e.cfg, tenantID, factID, agentID, value, reason)
		return err
	})
	return outcome, err
}

// GetVotes implements the get_votes() operation.
func (e *Engine) GetVotes(ctx context.Context, factID int64) ([]*model.Vote, error) {
	var votes []*model.Vote
	err := e.backend.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		votes, err = tx.VotesForFact(ctx, factID)
		return err
	})
	return votes, err
}

// VerifyLedger implements the verify_ledger(from?, to?) operation. The
// chain is a single global sequence (spec §2, §5(3)), so this is not
// scoped to a tenant; fromID/toID <= 0 mean "from the start"/"through
// the newest entry" respectively.
func (e *Engine) VerifyLedger(ctx context.Context, fromID, toID int64) error {
	return e.backend.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		return ledger.VerifyChain(ctx, tx, fromID, toID)
	})
}

// VerifyFact implements the verify_fact() operation: produce an
// inclusion proof for factID's creating transaction against the
// checkpoint that contains it.
func (e *Engine) VerifyFact(ctx context.Context, tenantID string, factID int64) (*model.InclusionProof, error) {
	var f *model.Fact
	var proof *model.InclusionProof
	err := e.backend.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		f, err = tx.GetFact(ctx, tenantID, factID)
		if err != nil {
			return cortexerr.Wrap("engine: load fact for verification", err)
		}
		if f == nil {
			return fmt.Errorf("fact %d: %w", factID, cortexerr.ErrNotFound)
		}
		proof, err = ledger.VerifyFact(ctx, tx, f.CreatedTxID)
		return err
	})
	return proof, err
}

// Checkpoint runs the ledger checkpoint maintenance job, the scheduled
// counterpart to verify_fact's on-demand proof (spec §4.4). A host
// process calls this periodically (e.g. after every CheckpointWindow
// writes) rather than on every mutation. The chain and its checkpoints
// are global, so this takes no tenantID.
func (e *Engine) Checkpoint(ctx context.Context) (*model.Checkpoint, error) {
	var cp *model.Checkpoint
	err := e.backend.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		minAge := time.Duration(e.cfg.CheckpointMinAgeSecond) * time.Second
		cp, err = ledger.Checkpoint(ctx, tx, e.cfg.CheckpointWindow, minAge)
		return err
	})
	return cp, err
}

// Stats implements the stats() operation (spec §4.8 / DOMAIN STACK):
// ledger length, checkpoint lag, and reputation distribution, reported
// directly as a snapshot rather than through telemetry's async gauges —
// Collect is for a host process's own periodic scrape loop, this is for
// a single synchronous call.
type Stats struct {
	LedgerLength        int64     `json:"ledger_length"`
	LastCheckpointTxID  int64     `json:"last_checkpoint_tx_id"`
	CheckpointLag       int64     `json:"checkpoint_lag"`
	ReputationMean      float64   `json:"reputation_mean"`
	ReputationP10       float64   `json:"reputation_p10"`
	ReputationP90       float64   `json:"reputation_p90"`
	AgentCount          int       `json:"agent_count"`
	CollectedAt         time.Time `json:"collected_at"`
}

func (e *Engine) Stats(ctx context.Context, tenantID string) (*Stats, error) {
	s := &Stats{CollectedAt: time.Now().UTC()}
	err := e.backend.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		last, err := tx.LastTransaction(ctx)
		if err != nil {
			return cortexerr.Wrap("engine: stats last transaction", err)
		}
		if last != nil {
			s.LedgerLength = last.ID
		}

		cp, err := tx.LastCheckpoint(ctx)
		if err != nil {
			return cortexerr.Wrap("engine: stats last checkpoint", err)
		}
		if cp != nil {
			s.LastCheckpointTxID = cp.ToTxID
			s.CheckpointLag = s.LedgerLength - cp.ToTxID
		} else {
			s.CheckpointLag = s.LedgerLength
		}

		agents, err := tx.ListAgents(ctx, tenantID)
		if err != nil {
			return cortexerr.Wrap("engine: stats agents", err)
		}
		s.AgentCount = len(agents)
		if len(agents) > 0 {
			reps := make([]float64, len(agents))
			var sum float64
			for i, a := range agents {
				reps[i] = a.Reputation
				sum += a.Reputation
			}
			s.ReputationMean = sum / float64(len(agents))
			s.ReputationP10, s.ReputationP90 = percentiles(reps)
		}
		return nil
	})
	return s, err
}

// percentiles returns the approximate 10th/90th percentile of a small,
// unsorted sample via a copy-and-sort (agent counts are expected to stay
// small enough that this is cheaper than a selection algorithm).
func percentiles(values []float64) (p10, p90 float64) {
	sorted := append([]float64(nil), values...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	idx := func(q float64) float64 {
		pos := q * float64(len(sorted)-1)
		lo := int(pos)
		if lo >= len(sorted)-1 {
			return sorted[len(sorted)-1]
		}
		frac := pos - float64(lo)
		return sorted[lo]*(1-frac) + sorted[lo+1]*frac
	}
	return idx(0.10), idx(0.90)
}
