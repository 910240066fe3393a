// Package cortex is the public entry point for CORTEX, the local-first
// memory substrate for autonomous agents: a thin wrapper over
// internal/engine that a host process (an MCP server, a CLI, an
// embedding library caller) imports instead of reaching into internal/
// packages directly, mirroring how the teacher's root beads.go sat in
// front of internal/beads.
package cortex

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cortexdb/cortex/internal/config"
	"github.com/cortexdb/cortex/internal/embedding"
	"github.com/cortexdb/cortex/internal/engine"
	"github.com/cortexdb/cortex/internal/model"
	"github.com/cortexdb/cortex/internal/storage"
	"github.com/cortexdb/cortex/internal/storage/sqlite"
	"github.com/cortexdb/cortex/internal/telemetry"
	"github.com/cortexdb/cortex/internal/vectorindex"
)

// Re-exported domain types so callers need only import this package.
type (
	Fact             = model.Fact
	FactType         = model.FactType
	Confidence       = model.Confidence
	Agent            = model.Agent
	AgentType        = model.AgentType
	Vote             = model.Vote
	Neighbor         = model.Neighbor
	Transaction      = model.Transaction
	Checkpoint       = model.Checkpoint
	InclusionProof   = model.InclusionProof
	ConsensusOutcome = model.ConsensusOutcome
	Config           = config.EngineConfig
	Stats            = engine.Stats
)

const (
	FactKnowledge = model.FactKnowledge
	FactDecision  = model.FactDecision
	FactError     = model.FactError
	FactGhost     = model.FactGhost
	FactConfig    = model.FactConfig
	FactBridge    = model.FactBridge
	FactAxiom     = model.FactAxiom
	FactRule      = model.FactRule

	ConfidenceStated   = model.ConfidenceStated
	ConfidenceInferred = model.ConfidenceInferred
	ConfidenceObserved = model.ConfidenceObserved
	ConfidenceVerified = model.ConfidenceVerified
	ConfidenceDisputed = model.ConfidenceDisputed
)

// Default returns the configuration spec §6 names as defaults, for
// callers that want to override a handful of fields before calling Open.
func Default() *Config {
	return config.Default()
}

// DB is an open CORTEX database: storage, config, and the engine facade
// bound together, the object a host process keeps for its lifetime.
type DB struct {
	*engine.Engine
	backend storage.Backend
	dbPath  string
}

// Open opens (or creates) a CORTEX database at dir/cfg.DBPath and builds
// the embedder cfg.EmbeddingProvider names. cfg may be nil, meaning the
// config is loaded with config.Load(dir): dir's cortex.json, or
// config.Default() when that file does not exist. The vector index starts
// empty; Engine.Bootstrap loads a tenant's stored embeddings into it.
func Open(ctx context.Context, dir string, cfg *Config) (*DB, error) {
	if cfg == nil {
		var err error
		cfg, err = config.Load(dir)
		if err != nil {
			return nil, err
		}
	}

	logger := telemetry.NewLogger("cortex")
	dbPath := filepath.Join(dir, cfg.DBPath)
	backend, err := sqlite.Open(ctx, dbPath, logger)
	if err != nil {
		return nil, err
	}

	var embedder embedding.Embedder
	if cfg.AutoEmbed {
		switch cfg.EmbeddingProvider {
		case "", "local":
			embedder = embedding.NewLocal()
		case "api":
			embedder = embedding.NewAPI(cfg.EmbeddingEndpoint, cfg.EmbeddingAPIKey, cfg.EmbeddingModel)
		}
	}

	idx := vectorindex.New()
	eng := engine.New(backend, cfg, embedder, idx, logger)

	return &DB{Engine: eng, backend: backend, dbPath: dbPath}, nil
}

// Close releases the underlying storage handle.
func (db *DB) Close() error {
	return db.backend.Close()
}

// Watch runs engine.Watch against this database's backend file until ctx
// is cancelled, reconnecting the storage handle whenever an external
// process replaces it on disk (e.g. a restore from backup). Optional:
// a host process that never replaces the file under CORTEX need not call
// this. Returns an error if the backend doesn't support reconnecting.
func (db *DB) Watch(ctx context.Context) error {
	reconnector, ok := db.backend.(engine.Reconnector)
	if !ok {
		return fmt.Errorf("cortex: backend %T does not support reconnect-on-watch", db.backend)
	}
	return engine.Watch(ctx, db.dbPath, reconnector)
}
