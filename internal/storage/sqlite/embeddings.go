package sqlite

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/cortexdb/cortex/internal/canon"
	"github.com/cortexdb/cortex/internal/model"
)

// UpsertEmbedding stores or replaces a fact's vector and clears its
// embedding_pending_at marker on the owning fact row (spec §4.5).
func (t *txImpl) UpsertEmbedding(ctx context.Context, e *model.Embedding) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO embeddings (fact_id, vector, provider, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (fact_id) DO UPDATE SET
			vector = excluded.vector, provider = excluded.provider, created_at = excluded.created_at
	`, e.FactID, encodeVector(e.Vector), e.Provider, canon.Timestamp(e.CreatedAt))
	if err != nil {
		return wrapDBError("upsert embedding", err)
	}

	_, err = t.tx.ExecContext(ctx, `UPDATE facts SET embedding_pending_at = NULL WHERE id = ?`, e.FactID)
	return wrapDBError("clear embedding pending", err)
}

// PendingEmbeddings returns up to limit facts awaiting an embedding,
// oldest-pending first (spec §4.5). No code in this module calls it:
// facts left pending are not re-embedded automatically.
func (t *txImpl) PendingEmbeddings(ctx context.Context, tenantID string, limit int) ([]*model.Fact, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+factColumns+` FROM facts
		WHERE tenant_id = ? AND embedding_pending_at IS NOT NULL
		ORDER BY embedding_pending_at ASC LIMIT ?
	`, tenantID, limit)
	if err != nil {
		return nil, wrapDBError("pending embeddings", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, wrapDBError("scan pending fact row", err)
		}
		out = append(out, f)
	}
	return out, wrapDBError("iterate pending fact rows", rows.Err())
}

// AllEmbeddings loads every embedding for tenantID, the corpus
// internal/vectorindex rebuilds its in-memory index from at startup.
func (t *txImpl) AllEmbeddings(ctx context.Context, tenantID string) ([]*model.Embedding, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT e.fact_id, e.vector, e.provider, e.created_at
		FROM embeddings e JOIN facts f ON f.id = e.fact_id
		WHERE f.tenant_id = ?
	`, tenantID)
	if err != nil {
		return nil, wrapDBError("all embeddings", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Embedding
	for rows.Next() {
		var e model.Embedding
		var vectorRaw []byte
		var createdAt string
		if err := rows.Scan(&e.FactID, &vectorRaw, &e.Provider, &createdAt); err != nil {
			return nil, wrapDBError("scan embedding row", err)
		}
		e.Vector = decodeVector(vectorRaw)
		parsed, err := time.Parse("2006-01-02T15:04:05.000Z", createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse embedding created_at: %w", err)
		}
		e.CreatedAt = parsed
		out = append(out, &e)
	}
	return out, wrapDBError("iterate embedding rows", rows.Err())
}

// encodeVector packs a []float32 into a little-endian byte blob; sqlite
// has no native vector type, so embeddings are stored as raw bytes and
// loaded wholesale into internal/vectorindex's in-memory structure.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
