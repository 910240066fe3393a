package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cortexdb/cortex/internal/canon"
	"github.com/cortexdb/cortex/internal/cortexerr"
	"github.com/cortexdb/cortex/internal/model"
	"github.com/cortexdb/cortex/internal/storage"
)

const factColumns = `id, tenant_id, project, content, fact_type, tags, confidence, source,
	metadata, valid_from, valid_until, consensus_score, created_tx_id, embedding_pending_at, lineage_id`

// InsertFact inserts a single fact, following the teacher's positional-
// placeholder insert shape (internal/storage/sqlite's fact-store
// predecessor, issues.go's insertIssue). When f.LineageID is zero (a
// fact's first version, spec §4.3 history()), the new row's own id is
// written back as its lineage_id in a follow-up statement, since the id
// isn't known until after the insert.
func (t *txImpl) InsertFact(ctx context.Context, f *model.Fact) (int64, error) {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO facts (tenant_id, project, content, fact_type, tags, confidence, source,
			metadata, valid_from, valid_until, consensus_score, created_tx_id, embedding_pending_at, lineage_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		f.TenantID, f.Project, f.Content, string(f.FactType), joinTags(f.Tags), string(f.Confidence), f.Source,
		mustEncodeMetadata(f.Metadata), canon.Timestamp(f.ValidFrom), nullableTimestamp(f.ValidUntil),
		f.ConsensusScore, f.CreatedTxID, nullablePendingAt(f.EmbeddingPending), f.LineageID,
	)
	if err != nil {
		return 0, wrapDBError("insert fact", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, wrapDBError("read inserted fact id", err)
	}
	if f.LineageID == 0 {
		if _, err := t.tx.ExecContext(ctx, `UPDATE facts SET lineage_id = ? WHERE id = ?`, id, id); err != nil {
			return 0, wrapDBError("backfill lineage id", err)
		}
	}
	return id, nil
}

// InsertFacts bulk-inserts facts using a prepared statement, mirroring
// insertIssues' batch-insert shape.
func (t *txImpl) InsertFacts(ctx context.Context, facts []*model.Fact) ([]int64, error) {
	stmt, err := t.tx.PrepareContext(ctx, `
		INSERT INTO facts (tenant_id, project, content, fact_type, tags, confidence, source,
			metadata, valid_from, valid_until, consensus_score, created_tx_id, embedding_pending_at, lineage_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, wrapDBError("prepare insert facts", err)
	}
	defer func() { _ = stmt.Close() }()

	ids := make([]int64, 0, len(facts))
	for _, f := range facts {
		result, err := stmt.ExecContext(ctx,
			f.TenantID, f.Project, f.Content, string(f.FactType), joinTags(f.Tags), string(f.Confidence), f.Source,
			mustEncodeMetadata(f.Metadata), canon.Timestamp(f.ValidFrom), nullableTimestamp(f.ValidUntil),
			f.ConsensusScore, f.CreatedTxID, nullablePendingAt(f.EmbeddingPending), f.LineageID,
		)
		if err != nil {
			return nil, wrapDBError(fmt.Sprintf("insert fact in tenant %s", f.TenantID), err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, wrapDBError("read inserted fact id", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// UpdateFact rewrites every mutable column of an existing fact row. The
// Fact Store's update()/deprecate() operations call this after copying
// the row (spec §4.3) rather than mutating immutable history in place.
func (t *txImpl) UpdateFact(ctx context.Context, f *model.Fact) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE facts SET
			content = ?, fact_type = ?, tags = ?, confidence = ?, source = ?, metadata = ?,
			valid_from = ?, valid_until = ?, consensus_score = ?, embedding_pending_at = ?
		WHERE id = ? AND tenant_id = ?
	`,
		f.Content, string(f.FactType), joinTags(f.Tags), string(f.Confidence), f.Source, mustEncodeMetadata(f.Metadata),
		canon.Timestamp(f.ValidFrom), nullableTimestamp(f.ValidUntil), f.ConsensusScore, nullablePendingAt(f.EmbeddingPending),
		f.ID, f.TenantID,
	)
	if err != nil {
		return wrapDBError("update fact", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return wrapDBError("read update fact rows affected", err)
	}
	if affected == 0 {
		return fmt.Errorf("update fact %d: %w", f.ID, cortexerr.ErrNotFound)
	}
	return nil
}

// GetFact fetches one fact scoped to tenantID.
func (t *txImpl) GetFact(ctx context.Context, tenantID string, id int64) (*model.Fact, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+factColumns+` FROM facts WHERE id = ? AND tenant_id = ?`, id, tenantID)
	f, err := scanFact(row)
	if err != nil {
		return nil, wrapDBError(fmt.Sprintf("get fact %d", id), err)
	}
	return f, nil
}

// ScanFacts returns facts matching filter, active at filter.AsOf (or now
// if zero) unless IncludeInactive is set (spec §4.3's temporal scan).
func (t *txImpl) ScanFacts(ctx context.Context, filter storage.FactFilter) ([]*model.Fact, error) {
	asOf := filter.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	asOfStr := canon.Timestamp(asOf)

	query := `SELECT ` + factColumns + ` FROM facts WHERE tenant_id = ? AND project = ?`
	args := []interface{}{filter.TenantID, filter.Project}

	if filter.FactType != "" {
		query += ` AND fact_type = ?`
		args = append(args, string(filter.FactType))
	}
	if !filter.IncludeInactive {
		query += ` AND valid_from <= ? AND (valid_until IS NULL OR valid_until > ?)`
		args = append(args, asOfStr, asOfStr)
	}
	query += ` ORDER BY consensus_score DESC, fact_type ASC, valid_from DESC`

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("scan facts", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, wrapDBError("scan fact row", err)
		}
		out = append(out, f)
	}
	return out, wrapDBError("iterate fact rows", rows.Err())
}

// HistoryFacts returns every version sharing id's lineage, oldest first.
func (t *txImpl) HistoryFacts(ctx context.Context, tenantID, project string, id int64) ([]*model.Fact, error) {
	var lineageID int64
	err := t.tx.QueryRowContext(ctx, `SELECT lineage_id FROM facts WHERE id = ? AND tenant_id = ? AND project = ?`, id, tenantID, project).Scan(&lineageID)
	if err != nil {
		return nil, wrapDBError(fmt.Sprintf("resolve lineage for fact %d", id), err)
	}

	rows, err := t.tx.QueryContext(ctx, `SELECT `+factColumns+` FROM facts WHERE tenant_id = ? AND project = ? AND lineage_id = ? ORDER BY valid_from ASC`, tenantID, project, lineageID)
	if err != nil {
		return nil, wrapDBError("history facts", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, wrapDBError("scan history row", err)
		}
		out = append(out, f)
	}
	return out, wrapDBError("iterate history rows", rows.Err())
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFact(row rowScanner) (*model.Fact, error) {
	var f model.Fact
	var factType, confidence, tags, metadataRaw, validFrom string
	var validUntil, embeddingPendingAt sql.NullString

	if err := row.Scan(
		&f.ID, &f.TenantID, &f.Project, &f.Content, &factType, &tags, &confidence, &f.Source,
		&metadataRaw, &validFrom, &validUntil, &f.ConsensusScore, &f.CreatedTxID, &embeddingPendingAt, &f.LineageID,
	); err != nil {
		return nil, err
	}

	f.FactType = model.FactType(factType)
	f.Confidence = model.Confidence(confidence)
	f.Tags = splitTags(tags)
	f.EmbeddingPending = embeddingPendingAt.Valid

	if metadataRaw != "" {
		if err := json.Unmarshal([]byte(metadataRaw), &f.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	parsedFrom, err := time.Parse("2006-01-02T15:04:05.000Z", validFrom)
	if err != nil {
		return nil, fmt.Errorf("parse valid_from: %w", err)
	}
	f.ValidFrom = parsedFrom

	if validUntil.Valid {
		parsedUntil, err := time.Parse("2006-01-02T15:04:05.000Z", validUntil.String)
		if err != nil {
			return nil, fmt.Errorf("parse valid_until: %w", err)
		}
		f.ValidUntil = &parsedUntil
	}

	return &f, nil
}

func joinTags(tags []string) string {
	return strings.Join(model.NormalizeTags(tags), ",")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func mustEncodeMetadata(m map[string]interface{}) string {
	if m == nil {
		return "{}"
	}
	b, err := canon.Encode(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func nullableTimestamp(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return canon.Timestamp(*t)
}

func nullablePendingAt(pending bool) interface{} {
	if !pending {
		return nil
	}
	return canon.Timestamp(time.Now().UTC())
}
