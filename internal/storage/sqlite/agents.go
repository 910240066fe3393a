package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cortexdb/cortex/internal/canon"
	"github.com/cortexdb/cortex/internal/model"
)

// UpsertAgent registers an agent or updates its reputation (spec §5 —
// reputation is rewritten after every edge-triggered update).
func (t *txImpl) UpsertAgent(ctx context.Context, a *model.Agent) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO agents (id, tenant_id, name, type, reputation, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			name = excluded.name, type = excluded.type, reputation = excluded.reputation
	`, a.ID, a.TenantID, a.Name, string(a.Type), a.Reputation, canon.Timestamp(a.CreatedAt))
	return wrapDBError("upsert agent", err)
}

// ListAgents returns every agent registered for tenantID, used by the
// stats() facade operation to compute a reputation distribution (spec §6
// DOMAIN STACK table).
func (t *txImpl) ListAgents(ctx context.Context, tenantID string) ([]*model.Agent, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, tenant_id, name, type, reputation, created_at FROM agents WHERE tenant_id = ?
	`, tenantID)
	if err != nil {
		return nil, wrapDBError("list agents", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Agent
	for rows.Next() {
		var a model.Agent
		var agentType, createdAt string
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Name, &agentType, &a.Reputation, &createdAt); err != nil {
			return nil, wrapDBError("scan agent row", err)
		}
		a.Type = model.AgentType(agentType)
		parsed, err := time.Parse("2006-01-02T15:04:05.000Z", createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse agent created_at: %w", err)
		}
		a.CreatedAt = parsed
		out = append(out, &a)
	}
	return out, wrapDBError("iterate agent rows", rows.Err())
}

// GetAgent fetches one agent scoped to tenantID.
func (t *txImpl) GetAgent(ctx context.Context, tenantID, agentID string) (*model.Agent, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, type, reputation, created_at FROM agents WHERE tenant_id = ? AND id = ?
	`, tenantID, agentID)

	var a model.Agent
	var agentType, createdAt string
	if err := row.Scan(&a.ID, &a.TenantID, &a.Name, &agentType, &a.Reputation, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapDBError("get agent", err)
	}
	a.Type = model.AgentType(agentType)

	parsed, err := time.Parse("2006-01-02T15:04:05.000Z", createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse agent created_at: %w", err)
	}
	a.CreatedAt = parsed
	return &a, nil
}
