package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/cortexdb/cortex/internal/canon"
	"github.com/cortexdb/cortex/internal/model"
)

// InsertVote records one agent's vote on a fact. The UNIQUE(fact_id,
// agent_id) constraint keeps one vote per agent per fact: a second vote
// from the same agent on the same fact replaces the first through this
// statement's ON CONFLICT DO UPDATE (the row keeps its original id)
// rather than appending a new row.
func (t *txImpl) InsertVote(ctx context.Context, v *model.Vote) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO votes (id, fact_id, agent_id, value, vote_weight, decay_factor, reputation_at_vote, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (fact_id, agent_id) DO UPDATE SET
			value = excluded.value, vote_weight = excluded.vote_weight,
			decay_factor = excluded.decay_factor, reputation_at_vote = excluded.reputation_at_vote,
			created_at = excluded.created_at
	`, v.ID, v.FactID, v.AgentID, v.Value, v.VoteWeight, v.DecayFactor, v.ReputationAtVote, canon.Timestamp(v.CreatedAt))
	return wrapDBError("insert vote", err)
}

// VotesForFact returns every vote cast on factID, the set
// internal/consensus recomputes a ConsensusOutcome from.
func (t *txImpl) VotesForFact(ctx context.Context, factID int64) ([]*model.Vote, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, fact_id, agent_id, value, vote_weight, decay_factor, reputation_at_vote, created_at
		FROM votes WHERE fact_id = ?
	`, factID)
	if err != nil {
		return nil, wrapDBError("votes for fact", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Vote
	for rows.Next() {
		var v model.Vote
		var createdAt string
		if err := rows.Scan(&v.ID, &v.FactID, &v.AgentID, &v.Value, &v.VoteWeight, &v.DecayFactor, &v.ReputationAtVote, &createdAt); err != nil {
			return nil, wrapDBError("scan vote row", err)
		}
		parsed, err := time.Parse("2006-01-02T15:04:05.000Z", createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse vote created_at: %w", err)
		}
		v.CreatedAt = parsed
		out = append(out, &v)
	}
	return out, wrapDBError("iterate vote rows", rows.Err())
}
