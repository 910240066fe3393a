// Package consensus implements CORTEX's Consensus Engine (spec §4.7): an
// agent registry with reputation tracking, a per-fact vote log, and the
// reputation-weighted score recompute that derives a fact's confidence
// label and, on a verified/disputed transition, updates every
// participating agent's reputation exactly once.
package consensus

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/cortexdb/cortex/internal/config"
	"github.com/cortexdb/cortex/internal/cortexerr"
	"github.com/cortexdb/cortex/internal/ledger"
	"github.com/cortexdb/cortex/internal/model"
	"github.com/cortexdb/cortex/internal/storage"
)

// GetOrRegisterAgent returns agentID's existing Agent row, or
// auto-registers one with the neutral DefaultReputation if this is its
// first vote (spec §4.7: "Registers agents on first vote").
func GetOrRegisterAgent(ctx context.Context, tx storage.Tx, tenantID, agentID string) (*model.Agent, error) {
	existing, err := tx.GetAgent(ctx, tenantID, agentID)
	if err != nil {
		return nil, cortexerr.Wrap("consensus: load agent", err)
	}
	if existing != nil {
		return existing, nil
	}

	agent := &model.Agent{
		ID:         agentID,
		TenantID:   tenantID,
		Name:       agentID,
		Type:       model.AgentModel,
		Reputation: model.DefaultReputation,
		CreatedAt:  time.Now().UTC(),
	}
	if err := tx.UpsertAgent(ctx, agent); err != nil {
		return nil, cortexerr.Wrap("consensus: register agent", err)
	}
	return agent, nil
}

// Vote records one agent's position on a fact and recomputes its
// consensus outcome, the vote() operation (spec §4.7).
func Vote(ctx context.Context, tx storage.Tx, cfg *config.EngineConfig, tenantID string, factID int64, agentID string, value float64, reason string) (*model.ConsensusOutcome, error) {
	if value != -1 && value != 0 && value != 1 {
		return nil, fmt.Errorf("vote value must be one of -1, 0, 1: %w", cortexerr.ErrValidation)
	}

	fact, err := tx.GetFact(ctx, tenantID, factID)
	if err != nil {
		return nil, cortexerr.Wrap("consensus: load fact", err)
	}
	if fact == nil {
		return nil, fmt.Errorf("fact %d: %w", factID, cortexerr.ErrNotFound)
	}

	agent, err := GetOrRegisterAgent(ctx, tx, tenantID, agentID)
	if err != nil {
		return nil, err
	}

	v := &model.Vote{
		ID:               uuid.NewString(),
		FactID:           factID,
		AgentID:          agentID,
		Value:            value,
		VoteWeight:       math.Abs(value) * agent.Reputation,
		DecayFactor:      1.0,
		ReputationAtVote: agent.Reputation,
		CreatedAt:        time.Now().UTC(),
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", cortexerr.ErrValidation, err)
	}
	if err := tx.InsertVote(ctx, v); err != nil {
		return nil, cortexerr.Wrap("consensus: insert vote", err)
	}

	detail := map[string]interface{}{
		"fact_id":  float64(factID),
		"agent_id": agentID,
		"value":    value,
	}
	if reason != "" {
		detail["reason"] = reason
	}
	if _, err := ledger.Append(ctx, tx, tenantID, fact.Project, model.ActionVote, detail); err != nil {
		return nil, err
	}

	return recompute(ctx, tx, cfg, tenantID, fact)
}

// recompute reloads a fact's vote log, derives its score/confidence, and
// persists both onto the fact row. It also drives the edge-triggered
// reputation update when the recompute crosses into a terminal
// verified/disputed transition (spec §4.7, §5).
func recompute(ctx context.Context, tx storage.Tx, cfg *config.EngineConfig, tenantID string, fact *model.Fact) (*model.ConsensusOutcome, error) {
	votes, err := tx.VotesForFact(ctx, fact.ID)
	if err != nil {
		return nil, cortexerr.Wrap("consensus: load votes", err)
	}

	now := time.Now().UTC()
	s, sumWeight, variance := score(votes, cfg.ConsensusHalflifeDays, now)

	prevConfidence := fact.Confidence
	newConfidence := prevConfidence
	contested := variance > cfg.ContestedVariance
	if sumWeight >= cfg.ConsensusMinWeight && !contested {
		newConfidence = model.DeriveConfidence(prevConfidence, s, cfg.VerifiedThreshold, cfg.DisputedThreshold)
	}

	outcome := &model.ConsensusOutcome{
		FactID:       fact.ID,
		Score:        s,
		Confidence:   newConfidence,
		VoteCount:    len(votes),
		Variance:     variance,
		Contested:    contested,
		RecomputedAt: now,
	}

	fact.ConsensusScore = s
	fact.Confidence = newConfidence
	if err := tx.UpdateFact(ctx, fact); err != nil {
		return nil, cortexerr.Wrap("consensus: persist fact score", err)
	}

	isTerminal := newConfidence == model.ConfidenceVerified || newConfidence == model.ConfidenceDisputed
	if isTerminal && newConfidence != prevConfidence {
		if err := rewardVoters(ctx, tx, tenantID, fact.ID, newConfidence, votes, cfg.ConsensusAlphaOrDefault()); err != nil {
			return nil, err
		}
	}

	return outcome, nil
}

// rewardVoters applies the reputation update to every agent who voted on
// factID, guarded by a per-(fact, transition) marker in the config table
// so the same transition never rewards twice (spec §4.7's edge-trigger
// rule).
func rewardVoters(ctx context.Context, tx storage.Tx, tenantID string, factID int64, transition model.Confidence, votes []*model.Vote, alpha float64) error {
	key := fmt.Sprintf("consensus_reward:%s:%d:%s", tenantID, factID, transition)
	if _, already, err := tx.GetConfig(ctx, key); err != nil {
		return cortexerr.Wrap("consensus: check reward marker", err)
	} else if already {
		return nil
	}

	for _, v := range votes {
		var correctness float64
		switch transition {
		case model.ConfidenceVerified:
			correctness = sign(v.Value)
		case model.ConfidenceDisputed:
			correctness = -sign(v.Value)
		}

		agent, err := tx.GetAgent(ctx, tenantID, v.AgentID)
		if err != nil {
			return cortexerr.Wrap("consensus: load voter for reward", err)
		}
		if agent == nil {
			continue // voter deregistered since casting the vote
		}

		agent.Reputation = model.ClampReputation(alpha*(0.5+0.5*correctness) + (1-alpha)*v.ReputationAtVote)
		if err := tx.UpsertAgent(ctx, agent); err != nil {
			return cortexerr.Wrap("consensus: persist reputation update", err)
		}
	}

	if err := tx.SetConfig(ctx, key, "1"); err != nil {
		return cortexerr.Wrap("consensus: set reward marker", err)
	}
	return nil
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
