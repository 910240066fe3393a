package model

import (
	"fmt"
	"time"
)

// Vote is one agent's position on a fact: -1 fully disputes, +1 fully
// confirms, 0 abstains and carries zero weight (vote_weight is
// |value| × reputation). DecayFactor is the
// agent-level weighting factor independent of vote age; age decay is
// applied at scoring time using CreatedAt, not stored per vote.
type Vote struct {
	ID               string    `json:"id"`
	FactID           int64     `json:"fact_id"`
	AgentID          string    `json:"agent_id"`
	Value            float64   `json:"value"`
	VoteWeight       float64   `json:"vote_weight"`
	DecayFactor      float64   `json:"decay_factor"`
	ReputationAtVote float64   `json:"reputation_at_vote"`
	CreatedAt        time.Time `json:"created_at"`
}

// Validate checks the invariants spec §5 places on a Vote.
func (v *Vote) Validate() error {
	if v.FactID <= 0 {
		return fmt.Errorf("fact_id is required")
	}
	if v.AgentID == "" {
		return fmt.Errorf("agent_id is required")
	}
	if v.Value < -1 || v.Value > 1 {
		return fmt.Errorf("value must be between -1 and 1")
	}
	if v.VoteWeight < 0 {
		return fmt.Errorf("vote_weight must not be negative")
	}
	if v.DecayFactor < 0 {
		return fmt.Errorf("decay_factor must not be negative")
	}
	return nil
}
