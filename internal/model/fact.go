// Package model defines CORTEX's wire types: facts, ledger transactions,
// Merkle checkpoints, agents, and votes. It mirrors the shape of the
// teacher's internal/types package (validated structs with a Validate()
// method, string-backed enums with an IsValid() helper) generalized from
// issue tracking to fact storage.
package model

import (
	"fmt"
	"strings"
	"time"
)

// MaxContentBytes is the hard ceiling on Fact.Content, spec §3.
const MaxContentBytes = 50_000

// FactType is the closed set of kinds a Fact may carry.
type FactType string

const (
	FactKnowledge FactType = "knowledge"
	FactDecision  FactType = "decision"
	FactError     FactType = "error"
	FactGhost     FactType = "ghost"
	FactConfig    FactType = "config"
	FactBridge    FactType = "bridge"
	FactAxiom     FactType = "axiom"
	FactRule      FactType = "rule"
)

// IsValid reports whether t is one of the enumerated fact types.
func (t FactType) IsValid() bool {
	switch t {
	case FactKnowledge, FactDecision, FactError, FactGhost, FactConfig, FactBridge, FactAxiom, FactRule:
		return true
	default:
		return false
	}
}

// Confidence is a fact's current consensus standing.
type Confidence string

const (
	ConfidenceStated   Confidence = "stated"
	ConfidenceInferred Confidence = "inferred"
	ConfidenceObserved Confidence = "observed"
	ConfidenceVerified Confidence = "verified"
	ConfidenceDisputed Confidence = "disputed"
)

// IsValid reports whether c is one of the enumerated confidence states.
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceStated, ConfidenceInferred, ConfidenceObserved, ConfidenceVerified, ConfidenceDisputed:
		return true
	default:
		return false
	}
}

// CallerSettable reports whether a caller may set this confidence directly
// via store/update. verified and disputed (and the other consensus-derived
// states) are written only by the consensus engine (spec §3, Fact fields).
func (c Confidence) CallerSettable() bool {
	switch c {
	case ConfidenceStated, ConfidenceInferred, ConfidenceObserved:
		return true
	default:
		return false
	}
}

// Fact is the unit of memory (spec §3).
type Fact struct {
	ID               int64                  `json:"id"`
	TenantID         string                 `json:"tenant_id"`
	Project          string                 `json:"project"`
	Content          string                 `json:"content"`
	FactType         FactType               `json:"fact_type"`
	Tags             []string               `json:"tags,omitempty"`
	Confidence       Confidence             `json:"confidence"`
	Source           string                 `json:"source,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	ValidFrom        time.Time              `json:"valid_from"`
	ValidUntil       *time.Time             `json:"valid_until,omitempty"`
	ConsensusScore   float64                `json:"consensus_score"`
	CreatedTxID      int64                  `json:"created_tx_id"`
	EmbeddingPending bool                   `json:"embedding_pending,omitempty"`

	// LineageID groups every version of a fact produced by update() (spec
	// §4.3, history()): it equals ID on the first version of a fact and is
	// copied forward onto every subsequent version so Lineage (via
	// HistoryFacts) can select the whole chain with one equality filter.
	LineageID int64 `json:"lineage_id"`
}

// DefaultConsensusScore is the neutral starting score, spec §3.
const DefaultConsensusScore = 1.0

// Validate checks the invariants spec §3 places on a Fact prior to
// storage. It does not check consensus-only confidence values against the
// caller — that policy decision belongs to the Fact Store (spec F1).
func (f *Fact) Validate() error {
	if f.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if strings.TrimSpace(f.Project) == "" {
		return fmt.Errorf("project is required")
	}
	if len(f.Content) > MaxContentBytes {
		return fmt.Errorf("content must be %d bytes or less", MaxContentBytes)
	}
	if !f.FactType.IsValid() {
		return fmt.Errorf("invalid fact_type: %q", f.FactType)
	}
	if f.Confidence != "" && !f.Confidence.IsValid() {
		return fmt.Errorf("invalid confidence: %q", f.Confidence)
	}
	if f.ConsensusScore < 0 || f.ConsensusScore > 2 {
		return fmt.Errorf("consensus_score must be between 0 and 2")
	}
	if f.ValidUntil != nil && f.ValidFrom.After(*f.ValidUntil) {
		return fmt.Errorf("valid_from must not be after valid_until")
	}
	return nil
}

// Active reports whether the fact is currently live (not soft-deleted).
func (f *Fact) Active() bool {
	return f.ValidUntil == nil
}

// ActiveAt reports whether the fact was live at instant t: spec §4.3
// history()'s temporal predicate, valid_from <= t < valid_until.
func (f *Fact) ActiveAt(t time.Time) bool {
	if f.ValidFrom.After(t) {
		return false
	}
	if f.ValidUntil == nil {
		return true
	}
	return f.ValidUntil.After(t)
}

// NormalizeTags returns a new slice with empty and duplicate tags removed,
// keeping the first occurrence of each tag in its original order; it does
// not sort and does not modify tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
