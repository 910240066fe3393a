package model

import (
	"fmt"
	"time"
)

// Embedding is the dense vector representation of a fact's content used
// by recall's semantic search (spec §4.5, §4.6).
type Embedding struct {
	FactID    int64     `json:"fact_id"`
	Vector    []float32 `json:"vector"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks that an Embedding is well-formed given the index's
// configured dimensionality.
func (e *Embedding) Validate(dims int) error {
	if e.FactID <= 0 {
		return fmt.Errorf("fact_id is required")
	}
	if len(e.Vector) != dims {
		return fmt.Errorf("vector must have %d dimensions, got %d", dims, len(e.Vector))
	}
	if e.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	return nil
}

// Neighbor is one hit from a vector-index similarity search: a fact ID
// paired with its cosine similarity to the query vector (spec §4.6).
type Neighbor struct {
	FactID     int64   `json:"fact_id"`
	Similarity float64 `json:"similarity"`
}
