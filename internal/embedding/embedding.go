// Package embedding implements CORTEX's Embedding Manager (spec §4.5):
// it turns fact content into a fixed-dimension, unit-normalised vector,
// via either a local deterministic model or a networked API provider.
package embedding

import (
	"context"
	"math"
)

// Dims is the fixed embedding dimensionality every provider must produce
// (spec §4.5).
const Dims = 384

// Embedder turns text into a unit-normalised, Dims-length vector.
// Implementations return cortexerr.ErrEmbedderUnavailable (wrapped) for a
// known non-fatal failure — the caller degrades by marking the fact
// embedding_pending rather than failing the write.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// normalize L2-normalises v in place, leaving an all-zero vector
// untouched rather than dividing by zero.
func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
