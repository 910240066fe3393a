package embedding

import (
	"context"
	"hash/fnv"
	"strings"
)

// LocalEmbedder is the default provider (spec §4.5): a deterministic,
// CPU-bound model with no network dependency, targeting ≤5ms per call.
// It hashes each whitespace-delimited token into one of Dims buckets and
// accumulates a signed count per bucket — a standard hashing-trick bag-
// of-words embedding — then L2-normalises the result. Two calls on the
// same text always produce the same vector, which is what lets `store`
// call it synchronously without coordinating with any external service.
type LocalEmbedder struct{}

// NewLocal returns a LocalEmbedder. It holds no state.
func NewLocal() *LocalEmbedder {
	return &LocalEmbedder{}
}

func (e *LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, Dims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()

		bucket := int(sum % uint32(Dims))
		sign := float32(1)
		if sum&(1<<31) != 0 {
			sign = -1
		}
		vec[bucket] += sign
	}
	normalize(vec)
	return vec, nil
}
