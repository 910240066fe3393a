// Package vectorindex implements CORTEX's Vector Index (spec §4.6): an
// in-process, per-tenant set of (fact_id, vector) pairs supporting
// insertion, idempotent removal, and top-k cosine search. The reference
// structure spec §4.6 names is a multi-layer small-world graph; this
// package instead takes the spec's explicit escape hatch ("exhaustive
// fallback is acceptable up to N ≈ 10⁴") since CORTEX's target scale is
// a single agent's working memory, not a web-scale ANN corpus — an
// exhaustive scan fanned out across shards with errgroup meets the same
// O(log N)-at-small-N experience without an HNSW implementation the
// corpus has no example of.
package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cortexdb/cortex/internal/model"
)

// Item is one vector the index holds, scoped to a tenant.
type Item struct {
	FactID  int64
	Project string
	Vector  []float32
}

type entry struct {
	project string
	vector  []float32
}

// Index holds every tenant's active embeddings in memory. Reads
// (Search) take the RWMutex's read lock and may run concurrently;
// writes (Insert/Remove/LoadAll) are serialised, matching spec §5's
// "many concurrent readers, serialised writers" resource model for this
// component.
type Index struct {
	mu       sync.RWMutex
	byTenant map[string]map[int64]*entry
}

// New returns an empty Index.
func New() *Index {
	return &Index{byTenant: make(map[string]map[int64]*entry)}
}

// Insert adds or overwrites factID's vector under tenantID/project.
func (idx *Index) Insert(tenantID, project string, factID int64, vector []float32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	shard, ok := idx.byTenant[tenantID]
	if !ok {
		shard = make(map[int64]*entry)
		idx.byTenant[tenantID] = shard
	}
	shard[factID] = &entry{project: project, vector: vector}
}

// Remove drops factID from tenantID's shard. Idempotent: removing an
// absent or already-removed fact is a no-op, per spec §4.6.
func (idx *Index) Remove(tenantID string, factID int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if shard, ok := idx.byTenant[tenantID]; ok {
		delete(shard, factID)
	}
}

// LoadAll replaces tenantID's entire shard with items, used to rebuild
// the in-memory index from storage at startup.
func (idx *Index) LoadAll(tenantID string, items []Item) {
	shard := make(map[int64]*entry, len(items))
	for _, it := range items {
		shard[it.FactID] = &entry{project: it.Project, vector: it.Vector}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byTenant[tenantID] = shard
}

// Search returns the top-k fact IDs under tenantID (optionally narrowed
// to project) by cosine similarity to query, descending by score and
// breaking ties by larger fact_id (spec §4.6).
func (idx *Index) Search(ctx context.Context, tenantID, project string, query []float32, k int) ([]model.Neighbor, error) {
	idx.mu.RLock()
	shard := idx.byTenant[tenantID]
	factIDs := make([]int64, 0, len(shard))
	entries := make([]*entry, 0, len(shard))
	for id, e := range shard {
		if project != "" && e.project != project {
			continue
		}
		factIDs = append(factIDs, id)
		entries = append(entries, e)
	}
	idx.mu.RUnlock()

	if len(entries) == 0 {
		return nil, nil
	}

	const shardSize = 256
	numShards := (len(entries) + shardSize - 1) / shardSize
	partials := make([][]model.Neighbor, numShards)

	g, gctx := errgroup.WithContext(ctx)
	for s := 0; s < numShards; s++ {
		s := s
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := s * shardSize
			end := start + shardSize
			if end > len(entries) {
				end = len(entries)
			}
			neighbors := make([]model.Neighbor, 0, end-start)
			for i := start; i < end; i++ {
				neighbors = append(neighbors, model.Neighbor{
					FactID:     factIDs[i],
					Similarity: cosine(query, entries[i].vector),
				})
			}
			partials[s] = neighbors
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]model.Neighbor, 0, len(entries))
	for _, p := range partials {
		all = append(all, p...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Similarity != all[j].Similarity {
			return all[i].Similarity > all[j].Similarity
		}
		return all[i].FactID > all[j].FactID
	})

	if k > 0 && len(all) > k {
		all = all[:k]
	}
	return all, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
