package index

import (
	"sort"

	"github.com/coder/hnsw"
)

// HNSW index parameters, tuned for 512-dim face embeddings.
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	hnswMaxNeighbors = 16

	// hnswSearchMultiplier is the factor to request more candidates from
	// HNSW to ensure enough survive tombstone and similarity filtering.
	hnswSearchMultiplier = 3
)

// hnswBackend wraps a coder/hnsw graph. The graph does not support true
// deletion, so removed entries are tombstoned: dropped from the alive map
// and filtered out of search results.
type hnswBackend struct {
	graph *hnsw.Graph[int64]
	alive map[int64]*entry // keyed by insertion seq
	dead  int              // tombstone count, drives search oversampling
}

func newHNSWBackend() *hnswBackend {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance

	return &hnswBackend{
		graph: g,
		alive: make(map[int64]*entry),
	}
}

func (h *hnswBackend) insert(e *entry) {
	h.graph.Add(hnsw.MakeNode(e.seq, e.vector))
	h.alive[e.seq] = e
}

func (h *hnswBackend) remove(e *entry) {
	if _, ok := h.alive[e.seq]; !ok {
		return
	}
	delete(h.alive, e.seq)
	h.dead++
}

func (h *hnswBackend) search(vector []float32, k int, minSimilarity float64) []Match {
	if len(h.alive) == 0 {
		return nil
	}

	// Oversample to compensate for tombstones and similarity filtering.
	want := k*hnswSearchMultiplier + h.dead
	if total := len(h.alive) + h.dead; want > total {
		want = total
	}

	neighbors := h.graph.Search(vector, want)

	type scored struct {
		Match
		seq int64
	}

	var results []scored
	for _, n := range neighbors {
		item, ok := h.alive[n.Key]
		if !ok {
			continue // tombstoned
		}
		// Exact similarity from the stored vector, not the graph's
		// internal distance, so scores match the flat backend.
		sim := CosineSimilarity(vector, item.vector)
		if sim < minSimilarity {
			continue
		}
		results = append(results, scored{Match{FaceID: item.faceID, Similarity: sim}, item.seq})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].seq < results[j].seq
	})

	if len(results) > k {
		results = results[:k]
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = r.Match
	}
	return matches
}

func (h *hnswBackend) entries() []*entry {
	items := make([]*entry, 0, len(h.alive))
	for _, e := range h.alive {
		items = append(items, e)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].seq < items[j].seq })
	return items
}
