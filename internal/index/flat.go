package index

import "sort"

// flatBackend is an exact scan over all entries, kept in insertion order.
// Fast enough for small accounts and the reference for correctness.
type flatBackend struct {
	items []*entry
}

func newFlatBackend() *flatBackend {
	return &flatBackend{}
}

func (f *flatBackend) insert(e *entry) {
	f.items = append(f.items, e)
}

func (f *flatBackend) remove(e *entry) {
	for i, item := range f.items {
		if item.seq == e.seq {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return
		}
	}
}

func (f *flatBackend) search(vector []float32, k int, minSimilarity float64) []Match {
	type scored struct {
		Match
		seq int64
	}

	var results []scored
	for _, item := range f.items {
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

func (f *flatBackend) entries() []*entry {
	return f.items
}
