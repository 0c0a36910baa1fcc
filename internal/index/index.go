// Package index provides per-account nearest-neighbor search over face
// embedding vectors. Small accounts use an exact flat scan; accounts that
// grow past a threshold are migrated to an HNSW graph. Both backends
// honor the same contract: results ordered by cosine similarity
// descending, ties broken by insertion order.
package index

import "errors"

// ErrDimensionMismatch is returned when an inserted vector does not match
// the index's configured dimension.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Match is a single nearest-neighbor result.
type Match struct {
	FaceID     string
	Similarity float64 // cosine similarity in [-1, 1]
}

// Index is the capability interface for embedding search backends.
type Index interface {
	// Insert adds a vector to the account-scoped index. An existing
	// entry for the same face is replaced.
	Insert(accountID, faceID string, vector []float32) error
	// Remove removes a vector; no-op if absent.
	Remove(faceID string)
	// QueryKNN returns up to k matches with similarity >= minSimilarity,
	// ordered by similarity descending, ties broken by insertion order.
	QueryKNN(accountID string, vector []float32, k int, minSimilarity float64) []Match
	// Count returns the number of vectors indexed for the account.
	Count(accountID string) int
}

// entry is a single indexed vector. seq is the per-account insertion
// sequence used for deterministic tie-breaking.
type entry struct {
	faceID string
	seq    int64
	vector []float32
}

// backend is a per-account search structure.
type backend interface {
	insert(e *entry)
	remove(e *entry)
	search(vector []float32, k int, minSimilarity float64) []Match
	entries() []*entry
}
