package index

import (
	"fmt"
	"sync"
)

// DefaultHNSWThreshold is the account size at which a flat shard is
// migrated to an HNSW graph.
const DefaultHNSWThreshold = 2000

// shard holds one account's entries behind its own lock, so reads and
// writes for different accounts never contend.
type shard struct {
	mu      sync.RWMutex
	byFace  map[string]*entry
	backend backend
	nextSeq int64
}

// Partitioned is the account-partitioned embedding index. Each account
// starts on an exact flat scan and is migrated to HNSW once it crosses
// hnswThreshold entries.
type Partitioned struct {
	mu            sync.RWMutex
	shards        map[string]*shard
	faceAccount   map[string]string // faceID -> accountID, for Remove
	dim           int
	hnswThreshold int
}

var _ Index = (*Partitioned)(nil)

// New creates an empty partitioned index for vectors of the given
// dimension. hnswThreshold <= 0 disables HNSW migration (flat scan only).
func New(dim, hnswThreshold int) *Partitioned {
	return &Partitioned{
		shards:        make(map[string]*shard),
		faceAccount:   make(map[string]string),
		dim:           dim,
		hnswThreshold: hnswThreshold,
	}
}

// Insert adds a vector to the account's shard. An existing entry for the
// same face is replaced. Fails with ErrDimensionMismatch if the vector
// length does not match the configured dimension.
func (p *Partitioned) Insert(accountID, faceID string, vector []float32) error {
	if len(vector) != p.dim {
		return fmt.Errorf("face %s: got %d dimensions, want %d: %w",
			faceID, len(vector), p.dim, ErrDimensionMismatch)
	}

	s := p.shardFor(accountID, true)

	// Copy so later caller mutation cannot corrupt the index.
	vec := make([]float32, len(vector))
	copy(vec, vector)

	s.mu.Lock()
	if old, ok := s.byFace[faceID]; ok {
		s.backend.remove(old)
	}
	s.nextSeq++
	e := &entry{faceID: faceID, seq: s.nextSeq, vector: vec}
	s.byFace[faceID] = e
	s.backend.insert(e)
	p.maybeUpgrade(s)
	s.mu.Unlock()

	p.mu.Lock()
	p.faceAccount[faceID] = accountID
	p.mu.Unlock()

	return nil
}

// Remove removes a face's vector; no-op (not an error) if absent.
func (p *Partitioned) Remove(faceID string) {
	p.mu.Lock()
	accountID, ok := p.faceAccount[faceID]
	if ok {
		delete(p.faceAccount, faceID)
	}
	p.mu.Unlock()
	if !ok {
		return
	}

	s := p.shardFor(accountID, false)
	if s == nil {
		return
	}

	s.mu.Lock()
	if e, ok := s.byFace[faceID]; ok {
		delete(s.byFace, faceID)
		s.backend.remove(e)
	}
	s.mu.Unlock()
}

// QueryKNN returns up to k matches for the account with similarity >=
// minSimilarity, ordered by similarity descending, ties broken by
// insertion order (earliest first).
func (p *Partitioned) QueryKNN(accountID string, vector []float32, k int, minSimilarity float64) []Match {
	if k <= 0 || len(vector) != p.dim {
		return nil
	}

	s := p.shardFor(accountID, false)
	if s == nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend.search(vector, k, minSimilarity)
}

// Count returns the number of vectors indexed for the account.
func (p *Partitioned) Count(accountID string) int {
	s := p.shardFor(accountID, false)
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byFace)
}

// shardFor returns the account's shard, creating it when create is set.
func (p *Partitioned) shardFor(accountID string, create bool) *shard {
	p.mu.RLock()
	s := p.shards[accountID]
	p.mu.RUnlock()
	if s != nil || !create {
		return s
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if s = p.shards[accountID]; s == nil {
		s = &shard{
			byFace:  make(map[string]*entry),
			backend: newFlatBackend(),
		}
		p.shards[accountID] = s
	}
	return s
}

// maybeUpgrade migrates a flat shard to HNSW once it crosses the
// threshold. Caller must hold the shard write lock.
func (p *Partitioned) maybeUpgrade(s *shard) {
	if p.hnswThreshold <= 0 || len(s.byFace) < p.hnswThreshold {
		return
	}
	flat, ok := s.backend.(*flatBackend)
	if !ok {
		return
	}

	h := newHNSWBackend()
	for _, e := range flat.entries() {
		h.insert(e)
	}
	s.backend = h
}
