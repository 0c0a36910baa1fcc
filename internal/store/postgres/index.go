package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-catalog/internal/index"
)

// queryTimeout bounds a single pgvector search.
const queryTimeout = 10 * time.Second

// VectorIndex implements index.Index directly on the faces table. The
// rows are the index, so Insert and Remove have nothing to do and the
// in-process index rebuild at startup is unnecessary.
type VectorIndex struct {
	store *Store
	dim   int
	log   *logrus.Entry
}

func NewVectorIndex(store *Store, dim int, log *logrus.Logger) *VectorIndex {
	return &VectorIndex{
		store: store,
		dim:   dim,
		log:   log.WithField("component", "pgvector-index"),
	}
}

// Insert validates the dimension; the embedding itself is already
// persisted by CreateFace in the same row the search scans.
func (v *VectorIndex) Insert(accountID, faceID string, vector []float32) error {
	if len(vector) != v.dim {
		return fmt.Errorf("face %s: %w: got %d, want %d", faceID, index.ErrDimensionMismatch, len(vector), v.dim)
	}
	return nil
}

// Remove is a no-op; DeleteFace already dropped the row.
func (v *VectorIndex) Remove(faceID string) {}

func (v *VectorIndex) QueryKNN(accountID string, vector []float32, k int, minSimilarity float64) []index.Match {
	if len(vector) != v.dim || k <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := v.store.q.QueryContext(ctx, `
		SELECT id, 1 - (embedding <=> $2::vector) AS similarity
		FROM faces
		WHERE account_id = $1
		ORDER BY embedding <=> $2::vector, seq
		LIMIT $3`,
		accountID, pgvector.NewVector(vector), k)
	if err != nil {
		v.log.WithError(err).Error("vector search failed")
		return nil
	}
	defer rows.Close()

	var matches []index.Match
	for rows.Next() {
		var m index.Match
		if err := rows.Scan(&m.FaceID, &m.Similarity); err != nil {
			v.log.WithError(err).Error("scan vector match")
			return nil
		}
		if m.Similarity < minSimilarity {
			continue
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		v.log.WithError(err).Error("iterate vector matches")
		return nil
	}
	return matches
}

func (v *VectorIndex) Count(accountID string) int {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	count, err := v.store.CountFaces(ctx, accountID)
	if err != nil {
		v.log.WithError(err).Error("count indexed faces")
		return 0
	}
	return count
}
