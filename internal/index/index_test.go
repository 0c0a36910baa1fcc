package index

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

const testDim = 4

func unit(x, y, z, w float32) []float32 {
	v := []float32{x, y, z, w}
	var norm float64
	for _, c := range v {
		norm += float64(c) * float64(c)
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func TestQueryKNNExactMatchRankedFirst(t *testing.T) {
	for _, threshold := range []int{0, 1} { // flat and hnsw backends
		t.Run(fmt.Sprintf("threshold=%d", threshold), func(t *testing.T) {
			idx := New(testDim, threshold)

			target := unit(1, 0, 0, 0)
			if err := idx.Insert("acc", "face-a", unit(0, 1, 0, 0)); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			if err := idx.Insert("acc", "face-b", target); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			if err := idx.Insert("acc", "face-c", unit(1, 1, 0, 0)); err != nil {
				t.Fatalf("Insert: %v", err)
			}

			matches := idx.QueryKNN("acc", target, 10, -1)
			if len(matches) != 3 {
				t.Fatalf("expected 3 matches, got %d", len(matches))
			}
			if matches[0].FaceID != "face-b" {
				t.Errorf("expected face-b ranked first, got %s", matches[0].FaceID)
			}
			if math.Abs(matches[0].Similarity-1.0) > 1e-6 {
				t.Errorf("expected similarity 1.0 for identical vector, got %f", matches[0].Similarity)
			}
			if matches[1].Similarity < matches[2].Similarity {
				t.Error("matches not ordered by similarity descending")
			}
		})
	}
}

func TestQueryKNNMinSimilarityFilter(t *testing.T) {
	idx := New(testDim, 0)

	query := unit(1, 0, 0, 0)
	idx.Insert("acc", "close", unit(1, 0.1, 0, 0))
	idx.Insert("acc", "orthogonal", unit(0, 1, 0, 0))
	idx.Insert("acc", "opposite", unit(-1, 0, 0, 0))

	matches := idx.QueryKNN("acc", query, 10, 0.5)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match above threshold, got %d", len(matches))
	}
	if matches[0].FaceID != "close" {
		t.Errorf("expected 'close', got %s", matches[0].FaceID)
	}
}

func TestQueryKNNTieBrokenByInsertionOrder(t *testing.T) {
	for _, threshold := range []int{0, 1} {
		t.Run(fmt.Sprintf("threshold=%d", threshold), func(t *testing.T) {
			idx := New(testDim, threshold)

			v := unit(1, 2, 3, 4)
			idx.Insert("acc", "second", unit(0, 0, 0, 1))
			// Insertion order differs from lexicographic face ID order on purpose.
			idx.Insert("acc", "z-first", v)
			idx.Insert("acc", "a-later", v)

			matches := idx.QueryKNN("acc", v, 2, 0.9)
			if len(matches) != 2 {
				t.Fatalf("expected 2 matches, got %d", len(matches))
			}
			if matches[0].FaceID != "z-first" || matches[1].FaceID != "a-later" {
				t.Errorf("tie not broken by insertion order: got %s, %s",
					matches[0].FaceID, matches[1].FaceID)
			}
		})
	}
}

func TestInsertDimensionMismatch(t *testing.T) {
	idx := New(testDim, 0)

	err := idx.Insert("acc", "face", []float32{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for wrong dimension")
	}
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if idx.Count("acc") != 0 {
		t.Error("failed insert must not change index size")
	}
}

func TestRemove(t *testing.T) {
	for _, threshold := range []int{0, 1} {
		t.Run(fmt.Sprintf("threshold=%d", threshold), func(t *testing.T) {
			idx := New(testDim, threshold)

			idx.Insert("acc", "keep", unit(1, 0, 0, 0))
			idx.Insert("acc", "drop", unit(0, 1, 0, 0))

			before := idx.Count("acc")
			idx.Remove("drop")
			if idx.Count("acc") != before-1 {
				t.Errorf("expected count %d after removal, got %d", before-1, idx.Count("acc"))
			}

			matches := idx.QueryKNN("acc", unit(0, 1, 0, 0), 10, -1)
			for _, m := range matches {
				if m.FaceID == "drop" {
					t.Error("removed face still returned by search")
				}
			}

			// Removing an absent face is a no-op, not an error.
			idx.Remove("drop")
			idx.Remove("never-existed")
			if idx.Count("acc") != before-1 {
				t.Error("no-op removal changed index size")
			}
		})
	}
}

func TestInsertReplacesExistingFace(t *testing.T) {
	idx := New(testDim, 0)

	idx.Insert("acc", "face", unit(1, 0, 0, 0))
	idx.Insert("acc", "face", unit(0, 1, 0, 0))

	if idx.Count("acc") != 1 {
		t.Fatalf("expected 1 entry after replacement, got %d", idx.Count("acc"))
	}
	matches := idx.QueryKNN("acc", unit(0, 1, 0, 0), 1, 0.99)
	if len(matches) != 1 || matches[0].FaceID != "face" {
		t.Errorf("replacement vector not searchable: %+v", matches)
	}
}

func TestAccountPartitioning(t *testing.T) {
	idx := New(testDim, 0)

	v := unit(1, 0, 0, 0)
	idx.Insert("tenant-a", "face-a", v)
	idx.Insert("tenant-b", "face-b", v)

	matches := idx.QueryKNN("tenant-a", v, 10, -1)
	if len(matches) != 1 || matches[0].FaceID != "face-a" {
		t.Errorf("cross-tenant leakage: %+v", matches)
	}
	if idx.Count("tenant-b") != 1 {
		t.Errorf("expected 1 entry for tenant-b, got %d", idx.Count("tenant-b"))
	}
	if got := idx.QueryKNN("tenant-c", v, 10, -1); len(got) != 0 {
		t.Errorf("unknown account returned matches: %+v", got)
	}
}

func TestFlatHNSWParity(t *testing.T) {
	flat := New(testDim, 0)
	graph := New(testDim, 1)

	vecs := [][]float32{
		unit(1, 0, 0, 0),
		unit(0.9, 0.1, 0, 0),
		unit(0, 1, 0, 0),
		unit(0.5, 0.5, 0.5, 0.5),
		unit(-1, 0, 0, 0),
	}
	for i, v := range vecs {
		id := fmt.Sprintf("face-%d", i)
		flat.Insert("acc", id, v)
		graph.Insert("acc", id, v)
	}

	query := unit(1, 0.05, 0, 0)
	a := flat.QueryKNN("acc", query, 3, 0)
	b := graph.QueryKNN("acc", query, 3, 0)

	if len(a) != len(b) {
		t.Fatalf("result lengths differ: flat=%d hnsw=%d", len(a), len(b))
	}
	for i := range a {
		if a[i].FaceID != b[i].FaceID {
			t.Errorf("rank %d differs: flat=%s hnsw=%s", i, a[i].FaceID, b[i].FaceID)
		}
		if math.Abs(a[i].Similarity-b[i].Similarity) > 1e-9 {
			t.Errorf("rank %d similarity differs: flat=%f hnsw=%f", i, a[i].Similarity, b[i].Similarity)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1.0},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 2, 3}, -1.0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, -1.0},
		{"empty", nil, nil, -1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}
