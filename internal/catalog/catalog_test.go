package catalog

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-catalog/internal/config"
	"github.com/kozaktomas/face-catalog/internal/detector"
	"github.com/kozaktomas/face-catalog/internal/facegeom"
	"github.com/kozaktomas/face-catalog/internal/index"
	"github.com/kozaktomas/face-catalog/internal/store"
	"github.com/kozaktomas/face-catalog/internal/store/memory"
)

const testDim = 4

type fakeDetector struct {
	result *detector.Result
	err    error
}

func (f *fakeDetector) DetectAndEmbed(_ context.Context, _ []byte) (*detector.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	cfg := &config.Config{
		Embedding:  config.EmbeddingConfig{Model: "buffalo_l", Dim: testDim},
		Identify:   config.IdentifyConfig{K: 5},
		Thresholds: config.ThresholdsConfig{Default: 0.5},
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(memory.New(), index.New(testDim, 0), &fakeDetector{}, cfg, log)
}

func axis(i int) []float32 {
	v := make([]float32, testDim)
	v[i] = 1
	return v
}

func testBBox() facegeom.BBox {
	return facegeom.BBox{X1: 0.1, Y1: 0.1, X2: 0.4, Y2: 0.5}
}

func mustCreateFace(t *testing.T, c *Catalog, account, asset string, emb []float32) *store.Face {
	t.Helper()
	face, err := c.CreateFace(context.Background(), CreateFaceParams{
		AccountID: account,
		AssetID:   asset,
		BBox:      testBBox(),
		Embedding: emb,
	})
	if err != nil {
		t.Fatalf("CreateFace failed: %v", err)
	}
	return face
}

func TestCreateFaceValidation(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		params  CreateFaceParams
		wantErr error
	}{
		{
			name:    "inverted bbox",
			params:  CreateFaceParams{AccountID: "a1", AssetID: "p1", BBox: facegeom.BBox{X1: 0.5, Y1: 0.1, X2: 0.2, Y2: 0.4}, Embedding: axis(0)},
			wantErr: ErrInvalidBoundingBox,
		},
		{
			name:    "bbox outside unit square",
			params:  CreateFaceParams{AccountID: "a1", AssetID: "p1", BBox: facegeom.BBox{X1: 0.5, Y1: 0.1, X2: 1.2, Y2: 0.4}, Embedding: axis(0)},
			wantErr: ErrInvalidBoundingBox,
		},
		{
			name:    "wrong embedding dimension",
			params:  CreateFaceParams{AccountID: "a1", AssetID: "p1", BBox: testBBox(), Embedding: []float32{1, 0}},
			wantErr: ErrDimensionMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CreateFace(ctx, tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if KindOf(err) != KindInvalidInput {
				t.Errorf("expected invalid_input kind, got %s", KindOf(err))
			}
		})
	}
}

func TestCreateFaceIndexesEmbedding(t *testing.T) {
	c := newTestCatalog(t)
	face := mustCreateFace(t, c, "a1", "asset-1", axis(0))

	if face.Model != "buffalo_l" || face.Dim != testDim {
		t.Errorf("face did not inherit account model: %s/%d", face.Model, face.Dim)
	}
	if c.index.Count("a1") != 1 {
		t.Errorf("expected 1 indexed face, got %d", c.index.Count("a1"))
	}

	faces, err := c.FacesByAsset(context.Background(), "a1", "asset-1")
	if err != nil {
		t.Fatalf("FacesByAsset failed: %v", err)
	}
	if len(faces) != 1 || faces[0].ID != face.ID {
		t.Errorf("expected face %s for asset, got %v", face.ID, faces)
	}
}

func TestCreatePersonFromFace(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	face := mustCreateFace(t, c, "a1", "asset-1", axis(0))

	person, err := c.CreatePersonFromFace(ctx, "a1", face.ID)
	if err != nil {
		t.Fatalf("CreatePersonFromFace failed: %v", err)
	}
	if person.FaceCount != 1 {
		t.Errorf("expected face count 1, got %d", person.FaceCount)
	}
	if person.RepresentativeFaceID != face.ID {
		t.Errorf("expected representative %s, got %s", face.ID, person.RepresentativeFaceID)
	}
	if person.Named() {
		t.Error("fresh person should be unnamed")
	}

	got, err := c.store.GetFace(ctx, face.ID)
	if err != nil {
		t.Fatalf("GetFace failed: %v", err)
	}
	if got.PersonID != person.ID {
		t.Errorf("face not assigned to new person: %q", got.PersonID)
	}
}

func TestReassignMovesFaceAndCollectsEmptyPerson(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	f1 := mustCreateFace(t, c, "a1", "asset-1", axis(0))
	f2 := mustCreateFace(t, c, "a1", "asset-2", axis(1))
	p1, err := c.CreatePersonFromFace(ctx, "a1", f1.ID)
	if err != nil {
		t.Fatalf("CreatePersonFromFace failed: %v", err)
	}
	p2, err := c.CreatePersonFromFace(ctx, "a1", f2.ID)
	if err != nil {
		t.Fatalf("CreatePersonFromFace failed: %v", err)
	}

	updated, err := c.Reassign(ctx, "a1", f1.ID, p2.ID)
	if err != nil {
		t.Fatalf("Reassign failed: %v", err)
	}
	if updated.FaceCount != 2 {
		t.Errorf("expected target face count 2, got %d", updated.FaceCount)
	}

	// p1 was unnamed and lost its only face, so it is gone.
	if _, err := c.GetPerson(ctx, "a1", p1.ID); KindOf(err) != KindNotFound {
		t.Errorf("expected empty unnamed person to be collected, got %v", err)
	}
}

func TestReassignKeepsNamedEmptyPerson(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	f1 := mustCreateFace(t, c, "a1", "asset-1", axis(0))
	f2 := mustCreateFace(t, c, "a1", "asset-2", axis(1))
	p1, _ := c.CreatePersonFromFace(ctx, "a1", f1.ID)
	p2, _ := c.CreatePersonFromFace(ctx, "a1", f2.ID)
	if _, err := c.RenamePerson(ctx, "a1", p1.ID, "Alice"); err != nil {
		t.Fatalf("RenamePerson failed: %v", err)
	}

	if _, err := c.Reassign(ctx, "a1", f1.ID, p2.ID); err != nil {
		t.Fatalf("Reassign failed: %v", err)
	}

	kept, err := c.GetPerson(ctx, "a1", p1.ID)
	if err != nil {
		t.Fatalf("named person should survive without faces: %v", err)
	}
	if kept.FaceCount != 0 {
		t.Errorf("expected face count 0, got %d", kept.FaceCount)
	}
	if kept.RepresentativeFaceID != "" {
		t.Errorf("expected no representative, got %s", kept.RepresentativeFaceID)
	}
}

func TestReassignCrossAccountLeavesStateUntouched(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	f1 := mustCreateFace(t, c, "a1", "asset-1", axis(0))
	p1, _ := c.CreatePersonFromFace(ctx, "a1", f1.ID)
	f2 := mustCreateFace(t, c, "a2", "asset-9", axis(1))
	p2, _ := c.CreatePersonFromFace(ctx, "a2", f2.ID)

	_, err := c.Reassign(ctx, "a1", f1.ID, p2.ID)
	if !errors.Is(err, ErrCrossAccountAssignment) {
		t.Fatalf("expected cross account conflict, got %v", err)
	}
	if KindOf(err) != KindConflict {
		t.Errorf("expected conflict kind, got %s", KindOf(err))
	}

	before, _ := c.store.GetFace(ctx, f1.ID)
	if before.PersonID != p1.ID {
		t.Errorf("face assignment changed: %q", before.PersonID)
	}
	target, _ := c.store.GetPerson(ctx, p2.ID)
	if target.FaceCount != 1 {
		t.Errorf("target person changed: %d", target.FaceCount)
	}
}

func TestDetachCollectsUnnamedPerson(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	face := mustCreateFace(t, c, "a1", "asset-1", axis(0))
	person, _ := c.CreatePersonFromFace(ctx, "a1", face.ID)

	if err := c.Detach(ctx, "a1", face.ID); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	got, _ := c.store.GetFace(ctx, face.ID)
	if got.PersonID != "" {
		t.Errorf("face still assigned: %q", got.PersonID)
	}
	if _, err := c.store.GetPerson(ctx, person.ID); !errors.Is(err, store.ErrPersonNotFound) {
		t.Errorf("expected unnamed person collected, got %v", err)
	}

	// Detaching an unassigned face is a no-op.
	if err := c.Detach(ctx, "a1", face.ID); err != nil {
		t.Errorf("second detach should be a no-op, got %v", err)
	}
}

func TestDeleteFaceOrphanProtection(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	face := mustCreateFace(t, c, "a1", "asset-1", axis(0))
	person, _ := c.CreatePersonFromFace(ctx, "a1", face.ID)
	if _, err := c.RenamePerson(ctx, "a1", person.ID, "Alice"); err != nil {
		t.Fatalf("RenamePerson failed: %v", err)
	}

	err := c.DeleteFace(ctx, "a1", face.ID, false)
	if !errors.Is(err, ErrPersonWouldBeOrphaned) {
		t.Fatalf("expected orphan protection, got %v", err)
	}
	if _, err := c.store.GetFace(ctx, face.ID); err != nil {
		t.Fatalf("face should still exist after refused delete: %v", err)
	}

	if err := c.DeleteFace(ctx, "a1", face.ID, true); err != nil {
		t.Fatalf("forced delete failed: %v", err)
	}
	kept, err := c.GetPerson(ctx, "a1", person.ID)
	if err != nil {
		t.Fatalf("named person should survive forced delete: %v", err)
	}
	if kept.FaceCount != 0 || kept.RepresentativeFaceID != "" {
		t.Errorf("person bookkeeping not settled: count=%d rep=%q", kept.FaceCount, kept.RepresentativeFaceID)
	}
}

func TestDeleteFaceCollectsUnnamedPerson(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	face := mustCreateFace(t, c, "a1", "asset-1", axis(0))
	person, _ := c.CreatePersonFromFace(ctx, "a1", face.ID)

	// Unnamed people are not protected by the orphan check.
	if err := c.DeleteFace(ctx, "a1", face.ID, false); err != nil {
		t.Fatalf("DeleteFace failed: %v", err)
	}
	if _, err := c.store.GetPerson(ctx, person.ID); !errors.Is(err, store.ErrPersonNotFound) {
		t.Errorf("expected unnamed person collected, got %v", err)
	}
}

func TestDeleteFaceRemovesIndexEntry(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	f1 := mustCreateFace(t, c, "a1", "asset-1", axis(0))
	mustCreateFace(t, c, "a1", "asset-2", axis(1))
	if c.index.Count("a1") != 2 {
		t.Fatalf("expected 2 indexed faces, got %d", c.index.Count("a1"))
	}

	if err := c.DeleteFace(ctx, "a1", f1.ID, false); err != nil {
		t.Fatalf("DeleteFace failed: %v", err)
	}
	if c.index.Count("a1") != 1 {
		t.Errorf("expected 1 indexed face after delete, got %d", c.index.Count("a1"))
	}
	matches := c.index.QueryKNN("a1", axis(0), 5, 0.9)
	for _, m := range matches {
		if m.FaceID == f1.ID {
			t.Errorf("deleted face still searchable")
		}
	}
}

func TestTenantIsolation(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	face := mustCreateFace(t, c, "a1", "asset-1", axis(0))
	person, _ := c.CreatePersonFromFace(ctx, "a1", face.ID)

	if _, err := c.store.GetFace(ctx, face.ID); err != nil {
		t.Fatalf("GetFace failed: %v", err)
	}
	if err := c.DeleteFace(ctx, "a2", face.ID, false); KindOf(err) != KindNotFound {
		t.Errorf("foreign account delete: expected not_found, got %v", err)
	}
	if _, err := c.GetPerson(ctx, "a2", person.ID); KindOf(err) != KindNotFound {
		t.Errorf("foreign account person read: expected not_found, got %v", err)
	}
	if err := c.Detach(ctx, "a2", face.ID); KindOf(err) != KindNotFound {
		t.Errorf("foreign account detach: expected not_found, got %v", err)
	}
}

func TestRenameAndListPeople(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	face := mustCreateFace(t, c, "a1", "asset-1", axis(0))
	person, _ := c.CreatePersonFromFace(ctx, "a1", face.ID)

	if _, err := c.RenamePerson(ctx, "a1", person.ID, "   "); KindOf(err) != KindInvalidInput {
		t.Errorf("blank name: expected invalid_input, got %v", err)
	}
	// Punctuation survives normalization but does not make a name.
	if _, err := c.RenamePerson(ctx, "a1", person.ID, "!!!"); KindOf(err) != KindInvalidInput {
		t.Errorf("punctuation-only name: expected invalid_input, got %v", err)
	}

	renamed, err := c.RenamePerson(ctx, "a1", person.ID, "Tomáš Novák")
	if err != nil {
		t.Fatalf("RenamePerson failed: %v", err)
	}
	if !renamed.Named() {
		t.Error("renamed person should be named")
	}

	// Name filtering ignores case and diacritics.
	people, err := c.ListPeople(ctx, "a1", "tomas novak")
	if err != nil {
		t.Fatalf("ListPeople failed: %v", err)
	}
	if len(people) != 1 || people[0].ID != person.ID {
		t.Errorf("expected filtered list with %s, got %v", person.ID, people)
	}

	people, err = c.ListPeople(ctx, "a1", "someone else")
	if err != nil {
		t.Fatalf("ListPeople failed: %v", err)
	}
	if len(people) != 0 {
		t.Errorf("expected empty list, got %v", people)
	}
}

func TestSetRepresentativeFace(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	f1 := mustCreateFace(t, c, "a1", "asset-1", axis(0))
	f2 := mustCreateFace(t, c, "a1", "asset-2", axis(1))
	person, _ := c.CreatePersonFromFace(ctx, "a1", f1.ID)
	if _, err := c.Reassign(ctx, "a1", f2.ID, person.ID); err != nil {
		t.Fatalf("Reassign failed: %v", err)
	}

	updated, err := c.SetRepresentativeFace(ctx, "a1", person.ID, f2.ID)
	if err != nil {
		t.Fatalf("SetRepresentativeFace failed: %v", err)
	}
	if updated.RepresentativeFaceID != f2.ID {
		t.Errorf("expected representative %s, got %s", f2.ID, updated.RepresentativeFaceID)
	}

	stray := mustCreateFace(t, c, "a1", "asset-3", axis(2))
	if _, err := c.SetRepresentativeFace(ctx, "a1", person.ID, stray.ID); KindOf(err) != KindConflict {
		t.Errorf("unassigned face: expected conflict, got %v", err)
	}
}

func TestFaceCountInvariantUnderRandomMutations(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	var faces []*store.Face
	for i := 0; i < 12; i++ {
		faces = append(faces, mustCreateFace(t, c, "a1", "asset-x", axis(i%testDim)))
	}
	var people []*store.Person
	for i := 0; i < 3; i++ {
		p, err := c.CreatePersonFromFace(ctx, "a1", faces[i].ID)
		if err != nil {
			t.Fatalf("CreatePersonFromFace failed: %v", err)
		}
		if _, err := c.RenamePerson(ctx, "a1", p.ID, "person "+p.ID[:8]); err != nil {
			t.Fatalf("RenamePerson failed: %v", err)
		}
		people = append(people, p)
	}

	for i := 0; i < 200; i++ {
		face := faces[rng.Intn(len(faces))]
		if rng.Intn(3) == 0 {
			err := c.Detach(ctx, "a1", face.ID)
			if err != nil && KindOf(err) != KindNotFound {
				t.Fatalf("Detach failed: %v", err)
			}
		} else {
			person := people[rng.Intn(len(people))]
			if _, err := c.Reassign(ctx, "a1", face.ID, person.ID); err != nil {
				t.Fatalf("Reassign failed: %v", err)
			}
		}
	}

	for _, p := range people {
		got, err := c.GetPerson(ctx, "a1", p.ID)
		if err != nil {
			t.Fatalf("GetPerson failed: %v", err)
		}
		actual, err := c.store.CountFacesByPerson(ctx, p.ID)
		if err != nil {
			t.Fatalf("CountFacesByPerson failed: %v", err)
		}
		if got.FaceCount != actual {
			t.Errorf("person %s: stored count %d, actual %d", p.ID, got.FaceCount, actual)
		}
	}
}

func TestConcurrentReassignsKeepCountsConsistent(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	var faces []*store.Face
	for i := 0; i < 8; i++ {
		faces = append(faces, mustCreateFace(t, c, "a1", "asset-x", axis(i%testDim)))
	}
	seed := mustCreateFace(t, c, "a1", "asset-y", axis(0))
	p1, _ := c.CreatePersonFromFace(ctx, "a1", seed.ID)
	seed2 := mustCreateFace(t, c, "a1", "asset-y", axis(1))
	p2, _ := c.CreatePersonFromFace(ctx, "a1", seed2.ID)
	if _, err := c.RenamePerson(ctx, "a1", p1.ID, "One"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.RenamePerson(ctx, "a1", p2.ID, "Two"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(w)))
			targets := []*store.Person{p1, p2}
			for i := 0; i < 50; i++ {
				face := faces[rng.Intn(len(faces))]
				target := targets[rng.Intn(2)]
				if _, err := c.Reassign(ctx, "a1", face.ID, target.ID); err != nil {
					t.Errorf("Reassign failed: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	for _, p := range []*store.Person{p1, p2} {
		got, err := c.GetPerson(ctx, "a1", p.ID)
		if err != nil {
			t.Fatalf("GetPerson failed: %v", err)
		}
		actual, err := c.store.CountFacesByPerson(ctx, p.ID)
		if err != nil {
			t.Fatalf("CountFacesByPerson failed: %v", err)
		}
		if got.FaceCount != actual {
			t.Errorf("person %s: stored count %d, actual %d", p.ID, got.FaceCount, actual)
		}
	}
}

func TestStatsAndRebuild(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	f1 := mustCreateFace(t, c, "a1", "asset-1", axis(0))
	mustCreateFace(t, c, "a1", "asset-2", axis(1))
	mustCreateFace(t, c, "a2", "asset-9", axis(2))
	if _, err := c.CreatePersonFromFace(ctx, "a1", f1.ID); err != nil {
		t.Fatal(err)
	}

	stats, err := c.Stats(ctx, "a1")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Faces != 2 || stats.People != 1 || stats.Indexed != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	// Rebuild into a fresh index reproduces the same searchable set.
	c.index = index.New(testDim, 0)
	var calls int
	n, err := c.RebuildIndex(ctx, func(done, total int) { calls = total })
	if err != nil {
		t.Fatalf("RebuildIndex failed: %v", err)
	}
	if n != 3 || calls != 3 {
		t.Errorf("expected 3 faces rebuilt, got n=%d total=%d", n, calls)
	}
	if c.index.Count("a1") != 2 || c.index.Count("a2") != 1 {
		t.Errorf("rebuild partitioning wrong: a1=%d a2=%d", c.index.Count("a1"), c.index.Count("a2"))
	}
}

func TestReassignFollowsConcurrentMove(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	f := mustCreateFace(t, c, "a1", "asset-1", axis(0))
	p1, err := c.CreatePersonFromFace(ctx, "a1", f.ID)
	if err != nil {
		t.Fatalf("CreatePersonFromFace failed: %v", err)
	}
	f2 := mustCreateFace(t, c, "a1", "asset-1", axis(1))
	p2, err := c.CreatePersonFromFace(ctx, "a1", f2.ID)
	if err != nil {
		t.Fatalf("CreatePersonFromFace failed: %v", err)
	}
	f3 := mustCreateFace(t, c, "a1", "asset-1", axis(2))
	p3, err := c.CreatePersonFromFace(ctx, "a1", f3.ID)
	if err != nil {
		t.Fatalf("CreatePersonFromFace failed: %v", err)
	}

	// Hold p1's lock so the reassign below reads the stale assignment
	// and parks, then move the face to p2 underneath it. Once the
	// reassign gets its locks it must notice the move and settle p2,
	// not the no-longer-involved p1.
	done := make(chan error, 1)
	err = c.locks.withPerson(p1.ID, func() error {
		go func() {
			_, err := c.Reassign(ctx, "a1", f.ID, p3.ID)
			done <- err
		}()
		time.Sleep(50 * time.Millisecond)

		return c.store.RunInTx(ctx, func(tx store.Store) error {
			if err := tx.UpdateFacePerson(ctx, f.ID, p2.ID); err != nil {
				return err
			}
			interim, err := tx.GetPerson(ctx, p2.ID)
			if err != nil {
				return err
			}
			interim.FaceCount = 2
			if err := tx.UpdatePerson(ctx, interim); err != nil {
				return err
			}
			return tx.DeletePerson(ctx, p1.ID)
		})
	})
	if err != nil {
		t.Fatalf("concurrent move failed: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Reassign failed: %v", err)
	}

	got, err := c.store.GetFace(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetFace failed: %v", err)
	}
	if got.PersonID != p3.ID {
		t.Errorf("expected face on %s, got %s", p3.ID, got.PersonID)
	}
	target, err := c.GetPerson(ctx, "a1", p3.ID)
	if err != nil {
		t.Fatalf("GetPerson failed: %v", err)
	}
	if target.FaceCount != 2 {
		t.Errorf("expected target face count 2, got %d", target.FaceCount)
	}
	interim, err := c.GetPerson(ctx, "a1", p2.ID)
	if err != nil {
		t.Fatalf("GetPerson failed: %v", err)
	}
	if interim.FaceCount != 1 {
		t.Errorf("expected interim person face count 1, got %d", interim.FaceCount)
	}
	if _, err := c.GetPerson(ctx, "a1", p1.ID); KindOf(err) != KindNotFound {
		t.Errorf("expected original person to be gone, got %v", err)
	}
}

func TestCreatePersonFromFaceFollowsConcurrentMove(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	f := mustCreateFace(t, c, "a1", "asset-1", axis(0))
	p1, err := c.CreatePersonFromFace(ctx, "a1", f.ID)
	if err != nil {
		t.Fatalf("CreatePersonFromFace failed: %v", err)
	}
	f2 := mustCreateFace(t, c, "a1", "asset-1", axis(1))
	p2, err := c.CreatePersonFromFace(ctx, "a1", f2.ID)
	if err != nil {
		t.Fatalf("CreatePersonFromFace failed: %v", err)
	}

	type result struct {
		person *store.Person
		err    error
	}
	done := make(chan result, 1)
	err = c.locks.withPerson(p1.ID, func() error {
		go func() {
			p, err := c.CreatePersonFromFace(ctx, "a1", f.ID)
			done <- result{p, err}
		}()
		time.Sleep(50 * time.Millisecond)

		return c.store.RunInTx(ctx, func(tx store.Store) error {
			if err := tx.UpdateFacePerson(ctx, f.ID, p2.ID); err != nil {
				return err
			}
			interim, err := tx.GetPerson(ctx, p2.ID)
			if err != nil {
				return err
			}
			interim.FaceCount = 2
			if err := tx.UpdatePerson(ctx, interim); err != nil {
				return err
			}
			return tx.DeletePerson(ctx, p1.ID)
		})
	})
	if err != nil {
		t.Fatalf("concurrent move failed: %v", err)
	}
	res := <-done
	if res.err != nil {
		t.Fatalf("CreatePersonFromFace failed: %v", res.err)
	}

	got, err := c.store.GetFace(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetFace failed: %v", err)
	}
	if got.PersonID != res.person.ID {
		t.Errorf("expected face on %s, got %s", res.person.ID, got.PersonID)
	}
	fresh, err := c.GetPerson(ctx, "a1", res.person.ID)
	if err != nil {
		t.Fatalf("GetPerson failed: %v", err)
	}
	if fresh.FaceCount != 1 || fresh.RepresentativeFaceID != f.ID {
		t.Errorf("unexpected fresh person: %+v", fresh)
	}
	interim, err := c.GetPerson(ctx, "a1", p2.ID)
	if err != nil {
		t.Fatalf("GetPerson failed: %v", err)
	}
	if interim.FaceCount != 1 {
		t.Errorf("expected interim person face count 1, got %d", interim.FaceCount)
	}
	if _, err := c.GetPerson(ctx, "a1", p1.ID); KindOf(err) != KindNotFound {
		t.Errorf("expected original person to be gone, got %v", err)
	}
}
