package catalog

import (
	"context"
	"errors"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/face-catalog/internal/detector"
	"github.com/kozaktomas/face-catalog/internal/facegeom"
	"github.com/kozaktomas/face-catalog/internal/index"
	"github.com/kozaktomas/face-catalog/internal/store"
)

// Overlapping detections above this IoU are treated as the same face;
// the higher-confidence one wins.
const duplicateIoU = 0.85

// Candidate is one possible identity for a detected face.
type Candidate struct {
	PersonID   string  `json:"person_id"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
	FaceCount  int     `json:"face_count"`
}

// Identification is the result for a single detected face. Candidates
// are ordered by similarity descending and may be empty when nothing in
// the account's catalog comes close enough.
type Identification struct {
	BBox       facegeom.BBox `json:"bbox"`
	Confidence float64       `json:"confidence"`
	Candidates []Candidate   `json:"candidates"`
}

// Identify runs detection and embedding on an uploaded image and ranks
// known people against every detected face. The catalog is not
// modified; repeated calls with the same image give the same answer.
func (c *Catalog) Identify(ctx context.Context, accountID string, image []byte) ([]Identification, error) {
	if accountID == "" {
		return nil, newError(KindInvalidInput, "account id is required")
	}
	if len(image) == 0 {
		return nil, ErrEmptyUpload
	}

	det, err := c.detector.DetectAndEmbed(ctx, image)
	if err != nil {
		if errors.Is(err, detector.ErrModelUnavailable) {
			return nil, wrapError(KindUnavailable, err, "detector unavailable")
		}
		return nil, wrapError(KindInvalidInput, err, "detector rejected image")
	}
	if det.Model != "" && det.Model != c.cfg.Embedding.Model {
		return nil, newError(KindInternal, "detector served model %s, account configured %s", det.Model, c.cfg.Embedding.Model)
	}

	obs := dedupeObservations(det.Observations)
	c.log.WithFields(logrus.Fields{
		"account":  accountID,
		"detected": len(det.Observations),
		"kept":     len(obs),
	}).Debug("faces detected")

	minSim := c.cfg.MinSimilarityFor(c.cfg.Embedding.Model)
	results := make([]Identification, len(obs))

	g, ctx := errgroup.WithContext(ctx)
	for i, o := range obs {
		g.Go(func() error {
			matches := c.index.QueryKNN(accountID, o.Embedding, c.cfg.Identify.K, minSim)
			candidates, err := c.resolveCandidates(ctx, matches)
			if err != nil {
				return err
			}
			results[i] = Identification{
				BBox:       facegeom.FromPixels(o.BBox[0], o.BBox[1], o.BBox[2], o.BBox[3], det.Width, det.Height),
				Confidence: o.Confidence,
				Candidates: candidates,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storeErr(err)
	}
	return results, nil
}

// resolveCandidates collapses face-level matches into person-level
// candidates, keeping the best similarity per person. Matches whose
// face vanished since indexing or was never assigned are skipped.
func (c *Catalog) resolveCandidates(ctx context.Context, matches []index.Match) ([]Candidate, error) {
	best := map[string]float64{}
	order := []string{}
	for _, m := range matches {
		face, err := c.store.GetFace(ctx, m.FaceID)
		if err != nil {
			if errors.Is(err, store.ErrFaceNotFound) {
				continue
			}
			return nil, err
		}
		if face.PersonID == "" {
			continue
		}
		if cur, ok := best[face.PersonID]; !ok || m.Similarity > cur {
			if !ok {
				order = append(order, face.PersonID)
			}
			best[face.PersonID] = m.Similarity
		}
	}

	candidates := make([]Candidate, 0, len(order))
	for _, personID := range order {
		person, err := c.store.GetPerson(ctx, personID)
		if err != nil {
			if errors.Is(err, store.ErrPersonNotFound) {
				continue
			}
			return nil, err
		}
		candidates = append(candidates, Candidate{
			PersonID:   person.ID,
			Name:       person.Name,
			Similarity: best[personID],
			FaceCount:  person.FaceCount,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	return candidates, nil
}

// dedupeObservations drops detections overlapping an already kept one.
// Observations arrive sorted by confidence descending, so the kept one
// is always the more confident of the pair.
func dedupeObservations(obs []detector.Observation) []detector.Observation {
	kept := make([]detector.Observation, 0, len(obs))
	for _, o := range obs {
		dup := false
		for _, k := range kept {
			a := facegeom.BBox{X1: k.BBox[0], Y1: k.BBox[1], X2: k.BBox[2], Y2: k.BBox[3]}
			b := facegeom.BBox{X1: o.BBox[0], Y1: o.BBox[1], X2: o.BBox[2], Y2: o.BBox[3]}
			if facegeom.IoU(a, b) >= duplicateIoU {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, o)
		}
	}
	return kept
}
