package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-catalog/internal/facegeom"
	"github.com/kozaktomas/face-catalog/internal/store"
)

// CreateFaceParams describes a manually registered face. The bounding
// box is relative to the asset's image dimensions.
type CreateFaceParams struct {
	AccountID string
	AssetID   string
	BBox      facegeom.BBox
	Embedding []float32
	Source    store.Source
}

// CreateFace registers a face for an asset and makes its embedding
// searchable. The store write and the index insert form one logical
// operation: if the index rejects the embedding the stored face is
// rolled back.
func (c *Catalog) CreateFace(ctx context.Context, p CreateFaceParams) (*store.Face, error) {
	if p.AccountID == "" || p.AssetID == "" {
		return nil, newError(KindInvalidInput, "account id and asset id are required")
	}
	if !p.BBox.Valid() {
		return nil, wrapError(KindInvalidInput, ErrInvalidBoundingBox, "bbox [%.3f %.3f %.3f %.3f] out of range", p.BBox.X1, p.BBox.Y1, p.BBox.X2, p.BBox.Y2)
	}
	if len(p.Embedding) != c.cfg.Embedding.Dim {
		return nil, wrapError(KindInvalidInput, ErrDimensionMismatch, "got %d, want %d", len(p.Embedding), c.cfg.Embedding.Dim)
	}

	source := p.Source
	if source == "" {
		source = store.SourceManual
	}

	face := &store.Face{
		ID:        uuid.NewString(),
		AccountID: p.AccountID,
		AssetID:   p.AssetID,
		BBox:      p.BBox,
		Embedding: p.Embedding,
		Model:     c.cfg.Embedding.Model,
		Dim:       c.cfg.Embedding.Dim,
		Source:    source,
	}

	err := c.store.RunInTx(ctx, func(tx store.Store) error {
		return tx.CreateFace(ctx, face)
	})
	if err != nil {
		return nil, storeErr(err)
	}

	if err := c.index.Insert(face.AccountID, face.ID, face.Embedding); err != nil {
		// Compensate so the face is not stored but unsearchable.
		if delErr := c.store.RunInTx(ctx, func(tx store.Store) error {
			return tx.DeleteFace(ctx, face.ID)
		}); delErr != nil {
			c.log.WithError(delErr).WithField("face_id", face.ID).Error("could not roll back face after index failure")
		}
		return nil, wrapError(KindInternal, err, "could not index face embedding")
	}

	c.log.WithFields(logrus.Fields{
		"face_id":  face.ID,
		"asset_id": face.AssetID,
		"account":  face.AccountID,
	}).Info("face created")
	return face, nil
}

// FacesByAsset lists the faces registered for one asset.
func (c *Catalog) FacesByAsset(ctx context.Context, accountID, assetID string) ([]store.Face, error) {
	if accountID == "" || assetID == "" {
		return nil, newError(KindInvalidInput, "account id and asset id are required")
	}
	faces, err := c.store.FacesByAsset(ctx, accountID, assetID)
	if err != nil {
		return nil, storeErr(err)
	}
	return faces, nil
}

// DeleteFace removes a face from the catalog and the embedding index.
// Deleting the last face of a named person requires force; the person
// record then survives with a zero face count. Unnamed people left
// without faces are collected.
func (c *Catalog) DeleteFace(ctx context.Context, accountID, faceID string, force bool) error {
	face, err := c.faceForAccount(ctx, accountID, faceID)
	if err != nil {
		return err
	}

	// The assignment can change between the lookup and taking the
	// person lock; re-check under the lock and follow the move.
	for {
		personID := face.PersonID
		retry := false
		err = c.locks.withPerson(personID, func() error {
			return c.store.RunInTx(ctx, func(tx store.Store) error {
				cur, err := tx.GetFace(ctx, faceID)
				if err != nil {
					return err
				}
				if cur.PersonID != personID {
					face = cur
					retry = true
					return errors.New("assignment changed")
				}

				if personID != "" && !force {
					person, err := tx.GetPerson(ctx, personID)
					if err != nil {
						return err
					}
					if person.Named() && person.FaceCount == 1 {
						return ErrPersonWouldBeOrphaned
					}
				}

				if err := tx.DeleteFace(ctx, faceID); err != nil {
					return err
				}
				if personID != "" {
					return c.settlePerson(ctx, tx, personID, faceID)
				}
				return nil
			})
		})
		if !retry {
			break
		}
	}
	if err != nil {
		return storeErr(err)
	}

	c.index.Remove(faceID)
	c.log.WithFields(logrus.Fields{
		"face_id": faceID,
		"account": accountID,
		"force":   force,
	}).Info("face deleted")
	return nil
}

// faceForAccount loads a face and hides its existence from other
// accounts.
func (c *Catalog) faceForAccount(ctx context.Context, accountID, faceID string) (*store.Face, error) {
	face, err := c.store.GetFace(ctx, faceID)
	if err != nil {
		return nil, storeErr(err)
	}
	if face.AccountID != accountID {
		return nil, wrapError(KindNotFound, store.ErrFaceNotFound, "face not found")
	}
	return face, nil
}
