package catalog

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-catalog/internal/config"
	"github.com/kozaktomas/face-catalog/internal/detector"
	"github.com/kozaktomas/face-catalog/internal/index"
	"github.com/kozaktomas/face-catalog/internal/store"
)

// Catalog implements the face catalog operations on top of a durable
// store, an in-process embedding index and an external detector.
type Catalog struct {
	store    store.Store
	index    index.Index
	detector detector.Client
	cfg      *config.Config
	locks    *mutationCoordinator
	log      *logrus.Entry
}

func New(st store.Store, idx index.Index, det detector.Client, cfg *config.Config, log *logrus.Logger) *Catalog {
	return &Catalog{
		store:    st,
		index:    idx,
		detector: det,
		cfg:      cfg,
		locks:    newMutationCoordinator(),
		log:      log.WithField("component", "catalog"),
	}
}

// settlePerson recomputes a person's bookkeeping after one of their
// faces went away. Unnamed people with no faces left are collected
// immediately; everybody else gets the count and representative fixed.
func (c *Catalog) settlePerson(ctx context.Context, tx store.Store, personID, removedFaceID string) error {
	person, err := tx.GetPerson(ctx, personID)
	if err != nil {
		if errors.Is(err, store.ErrPersonNotFound) {
			return nil
		}
		return err
	}

	count, err := tx.CountFacesByPerson(ctx, personID)
	if err != nil {
		return err
	}

	if count == 0 && !person.Named() {
		c.log.WithField("person_id", personID).Debug("collecting empty unnamed person")
		return tx.DeletePerson(ctx, personID)
	}

	person.FaceCount = count
	if person.RepresentativeFaceID == removedFaceID {
		person.RepresentativeFaceID = ""
		faces, err := tx.FacesByPerson(ctx, personID)
		if err != nil {
			return err
		}
		if len(faces) > 0 {
			person.RepresentativeFaceID = faces[0].ID
		}
	}
	return tx.UpdatePerson(ctx, person)
}

// verifyPersonCount rechecks the stored face count against the actual
// assignments before a transaction commits.
func (c *Catalog) verifyPersonCount(ctx context.Context, tx store.Store, person *store.Person) error {
	count, err := tx.CountFacesByPerson(ctx, person.ID)
	if err != nil {
		return err
	}
	if count != person.FaceCount {
		return newError(KindInternal, "person %s face count drifted: stored %d, actual %d", person.ID, person.FaceCount, count)
	}
	return nil
}

// storeErr maps store sentinels onto the catalog error taxonomy.
func storeErr(err error) error {
	var ce *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ce):
		return err
	case errors.Is(err, store.ErrFaceNotFound):
		return wrapError(KindNotFound, err, "face not found")
	case errors.Is(err, store.ErrPersonNotFound):
		return wrapError(KindNotFound, err, "person not found")
	default:
		return wrapError(KindInternal, err, "store operation failed")
	}
}
