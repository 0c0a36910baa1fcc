package catalog

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-catalog/internal/namematch"
	"github.com/kozaktomas/face-catalog/internal/store"
)

// Reassign moves a face to an existing person in the same account and
// returns the person with refreshed bookkeeping. The previous person,
// if any, gets settled in the same transaction.
func (c *Catalog) Reassign(ctx context.Context, accountID, faceID, personID string) (*store.Person, error) {
	face, err := c.faceForAccount(ctx, accountID, faceID)
	if err != nil {
		return nil, err
	}
	target, err := c.store.GetPerson(ctx, personID)
	if err != nil {
		return nil, storeErr(err)
	}
	// Checked before any write so a refused reassignment leaves both
	// people exactly as they were.
	if target.AccountID != face.AccountID {
		return nil, wrapError(KindConflict, ErrCrossAccountAssignment, "face %s cannot join person %s", faceID, personID)
	}

	// The assignment can change between the lookup and taking the
	// person locks; re-check under the locks and follow the move so
	// only locked people get settled.
	var updated *store.Person
	for {
		sourceID := face.PersonID
		retry := false
		err = c.locks.withPersons([]string{sourceID, personID}, func() error {
			return c.store.RunInTx(ctx, func(tx store.Store) error {
				cur, err := tx.GetFace(ctx, faceID)
				if err != nil {
					return err
				}
				if cur.PersonID != sourceID && cur.PersonID != personID {
					face = cur
					retry = true
					return errors.New("assignment changed")
				}
				if err := tx.UpdateFacePerson(ctx, faceID, personID); err != nil {
					return err
				}
				if cur.PersonID != "" && cur.PersonID != personID {
					if err := c.settlePerson(ctx, tx, cur.PersonID, faceID); err != nil {
						return err
					}
				}

				tgt, err := tx.GetPerson(ctx, personID)
				if err != nil {
					return err
				}
				count, err := tx.CountFacesByPerson(ctx, personID)
				if err != nil {
					return err
				}
				tgt.FaceCount = count
				if tgt.RepresentativeFaceID == "" {
					tgt.RepresentativeFaceID = faceID
				}
				if err := tx.UpdatePerson(ctx, tgt); err != nil {
					return err
				}
				if err := c.verifyPersonCount(ctx, tx, tgt); err != nil {
					return err
				}
				updated = tgt
				return nil
			})
		})
		if !retry {
			break
		}
	}
	if err != nil {
		return nil, storeErr(err)
	}

	c.log.WithFields(logrus.Fields{
		"face_id":   faceID,
		"person_id": personID,
		"account":   accountID,
	}).Info("face reassigned")
	return updated, nil
}

// Detach removes a face's person assignment without deleting the face.
func (c *Catalog) Detach(ctx context.Context, accountID, faceID string) error {
	face, err := c.faceForAccount(ctx, accountID, faceID)
	if err != nil {
		return err
	}
	if face.PersonID == "" {
		return nil
	}

	err = c.locks.withPerson(face.PersonID, func() error {
		return c.store.RunInTx(ctx, func(tx store.Store) error {
			cur, err := tx.GetFace(ctx, faceID)
			if err != nil {
				return err
			}
			if cur.PersonID == "" {
				return nil
			}
			if err := tx.UpdateFacePerson(ctx, faceID, ""); err != nil {
				return err
			}
			return c.settlePerson(ctx, tx, cur.PersonID, faceID)
		})
	})
	if err != nil {
		return storeErr(err)
	}

	c.log.WithFields(logrus.Fields{
		"face_id": faceID,
		"account": accountID,
	}).Info("face detached")
	return nil
}

// CreatePersonFromFace creates a fresh unnamed person seeded with one
// face. The face becomes the representative.
func (c *Catalog) CreatePersonFromFace(ctx context.Context, accountID, faceID string) (*store.Person, error) {
	face, err := c.faceForAccount(ctx, accountID, faceID)
	if err != nil {
		return nil, err
	}

	person := &store.Person{
		ID:                   uuid.NewString(),
		AccountID:            face.AccountID,
		RepresentativeFaceID: faceID,
		FaceCount:            1,
	}

	// Same re-check as Reassign: the face can move before the source
	// person's lock is held.
	for {
		sourceID := face.PersonID
		retry := false
		err = c.locks.withPerson(sourceID, func() error {
			return c.store.RunInTx(ctx, func(tx store.Store) error {
				cur, err := tx.GetFace(ctx, faceID)
				if err != nil {
					return err
				}
				if cur.PersonID != sourceID {
					face = cur
					retry = true
					return errors.New("assignment changed")
				}
				if err := tx.CreatePerson(ctx, person); err != nil {
					return err
				}
				if err := tx.UpdateFacePerson(ctx, faceID, person.ID); err != nil {
					return err
				}
				if cur.PersonID != "" {
					if err := c.settlePerson(ctx, tx, cur.PersonID, faceID); err != nil {
						return err
					}
				}
				return c.verifyPersonCount(ctx, tx, person)
			})
		})
		if !retry {
			break
		}
	}
	if err != nil {
		return nil, storeErr(err)
	}

	c.log.WithFields(logrus.Fields{
		"face_id":   faceID,
		"person_id": person.ID,
		"account":   accountID,
	}).Info("person created from face")
	return person, nil
}

// RenamePerson sets a person's display name. Naming a person makes the
// record durable even when it later runs out of faces. The name must
// contain at least one letter or digit after normalization.
func (c *Catalog) RenamePerson(ctx context.Context, accountID, personID, name string) (*store.Person, error) {
	trimmed := strings.TrimSpace(name)
	if !strings.ContainsFunc(namematch.Normalize(trimmed), func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) {
		return nil, newError(KindInvalidInput, "person name must contain a letter or digit")
	}

	var updated *store.Person
	err := c.locks.withPerson(personID, func() error {
		return c.store.RunInTx(ctx, func(tx store.Store) error {
			person, err := tx.GetPerson(ctx, personID)
			if err != nil {
				return err
			}
			if person.AccountID != accountID {
				return store.ErrPersonNotFound
			}
			person.Name = trimmed
			if err := tx.UpdatePerson(ctx, person); err != nil {
				return err
			}
			updated = person
			return nil
		})
	})
	if err != nil {
		return nil, storeErr(err)
	}

	c.log.WithFields(logrus.Fields{
		"person_id": personID,
		"account":   accountID,
	}).Info("person renamed")
	return updated, nil
}

// ListPeople lists an account's people, optionally filtered by a
// diacritic- and case-insensitive name match.
func (c *Catalog) ListPeople(ctx context.Context, accountID, nameFilter string) ([]store.Person, error) {
	people, err := c.store.PersonsByAccount(ctx, accountID)
	if err != nil {
		return nil, storeErr(err)
	}
	if nameFilter == "" {
		return people, nil
	}
	filtered := make([]store.Person, 0, len(people))
	for _, p := range people {
		if namematch.Equal(p.Name, nameFilter) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// GetPerson loads one person, hidden from other accounts.
func (c *Catalog) GetPerson(ctx context.Context, accountID, personID string) (*store.Person, error) {
	return c.personForAccount(ctx, accountID, personID)
}

// SetRepresentativeFace picks which face fronts a person. The face must
// already be assigned to that person.
func (c *Catalog) SetRepresentativeFace(ctx context.Context, accountID, personID, faceID string) (*store.Person, error) {
	var updated *store.Person
	err := c.locks.withPerson(personID, func() error {
		return c.store.RunInTx(ctx, func(tx store.Store) error {
			person, err := tx.GetPerson(ctx, personID)
			if err != nil {
				return err
			}
			if person.AccountID != accountID {
				return store.ErrPersonNotFound
			}
			face, err := tx.GetFace(ctx, faceID)
			if err != nil {
				return err
			}
			if face.PersonID != personID {
				return newError(KindConflict, "face %s is not assigned to person %s", faceID, personID)
			}
			person.RepresentativeFaceID = faceID
			if err := tx.UpdatePerson(ctx, person); err != nil {
				return err
			}
			updated = person
			return nil
		})
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return updated, nil
}

func (c *Catalog) personForAccount(ctx context.Context, accountID, personID string) (*store.Person, error) {
	person, err := c.store.GetPerson(ctx, personID)
	if err != nil {
		return nil, storeErr(err)
	}
	if person.AccountID != accountID {
		return nil, wrapError(KindNotFound, store.ErrPersonNotFound, "person not found")
	}
	return person, nil
}
