// Package store defines the durable face and person catalog. Two
// implementations exist: an in-memory store (tests, single-process
// deployments) and a PostgreSQL store. Both are transactional: RunInTx
// applies all mutations atomically or not at all.
package store

import (
	"context"
	"errors"
)

var (
	// ErrFaceNotFound is returned when a face ID does not exist.
	ErrFaceNotFound = errors.New("face not found")
	// ErrPersonNotFound is returned when a person ID does not exist.
	ErrPersonNotFound = errors.New("person not found")
)

// FaceReader provides read-only access to face records.
type FaceReader interface {
	// GetFace retrieves a face by ID.
	GetFace(ctx context.Context, faceID string) (*Face, error)
	// FacesByAsset retrieves all faces for an asset, ordered by creation
	// time ascending.
	FacesByAsset(ctx context.Context, accountID, assetID string) ([]Face, error)
	// FacesByPerson retrieves all faces assigned to a person, ordered by
	// creation time ascending.
	FacesByPerson(ctx context.Context, personID string) ([]Face, error)
	// CountFacesByPerson returns the live number of faces referencing a
	// person. Used to verify the FaceCount invariant.
	CountFacesByPerson(ctx context.Context, personID string) (int, error)
	// CountFaces returns the total number of faces for an account.
	CountFaces(ctx context.Context, accountID string) (int, error)
	// AllFaces returns every face in the store, ordered by creation time
	// ascending. Used to rebuild the embedding index at startup.
	AllFaces(ctx context.Context) ([]Face, error)
}

// FaceWriter provides write access to face records.
type FaceWriter interface {
	// CreateFace persists a new face. The store assigns Seq and fills
	// CreatedAt when zero.
	CreateFace(ctx context.Context, face *Face) error
	// UpdateFacePerson sets the face's person assignment; empty personID
	// detaches the face.
	UpdateFacePerson(ctx context.Context, faceID, personID string) error
	// DeleteFace removes a face record.
	DeleteFace(ctx context.Context, faceID string) error
}

// PersonReader provides read-only access to person records.
type PersonReader interface {
	// GetPerson retrieves a person by ID.
	GetPerson(ctx context.Context, personID string) (*Person, error)
	// PersonsByAccount lists an account's persons ordered by creation
	// time ascending.
	PersonsByAccount(ctx context.Context, accountID string) ([]Person, error)
	// CountPersons returns the number of persons for an account.
	CountPersons(ctx context.Context, accountID string) (int, error)
}

// PersonWriter provides write access to person records.
type PersonWriter interface {
	// CreatePerson persists a new person.
	CreatePerson(ctx context.Context, person *Person) error
	// UpdatePerson updates name, representative face and face count.
	UpdatePerson(ctx context.Context, person *Person) error
	// DeletePerson removes a person record. Faces referencing it are not
	// touched; the caller detaches them first.
	DeletePerson(ctx context.Context, personID string) error
}

// Store is the full catalog contract.
type Store interface {
	FaceReader
	FaceWriter
	PersonReader
	PersonWriter

	// RunInTx executes fn against a transactional view of the store.
	// All mutations made through the view are applied atomically when fn
	// returns nil and discarded when it returns an error.
	RunInTx(ctx context.Context, fn func(tx Store) error) error
}
