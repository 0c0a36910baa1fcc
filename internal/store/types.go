package store

import (
	"time"

	"github.com/kozaktomas/face-catalog/internal/facegeom"
)

// Source records how a face entered the catalog.
type Source string

const (
	SourceManual   Source = "manual"
	SourceDetected Source = "detected"
)

// Face is a detected or manually marked face region with its embedding.
// PersonID is empty while the face is unassigned. Seq is a store-assigned
// insertion sequence used for stable ordering alongside CreatedAt.
type Face struct {
	ID        string
	AccountID string
	AssetID   string
	BBox      facegeom.BBox
	Embedding []float32
	Model     string
	Dim       int
	PersonID  string
	Source    Source
	CreatedAt time.Time
	Seq       int64
}

// Person is a cluster of faces believed to depict the same individual.
// Name is empty for auto-created clusters; a non-empty name marks the
// person as user-named and protects it from garbage collection.
// FaceCount is denormalized and must equal the number of faces
// referencing the person after every mutation.
type Person struct {
	ID                   string
	AccountID            string
	Name                 string
	RepresentativeFaceID string
	FaceCount            int
	CreatedAt            time.Time
}

// Named reports whether the person was explicitly named by a user.
func (p *Person) Named() bool {
	return p.Name != ""
}
