// Package detector wraps the external face detection and embedding
// service. The service receives raw image bytes and returns one
// observation per detected face: a pixel bounding box, a detection
// confidence and an embedding vector.
package detector

import (
	"context"
	"errors"
)

// ErrModelUnavailable is returned when the detection service cannot be
// reached or fails server-side.
var ErrModelUnavailable = errors.New("face detection model unavailable")

// Observation is a single detected face.
type Observation struct {
	// BBox is [x1, y1, x2, y2] in pixel coordinates of the analyzed image.
	BBox [4]float64
	// Confidence is the detector's score in (0, 1].
	Confidence float64
	// Embedding is the face identity vector.
	Embedding []float32
}

// Result is the full detector output for one image.
type Result struct {
	// Observations are ordered by detector confidence descending.
	Observations []Observation
	// Width and Height are the analyzed image dimensions in pixels.
	Width  int
	Height int
	// Model and Dim describe the embedding model that produced the vectors.
	Model string
	Dim   int
}

// Client invokes the external detector/embedder.
type Client interface {
	DetectAndEmbed(ctx context.Context, image []byte) (*Result, error)
}
