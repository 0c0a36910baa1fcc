package handlers

import (
	"time"

	"github.com/kozaktomas/face-catalog/internal/facegeom"
	"github.com/kozaktomas/face-catalog/internal/store"
)

type faceResponse struct {
	ID        string        `json:"id"`
	AssetID   string        `json:"asset_id"`
	BBox      facegeom.BBox `json:"bbox"`
	Model     string        `json:"model"`
	PersonID  string        `json:"person_id,omitempty"`
	Source    string        `json:"source"`
	CreatedAt time.Time     `json:"created_at"`
}

type personResponse struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	RepresentativeFaceID string    `json:"representative_face_id,omitempty"`
	FaceCount            int       `json:"face_count"`
	CreatedAt            time.Time `json:"created_at"`
}

func toFaceResponse(f *store.Face) faceResponse {
	return faceResponse{
		ID:        f.ID,
		AssetID:   f.AssetID,
		BBox:      f.BBox,
		Model:     f.Model,
		PersonID:  f.PersonID,
		Source:    string(f.Source),
		CreatedAt: f.CreatedAt,
	}
}

func toPersonResponse(p *store.Person) personResponse {
	return personResponse{
		ID:                   p.ID,
		Name:                 p.Name,
		RepresentativeFaceID: p.RepresentativeFaceID,
		FaceCount:            p.FaceCount,
		CreatedAt:            p.CreatedAt,
	}
}
