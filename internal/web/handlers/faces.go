package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-catalog/internal/catalog"
	"github.com/kozaktomas/face-catalog/internal/facegeom"
	"github.com/kozaktomas/face-catalog/internal/store"
	"github.com/kozaktomas/face-catalog/internal/web/middleware"
)

// FacesHandler handles face endpoints.
type FacesHandler struct {
	catalog *catalog.Catalog
}

func NewFacesHandler(cat *catalog.Catalog) *FacesHandler {
	return &FacesHandler{catalog: cat}
}

type createFaceRequest struct {
	BBox      facegeom.BBox `json:"bbox"`
	Embedding []float32     `json:"embedding"`
	Source    string        `json:"source"`
}

// Create registers a manually marked face for an asset.
func (h *FacesHandler) Create(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	var req createFaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	face, err := h.catalog.CreateFace(r.Context(), catalog.CreateFaceParams{
		AccountID: middleware.AccountID(r.Context()),
		AssetID:   assetID,
		BBox:      req.BBox,
		Embedding: req.Embedding,
		Source:    store.Source(req.Source),
	})
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toFaceResponse(face))
}

// ListByAsset returns the faces registered for an asset.
func (h *FacesHandler) ListByAsset(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	faces, err := h.catalog.FacesByAsset(r.Context(), middleware.AccountID(r.Context()), assetID)
	if err != nil {
		respondCatalogError(w, err)
		return
	}

	out := make([]faceResponse, 0, len(faces))
	for i := range faces {
		out = append(out, toFaceResponse(&faces[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"faces": out})
}

// Delete removes a face. ?force=true overrides the protection against
// orphaning a named person.
func (h *FacesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	faceID := chi.URLParam(r, "faceID")
	force := r.URL.Query().Get("force") == "true"

	if err := h.catalog.DeleteFace(r.Context(), middleware.AccountID(r.Context()), faceID, force); err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type assignFaceRequest struct {
	PersonID string `json:"person_id"`
}

// Assign moves a face to an existing person.
func (h *FacesHandler) Assign(w http.ResponseWriter, r *http.Request) {
	faceID := chi.URLParam(r, "faceID")

	var req assignFaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.PersonID == "" {
		respondError(w, http.StatusBadRequest, "person_id is required")
		return
	}

	person, err := h.catalog.Reassign(r.Context(), middleware.AccountID(r.Context()), faceID, req.PersonID)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPersonResponse(person))
}

// Detach removes a face's person assignment.
func (h *FacesHandler) Detach(w http.ResponseWriter, r *http.Request) {
	faceID := chi.URLParam(r, "faceID")

	if err := h.catalog.Detach(r.Context(), middleware.AccountID(r.Context()), faceID); err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
