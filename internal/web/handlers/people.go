package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-catalog/internal/catalog"
	"github.com/kozaktomas/face-catalog/internal/web/middleware"
)

// PeopleHandler handles person endpoints.
type PeopleHandler struct {
	catalog *catalog.Catalog
}

func NewPeopleHandler(cat *catalog.Catalog) *PeopleHandler {
	return &PeopleHandler{catalog: cat}
}

type createPersonRequest struct {
	FaceID string `json:"face_id"`
}

// Create makes a new person seeded from an existing face.
func (h *PeopleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.FaceID == "" {
		respondError(w, http.StatusBadRequest, "face_id is required")
		return
	}

	person, err := h.catalog.CreatePersonFromFace(r.Context(), middleware.AccountID(r.Context()), req.FaceID)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toPersonResponse(person))
}

// List returns the account's people, optionally filtered by name. The
// filter ignores case and diacritics.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	people, err := h.catalog.ListPeople(r.Context(), middleware.AccountID(r.Context()), r.URL.Query().Get("name"))
	if err != nil {
		respondCatalogError(w, err)
		return
	}

	out := make([]personResponse, 0, len(people))
	for i := range people {
		out = append(out, toPersonResponse(&people[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"people": out})
}

// Get returns one person.
func (h *PeopleHandler) Get(w http.ResponseWriter, r *http.Request) {
	person, err := h.catalog.GetPerson(r.Context(), middleware.AccountID(r.Context()), chi.URLParam(r, "personID"))
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPersonResponse(person))
}

type renamePersonRequest struct {
	Name string `json:"name"`
}

// Rename sets a person's display name.
func (h *PeopleHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renamePersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	person, err := h.catalog.RenamePerson(r.Context(), middleware.AccountID(r.Context()), chi.URLParam(r, "personID"), req.Name)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPersonResponse(person))
}

type representativeRequest struct {
	FaceID string `json:"face_id"`
}

// SetRepresentative picks the face shown for a person.
func (h *PeopleHandler) SetRepresentative(w http.ResponseWriter, r *http.Request) {
	var req representativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.FaceID == "" {
		respondError(w, http.StatusBadRequest, "face_id is required")
		return
	}

	person, err := h.catalog.SetRepresentativeFace(r.Context(), middleware.AccountID(r.Context()), chi.URLParam(r, "personID"), req.FaceID)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPersonResponse(person))
}
